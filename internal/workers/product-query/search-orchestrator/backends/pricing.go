// internal/workers/product-query/search-orchestrator/backends/pricing.go
package backends

import (
	"context"
	"strings"

	apperrors "product-query-router/internal/common/errors"
	httpclient "product-query-router/internal/common/http"
	"product-query-router/internal/models"
)

// PricingUnit is the unit of measure every price request asks for.
const PricingUnit = "EA"

// PricingLookup asks the pricing service for one item. The client carries
// the bearer token header.
type PricingLookup struct {
	client *httpclient.Client
}

func NewPricingLookup(client *httpclient.Client) *PricingLookup {
	return &PricingLookup{client: client}
}

func (l *PricingLookup) Name() string { return l.client.Backend() }

type pricingItemRequest struct {
	ItemCode string `json:"item_code"`
	Unit     string `json:"unit"`
}

type pricingRequest struct {
	Items []pricingItemRequest `json:"items"`
}

type pricingResponse struct {
	Items []struct {
		ItemCode          string  `json:"item_code"`
		Price             float64 `json:"price"`
		InStock           bool    `json:"in_stock"`
		AvailableQuantity int     `json:"available_quantity"`
	} `json:"items"`
}

// Price returns nil without error when the service has no price for the part.
func (l *PricingLookup) Price(ctx context.Context, partNumber string) (*models.PriceRecord, error) {
	partNumber = strings.TrimSpace(partNumber)
	req := pricingRequest{Items: []pricingItemRequest{{ItemCode: partNumber, Unit: PricingUnit}}}

	var resp pricingResponse
	err := l.client.PostJSON(ctx, "/api/pricing", req, &resp)
	if apperrors.HasCode(err, apperrors.ErrCodeResourceNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, nil
	}

	item := resp.Items[0]
	return &models.PriceRecord{
		PartNumber:        partNumber,
		Price:             item.Price,
		InStock:           item.InStock,
		AvailableQuantity: item.AvailableQuantity,
	}, nil
}
