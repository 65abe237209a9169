// internal/workers/product-query/search-orchestrator/backends/parts.go
package backends

import (
	"context"
	"net/url"
	"strings"

	apperrors "product-query-router/internal/common/errors"
	httpclient "product-query-router/internal/common/http"
	"product-query-router/internal/models"
)

// PartLookup fetches a single product by its exact part number.
type PartLookup struct {
	client *httpclient.Client
}

func NewPartLookup(client *httpclient.Client) *PartLookup {
	return &PartLookup{client: client}
}

func (l *PartLookup) Name() string { return l.client.Backend() }

// Lookup returns nil without error when the part does not exist.
func (l *PartLookup) Lookup(ctx context.Context, partNumber string) (*models.ProductRecord, error) {
	partNumber = strings.TrimSpace(partNumber)
	if partNumber == "" {
		return nil, nil
	}

	var item productItem
	err := l.client.GetJSON(ctx, "/api/products/"+url.PathEscape(partNumber), nil, &item)
	if apperrors.HasCode(err, apperrors.ErrCodeResourceNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	record := item.toRecord()
	if record.PartNumber == "" {
		record.PartNumber = partNumber
	}
	if record.ID == "" {
		record.ID = partNumber
	}
	if record.Name == "" {
		record.Name = partNumber
	}
	return &record, nil
}
