// internal/workers/product-query/search-orchestrator/orchestrator.go
package searchorchestrator

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	apperrors "product-query-router/internal/common/errors"
	"product-query-router/internal/common/logger"
	"product-query-router/internal/common/metrics"
	"product-query-router/internal/common/observability"
	"product-query-router/internal/models"
)

const Component = "search-orchestrator"

// ErrUnroutableIntent is returned for intents that have no backend.
var ErrUnroutableIntent = errors.New("intent has no backend")

// Orchestrator executes one classified query against the backends. It holds
// no per-request state and is safe for concurrent use.
type Orchestrator struct {
	engines []Engine
	parts   PartLookup
	pricing PriceLookup
	stores  StoreLookup
	obs     *observability.Observability
	logger  logger.Logger
}

// New builds an orchestrator. engines are tried in order; parts is the last
// resort when a part number is known.
func New(engines []Engine, parts PartLookup, pricing PriceLookup, stores StoreLookup, obs *observability.Observability, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		engines: engines,
		parts:   parts,
		pricing: pricing,
		stores:  stores,
		obs:     obs,
		logger:  logger.ForComponent(log, Component),
	}
}

// Execute routes intent to its backend. Terminal outcomes are returned as
// *models.SearchFailure; any other error is unexpected.
func (o *Orchestrator) Execute(ctx context.Context, intent models.Intent, params models.Parameters) (models.SearchResult, error) {
	ctx, span := o.obs.StartSpan(ctx, "search-orchestrator.execute",
		attribute.String("intent", string(intent)))
	defer span.End()

	var (
		result models.SearchResult
		err    error
	)
	switch intent {
	case models.IntentProductSearch:
		result, err = o.searchProducts(ctx, params)
	case models.IntentProductInfo:
		result, err = o.productInfo(ctx, params)
	case models.IntentProductPrice:
		result, err = o.productPrice(ctx, params)
	case models.IntentStoreInfo:
		result, err = o.storeInfo(ctx, params)
	default:
		return models.SearchResult{}, apperrors.NewInternalError(fmt.Errorf("%w: %s", ErrUnroutableIntent, intent))
	}

	if err != nil {
		var failure *models.SearchFailure
		if errors.As(err, &failure) {
			metrics.SearchFailures.WithLabelValues(string(intent), string(failure.Kind)).Inc()
			span.SetAttributes(attribute.String("search.failure", string(failure.Kind)))
			o.logger.Info("search failed", map[string]interface{}{
				"intent": string(intent),
				"kind":   string(failure.Kind),
				"cause":  causeText(failure.Cause),
			})
		} else {
			span.RecordError(err)
		}
		return models.SearchResult{}, err
	}

	result.Intent = intent
	span.SetAttributes(
		attribute.String("search.source", result.Source),
		attribute.Int("search.records", result.Len()),
	)
	o.logger.Info("search completed", map[string]interface{}{
		"intent":  string(intent),
		"source":  result.Source,
		"records": result.Len(),
	})
	return result, nil
}

func (o *Orchestrator) searchProducts(ctx context.Context, params models.Parameters) (models.SearchResult, error) {
	term := firstNonEmpty(
		params.Get(models.ParamProductName),
		params.Get(models.ParamQuery),
		params.Get(models.ParamPartNumber),
	)
	if term == "" {
		return models.SearchResult{}, models.NewSearchFailure(models.FailureInsufficientParameters, models.IntentProductSearch, nil)
	}

	products, source, err := o.runChain(ctx, models.IntentProductSearch, term, params.Get(models.ParamPartNumber))
	if err != nil {
		return models.SearchResult{}, err
	}
	return models.SearchResult{Source: source, Products: products}, nil
}

func (o *Orchestrator) productInfo(ctx context.Context, params models.Parameters) (models.SearchResult, error) {
	partNumber := params.Get(models.ParamPartNumber)
	term := firstNonEmpty(partNumber, params.Get(models.ParamProductName))
	if term == "" {
		return models.SearchResult{}, models.NewSearchFailure(models.FailureInsufficientParameters, models.IntentProductInfo, nil)
	}

	products, source, err := o.runChain(ctx, models.IntentProductInfo, term, partNumber)
	if err != nil {
		return models.SearchResult{}, err
	}
	return models.SearchResult{Source: source, Products: products}, nil
}

// productPrice prices a known part number directly. With only a product
// name it first resolves a part number through the engine chain.
func (o *Orchestrator) productPrice(ctx context.Context, params models.Parameters) (models.SearchResult, error) {
	partNumber := params.Get(models.ParamPartNumber)
	name := params.Get(models.ParamProductName)
	if partNumber == "" && name == "" {
		return models.SearchResult{}, models.NewSearchFailure(models.FailureInsufficientParameters, models.IntentProductPrice, nil)
	}

	var product *models.ProductRecord
	if partNumber != "" {
		product = o.describePart(ctx, partNumber)
	} else {
		products, _, err := o.runChain(ctx, models.IntentProductPrice, name, "")
		if err != nil {
			return models.SearchResult{}, err
		}
		for i := range products {
			if products[i].PartNumber != "" {
				product = &products[i]
				break
			}
		}
		if product == nil {
			return models.SearchResult{}, models.NewSearchFailure(models.FailureNoResults, models.IntentProductPrice,
				fmt.Errorf("no part number among %d products for %q", len(products), name))
		}
		partNumber = product.PartNumber
	}

	if o.pricing == nil {
		return models.SearchResult{}, models.NewSearchFailure(models.FailureBackendUnavailable, models.IntentProductPrice,
			errors.New("pricing lookup not configured"))
	}
	price, err := o.pricing.Price(ctx, partNumber)
	if err != nil {
		return models.SearchResult{}, models.NewSearchFailure(models.FailureBackendUnavailable, models.IntentProductPrice, err)
	}
	if price == nil {
		return models.SearchResult{}, models.NewSearchFailure(models.FailureNoResults, models.IntentProductPrice,
			fmt.Errorf("no price for %s", partNumber))
	}

	record := *price
	if record.PartNumber == "" {
		record.PartNumber = partNumber
	}
	if product != nil {
		record.Name = product.Name
		record.Brand = product.Brand
	}
	return models.SearchResult{Source: o.pricing.Name(), Prices: []models.PriceRecord{record}}, nil
}

// describePart fetches display details for a part. Failures only cost the
// name and brand in the answer, so they are logged and swallowed.
func (o *Orchestrator) describePart(ctx context.Context, partNumber string) *models.ProductRecord {
	if o.parts == nil {
		return nil
	}
	product, err := o.parts.Lookup(ctx, partNumber)
	if err != nil {
		o.logger.Warn("part details unavailable", map[string]interface{}{
			"partNumber": partNumber,
			"error":      err.Error(),
		})
		return nil
	}
	return product
}

func (o *Orchestrator) storeInfo(ctx context.Context, params models.Parameters) (models.SearchResult, error) {
	if o.stores == nil {
		return models.SearchResult{}, models.NewSearchFailure(models.FailureBackendUnavailable, models.IntentStoreInfo,
			errors.New("store lookup not configured"))
	}

	stores, err := o.stores.FindStores(ctx, params.Get(models.ParamStoreRegion))
	if err != nil {
		return models.SearchResult{}, models.NewSearchFailure(models.FailureBackendUnavailable, models.IntentStoreInfo, err)
	}
	if len(stores) == 0 {
		return models.SearchResult{}, models.NewSearchFailure(models.FailureNoResults, models.IntentStoreInfo, nil)
	}
	return models.SearchResult{Source: o.stores.Name(), Stores: stores}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func causeText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
