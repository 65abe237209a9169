// internal/workers/product-query/search-orchestrator/models.go
package searchorchestrator

import (
	"context"

	"product-query-router/internal/models"
)

// Engine is one product search provider in the fallback chain.
type Engine interface {
	Name() string
	Search(ctx context.Context, term string) models.EngineOutcome
}

// PartLookup resolves an exact part number. A nil record with a nil error
// means not found.
type PartLookup interface {
	Name() string
	Lookup(ctx context.Context, partNumber string) (*models.ProductRecord, error)
}

// PriceLookup prices one part. A nil record with a nil error means the
// service has no price for it.
type PriceLookup interface {
	Name() string
	Price(ctx context.Context, partNumber string) (*models.PriceRecord, error)
}

type StoreLookup interface {
	Name() string
	FindStores(ctx context.Context, region string) ([]models.StoreRecord, error)
}
