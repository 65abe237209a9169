// internal/workers/product-query/search-orchestrator/builder.go
package searchorchestrator

import (
	"database/sql"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"

	"product-query-router/internal/common/config"
	httpclient "product-query-router/internal/common/http"
	"product-query-router/internal/common/logger"
	"product-query-router/internal/common/observability"
	"product-query-router/internal/workers/product-query/search-orchestrator/backends"
)

// Backend names used for metrics and logs.
const (
	BackendParts   = "parts"
	BackendPricing = "pricing"
	BackendStores  = "stores"
)

// Dependencies are the optional shared clients some engines need. They
// are only required when the configuration selects them.
type Dependencies struct {
	Elasticsearch *elasticsearch.Client
	Postgres      *sql.DB
}

// RetryPolicyFromConfig converts the backend retry settings.
func RetryPolicyFromConfig(cfg config.BackendsConfig) httpclient.RetryPolicy {
	return httpclient.RetryPolicy{
		MaxRetries: cfg.MaxRetries,
		BaseDelay:  config.GetDuration(cfg.RetryBaseDelay),
		MaxDelay:   config.GetDuration(cfg.RetryMaxDelay),
	}
}

func newBackendClient(name string, cfg config.BackendsConfig, headers map[string]string) *httpclient.Client {
	return httpclient.NewClient(name, httpclient.Config{
		BaseURL:       cfg.BaseURL,
		Timeout:       config.GetDuration(cfg.Timeout),
		Retry:         RetryPolicyFromConfig(cfg),
		MaxConcurrent: int64(cfg.MaxConcurrent),
		Headers:       headers,
	})
}

// NewFromConfig wires the configured engines and lookups. Each backend gets
// its own client so concurrency limits apply per backend.
func NewFromConfig(cfg *config.Config, deps Dependencies, obs *observability.Observability, log logger.Logger) (*Orchestrator, error) {
	primary, err := buildEngine(cfg.Search.PrimaryEngine, cfg.Search.PrimaryLimit, cfg, deps)
	if err != nil {
		return nil, fmt.Errorf("primary engine: %w", err)
	}
	secondary, err := buildEngine(cfg.Search.SecondaryEngine, cfg.Search.SecondaryLimit, cfg, deps)
	if err != nil {
		return nil, fmt.Errorf("secondary engine: %w", err)
	}

	var pricingHeaders map[string]string
	if cfg.Backends.PricingToken != "" {
		pricingHeaders = map[string]string{"Authorization": "Bearer " + cfg.Backends.PricingToken}
	}

	var stores StoreLookup
	switch cfg.Stores.Source {
	case config.StoreSourcePostgres:
		if deps.Postgres == nil {
			return nil, fmt.Errorf("store source %q requires a PostgreSQL connection", cfg.Stores.Source)
		}
		stores = backends.NewPostgresStoreLookup(deps.Postgres, cfg.Stores.PageSize, RetryPolicyFromConfig(cfg.Backends))
	default:
		stores = backends.NewHTTPStoreLookup(newBackendClient(BackendStores, cfg.Backends, nil), backends.StoreSearchArea{
			Latitude:  cfg.Stores.Latitude,
			Longitude: cfg.Stores.Longitude,
			Radius:    cfg.Stores.Radius,
			PageSize:  cfg.Stores.PageSize,
		})
	}

	return New(
		[]Engine{primary, secondary},
		backends.NewPartLookup(newBackendClient(BackendParts, cfg.Backends, nil)),
		backends.NewPricingLookup(newBackendClient(BackendPricing, cfg.Backends, pricingHeaders)),
		stores,
		obs,
		log,
	), nil
}

// buildEngine gives every HTTP engine a client named after it, so attempts
// and limits are tracked per engine.
func buildEngine(name string, limit int, cfg *config.Config, deps Dependencies) (Engine, error) {
	switch name {
	case config.EngineVector:
		return backends.NewVectorEngine(newBackendClient(name, cfg.Backends, nil), limit), nil
	case config.EngineKeyword:
		return backends.NewKeywordEngine(newBackendClient(name, cfg.Backends, nil), limit), nil
	case config.EngineElasticsearch:
		if deps.Elasticsearch == nil {
			return nil, fmt.Errorf("engine %q requires an Elasticsearch client", name)
		}
		return backends.NewElasticsearchEngine(deps.Elasticsearch, cfg.Search.ElasticsearchIndex, limit, RetryPolicyFromConfig(cfg.Backends)), nil
	default:
		return nil, fmt.Errorf("unknown engine %q", name)
	}
}
