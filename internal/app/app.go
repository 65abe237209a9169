// Package app assembles the query pipeline and its backing clients from
// configuration. Both the server and the ask CLI start from Build.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"product-query-router/internal/common/analytics"
	"product-query-router/internal/common/config"
	"product-query-router/internal/common/database"
	"product-query-router/internal/common/llm"
	"product-query-router/internal/common/logger"
	"product-query-router/internal/common/observability"
	agentmanager "product-query-router/internal/workers/product-query/agent-manager"
	intentplanner "product-query-router/internal/workers/product-query/intent-planner"
	patternmatcher "product-query-router/internal/workers/product-query/pattern-matcher"
	responseformatter "product-query-router/internal/workers/product-query/response-formatter"
	searchorchestrator "product-query-router/internal/workers/product-query/search-orchestrator"
)

// ConnectPolicy controls how long Build keeps retrying a backing store.
type ConnectPolicy struct {
	Attempts     int
	InitialDelay time.Duration
}

var DefaultConnectPolicy = ConnectPolicy{Attempts: 10, InitialDelay: 2 * time.Second}

// App owns the pipeline and every client Build opened.
type App struct {
	Manager *agentmanager.Manager
	Jobs    *agentmanager.JobHandler
	checks  map[string]func(context.Context) error
	closers []func() error
}

// Build connects the configured stores and wires the pipeline. Stores that
// the configuration does not select are never dialled.
func Build(ctx context.Context, cfg *config.Config, policy ConnectPolicy, obs *observability.Observability, log logger.Logger) (*App, error) {
	a := &App{checks: map[string]func(context.Context) error{}}
	deps := searchorchestrator.Dependencies{}

	if usesEngine(cfg, config.EngineElasticsearch) {
		index, err := database.NewProductIndex(cfg.Database.Elasticsearch, cfg.Search.ElasticsearchIndex)
		if err != nil {
			return nil, err
		}
		if err := connectWithRetry(ctx, policy, index.Ping, log, "Elasticsearch connection"); err != nil {
			return nil, err
		}
		deps.Elasticsearch = index.Client
		a.checks["elasticsearch"] = index.Ready
	}

	if cfg.Stores.Source == config.StoreSourcePostgres {
		pg, err := database.OpenStoreDirectory(cfg.Database.Postgres)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pg.Close)
		if err := connectWithRetry(ctx, policy, pg.Ping, log, "PostgreSQL connection"); err != nil {
			a.Close()
			return nil, err
		}
		deps.Postgres = pg.DB
		a.checks["postgres"] = pg.Ping
	}

	var recorder analytics.Recorder = analytics.NopRecorder{}
	if cfg.Analytics.Enabled {
		rc := database.NewOutcomeStream(cfg.Database.Redis)
		a.closers = append(a.closers, rc.Close)
		if err := connectWithRetry(ctx, policy, rc.Ping, log, "Redis connection"); err != nil {
			a.Close()
			return nil, err
		}
		recorder = analytics.NewRedisRecorder(rc.Client, cfg.Analytics.Stream, cfg.Analytics.MaxLen)
		a.checks["redis"] = rc.Ping
	}

	orchestrator, err := searchorchestrator.NewFromConfig(cfg, deps, obs, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("search orchestrator: %w", err)
	}

	var planner agentmanager.Planner
	if cfg.LLM.APIKey != "" {
		planner = intentplanner.New(
			&intentplanner.Config{Timeout: config.GetDuration(cfg.LLM.Timeout)},
			llm.NewOpenAICompleter(cfg.LLM),
			obs,
			log,
		)
	} else {
		log.Warn("llm.api_key not set, unmatched queries will be answered as unknown", nil)
	}

	queryTimeout := config.GetDuration(cfg.App.QueryTimeout)
	a.Manager = agentmanager.New(
		&agentmanager.Config{
			QueryTimeout:     queryTimeout,
			AnalyticsTimeout: 2 * time.Second,
		},
		patternmatcher.New(patternmatcher.LoadConfig()),
		planner,
		orchestrator,
		responseformatter.New(&responseformatter.Config{
			MaxRecords:     cfg.Formatter.MaxRecords,
			MaxMedia:       cfg.Formatter.MaxMedia,
			ProductBaseURL: cfg.Formatter.ProductBaseURL,
		}),
		recorder,
		obs,
		log,
	)
	a.Jobs = agentmanager.NewJobHandler(agentmanager.NewJobConfig(queryTimeout), a.Manager, obs, log)
	return a, nil
}

// Ready pings every opened store.
func (a *App) Ready(ctx context.Context) error {
	var errs []error
	for name, check := range a.checks {
		if err := check(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func usesEngine(cfg *config.Config, name string) bool {
	return cfg.Search.PrimaryEngine == name || cfg.Search.SecondaryEngine == name
}

// connectWithRetry runs ping with exponential backoff until it succeeds,
// attempts run out or ctx ends.
func connectWithRetry(ctx context.Context, policy ConnectPolicy, ping func(context.Context) error, log logger.Logger, operation string) error {
	if policy.Attempts <= 0 {
		policy.Attempts = 1
	}
	delay := policy.InitialDelay
	var err error
	for i := 0; i < policy.Attempts; i++ {
		if err = ping(ctx); err == nil {
			return nil
		}
		if i == policy.Attempts-1 {
			break
		}
		log.Warn(operation+" failed, retrying", map[string]interface{}{
			"error":       err.Error(),
			"attempt":     i + 1,
			"maxAttempts": policy.Attempts,
			"nextRetryIn": delay.String(),
		})
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s cancelled: %w", operation, ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}
	return fmt.Errorf("%s failed after %d attempts: %w", operation, policy.Attempts, err)
}
