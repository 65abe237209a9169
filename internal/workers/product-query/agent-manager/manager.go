// internal/workers/product-query/agent-manager/manager.go
package agentmanager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"product-query-router/internal/common/analytics"
	"product-query-router/internal/common/logger"
	"product-query-router/internal/common/metrics"
	"product-query-router/internal/common/observability"
	"product-query-router/internal/models"
	intentplanner "product-query-router/internal/workers/product-query/intent-planner"
	patternmatcher "product-query-router/internal/workers/product-query/pattern-matcher"
	responseformatter "product-query-router/internal/workers/product-query/response-formatter"
)

const Component = "agent-manager"

// Planner is the model-backed classification tier.
type Planner interface {
	Plan(ctx context.Context, text string, pctx intentplanner.PlanningContext) (models.Classification, error)
}

// Searcher executes a classified query against the backends.
type Searcher interface {
	Execute(ctx context.Context, intent models.Intent, params models.Parameters) (models.SearchResult, error)
}

// Manager runs one user turn through matcher, planner, search and
// formatter. It keeps no per-query state and is safe for concurrent use.
type Manager struct {
	config    *Config
	matcher   *patternmatcher.Matcher
	planner   Planner
	searcher  Searcher
	formatter *responseformatter.Formatter
	recorder  analytics.Recorder
	obs       *observability.Observability
	logger    logger.Logger
}

// New wires the pipeline. A nil planner leaves unmatched queries UNKNOWN; a
// nil recorder disables analytics.
func New(
	config *Config,
	matcher *patternmatcher.Matcher,
	planner Planner,
	searcher Searcher,
	formatter *responseformatter.Formatter,
	recorder analytics.Recorder,
	obs *observability.Observability,
	log logger.Logger,
) *Manager {
	if config == nil {
		config = LoadConfig()
	}
	if recorder == nil {
		recorder = analytics.NopRecorder{}
	}
	return &Manager{
		config:    config,
		matcher:   matcher,
		planner:   planner,
		searcher:  searcher,
		formatter: formatter,
		recorder:  recorder,
		obs:       obs,
		logger:    logger.ForComponent(log, Component),
	}
}

// Welcome is the greeting for a new conversation.
func (m *Manager) Welcome() models.Response {
	return m.formatter.Welcome()
}

// Handle always returns a Response. Failures of any stage, panics included,
// become a templated or generic apology.
func (m *Manager) Handle(ctx context.Context, query models.Query) (resp models.Response) {
	start := time.Now()
	metrics.QueriesInFlight.Inc()
	defer metrics.QueriesInFlight.Dec()

	ctx, span := m.obs.StartSpan(ctx, "agent-manager.handle",
		attribute.String("query.id", query.ID))
	defer span.End()

	log := m.logger.With(map[string]interface{}{
		"queryId": query.ID,
		"userId":  query.UserID,
	})
	t := &turn{intent: models.IntentUnknown, source: models.SourceNone}

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			log.Error("recovered from panic while handling query", map[string]interface{}{
				"error":  err.Error(),
				"intent": string(t.intent),
			})
			span.RecordError(err)
			span.SetStatus(codes.Error, "panic")
			t.outcome = OutcomeError
			resp = m.formatter.Apology(t.intent)
		}
		span.SetAttributes(
			attribute.String("intent", string(t.intent)),
			attribute.String("intent.source", string(t.source)),
			attribute.String("outcome", t.outcome),
		)
		m.finish(ctx, query, t, time.Since(start), log)
	}()

	return m.run(ctx, query, t, log)
}

func (m *Manager) run(ctx context.Context, query models.Query, t *turn, log logger.Logger) models.Response {
	if query.Text == "" {
		t.outcome = OutcomeEmptyQuery
		return m.formatter.Unknown()
	}
	log.Debug("handling query", map[string]interface{}{"text": query.Text})

	ctx, cancel := context.WithTimeout(ctx, m.config.QueryTimeout)
	defer cancel()

	classification, err := m.classify(ctx, query)
	if err != nil {
		t.source = models.SourcePlanner
		t.outcome = OutcomePlanningFailed
		log.Warn("planning failed, answering as unknown", map[string]interface{}{
			"error": err.Error(),
		})
		return m.formatter.Unknown()
	}
	t.intent = classification.Intent
	t.source = classification.Source

	if !classification.Intent.Supported() {
		t.intent = models.IntentUnknown
		t.outcome = OutcomeUnknownIntent
		return m.formatter.Unknown()
	}

	result, err := m.searcher.Execute(ctx, classification.Intent, classification.Parameters)
	if err != nil {
		var failure *models.SearchFailure
		if errors.As(err, &failure) {
			t.outcome = OutcomeSearchFailed
			t.failureKind = failure.Kind
		} else {
			t.outcome = OutcomeError
			log.Error("search returned an unexpected error", map[string]interface{}{
				"intent": string(t.intent),
				"error":  err.Error(),
			})
		}
		return m.formatter.Format(classification.Intent, models.SearchResult{}, err)
	}

	t.outcome = OutcomeAnswered
	t.records = result.Len()
	t.engine = result.Source
	return m.formatter.Format(classification.Intent, result, nil)
}

// classify runs the pattern tier and escalates to the planner only on
// NoMatch.
func (m *Manager) classify(ctx context.Context, query models.Query) (models.Classification, error) {
	if match := m.matcher.Match(query.Text); match.Matched {
		return match.Classification(), nil
	}
	if m.planner == nil {
		return models.Classification{
			Intent:     models.IntentUnknown,
			Parameters: models.Parameters{},
			Source:     models.SourceNone,
		}, nil
	}
	return m.planner.Plan(ctx, query.Text, intentplanner.PlanningContext{
		QueryID:    query.ID,
		UserID:     query.UserID,
		ReceivedAt: query.ReceivedAt,
	})
}

func (m *Manager) finish(ctx context.Context, query models.Query, t *turn, elapsed time.Duration, log logger.Logger) {
	metrics.QueriesTotal.WithLabelValues(string(t.intent), string(t.source)).Inc()
	m.obs.RecordQuery(ctx, string(t.intent), string(t.source), elapsed)

	log.Info("query handled", map[string]interface{}{
		"intent":      string(t.intent),
		"source":      string(t.source),
		"outcome":     t.outcome,
		"failureKind": string(t.failureKind),
		"records":     t.records,
		"engine":      t.engine,
		"durationMs":  elapsed.Milliseconds(),
	})

	// The write outlives a cancelled request so disconnects are still counted.
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.config.AnalyticsTimeout)
	defer cancel()
	err := m.recorder.Record(recordCtx, analytics.Event{
		QueryID:     query.ID,
		UserID:      query.UserID,
		Intent:      string(t.intent),
		Source:      string(t.source),
		Outcome:     t.outcome,
		FailureKind: string(t.failureKind),
		Records:     t.records,
		Duration:    elapsed,
		ReceivedAt:  query.ReceivedAt,
	})
	if err != nil {
		log.Warn("failed to record query outcome", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
