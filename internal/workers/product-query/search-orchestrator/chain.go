// internal/workers/product-query/search-orchestrator/chain.go
package searchorchestrator

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"product-query-router/internal/common/metrics"
	"product-query-router/internal/models"
)

// runChain tries each engine with the same term until one returns products.
// When every engine comes back empty or failed and partNumber is set, the
// direct part lookup gets one final try. Retries happen inside each engine.
//
// On exhaustion the failure is NO_RESULTS if any source answered, even
// empty, and BACKEND_UNAVAILABLE if every source errored.
func (o *Orchestrator) runChain(ctx context.Context, intent models.Intent, term, partNumber string) ([]models.ProductRecord, string, error) {
	var (
		failures []error
		answered bool
	)
	useLookup := partNumber != "" && o.parts != nil

	for i, engine := range o.engines {
		if ctx.Err() != nil {
			break
		}

		outcome := o.searchEngine(ctx, engine, term)
		if outcome.Succeeded() {
			return outcome.Products, engine.Name(), nil
		}

		reason := "empty"
		if outcome.Failed() {
			reason = "error"
			failures = append(failures, fmt.Errorf("%s: %w", engine.Name(), outcome.Err))
		} else {
			answered = true
		}

		if i < len(o.engines)-1 || useLookup {
			metrics.EngineFallbacks.WithLabelValues(engine.Name(), reason).Inc()
			o.logger.Info("falling back to next search source", map[string]interface{}{
				"intent": string(intent),
				"engine": engine.Name(),
				"reason": reason,
			})
		}
	}

	if useLookup && ctx.Err() == nil {
		record, err := o.parts.Lookup(ctx, partNumber)
		switch {
		case err != nil:
			failures = append(failures, fmt.Errorf("%s: %w", o.parts.Name(), err))
		case record != nil:
			return []models.ProductRecord{*record}, o.parts.Name(), nil
		default:
			answered = true
		}
	}

	if err := ctx.Err(); err != nil {
		failures = append(failures, err)
	}

	kind := models.FailureNoResults
	if !answered {
		kind = models.FailureBackendUnavailable
	}
	return nil, "", models.NewSearchFailure(kind, intent, errors.Join(failures...))
}

func (o *Orchestrator) searchEngine(ctx context.Context, engine Engine, term string) models.EngineOutcome {
	ctx, span := o.obs.StartSpan(ctx, "search-orchestrator.engine",
		attribute.String("engine", engine.Name()))
	defer span.End()

	outcome := engine.Search(ctx, term)
	span.SetAttributes(
		attribute.String("engine.status", string(outcome.Status)),
		attribute.Int("engine.records", len(outcome.Products)),
	)
	if outcome.Err != nil {
		span.RecordError(outcome.Err)
	}
	return outcome
}
