// internal/workers/product-query/intent-planner/planner.go
package intentplanner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"
	"go.opentelemetry.io/otel/attribute"

	apperrors "product-query-router/internal/common/errors"
	"product-query-router/internal/common/logger"
	"product-query-router/internal/common/metrics"
	"product-query-router/internal/common/observability"
	"product-query-router/internal/common/validation"
	"product-query-router/internal/models"
)

const Component = "intent-planner"

var (
	ErrIntentParsingFailed = errors.New("INTENT_PARSING_FAILED")
	ErrIntentAPITimeout    = errors.New("INTENT_API_TIMEOUT")
)

// Completer is the language-model capability the planner depends on.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Planner is the second classification tier. It makes exactly one model call
// per Plan and never retries.
type Planner struct {
	config    *Config
	completer Completer
	validator *validation.SchemaValidator
	obs       *observability.Observability
	logger    logger.Logger
}

func New(config *Config, completer Completer, obs *observability.Observability, log logger.Logger) *Planner {
	if config == nil {
		config = LoadConfig()
	}
	return &Planner{
		config:    config,
		completer: completer,
		validator: validation.MustSchemaValidator(responseSchema),
		obs:       obs,
		logger:    logger.ForComponent(log, Component),
	}
}

// IsPlanningFailure reports whether err came out of Plan.
func IsPlanningFailure(err error) bool {
	return errors.Is(err, ErrIntentParsingFailed) || errors.Is(err, ErrIntentAPITimeout)
}

// Plan classifies text with the model. A label outside the supported set
// yields IntentUnknown without error; a timeout, transport error or output
// that fails decoding yields a planning failure.
func (p *Planner) Plan(ctx context.Context, text string, pctx PlanningContext) (models.Classification, error) {
	ctx, span := p.obs.StartSpan(ctx, "intent-planner.plan",
		attribute.String("query.id", pctx.QueryID))
	defer span.End()

	log := p.logger.With(pctx.fields())
	start := time.Now()

	callCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	raw, err := p.completer.Complete(callCtx, systemPrompt, text)
	if err != nil {
		if callCtx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			metrics.PlannerCalls.WithLabelValues("timeout").Inc()
			log.Warn("planning call timed out", map[string]interface{}{
				"timeout":  p.config.Timeout.String(),
				"duration": time.Since(start).String(),
			})
			span.RecordError(err)
			return models.Classification{}, apperrors.NewIntentAPITimeoutError(fmt.Errorf("%w: %w", ErrIntentAPITimeout, err))
		}
		metrics.PlannerCalls.WithLabelValues("error").Inc()
		log.Error("planning call failed", map[string]interface{}{
			"error": err.Error(),
		})
		span.RecordError(err)
		return models.Classification{}, apperrors.NewIntentParsingFailedError(fmt.Errorf("%w: %w", ErrIntentParsingFailed, err))
	}

	resp, err := p.decode(raw)
	if err != nil {
		metrics.PlannerCalls.WithLabelValues("invalid").Inc()
		log.Warn("planning response rejected", map[string]interface{}{
			"error": err.Error(),
		})
		span.RecordError(err)
		return models.Classification{}, apperrors.NewIntentParsingFailedError(fmt.Errorf("%w: %w", ErrIntentParsingFailed, err))
	}

	intent, ok := models.ParseIntent(resp.Intent)
	if !ok {
		metrics.PlannerCalls.WithLabelValues("unknown_intent").Inc()
		log.Info("planner returned unsupported intent", map[string]interface{}{
			"label": resp.Intent,
		})
		return models.Classification{
			Intent:     models.IntentUnknown,
			Parameters: models.Parameters{},
			Source:     models.SourcePlanner,
		}, nil
	}

	intent, params := normalizeParameters(intent, resp.Parameters, text)
	metrics.PlannerCalls.WithLabelValues("success").Inc()
	span.SetAttributes(attribute.String("intent", string(intent)))
	log.Info("intent planned", map[string]interface{}{
		"intent":     string(intent),
		"paramCount": len(params),
		"duration":   time.Since(start).String(),
	})

	return models.Classification{
		Intent:     intent,
		Parameters: params,
		Source:     models.SourcePlanner,
	}, nil
}

// decode turns raw model text into a schema-valid response. Code fences and
// surrounding prose are stripped; syntactically broken JSON gets one repair
// pass.
func (p *Planner) decode(raw string) (*planResponse, error) {
	body := extractObject(stripFences(raw))
	if body == "" {
		return nil, fmt.Errorf("no JSON object in model output")
	}

	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		var syntaxErr *json.SyntaxError
		if !errors.As(err, &syntaxErr) {
			return nil, fmt.Errorf("decode model output: %w", err)
		}
		fixed, repairErr := jsonrepair.JSONRepair(body)
		if repairErr != nil {
			return nil, fmt.Errorf("repair model output: %w", repairErr)
		}
		doc = nil
		if err := json.Unmarshal([]byte(fixed), &doc); err != nil {
			return nil, fmt.Errorf("decode repaired model output: %w", err)
		}
	}

	if result := p.validator.Validate(doc); !result.Valid {
		return nil, fmt.Errorf("model output failed validation: %s", result.Error())
	}

	resp := &planResponse{}
	resp.Intent, _ = doc["intent"].(string)
	resp.Parameters, _ = doc["parameters"].(map[string]interface{})
	return resp, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// drop the language tag line, e.g. ```json
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// extractObject returns the text from the first '{' to the last '}'. An
// unterminated object is returned from its opening brace so repair can
// close it.
func extractObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	end := strings.LastIndexByte(s, '}')
	if end < start {
		return s[start:]
	}
	return s[start : end+1]
}

// normalizeParameters converts validated model parameters into the
// orchestrator's vocabulary. Brand and model hints become a product search
// unless a part number was given.
func normalizeParameters(intent models.Intent, raw map[string]interface{}, text string) (models.Intent, models.Parameters) {
	values := make(map[string]string, len(raw))
	for k, v := range raw {
		if s := stringValue(v); s != "" {
			values[strings.ToLower(strings.TrimSpace(k))] = s
		}
	}

	params := models.Parameters{}
	for _, key := range models.KnownParameters {
		if v, ok := values[key]; ok {
			params[key] = v
		}
	}
	if params.Has(models.ParamPartNumber) {
		params[models.ParamPartNumber] = strings.ToUpper(params.Get(models.ParamPartNumber))
	}

	brandModel := joinNonEmpty(values["brand"], values["model"])
	if brandModel != "" && !params.Has(models.ParamPartNumber) {
		name := params.Get(models.ParamProductName)
		if name == "" || !strings.Contains(strings.ToLower(name), strings.ToLower(brandModel)) {
			name = joinNonEmpty(brandModel, name)
		}
		params[models.ParamProductName] = name
		intent = models.IntentProductSearch
	}

	if intent == models.IntentProductSearch &&
		!params.Has(models.ParamProductName) &&
		!params.Has(models.ParamQuery) &&
		!params.Has(models.ParamPartNumber) {
		params[models.ParamQuery] = strings.TrimSpace(text)
	}

	return intent, params
}

func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return ""
	}
}

func joinNonEmpty(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
