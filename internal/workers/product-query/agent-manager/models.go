// internal/workers/product-query/agent-manager/models.go
package agentmanager

import (
	"time"

	"product-query-router/internal/models"
)

// JobInput are the variables of a handle-product-query job.
type JobInput struct {
	Text      string    `json:"text"`
	UserID    string    `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
}

// JobOutput is written back to the workflow on completion.
type JobOutput struct {
	QueryID      string            `json:"queryId"`
	ResponseText string            `json:"responseText"`
	Media        []models.MediaRef `json:"media"`
	Intent       models.Intent     `json:"intent"`
}

// Turn outcomes reported to logs and analytics.
const (
	OutcomeAnswered       = "answered"
	OutcomeSearchFailed   = "search_failed"
	OutcomePlanningFailed = "planning_failed"
	OutcomeUnknownIntent  = "unknown_intent"
	OutcomeEmptyQuery     = "empty_query"
	OutcomeError          = "error"
)

// turn accumulates what happened to one query for the closing log line,
// metrics and the analytics event.
type turn struct {
	intent      models.Intent
	source      models.IntentSource
	outcome     string
	failureKind models.FailureKind
	records     int
	engine      string
}
