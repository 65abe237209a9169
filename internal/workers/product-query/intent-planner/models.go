// internal/workers/product-query/intent-planner/models.go
package intentplanner

import "time"

// PlanningContext identifies the turn being planned. It is used for log
// correlation and tracing only and never reaches the prompt.
type PlanningContext struct {
	QueryID    string
	UserID     string
	ReceivedAt time.Time
}

func (c PlanningContext) fields() map[string]interface{} {
	return map[string]interface{}{
		"queryId": c.QueryID,
		"userId":  c.UserID,
	}
}

// planResponse is the decoded and schema-checked model output.
type planResponse struct {
	Intent     string                 `json:"intent"`
	Parameters map[string]interface{} `json:"parameters"`
}
