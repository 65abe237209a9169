// internal/workers/product-query/pattern-matcher/models.go
package patternmatcher

import "product-query-router/internal/models"

// Rule names, in priority order.
const (
	RulePartNumber    = "part_number"
	RuleStoreKeyword  = "store_keyword"
	RuleProductSearch = "product_search"
)

// Result is either a match carrying an intent and parameters, or NoMatch.
type Result struct {
	Matched    bool
	Rule       string
	Intent     models.Intent
	Parameters models.Parameters
}

// NoMatch signals that the query must be escalated to the planner.
var NoMatch = Result{}

// Classification converts a match into the pipeline's classification value.
func (r Result) Classification() models.Classification {
	return models.Classification{
		Intent:     r.Intent,
		Parameters: r.Parameters.Clone(),
		Source:     models.SourcePattern,
	}
}
