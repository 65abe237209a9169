// internal/models/intent.go
package models

import "strings"

// Intent is the closed set of things a user can ask for.
type Intent string

const (
	IntentProductSearch Intent = "PRODUCT_SEARCH"
	IntentProductPrice  Intent = "PRODUCT_PRICE"
	IntentProductInfo   Intent = "PRODUCT_INFO"
	IntentStoreInfo     Intent = "STORE_INFO"
	IntentUnknown       Intent = "UNKNOWN"
)

// SupportedIntents lists the intents a classifier may produce, in prompt order.
var SupportedIntents = []Intent{
	IntentProductSearch,
	IntentProductPrice,
	IntentProductInfo,
	IntentStoreInfo,
}

// ParseIntent maps an untrusted label onto the closed set. Anything outside
// the four supported intents yields IntentUnknown and false.
func ParseIntent(label string) (Intent, bool) {
	normalized := Intent(strings.ToUpper(strings.TrimSpace(label)))
	for _, intent := range SupportedIntents {
		if normalized == intent {
			return intent, true
		}
	}
	return IntentUnknown, false
}

// Supported reports whether the intent routes to a backend.
func (i Intent) Supported() bool {
	_, ok := ParseIntent(string(i))
	return ok
}

// IntentSource tags which tier produced a classification. Used for logs and
// metrics only.
type IntentSource string

const (
	SourcePattern IntentSource = "pattern"
	SourcePlanner IntentSource = "planner"
	SourceNone    IntentSource = "none"
)

// Parameter names understood by the search orchestrator.
const (
	ParamPartNumber  = "part_number"
	ParamProductName = "product_name"
	ParamStoreRegion = "store_region"
	ParamQuery       = "query"
)

// KnownParameters is the set of keys that survive planner post-processing.
var KnownParameters = []string{ParamPartNumber, ParamProductName, ParamStoreRegion, ParamQuery}

// Parameters maps a parameter name to its extracted value.
type Parameters map[string]string

// Get returns the trimmed value for key, or "" when absent.
func (p Parameters) Get(key string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(p[key])
}

// Has reports whether key carries a non-blank value.
func (p Parameters) Has(key string) bool {
	return p.Get(key) != ""
}

// Clone returns an independent copy; a nil receiver yields an empty map.
func (p Parameters) Clone() Parameters {
	out := make(Parameters, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Classification is the output of either detection tier.
type Classification struct {
	Intent     Intent       `json:"intent"`
	Parameters Parameters   `json:"parameters"`
	Source     IntentSource `json:"source"`
}
