// internal/models/outcome.go
package models

// OutcomeStatus classifies a single engine call after retries.
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeEmpty   OutcomeStatus = "empty"
	OutcomeFailure OutcomeStatus = "failure"
)

// EngineOutcome is what one product engine returned for one search.
type EngineOutcome struct {
	Engine   string          `json:"engine"`
	Status   OutcomeStatus   `json:"status"`
	Products []ProductRecord `json:"products,omitempty"`
	Err      error           `json:"-"`
}

// NewSuccessOutcome builds a success outcome, or an empty one when no
// products were found.
func NewSuccessOutcome(engine string, products []ProductRecord) EngineOutcome {
	if len(products) == 0 {
		return NewEmptyOutcome(engine)
	}
	return EngineOutcome{Engine: engine, Status: OutcomeSuccess, Products: products}
}

func NewEmptyOutcome(engine string) EngineOutcome {
	return EngineOutcome{Engine: engine, Status: OutcomeEmpty}
}

func NewFailureOutcome(engine string, err error) EngineOutcome {
	return EngineOutcome{Engine: engine, Status: OutcomeFailure, Err: err}
}

func (o EngineOutcome) Succeeded() bool { return o.Status == OutcomeSuccess }
func (o EngineOutcome) Failed() bool    { return o.Status == OutcomeFailure }
