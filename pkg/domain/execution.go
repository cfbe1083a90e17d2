package domain

// ExecutionStatus is the terminal outcome of one dispatch attempt.
type ExecutionStatus string

const (
	ExecutionSuccess ExecutionStatus = "success"
	ExecutionFailed  ExecutionStatus = "failed"
)

// ExecutionResult is what the governance engine reports for a single
// dispatched action. RevertHint is opaque engine metadata for a future
// rollback phase; this phase only stores it.
type ExecutionResult struct {
	ExecutionID string          `json:"execution_id"`
	Status      ExecutionStatus `json:"status"`
	Reversible  bool            `json:"reversible"`
	RevertHint  map[string]any  `json:"revert_hint"`
}

// ExecutionRecord is the immutable audit record of one dispatch attempt.
// It is written regardless of outcome so that "did we try this" is
// answerable without re-contacting the governance engine.
type ExecutionRecord struct {
	IncidentID  string          `json:"incident_id"`
	ActionID    string          `json:"action_id"`
	IdentityRef string          `json:"identity_ref"`
	Parameters  map[string]any  `json:"parameters"`
	Result      ExecutionResult `json:"result"`
}
