// Package adapter contains the narrow clients for the external
// collaborators of the pipeline: the identity-governance engine that
// executes approved actions, and the access-graph service that reports an
// identity's blast radius. Neither client holds business logic.
package adapter

import (
	"context"

	"github.com/quorumsec/remedia/pkg/domain"
)

// ExecutionRequest carries one approved action to the governance engine.
// IdentityRef is opaque to the pipeline; the engine resolves it.
type ExecutionRequest struct {
	IncidentID  string
	ActionID    string
	IdentityRef string
	Parameters  map[string]any
}

// GovernanceAdapter executes a single remediation action against the
// governance engine. From the orchestrator's point of view the call is
// synchronous and returns exactly one terminal result per invocation; any
// retry policy is internal to the adapter.
type GovernanceAdapter interface {
	// Execute performs the remediation call. On engine or transport
	// failure it returns a failed result together with the causing error.
	Execute(ctx context.Context, req ExecutionRequest) (domain.ExecutionResult, error)

	// Revert rolls back a prior execution. Not implemented in this phase;
	// it reports domain.ErrRevertUnsupported rather than silently
	// no-opping. Reversal is deferred to the governance engine.
	Revert(ctx context.Context, executionID string) error
}
