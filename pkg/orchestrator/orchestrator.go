// Package orchestrator implements the approval-to-execution control loop.
// A pass turns newly-approved actions into dispatch attempts against the
// governance adapter, enforcing the allow-list, latest-decision-wins
// resolution, and at-most-once execution per (incident, action) pair.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/quorumsec/remedia/pkg/adapter"
	"github.com/quorumsec/remedia/pkg/domain"
	"github.com/quorumsec/remedia/pkg/ledger"
	"github.com/quorumsec/remedia/pkg/telemetry"
)

// PassResult is one (incident, action, outcome) tuple produced by a pass.
type PassResult struct {
	IncidentID string                 `json:"incident_id"`
	ActionID   string                 `json:"action_id"`
	Execution  domain.ExecutionResult `json:"execution"`
}

// Orchestrator binds the ledgers to the governance adapter. The adapter is
// injected at construction; nothing is resolved dynamically at call time.
type Orchestrator struct {
	incidents  *ledger.IncidentLedger
	approvals  *ledger.ApprovalLedger
	executions *ledger.ExecutionLog
	governance adapter.GovernanceAdapter
	logger     *slog.Logger
}

// New creates an orchestrator over the given ledgers and adapter.
func New(
	incidents *ledger.IncidentLedger,
	approvals *ledger.ApprovalLedger,
	executions *ledger.ExecutionLog,
	governance adapter.GovernanceAdapter,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		incidents:  incidents,
		approvals:  approvals,
		executions: executions,
		governance: governance,
		logger:     logger,
	}
}

// RunPass performs one synchronous sweep over the approval ledger snapshot
// taken at the start of the pass. For every incident with approvals it
// resolves the current decision per (incident, action) pair, dispatches
// approved catalogued actions that have no prior execution record, and
// appends every outcome to the execution log. A failed dispatch becomes a
// recorded failed result, never an aborted pass; only a persistence
// failure stops the sweep.
func (o *Orchestrator) RunPass(ctx context.Context) ([]PassResult, error) {
	tracer := otel.Tracer("remedia.orchestrator")
	ctx, span := tracer.Start(ctx, "orchestrator.run_pass")
	defer span.End()

	start := time.Now()

	approvalsByIncident, err := o.approvals.All(ctx)
	if err != nil {
		return nil, err
	}
	executed, err := o.executions.All(ctx)
	if err != nil {
		return nil, err
	}

	// Stable incident order keeps passes deterministic and auditable.
	incidentIDs := make([]string, 0, len(approvalsByIncident))
	for id := range approvalsByIncident {
		incidentIDs = append(incidentIDs, id)
	}
	sort.Strings(incidentIDs)

	results := make([]PassResult, 0)
	failed := 0

	for _, incidentID := range incidentIDs {
		incident, err := o.incidents.Get(ctx, incidentID)
		if err != nil {
			// A dangling or corrupt incident skips its approvals; it must
			// not fail the whole pass.
			if errors.Is(err, domain.ErrIncidentNotFound) || errors.Is(err, domain.ErrCorruptStore) {
				telemetry.RecordSkip(ctx, telemetry.SkipIncidentMissing)
				o.logger.Warn("skipping approvals for unresolvable incident",
					"incident_id", incidentID, "error", err)
				continue
			}
			return results, err
		}
		if incident.IdentityRef == "" {
			telemetry.RecordSkip(ctx, telemetry.SkipNoIdentityRef)
			o.logger.Warn("skipping incident without identity_ref", "incident_id", incidentID)
			continue
		}

		decisions := domain.CurrentDecisions(approvalsByIncident[incidentID])

		actionIDs := make([]string, 0, len(decisions))
		for actionID := range decisions {
			actionIDs = append(actionIDs, actionID)
		}
		sort.Strings(actionIDs)

		for _, actionID := range actionIDs {
			entry := decisions[actionID]
			if entry.Status != domain.ApprovalApproved {
				telemetry.RecordSkip(ctx, telemetry.SkipNotApproved)
				continue
			}
			if !domain.SupportedAction(actionID) {
				telemetry.RecordSkip(ctx, telemetry.SkipUnsupportedAction)
				o.logger.Warn("approved action outside catalog, not dispatching",
					"incident_id", incidentID, "action_id", actionID)
				continue
			}
			if hasExecution(executed[incidentID], actionID) {
				telemetry.RecordSkip(ctx, telemetry.SkipAlreadyExecuted)
				continue
			}

			record, result := o.dispatch(ctx, incident, actionID)
			if result.Status == domain.ExecutionFailed {
				failed++
			}
			if err := o.executions.Append(ctx, record); err != nil {
				return results, err
			}
			results = append(results, PassResult{
				IncidentID: incidentID,
				ActionID:   actionID,
				Execution:  result,
			})
		}
	}

	span.SetAttributes(
		attribute.Int("pass.dispatched", len(results)),
		attribute.Int("pass.failed", failed),
	)
	telemetry.RecordPass(ctx, telemetry.PassMetrics{
		Dispatched: len(results),
		Failed:     failed,
		Duration:   time.Since(start),
	})
	o.logger.Info("orchestration pass complete",
		"dispatched", len(results),
		"failed", failed,
		"duration_ms", time.Since(start).Milliseconds())
	return results, nil
}

// dispatch calls the governance adapter for one approved action and shapes
// the audit record. Adapter failures become a recorded failed result with
// reversible=false; they are a business outcome, not a pipeline fault.
func (o *Orchestrator) dispatch(ctx context.Context, incident domain.Incident, actionID string) (domain.ExecutionRecord, domain.ExecutionResult) {
	params := map[string]any{}

	result, err := o.governance.Execute(ctx, adapter.ExecutionRequest{
		IncidentID:  incident.IncidentID,
		ActionID:    actionID,
		IdentityRef: incident.IdentityRef,
		Parameters:  params,
	})
	if err != nil {
		o.logger.Warn("dispatch failed",
			"incident_id", incident.IncidentID,
			"action_id", actionID,
			"error", err)
		result.Status = domain.ExecutionFailed
		result.Reversible = false
	}
	if result.ExecutionID == "" {
		result.ExecutionID = uuid.New().String()
	}
	if result.RevertHint == nil {
		result.RevertHint = map[string]any{}
	}

	telemetry.RecordDispatch(ctx, actionID, string(result.Status))

	return domain.ExecutionRecord{
		IncidentID:  incident.IncidentID,
		ActionID:    actionID,
		IdentityRef: incident.IdentityRef,
		Parameters:  params,
		Result:      result,
	}, result
}

func hasExecution(records []domain.ExecutionRecord, actionID string) bool {
	for _, r := range records {
		if r.ActionID == actionID {
			return true
		}
	}
	return false
}
