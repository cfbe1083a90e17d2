package ledger

import (
	"context"
	"log/slog"
	"sync"

	"github.com/quorumsec/remedia/pkg/domain"
	"github.com/quorumsec/remedia/pkg/storage"
)

// ExecutionLog is the audit record of dispatch attempts. One record is
// appended per dispatch, success or failure, so the pipeline can answer
// "did we try this" without re-contacting the governance engine.
type ExecutionLog struct {
	store  storage.SnapshotStore
	logger *slog.Logger

	mu sync.Mutex
}

// NewExecutionLog creates a log over the given store.
func NewExecutionLog(store storage.SnapshotStore, logger *slog.Logger) *ExecutionLog {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecutionLog{store: store, logger: logger}
}

// executionSnapshot is the persisted document: ordered records keyed by
// incident id.
type executionSnapshot map[string][]domain.ExecutionRecord

// Append records one dispatch attempt.
func (l *ExecutionLog) Append(ctx context.Context, record domain.ExecutionRecord) error {
	if record.IncidentID == "" {
		return domain.Validation("incident_id must be a non-empty string")
	}
	if record.ActionID == "" {
		return domain.Validation("action_id must be a non-empty string")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	snapshot := executionSnapshot{}
	if _, err := l.store.Load(ctx, &snapshot); err != nil {
		return err
	}
	snapshot[record.IncidentID] = append(snapshot[record.IncidentID], record)

	if err := l.store.AtomicSave(ctx, snapshot); err != nil {
		return err
	}

	l.logger.Info("execution recorded",
		"incident_id", record.IncidentID,
		"action_id", record.ActionID,
		"execution_id", record.Result.ExecutionID,
		"status", string(record.Result.Status))
	return nil
}

// List returns every execution record for the incident in append order.
func (l *ExecutionLog) List(ctx context.Context, incidentID string) ([]domain.ExecutionRecord, error) {
	snapshot := executionSnapshot{}
	if _, err := l.store.Load(ctx, &snapshot); err != nil {
		return nil, err
	}

	records := make([]domain.ExecutionRecord, len(snapshot[incidentID]))
	copy(records, snapshot[incidentID])
	return records, nil
}

// All returns the full execution history keyed by incident id. The
// orchestrator snapshots this at the start of a pass for its at-most-once
// check.
func (l *ExecutionLog) All(ctx context.Context) (map[string][]domain.ExecutionRecord, error) {
	snapshot := executionSnapshot{}
	if _, err := l.store.Load(ctx, &snapshot); err != nil {
		return nil, err
	}

	all := make(map[string][]domain.ExecutionRecord, len(snapshot))
	for id, records := range snapshot {
		copied := make([]domain.ExecutionRecord, len(records))
		copy(copied, records)
		all[id] = copied
	}
	return all, nil
}
