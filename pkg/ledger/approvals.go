package ledger

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/quorumsec/remedia/pkg/domain"
	"github.com/quorumsec/remedia/pkg/storage"
)

// ApprovalLedger is the append-only record of approval and rejection
// decisions. It is deliberately a dumb, honest log: it does not check that
// an action id belongs to the catalog or that an incident exists — that
// cross-checking belongs to the orchestrator.
type ApprovalLedger struct {
	store  storage.SnapshotStore
	logger *slog.Logger

	mu  sync.Mutex
	now func() time.Time
}

// NewApprovalLedger creates a ledger over the given store.
func NewApprovalLedger(store storage.SnapshotStore, logger *slog.Logger) *ApprovalLedger {
	if logger == nil {
		logger = slog.Default()
	}
	return &ApprovalLedger{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// approvalSnapshot is the persisted document: ordered entries keyed by
// incident id.
type approvalSnapshot map[string][]domain.ApprovalEntry

// RecordApproval appends an approval entry for (incidentID, actionID).
func (l *ApprovalLedger) RecordApproval(ctx context.Context, incidentID, actionID, approver string) (domain.ApprovalEntry, error) {
	return l.record(ctx, incidentID, actionID, approver, domain.ApprovalApproved)
}

// RecordRejection appends a rejection entry for (incidentID, actionID).
func (l *ApprovalLedger) RecordRejection(ctx context.Context, incidentID, actionID, approver string) (domain.ApprovalEntry, error) {
	return l.record(ctx, incidentID, actionID, approver, domain.ApprovalRejected)
}

func (l *ApprovalLedger) record(ctx context.Context, incidentID, actionID, approver string, status domain.ApprovalStatus) (domain.ApprovalEntry, error) {
	if incidentID == "" {
		return domain.ApprovalEntry{}, domain.Validation("incident_id must be a non-empty string")
	}
	if actionID == "" {
		return domain.ApprovalEntry{}, domain.Validation("action_id must be a non-empty string")
	}
	if approver == "" {
		return domain.ApprovalEntry{}, domain.Validation("approver must be a non-empty string")
	}

	entry := domain.ApprovalEntry{
		IncidentID: incidentID,
		ActionID:   actionID,
		Approver:   approver,
		Status:     status,
		RecordedAt: l.now(),
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	snapshot := approvalSnapshot{}
	if _, err := l.store.Load(ctx, &snapshot); err != nil {
		return domain.ApprovalEntry{}, err
	}
	snapshot[incidentID] = append(snapshot[incidentID], entry)

	if err := l.store.AtomicSave(ctx, snapshot); err != nil {
		return domain.ApprovalEntry{}, err
	}

	l.logger.Info("decision recorded",
		"incident_id", incidentID,
		"action_id", actionID,
		"approver", approver,
		"status", string(status))
	return entry, nil
}

// List returns every entry recorded for the incident, ordered by
// RecordedAt ascending. The sort is stable so same-timestamp entries keep
// their append order.
func (l *ApprovalLedger) List(ctx context.Context, incidentID string) ([]domain.ApprovalEntry, error) {
	snapshot := approvalSnapshot{}
	if _, err := l.store.Load(ctx, &snapshot); err != nil {
		return nil, err
	}

	entries := make([]domain.ApprovalEntry, len(snapshot[incidentID]))
	copy(entries, snapshot[incidentID])

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].RecordedAt.Before(entries[j].RecordedAt)
	})
	return entries, nil
}

// All returns the full approval history keyed by incident id. The
// orchestrator uses this as its pass snapshot.
func (l *ApprovalLedger) All(ctx context.Context) (map[string][]domain.ApprovalEntry, error) {
	snapshot := approvalSnapshot{}
	if _, err := l.store.Load(ctx, &snapshot); err != nil {
		return nil, err
	}

	all := make(map[string][]domain.ApprovalEntry, len(snapshot))
	for id, entries := range snapshot {
		ordered := make([]domain.ApprovalEntry, len(entries))
		copy(ordered, entries)
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].RecordedAt.Before(ordered[j].RecordedAt)
		})
		all[id] = ordered
	}
	return all, nil
}
