// Package ledger implements the durable records of the remediation
// pipeline: declared incidents, the append-only approval history, and the
// execution audit log. Each ledger owns one snapshot store and serializes
// its writers, so concurrent create and record calls against the same
// store are linearized and no update is lost.
package ledger

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quorumsec/remedia/pkg/domain"
	"github.com/quorumsec/remedia/pkg/storage"
)

// IncidentLedger is the durable record of declared incidents. Records are
// created once and never mutated or deleted; status is always "open" in
// this phase.
type IncidentLedger struct {
	store  storage.SnapshotStore
	logger *slog.Logger

	mu  sync.Mutex
	now func() time.Time
}

// NewIncidentLedger creates a ledger over the given store.
func NewIncidentLedger(store storage.SnapshotStore, logger *slog.Logger) *IncidentLedger {
	if logger == nil {
		logger = slog.Default()
	}
	return &IncidentLedger{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// incidentSnapshot is the persisted document: incidents keyed by id.
// Values stay raw so one malformed record cannot poison the whole listing.
type incidentSnapshot map[string]json.RawMessage

// Create validates the declaration, persists the incident durably, and
// returns the stored record. The write is atomic from the caller's
// perspective; nothing is persisted when validation fails.
func (l *IncidentLedger) Create(ctx context.Context, identityRef, assumption string, source domain.IncidentSource) (domain.Incident, error) {
	if !source.Valid() {
		return domain.Incident{}, &domain.DomainError{
			Err:     domain.ErrInvalidSource,
			Code:    "invalid_source",
			Message: domain.ErrInvalidSource.Error(),
		}
	}

	incident := domain.Incident{
		IncidentID:  uuid.New().String(),
		IdentityRef: identityRef,
		Assumption:  assumption,
		Source:      source,
		Status:      domain.StatusOpen,
		CreatedAt:   l.now(),
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	snapshot := incidentSnapshot{}
	if _, err := l.store.Load(ctx, &snapshot); err != nil {
		return domain.Incident{}, err
	}

	raw, err := json.Marshal(incident)
	if err != nil {
		return domain.Incident{}, err
	}
	snapshot[incident.IncidentID] = raw

	if err := l.store.AtomicSave(ctx, snapshot); err != nil {
		return domain.Incident{}, err
	}

	l.logger.Info("incident declared",
		"incident_id", incident.IncidentID,
		"source", string(incident.Source))
	return incident, nil
}

// Get returns the incident with the given id. It reports
// domain.ErrIncidentNotFound for unknown ids and a corruption error when
// the stored record is not a well-formed object.
func (l *IncidentLedger) Get(ctx context.Context, incidentID string) (domain.Incident, error) {
	snapshot := incidentSnapshot{}
	if _, err := l.store.Load(ctx, &snapshot); err != nil {
		return domain.Incident{}, err
	}

	raw, ok := snapshot[incidentID]
	if !ok {
		return domain.Incident{}, &domain.DomainError{
			Err:     domain.ErrIncidentNotFound,
			Code:    "incident_not_found",
			Message: "incident not found",
		}
	}

	var incident domain.Incident
	if err := json.Unmarshal(raw, &incident); err != nil {
		return domain.Incident{}, domain.Corruption("incident record is not a well-formed object")
	}
	return incident, nil
}

// List returns all incidents ordered by creation time ascending. Corrupt
// individual records are skipped rather than failing the listing; the read
// path favours availability over strict consistency.
func (l *IncidentLedger) List(ctx context.Context) ([]domain.Incident, error) {
	snapshot := incidentSnapshot{}
	if _, err := l.store.Load(ctx, &snapshot); err != nil {
		return nil, err
	}

	incidents := make([]domain.Incident, 0, len(snapshot))
	for id, raw := range snapshot {
		var incident domain.Incident
		if err := json.Unmarshal(raw, &incident); err != nil {
			l.logger.Warn("skipping corrupt incident record", "incident_id", id)
			continue
		}
		incidents = append(incidents, incident)
	}

	sort.Slice(incidents, func(i, j int) bool {
		if incidents[i].CreatedAt.Equal(incidents[j].CreatedAt) {
			return incidents[i].IncidentID < incidents[j].IncidentID
		}
		return incidents[i].CreatedAt.Before(incidents[j].CreatedAt)
	})
	return incidents, nil
}
