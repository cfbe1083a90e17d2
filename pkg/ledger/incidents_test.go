package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quorumsec/remedia/pkg/domain"
	"github.com/quorumsec/remedia/pkg/storage"
)

func newIncidentLedger(t *testing.T) (*IncidentLedger, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	return NewIncidentLedger(store, slog.Default()), store
}

func TestIncidentCreateAndGet(t *testing.T) {
	ledger, _ := newIncidentLedger(t)
	ctx := context.Background()

	created, err := ledger.Create(ctx, "alice@corp.example", "phishing link clicked", domain.SourceManual)
	require.NoError(t, err)
	assert.NotEmpty(t, created.IncidentID)
	assert.Equal(t, domain.StatusOpen, created.Status)
	assert.Equal(t, domain.SourceManual, created.Source)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := ledger.Get(ctx, created.IncidentID)
	require.NoError(t, err)
	assert.Equal(t, created.IncidentID, got.IncidentID)
	assert.Equal(t, "alice@corp.example", got.IdentityRef)
	assert.Equal(t, "phishing link clicked", got.Assumption)
}

func TestIncidentCreateRejectsInvalidSource(t *testing.T) {
	ledger, _ := newIncidentLedger(t)

	for _, source := range []string{"", "email", "Manual", "SOC_TOOL"} {
		_, err := ledger.Create(context.Background(), "alice@corp.example", "assumed", domain.IncidentSource(source))
		require.Error(t, err, source)
		assert.True(t, errors.Is(err, domain.ErrInvalidSource), source)
	}

	// Nothing persisted on validation failure.
	incidents, err := ledger.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, incidents)
}

func TestIncidentCreateAcceptsEmptyIdentityRef(t *testing.T) {
	// identity_ref and assumption are opaque; empty strings are stored
	// as-is and only matter to the orchestrator's dispatch gate.
	ledger, _ := newIncidentLedger(t)

	created, err := ledger.Create(context.Background(), "", "", domain.SourceAPI)
	require.NoError(t, err)
	assert.Empty(t, created.IdentityRef)
}

func TestIncidentGetUnknownID(t *testing.T) {
	ledger, _ := newIncidentLedger(t)

	_, err := ledger.Get(context.Background(), "no-such-id")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrIncidentNotFound))
}

func TestIncidentListOrderedByCreation(t *testing.T) {
	ledger, _ := newIncidentLedger(t)
	ctx := context.Background()

	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	offsets := []time.Duration{2 * time.Hour, 0, time.Hour}
	idx := 0
	ledger.now = func() time.Time {
		at := base.Add(offsets[idx%len(offsets)])
		idx++
		return at
	}

	for i := 0; i < 3; i++ {
		_, err := ledger.Create(ctx, "user", "assumed", domain.SourceSOCTool)
		require.NoError(t, err)
	}

	incidents, err := ledger.List(ctx)
	require.NoError(t, err)
	require.Len(t, incidents, 3)
	assert.True(t, incidents[0].CreatedAt.Before(incidents[1].CreatedAt))
	assert.True(t, incidents[1].CreatedAt.Before(incidents[2].CreatedAt))
}

func TestIncidentListSkipsCorruptRecords(t *testing.T) {
	ledger, store := newIncidentLedger(t)
	ctx := context.Background()

	created, err := ledger.Create(ctx, "alice@corp.example", "assumed", domain.SourceManual)
	require.NoError(t, err)

	// Inject one record that is valid JSON but not an incident object.
	snapshot := map[string]json.RawMessage{}
	_, err = store.Load(ctx, &snapshot)
	require.NoError(t, err)
	snapshot["broken"] = json.RawMessage(`"not an object"`)
	require.NoError(t, store.AtomicSave(ctx, snapshot))

	incidents, err := ledger.List(ctx)
	require.NoError(t, err)
	require.Len(t, incidents, 1)
	assert.Equal(t, created.IncidentID, incidents[0].IncidentID)
}

func TestIncidentGetCorruptRecord(t *testing.T) {
	ledger, store := newIncidentLedger(t)
	ctx := context.Background()

	snapshot := map[string]json.RawMessage{"inc-1": json.RawMessage(`42`)}
	require.NoError(t, store.AtomicSave(ctx, snapshot))

	_, err := ledger.Get(ctx, "inc-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCorruptStore))
}

func TestIncidentRootCorruptionFailsLoad(t *testing.T) {
	ledger, store := newIncidentLedger(t)
	store.Corrupt([]byte("{truncated"))

	_, err := ledger.List(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCorruptStore))
}

func TestIncidentIDsAreUnique(t *testing.T) {
	ledger, _ := newIncidentLedger(t)
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		created, err := ledger.Create(ctx, "user", "assumed", domain.SourceAPI)
		require.NoError(t, err)
		assert.False(t, seen[created.IncidentID])
		seen[created.IncidentID] = true
	}
}
