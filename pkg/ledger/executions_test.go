package ledger

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quorumsec/remedia/pkg/domain"
	"github.com/quorumsec/remedia/pkg/storage"
)

func newExecutionLog(t *testing.T) *ExecutionLog {
	t.Helper()
	return NewExecutionLog(storage.NewMemoryStore(), slog.Default())
}

func executionRecord(incidentID, actionID string, status domain.ExecutionStatus) domain.ExecutionRecord {
	return domain.ExecutionRecord{
		IncidentID:  incidentID,
		ActionID:    actionID,
		IdentityRef: "alice@corp.example",
		Parameters:  map[string]any{},
		Result: domain.ExecutionResult{
			ExecutionID: "exec-" + incidentID + "-" + actionID,
			Status:      status,
			Reversible:  status == domain.ExecutionSuccess,
		},
	}
}

func TestExecutionAppendAndList(t *testing.T) {
	log := newExecutionLog(t)
	ctx := context.Background()

	require.NoError(t, log.Append(ctx, executionRecord("inc-1", domain.ActionRevokeSessions, domain.ExecutionSuccess)))
	require.NoError(t, log.Append(ctx, executionRecord("inc-1", domain.ActionDisableIdentity, domain.ExecutionFailed)))

	records, err := log.List(ctx, "inc-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, domain.ActionRevokeSessions, records[0].ActionID)
	assert.Equal(t, domain.ExecutionFailed, records[1].Result.Status)
}

func TestExecutionAppendValidation(t *testing.T) {
	log := newExecutionLog(t)
	ctx := context.Background()

	err := log.Append(ctx, executionRecord("", domain.ActionRevokeSessions, domain.ExecutionSuccess))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	err = log.Append(ctx, executionRecord("inc-1", "", domain.ExecutionSuccess))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestExecutionFailedAttemptsAreRecorded(t *testing.T) {
	log := newExecutionLog(t)
	ctx := context.Background()

	record := executionRecord("inc-1", domain.ActionRemoveRole, domain.ExecutionFailed)
	require.NoError(t, log.Append(ctx, record))

	records, err := log.List(ctx, "inc-1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.ExecutionFailed, records[0].Result.Status)
	assert.False(t, records[0].Result.Reversible)
}

func TestExecutionListUnknownIncident(t *testing.T) {
	log := newExecutionLog(t)

	records, err := log.List(context.Background(), "never-seen")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestExecutionAll(t *testing.T) {
	log := newExecutionLog(t)
	ctx := context.Background()

	require.NoError(t, log.Append(ctx, executionRecord("inc-1", domain.ActionRevokeSessions, domain.ExecutionSuccess)))
	require.NoError(t, log.Append(ctx, executionRecord("inc-2", domain.ActionRevokeSessions, domain.ExecutionSuccess)))

	all, err := log.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
