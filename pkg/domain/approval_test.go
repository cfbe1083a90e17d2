package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestCurrentDecisionsLatestWins(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	entries := []ApprovalEntry{
		{IncidentID: "inc-1", ActionID: ActionRevokeSessions, Approver: "alice", Status: ApprovalApproved, RecordedAt: base},
		{IncidentID: "inc-1", ActionID: ActionRevokeSessions, Approver: "bob", Status: ApprovalRejected, RecordedAt: base.Add(time.Minute)},
		{IncidentID: "inc-1", ActionID: ActionDisableIdentity, Approver: "alice", Status: ApprovalApproved, RecordedAt: base.Add(2 * time.Minute)},
	}

	current := CurrentDecisions(entries)
	require.Len(t, current, 2)

	assert.Equal(t, ApprovalRejected, current[ActionRevokeSessions].Status)
	assert.Equal(t, "bob", current[ActionRevokeSessions].Approver)
	assert.Equal(t, ApprovalApproved, current[ActionDisableIdentity].Status)
}

func TestCurrentDecisionsRejectionThenReApproval(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	entries := []ApprovalEntry{
		{ActionID: ActionRemoveRole, Status: ApprovalRejected, RecordedAt: base},
		{ActionID: ActionRemoveRole, Status: ApprovalApproved, RecordedAt: base.Add(time.Hour)},
	}

	current := CurrentDecisions(entries)
	assert.Equal(t, ApprovalApproved, current[ActionRemoveRole].Status)
}

func TestCurrentDecisionsTieResolvesToLaterEntry(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	entries := []ApprovalEntry{
		{ActionID: ActionRevokeSessions, Approver: "alice", Status: ApprovalApproved, RecordedAt: at},
		{ActionID: ActionRevokeSessions, Approver: "bob", Status: ApprovalRejected, RecordedAt: at},
	}

	current := CurrentDecisions(entries)
	assert.Equal(t, "bob", current[ActionRevokeSessions].Approver)
}

func TestCurrentDecisionsEmpty(t *testing.T) {
	assert.Empty(t, CurrentDecisions(nil))
}

func TestCurrentDecisionsProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		actions := []string{ActionRevokeSessions, ActionDisableIdentity, ActionRemoveRole}

		n := rapid.IntRange(0, 40).Draw(rt, "n")
		entries := make([]ApprovalEntry, 0, n)
		for i := 0; i < n; i++ {
			entries = append(entries, ApprovalEntry{
				ActionID:   rapid.SampledFrom(actions).Draw(rt, "action"),
				Status:     rapid.SampledFrom([]ApprovalStatus{ApprovalApproved, ApprovalRejected}).Draw(rt, "status"),
				RecordedAt: base.Add(time.Duration(rapid.IntRange(0, 1000).Draw(rt, "offset")) * time.Second),
			})
		}

		current := CurrentDecisions(entries)

		// Every resolved action actually appears in the history, and no
		// entry for it is newer than the resolved one.
		for actionID, decision := range current {
			found := false
			for _, e := range entries {
				if e.ActionID != actionID {
					continue
				}
				found = true
				assert.False(rt, decision.RecordedAt.Before(e.RecordedAt),
					"resolved decision must carry the latest timestamp")
			}
			assert.True(rt, found)
		}

		// Every action with history is resolved.
		for _, e := range entries {
			_, ok := current[e.ActionID]
			assert.True(rt, ok)
		}
	})
}
