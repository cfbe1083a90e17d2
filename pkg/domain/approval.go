package domain

import "time"

// ApprovalStatus is the decision recorded for one action on one incident.
type ApprovalStatus string

const (
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// ApprovalEntry is one immutable, timestamped decision. Entries are never
// edited or removed; a later decision for the same (incident, action) pair
// is a new entry, not an overwrite.
type ApprovalEntry struct {
	IncidentID string         `json:"incident_id"`
	ActionID   string         `json:"action_id"`
	Approver   string         `json:"approver"`
	Status     ApprovalStatus `json:"status"`
	RecordedAt time.Time      `json:"recorded_at"`
}

// CurrentDecisions resolves the effective decision per (incident, action)
// pair from an approval history: the entry with the latest RecordedAt wins.
// A scan that treats any historical "approved" entry as actionable can act
// on a stale approval after a later rejection, so consumers must go through
// this resolution rather than reading raw entries.
//
// Ties on RecordedAt resolve to the entry appearing later in the slice,
// which for ledger output is the later-appended one.
func CurrentDecisions(entries []ApprovalEntry) map[string]ApprovalEntry {
	current := make(map[string]ApprovalEntry, len(entries))
	for _, e := range entries {
		prev, ok := current[e.ActionID]
		if !ok || !e.RecordedAt.Before(prev.RecordedAt) {
			current[e.ActionID] = e
		}
	}
	return current
}
