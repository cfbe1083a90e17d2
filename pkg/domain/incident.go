package domain

import "time"

// IncidentSource identifies who or what declared an incident.
type IncidentSource string

const (
	SourceManual  IncidentSource = "manual"
	SourceAPI     IncidentSource = "api"
	SourceSOCTool IncidentSource = "soc_tool"
)

// Valid reports whether the source belongs to the closed declaration enum.
func (s IncidentSource) Valid() bool {
	switch s {
	case SourceManual, SourceAPI, SourceSOCTool:
		return true
	default:
		return false
	}
}

// IncidentStatus is the lifecycle state of an incident. Only "open" exists
// in this phase; closed/resolved states are future work.
type IncidentStatus string

const (
	StatusOpen IncidentStatus = "open"
)

// Incident is a declared assumption of identity compromise. It is tracked
// independently of whether compromise is ever confirmed.
//
// IdentityRef and Assumption are opaque: the platform never parses or
// validates their contents. IdentityRef is meaningful only to the external
// identity and governance systems that resolve it.
type Incident struct {
	IncidentID  string         `json:"incident_id"`
	IdentityRef string         `json:"identity_ref"`
	Assumption  string         `json:"assumption"`
	Source      IncidentSource `json:"source"`
	Status      IncidentStatus `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
}
