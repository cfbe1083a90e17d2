package domain

// Remediation action identifiers. The catalog is a fixed, versioned
// enumeration: adding an action requires extending both this set and the
// governance adapter's dispatch mapping together.
const (
	ActionRevokeSessions  = "revoke_sessions"
	ActionDisableIdentity = "disable_identity"
	ActionRemoveRole      = "remove_role"
)

// SafetyTier is the declared blast-radius class of a recommendation.
type SafetyTier string

const (
	SafetySafe     SafetyTier = "safe"
	SafetyMedium   SafetyTier = "medium"
	SafetyHighRisk SafetyTier = "high_risk"
)

// Recommendation is one candidate remediation action proposed by the
// decision policy, annotated for the human reviewer.
type Recommendation struct {
	Action     string     `json:"action"`
	Safety     SafetyTier `json:"safety"`
	Reversible bool       `json:"reversible"`
	Impact     string     `json:"impact"`
}

var supportedActions = map[string]struct{}{
	ActionRevokeSessions:  {},
	ActionDisableIdentity: {},
	ActionRemoveRole:      {},
}

// SupportedAction reports whether actionID belongs to the dispatch
// allow-list. Approved entries outside the catalog are never dispatched.
func SupportedAction(actionID string) bool {
	_, ok := supportedActions[actionID]
	return ok
}

// SupportedActions returns the dispatchable action ids in stable order.
func SupportedActions() []string {
	return []string{ActionRevokeSessions, ActionDisableIdentity, ActionRemoveRole}
}
