// Package policy implements the decision policy that proposes candidate
// remediation actions for an incident's blast radius.
//
// The policy is a pure function: no I/O, no randomness, no clock, no
// incident-specific tailoring. The current recommendation set is a fixed,
// ordered catalog that is independent of asset contents; inputs are only
// validated structurally. Asset-aware recommendations are future scope.
package policy

import (
	"github.com/quorumsec/remedia/pkg/domain"
)

// Recommended action id for the med-risk tier. The reviewer narrows it to
// a concrete role before approval, which is why it differs from the
// dispatchable catalog id.
const ActionRemoveSpecificRole = "remove_specific_role"

// Decide proposes an ordered list of candidate remediation actions for the
// given identity and discovered blast radius.
//
// identityRef must be non-empty; reachableAssets and criticalPaths must be
// non-nil sequences. Their contents are not inspected in this phase, and
// the same input class always yields the same recommendation set.
func Decide(identityRef string, reachableAssets, criticalPaths []any) ([]domain.Recommendation, error) {
	if identityRef == "" {
		return nil, domain.Validation("identity_ref must be a non-empty string")
	}
	if reachableAssets == nil {
		return nil, domain.Validation("reachable_assets must be a list")
	}
	if criticalPaths == nil {
		return nil, domain.Validation("critical_paths must be a list")
	}

	// Static, hard-coded ordering. No asset inspection logic.
	return []domain.Recommendation{
		{
			Action:     domain.ActionRevokeSessions,
			Safety:     domain.SafetySafe,
			Reversible: true,
			Impact:     "No service disruption expected",
		},
		{
			Action:     ActionRemoveSpecificRole,
			Safety:     domain.SafetyMedium,
			Reversible: true,
			Impact:     "Some access may be removed for the identity",
		},
		{
			Action:     domain.ActionDisableIdentity,
			Safety:     domain.SafetyHighRisk,
			Reversible: true,
			Impact:     "Identity will be unable to authenticate",
		},
	}, nil
}
