package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIncidentSourceValid(t *testing.T) {
	assert.True(t, SourceManual.Valid())
	assert.True(t, SourceAPI.Valid())
	assert.True(t, SourceSOCTool.Valid())

	assert.False(t, IncidentSource("").Valid())
	assert.False(t, IncidentSource("email").Valid())
	assert.False(t, IncidentSource("MANUAL").Valid())
}

func TestSupportedAction(t *testing.T) {
	for _, actionID := range SupportedActions() {
		assert.True(t, SupportedAction(actionID), actionID)
	}

	assert.False(t, SupportedAction(""))
	assert.False(t, SupportedAction("remove_specific_role"))
	assert.False(t, SupportedAction("delete_identity"))
}

func TestDomainErrorUnwrap(t *testing.T) {
	err := Validation("identity_ref is required")

	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.Equal(t, "identity_ref is required", err.Error())

	var domainErr *DomainError
	assert.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "bad_request", domainErr.Code)
}

func TestCorruptionError(t *testing.T) {
	err := Corruption("incidents snapshot is not valid JSON")

	assert.True(t, errors.Is(err, ErrCorruptStore))

	var domainErr *DomainError
	assert.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "corrupt_store", domainErr.Code)
}
