package domain

import "errors"

// Error taxonomy sentinels. Callers branch on these with errors.Is rather
// than string matching. Validation and not-found are surfaced distinctly so
// callers can tell "bad request" from "bad reference".
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidSource     = errors.New("source must be one of: manual | api | soc_tool")
	ErrIncidentNotFound  = errors.New("incident not found")
	ErrCorruptStore      = errors.New("store contents corrupted")
	ErrRevertUnsupported = errors.New("revert_execution not supported in this phase")
)

// DomainError wraps a sentinel with a stable machine-readable code and a
// human-readable message for the transport boundary.
//
//nolint:revive // Name is intentionally verbose to distinguish domain-layer errors
type DomainError struct {
	Err     error
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Validation constructs a validation error carrying msg at the boundary.
func Validation(msg string) error {
	return &DomainError{Err: ErrInvalidInput, Code: "bad_request", Message: msg}
}

// Corruption constructs a corruption error for a malformed durable store.
func Corruption(msg string) error {
	return &DomainError{Err: ErrCorruptStore, Code: "corrupt_store", Message: msg}
}

// ErrorResponse is the standard JSON error model returned by the API.
// Code is machine-readable and stable; Message is safe for logs.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
