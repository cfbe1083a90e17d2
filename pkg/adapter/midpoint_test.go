package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quorumsec/remedia/pkg/domain"
)

type engineCapture struct {
	path string
	body map[string]any
	user string
	pass string
}

func newEngineStub(t *testing.T, status int) (*httptest.Server, *engineCapture) {
	t.Helper()
	capture := &engineCapture{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capture.path = r.URL.Path
		capture.user, capture.pass, _ = r.BasicAuth()
		_ = json.NewDecoder(r.Body).Decode(&capture.body)
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server, capture
}

func newTestAdapter(baseURL string) *MidPointAdapter {
	return NewMidPointAdapter(MidPointConfig{
		BaseURL:  baseURL,
		Username: "administrator",
		Password: "secret",
		Timeout:  2 * time.Second,
	}, nil)
}

func TestExecuteRevokeSessions(t *testing.T) {
	server, capture := newEngineStub(t, http.StatusOK)
	adapter := newTestAdapter(server.URL)

	result, err := adapter.Execute(context.Background(), ExecutionRequest{
		IncidentID:  "inc-1",
		ActionID:    domain.ActionRevokeSessions,
		IdentityRef: "alice@corp.example",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ExecutionSuccess, result.Status)
	assert.True(t, result.Reversible)
	assert.NotEmpty(t, result.ExecutionID)

	assert.Equal(t, "/ws/rest/rpc/invalidateSessions", capture.path)
	assert.Equal(t, "alice@corp.example", capture.body["identity_ref"])
	assert.Equal(t, "administrator", capture.user)
	assert.Equal(t, "secret", capture.pass)
}

func TestUpdateConfigSwapsEngineEndpoint(t *testing.T) {
	server, capture := newEngineStub(t, http.StatusOK)
	adapter := newTestAdapter("http://127.0.0.1:1")

	adapter.UpdateConfig(MidPointConfig{
		BaseURL:  server.URL + "/",
		Username: "operator",
		Password: "rotated",
		Timeout:  2 * time.Second,
	})

	result, err := adapter.Execute(context.Background(), ExecutionRequest{
		IncidentID:  "inc-1",
		ActionID:    domain.ActionRevokeSessions,
		IdentityRef: "alice@corp.example",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ExecutionSuccess, result.Status)
	assert.Equal(t, "/ws/rest/rpc/invalidateSessions", capture.path)
	assert.Equal(t, "operator", capture.user)
	assert.Equal(t, "rotated", capture.pass)
}

func TestExecuteDisableIdentity(t *testing.T) {
	server, capture := newEngineStub(t, http.StatusOK)
	adapter := newTestAdapter(server.URL)

	_, err := adapter.Execute(context.Background(), ExecutionRequest{
		IncidentID:  "inc-1",
		ActionID:    domain.ActionDisableIdentity,
		IdentityRef: "oid-1234",
	})
	require.NoError(t, err)

	assert.Equal(t, "/ws/rest/users/oid-1234", capture.path)
	assert.Equal(t, "disable", capture.body["operation"])
}

func TestExecuteRemoveRole(t *testing.T) {
	server, capture := newEngineStub(t, http.StatusOK)
	adapter := newTestAdapter(server.URL)

	_, err := adapter.Execute(context.Background(), ExecutionRequest{
		IncidentID:  "inc-1",
		ActionID:    domain.ActionRemoveRole,
		IdentityRef: "oid-1234",
		Parameters:  map[string]any{"role_ref": "role-oid-99"},
	})
	require.NoError(t, err)

	assert.Equal(t, "/ws/rest/users/oid-1234", capture.path)
	assert.Equal(t, "remove_role", capture.body["operation"])
	assert.Equal(t, "role-oid-99", capture.body["role_ref"])
}

func TestExecuteParameterOverrides(t *testing.T) {
	server, capture := newEngineStub(t, http.StatusOK)
	adapter := newTestAdapter(server.URL)

	_, err := adapter.Execute(context.Background(), ExecutionRequest{
		IncidentID:  "inc-1",
		ActionID:    domain.ActionDisableIdentity,
		IdentityRef: "oid-1234",
		Parameters: map[string]any{
			"midpoint_path": "/custom/disable",
			"midpoint_body": map[string]any{"op": "suspend"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "/custom/disable", capture.path)
	assert.Equal(t, "suspend", capture.body["op"])
}

func TestExecuteEngineError(t *testing.T) {
	server, _ := newEngineStub(t, http.StatusForbidden)
	adapter := newTestAdapter(server.URL)

	result, err := adapter.Execute(context.Background(), ExecutionRequest{
		IncidentID:  "inc-1",
		ActionID:    domain.ActionRevokeSessions,
		IdentityRef: "alice@corp.example",
	})
	require.Error(t, err)

	// Failure still yields an attributable result for the audit log.
	assert.Equal(t, domain.ExecutionFailed, result.Status)
	assert.False(t, result.Reversible)
	assert.NotEmpty(t, result.ExecutionID)
}

func TestExecuteEngineUnreachable(t *testing.T) {
	adapter := newTestAdapter("http://127.0.0.1:1")

	result, err := adapter.Execute(context.Background(), ExecutionRequest{
		IncidentID:  "inc-1",
		ActionID:    domain.ActionRevokeSessions,
		IdentityRef: "alice@corp.example",
	})
	require.Error(t, err)
	assert.Equal(t, domain.ExecutionFailed, result.Status)
}

func TestExecuteUnsupportedAction(t *testing.T) {
	server, _ := newEngineStub(t, http.StatusOK)
	adapter := newTestAdapter(server.URL)

	result, err := adapter.Execute(context.Background(), ExecutionRequest{
		IncidentID:  "inc-1",
		ActionID:    "remove_specific_role",
		IdentityRef: "alice@corp.example",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	assert.Equal(t, domain.ExecutionFailed, result.Status)
}

func TestExecuteRetriesUntilSuccess(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	adapter := NewMidPointAdapter(MidPointConfig{
		BaseURL: server.URL,
		Retry: RetryConfig{
			MaxAttempts:       3,
			InitialBackoff:    time.Millisecond,
			MaxBackoff:        2 * time.Millisecond,
			BackoffMultiplier: 2.0,
		},
	}, nil)

	result, err := adapter.Execute(context.Background(), ExecutionRequest{
		IncidentID:  "inc-1",
		ActionID:    domain.ActionRevokeSessions,
		IdentityRef: "alice@corp.example",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ExecutionSuccess, result.Status)
	assert.Equal(t, int64(3), calls.Load())
}

func TestRevertUnsupported(t *testing.T) {
	adapter := newTestAdapter("http://unused.example")

	err := adapter.Revert(context.Background(), "exec-1")
	assert.True(t, errors.Is(err, domain.ErrRevertUnsupported))
}

func TestWithRetriesExhaustion(t *testing.T) {
	cfg := RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        2 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}

	var calls int
	err := withRetries(context.Background(), cfg, func() error {
		calls++
		return errors.New("boom")
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMaxAttemptsExceeded))
	assert.Equal(t, 3, calls)
}

func TestWithRetriesHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := withRetries(ctx, DefaultRetryConfig(), func() error {
		return errors.New("boom")
	})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestBackoffIsCapped(t *testing.T) {
	cfg := RetryConfig{
		InitialBackoff:    time.Second,
		MaxBackoff:        3 * time.Second,
		BackoffMultiplier: 10.0,
	}.normalized()

	assert.Equal(t, 3*time.Second, cfg.backoff(5))
}
