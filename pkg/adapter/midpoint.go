package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quorumsec/remedia/pkg/domain"
)

// MidPointConfig holds the connection settings for the midPoint REST API.
type MidPointConfig struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
	Retry    RetryConfig
}

// MidPointAdapter is the execution-only client for midPoint's REST API.
// It translates approved actions into engine calls and nothing else: no
// decision logic, no approvals, no identity discovery.
type MidPointAdapter struct {
	logger *slog.Logger

	mu     sync.RWMutex
	cfg    MidPointConfig
	client *http.Client
}

// NewMidPointAdapter creates an adapter for the given engine endpoint.
func NewMidPointAdapter(cfg MidPointConfig, logger *slog.Logger) *MidPointAdapter {
	if logger == nil {
		logger = slog.Default()
	}

	a := &MidPointAdapter{logger: logger}
	a.UpdateConfig(cfg)
	return a
}

// UpdateConfig swaps the engine connection settings, picking up reloaded
// configuration without a restart. Calls already in flight finish against
// the settings they started with.
func (a *MidPointAdapter) UpdateConfig(cfg MidPointConfig) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	a.mu.Lock()
	defer a.mu.Unlock()
	a.cfg = cfg
	a.client = &http.Client{Timeout: cfg.Timeout}
}

func (a *MidPointAdapter) snapshot() (MidPointConfig, *http.Client) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg, a.client
}

// Execute dispatches one approved action to midPoint. It returns a
// terminal result per invocation: success with reversible metadata, or a
// failed result together with the causing error. The execution id is
// assigned here so failures are attributable too.
func (a *MidPointAdapter) Execute(ctx context.Context, req ExecutionRequest) (domain.ExecutionResult, error) {
	executionID := uuid.New().String()

	call, err := a.actionCall(req)
	if err != nil {
		return failedResult(executionID), err
	}

	cfg, client := a.snapshot()
	if err := withRetries(ctx, cfg.Retry, func() error {
		return a.post(ctx, client, cfg, call.path, call.body)
	}); err != nil {
		a.logger.Warn("governance call failed",
			"incident_id", req.IncidentID,
			"action_id", req.ActionID,
			"error", err)
		return failedResult(executionID), err
	}

	return domain.ExecutionResult{
		ExecutionID: executionID,
		Status:      domain.ExecutionSuccess,
		Reversible:  true,
		RevertHint:  map[string]any{},
	}, nil
}

// Revert is a rollback placeholder. Reversal is engine dependent and out
// of scope for this phase.
func (a *MidPointAdapter) Revert(_ context.Context, _ string) error {
	return domain.ErrRevertUnsupported
}

type engineCall struct {
	path string
	body map[string]any
}

// actionCall maps an action id onto the midPoint endpoint and body.
// Parameters may carry deployment-specific overrides; the defaults match a
// stock engine configuration.
func (a *MidPointAdapter) actionCall(req ExecutionRequest) (engineCall, error) {
	params := req.Parameters
	if params == nil {
		params = map[string]any{}
	}
	oid := url.PathEscape(req.IdentityRef)

	switch req.ActionID {
	case domain.ActionRevokeSessions:
		return engineCall{
			path: paramString(params, "midpoint_path", "/ws/rest/rpc/invalidateSessions"),
			body: map[string]any{"identity_ref": req.IdentityRef},
		}, nil
	case domain.ActionDisableIdentity:
		return engineCall{
			path: paramString(params, "midpoint_path", "/ws/rest/users/"+oid),
			body: paramBody(params, map[string]any{"operation": "disable"}),
		}, nil
	case domain.ActionRemoveRole:
		return engineCall{
			path: paramString(params, "midpoint_path", "/ws/rest/users/"+oid),
			body: paramBody(params, map[string]any{"operation": "remove_role", "role_ref": params["role_ref"]}),
		}, nil
	default:
		return engineCall{}, domain.Validation(fmt.Sprintf("unsupported action_id: %s", req.ActionID))
	}
}

func (a *MidPointAdapter) post(ctx context.Context, client *http.Client, cfg MidPointConfig, path string, body map[string]any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode engine request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build engine request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(cfg.Username, cfg.Password)

	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("engine unreachable for %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("engine error %d for %s", resp.StatusCode, path)
	}
	return nil
}

func failedResult(executionID string) domain.ExecutionResult {
	return domain.ExecutionResult{
		ExecutionID: executionID,
		Status:      domain.ExecutionFailed,
		Reversible:  false,
		RevertHint:  map[string]any{},
	}
}

func paramString(params map[string]any, key, fallback string) string {
	if v, ok := params[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func paramBody(params map[string]any, fallback map[string]any) map[string]any {
	if v, ok := params["midpoint_body"].(map[string]any); ok && len(v) > 0 {
		return v
	}
	return fallback
}
