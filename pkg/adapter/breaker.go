package adapter

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/quorumsec/remedia/pkg/domain"
)

// ErrEngineUnavailable is returned while the breaker is open and dispatch
// attempts are being rejected without contacting the engine.
var ErrEngineUnavailable = errors.New("governance engine unavailable, dispatch suspended")

// BreakerState is the dispatch gate state.
type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half-open"
)

// BreakerConfig bounds the dispatch circuit breaker.
type BreakerConfig struct {
	// MaxFailures is the consecutive-failure threshold before opening.
	MaxFailures int
	// Cooldown is how long the breaker stays open before probing again.
	Cooldown time.Duration
}

// DefaultBreakerConfig returns the dispatch defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxFailures: 5,
		Cooldown:    30 * time.Second,
	}
}

// BreakerAdapter wraps a GovernanceAdapter with a circuit breaker. When
// the engine fails repeatedly the breaker opens and further dispatches
// fail fast with ErrEngineUnavailable; each rejected dispatch still
// surfaces a failed result so the orchestrator's audit trail stays
// complete. After the cooldown a single probe dispatch is let through.
type BreakerAdapter struct {
	inner  GovernanceAdapter
	cfg    BreakerConfig
	logger *slog.Logger

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time
	now      func() time.Time
}

// NewBreakerAdapter wraps inner with a dispatch circuit breaker.
func NewBreakerAdapter(inner GovernanceAdapter, cfg BreakerConfig, logger *slog.Logger) *BreakerAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = DefaultBreakerConfig().MaxFailures
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultBreakerConfig().Cooldown
	}
	return &BreakerAdapter{
		inner:  inner,
		cfg:    cfg,
		logger: logger,
		state:  BreakerClosed,
		now:    time.Now,
	}
}

// State returns the current gate state.
func (b *BreakerAdapter) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Execute forwards to the wrapped adapter unless the breaker is open.
func (b *BreakerAdapter) Execute(ctx context.Context, req ExecutionRequest) (domain.ExecutionResult, error) {
	if !b.allow() {
		return domain.ExecutionResult{
			Status:     domain.ExecutionFailed,
			Reversible: false,
			RevertHint: map[string]any{},
		}, ErrEngineUnavailable
	}

	result, err := b.inner.Execute(ctx, req)
	b.record(err == nil)
	return result, err
}

// Revert forwards to the wrapped adapter; reverts do not consult the
// breaker because they are already exceptional.
func (b *BreakerAdapter) Revert(ctx context.Context, executionID string) error {
	return b.inner.Revert(ctx, executionID)
}

func (b *BreakerAdapter) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		return true
	case BreakerOpen:
		if b.now().Sub(b.openedAt) >= b.cfg.Cooldown {
			b.state = BreakerHalfOpen
			b.logger.Info("dispatch breaker half-open, probing engine")
			return true
		}
		return false
	case BreakerHalfOpen:
		// One probe at a time; concurrent dispatches wait out the probe.
		return false
	default:
		return true
	}
}

func (b *BreakerAdapter) record(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if success {
		if b.state != BreakerClosed {
			b.logger.Info("dispatch breaker closed, engine recovered")
		}
		b.state = BreakerClosed
		b.failures = 0
		return
	}

	b.failures++
	if b.state == BreakerHalfOpen || b.failures >= b.cfg.MaxFailures {
		if b.state != BreakerOpen {
			b.logger.Warn("dispatch breaker opened",
				"consecutive_failures", b.failures,
				"cooldown", b.cfg.Cooldown.String())
		}
		b.state = BreakerOpen
		b.openedAt = b.now()
	}
}
