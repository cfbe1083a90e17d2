package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	metricsOnce        sync.Once
	metricsInitErr     error
	passCounter        metric.Int64Counter
	dispatchCounter    metric.Int64Counter
	skipCounter        metric.Int64Counter
	passDurationMillis metric.Float64Histogram
)

// SkipReason labels why an approved entry was not dispatched in a pass.
type SkipReason string

const (
	SkipIncidentMissing   SkipReason = "incident_missing"
	SkipNoIdentityRef     SkipReason = "no_identity_ref"
	SkipNotApproved       SkipReason = "not_approved"
	SkipUnsupportedAction SkipReason = "unsupported_action"
	SkipAlreadyExecuted   SkipReason = "already_executed"
)

// PassMetrics captures the outcome of one orchestration pass.
type PassMetrics struct {
	Dispatched int
	Failed     int
	Duration   time.Duration
}

// RecordPass emits counters and the duration histogram for one pass.
func RecordPass(ctx context.Context, m PassMetrics) {
	if err := ensureMetrics(); err != nil {
		return
	}

	passCounter.Add(ctx, 1)
	if m.Duration > 0 {
		passDurationMillis.Record(ctx, float64(m.Duration)/float64(time.Millisecond))
	}
}

// RecordDispatch counts one dispatch attempt by terminal status.
func RecordDispatch(ctx context.Context, actionID, status string) {
	if err := ensureMetrics(); err != nil {
		return
	}
	dispatchCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action.id", actionID),
		attribute.String("dispatch.status", status),
	))
}

// RecordSkip counts one skipped approval entry by reason.
func RecordSkip(ctx context.Context, reason SkipReason) {
	if err := ensureMetrics(); err != nil {
		return
	}
	skipCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("skip.reason", string(reason)),
	))
}

func ensureMetrics() error {
	metricsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter("remedia.orchestrator")

		if passCounter, metricsInitErr = meter.Int64Counter(
			"orchestrator_passes_total",
			metric.WithDescription("Total orchestration passes run"),
		); metricsInitErr != nil {
			return
		}
		if dispatchCounter, metricsInitErr = meter.Int64Counter(
			"orchestrator_dispatches_total",
			metric.WithDescription("Dispatch attempts by action and terminal status"),
		); metricsInitErr != nil {
			return
		}
		if skipCounter, metricsInitErr = meter.Int64Counter(
			"orchestrator_skips_total",
			metric.WithDescription("Approval entries skipped during a pass by reason"),
		); metricsInitErr != nil {
			return
		}
		passDurationMillis, metricsInitErr = meter.Float64Histogram(
			"orchestrator_pass_duration_ms",
			metric.WithDescription("Wall time of one orchestration pass in milliseconds"),
		)
	})
	return metricsInitErr
}
