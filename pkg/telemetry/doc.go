// Package telemetry bootstraps the OpenTelemetry tracer provider and
// records orchestration metrics. Spans and counters describe pipeline
// behaviour only; identity references and assumptions never become
// telemetry attributes.
package telemetry
