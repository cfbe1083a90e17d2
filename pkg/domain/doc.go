// Package domain defines the core business types for the remediation
// control plane: incidents, approval entries, execution records, and the
// remediation action catalog.
//
// This package contains pure domain logic with ZERO external dependencies
// outside the Go standard library. All types here are:
//
// - Independent of infrastructure (no storage, HTTP, adapters)
// - Technology-agnostic (no framework coupling)
// - Testable in isolation without mocks
//
// Other packages (ledger, orchestrator, adapter, api) implement behaviour
// on top of these types. The dependency direction is always:
//
//	Infrastructure → Domain (CORRECT)
//	Domain → Infrastructure (FORBIDDEN)
package domain
