// Package storage provides durable snapshot persistence for the ledgers.
// Each store holds one JSON document that is replaced atomically as a whole
// on every write, so a reader never observes a partially written snapshot.
package storage

import "context"

// SnapshotStore persists a single JSON document as an all-or-nothing
// snapshot.
//
// A store instance is owned by exactly one writer (a ledger); the store
// serializes nothing across instances. Writers must perform their
// read-modify-write cycle under their own lock so that concurrent record
// and create calls against the same store are linearized.
type SnapshotStore interface {
	// Load decodes the current snapshot into v. It returns ok=false when no
	// snapshot has ever been saved, and a domain corruption error when the
	// stored bytes are not well-formed for v.
	Load(ctx context.Context, v any) (ok bool, err error)

	// AtomicSave replaces the snapshot with the encoding of v. The previous
	// snapshot stays intact if the save fails partway.
	AtomicSave(ctx context.Context, v any) error

	Close() error
}
