// Package storage defines the key-value persistence contract used by the
// balance ledger. Backends live in the sub-packages.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Get when the key has never been written.
var ErrNotFound = errors.New("storage: key not found")

// Store is a durable string key-value slot.
//
// Implementations MUST be safe for concurrent use.
type Store interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
	// Close releases backend resources.
	Close() error
}

// SpinRecord is one completed spin as written to a Journal.
type SpinRecord struct {
	ID            uuid.UUID
	Win           bool
	Symbol        string
	BalanceBefore int64
	BalanceAfter  int64
	At            time.Time
}

// Journal is an append-only history of spins.
type Journal interface {
	// Append writes rec. Appending the same ID twice is a no-op.
	Append(ctx context.Context, rec SpinRecord) error
	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]SpinRecord, error)
}
