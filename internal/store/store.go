// Package store abstracts the shared key-value store behind the one
// capability the repository needs: atomically apply a batch of key
// operations, all-or-nothing.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotFound is returned when a key is not present in the store.
var ErrKeyNotFound = errors.New("key not found")

// ErrTxConflict is returned by Watch when a watched key was modified by
// another writer before the batch committed.
var ErrTxConflict = errors.New("transaction conflict")

// Reader is the read view handed to a Watch callback.
type Reader interface {
	Get(ctx context.Context, key string) (string, error)
}

// Store is the key-value store capability the repository is built on.
// Apply commits a batch atomically: either every operation is visible to
// subsequent reads or none is. All values are precomputed before
// submission; no operation in a batch reads the store.
type Store interface {
	Reader

	// Set writes a string value. A zero ttl means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Delete removes keys unconditionally.
	Delete(ctx context.Context, keys ...string) error
	// Exists reports whether the key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// SetMembers returns every member of a set, in no particular order.
	SetMembers(ctx context.Context, key string) ([]string, error)
	// SetCard returns a set's cardinality, 0 when absent.
	SetCard(ctx context.Context, key string) (int64, error)
	// GetInt reads an integer value, 0 when absent.
	GetInt(ctx context.Context, key string) (int64, error)

	// Apply commits the batch atomically.
	Apply(ctx context.Context, batch *Batch) error

	// Watch runs fn under optimistic concurrency control on key: the
	// returned batch commits only if key was not modified by another
	// writer since fn's reads. A lost race surfaces as ErrTxConflict.
	// Returning a nil batch from fn commits nothing.
	Watch(ctx context.Context, key string, fn func(r Reader) (*Batch, error)) error

	// Ping checks connectivity.
	Ping(ctx context.Context) error
	// Close releases the connection.
	Close() error
}
