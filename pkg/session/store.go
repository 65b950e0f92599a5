package session

import (
	"context"
	"errors"
)

// Common errors for store operations.
var (
	// ErrConflict is returned when an optimistic update keeps losing the
	// race after the bounded retry budget is exhausted.
	ErrConflict = errors.New("session update conflict")
	// ErrStoreClosed is returned when operating on a closed store.
	ErrStoreClosed = errors.New("session store is closed")
)

// Store abstracts session persistence.
// Implementations must be safe for concurrent use and must refresh the
// session's time-to-live on every successful operation.
type Store interface {
	// Load retrieves the session for id, creating and persisting a fresh
	// default document if none exists.
	Load(ctx context.Context, id string) (*Session, error)

	// Update applies mutate to the current session under a read-modify-write
	// transaction. On a conflicting concurrent commit the whole cycle is
	// retried with backoff; ErrConflict is returned once retries run out.
	// The committed session is returned.
	Update(ctx context.Context, id string, mutate func(*Session) error) (*Session, error)

	// Reset overwrites the session with the default document and returns it.
	Reset(ctx context.Context, id string) (*Session, error)

	// Ping checks store connectivity.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}
