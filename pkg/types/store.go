package types

import (
	"context"
	"errors"
	"time"
)

// Tables gives access to the standard tables by name. Both a Store and the
// transactional view passed to RunInTransaction satisfy it.
type Tables interface {
	// GetTable returns the Table for the given name.
	// Returns ErrTableNotFound if the name is not a standard table.
	GetTable(name string) (Table, error)
}

// Store defines the interface for backend-agnostic storage access.
// Callers attach to a backend, access tables by name, subscribe to changes,
// and detach when done.
type Store interface {
	Tables

	// Attach connects the Store to the backend described by config.
	// Creates the DataDir if it does not exist. Returns ErrAlreadyAttached
	// if called while already attached.
	Attach(config Config) error

	// Detach releases backend resources and closes all change
	// subscriptions. Idempotent: multiple calls succeed.
	// After Detach, operations on tables return ErrStoreDetached.
	Detach() error

	// Watch subscribes to committed changes on the named tables (all tables
	// when none are given). Delivery coalesces: a subscriber that falls
	// behind receives at least one event after the latest change. The
	// channel closes when ctx is done or the store detaches.
	Watch(ctx context.Context, tables ...string) (<-chan ChangeEvent, error)

	// RunInTransaction runs fn against tables bound to a single
	// transaction. The transaction commits when fn returns nil and rolls
	// back otherwise; change events are published only after commit.
	RunInTransaction(ctx context.Context, fn func(tx Tables) error) error
}

// ChangeEvent announces a committed write to one or more tables.
type ChangeEvent struct {
	ID     string    // UUID v7, one per commit.
	Tables []string  // Tables touched by the commit.
	At     time.Time // Commit time.
}

// Touches reports whether the event affects the named table.
func (e ChangeEvent) Touches(table string) bool {
	for _, t := range e.Tables {
		if t == table {
			return true
		}
	}
	return false
}

// Store lifecycle errors.
var (
	ErrStoreDetached   = errors.New("store is detached")
	ErrAlreadyAttached = errors.New("store is already attached")
	ErrTableNotFound   = errors.New("table not found")
)
