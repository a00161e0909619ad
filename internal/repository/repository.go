// Package repository mediates between workflows and the Store. It enforces
// the referential rules the store leaves open (a meal needs an existing plan,
// a food needs an existing meal), performs cascading deletes, and exposes
// live query streams that re-emit whenever the underlying tables change.
package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mesh-intelligence/nutrihub/pkg/types"
)

// Repository is the single gateway to patients, plans, meals and foods.
// A Repository is safe for concurrent use, except for the transactional
// copy handed to the InTransaction callback.
type Repository struct {
	store  types.Store
	tables types.Tables
	inTx   bool
	log    *slog.Logger
}

// Option configures a Repository.
type Option func(*Repository)

// WithLogger sets the logger used for operation traces.
func WithLogger(l *slog.Logger) Option {
	return func(r *Repository) {
		if l != nil {
			r.log = l
		}
	}
}

// New returns a Repository over an attached store.
func New(store types.Store, opts ...Option) *Repository {
	r := &Repository{
		store:  store,
		tables: store,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// InTransaction runs fn with a Repository bound to a single store
// transaction. Everything fn writes commits together or not at all. Calls
// nested inside fn reuse the outer transaction. Live queries started from the
// transactional Repository observe the store, not the transaction.
func (r *Repository) InTransaction(ctx context.Context, fn func(tx *Repository) error) error {
	if r.inTx {
		return fn(r)
	}
	return r.store.RunInTransaction(ctx, func(tx types.Tables) error {
		return fn(&Repository{store: r.store, tables: tx, inTx: true, log: r.log})
	})
}

// root returns the non-transactional Repository over the same store.
func (r *Repository) root() *Repository {
	if !r.inTx {
		return r
	}
	return &Repository{store: r.store, tables: r.store, log: r.log}
}

func (r *Repository) table(name string) (types.Table, error) {
	t, err := r.tables.GetTable(name)
	if err != nil {
		return nil, fmt.Errorf("opening %s table: %w", name, err)
	}
	return t, nil
}

// get loads one entity, mapping ErrNotFound to a nil result.
func get[T any](ctx context.Context, r *Repository, table string, id int64) (*T, error) {
	if id <= 0 {
		return nil, nil
	}
	t, err := r.table(table)
	if err != nil {
		return nil, err
	}
	entity, err := t.Get(ctx, id)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting %s %d: %w", table, id, err)
	}
	return entity.(*T), nil
}

// fetch runs a filtered Fetch and converts the results to values.
func fetch[T any](ctx context.Context, r *Repository, table string, filter types.Filter) ([]T, error) {
	t, err := r.table(table)
	if err != nil {
		return nil, err
	}
	results, err := t.Fetch(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", table, err)
	}
	out := make([]T, 0, len(results))
	for _, e := range results {
		out = append(out, *e.(*T))
	}
	return out, nil
}

// set upserts an entity and returns its id.
func (r *Repository) set(ctx context.Context, table string, entity any) (int64, error) {
	t, err := r.table(table)
	if err != nil {
		return 0, err
	}
	id, err := t.Set(ctx, 0, entity)
	if err != nil {
		return 0, fmt.Errorf("saving %s: %w", table, err)
	}
	return id, nil
}

// remove deletes an entity by id; a missing row is not an error.
func (r *Repository) remove(ctx context.Context, table string, id int64) error {
	if id <= 0 {
		return nil
	}
	t, err := r.table(table)
	if err != nil {
		return err
	}
	if err := t.Delete(ctx, id); err != nil && !errors.Is(err, types.ErrNotFound) {
		return fmt.Errorf("deleting %s %d: %w", table, id, err)
	}
	return nil
}
