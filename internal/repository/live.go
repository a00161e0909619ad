package repository

import (
	"context"
	"fmt"
)

// watchQuery returns a channel that receives query's result now and again
// after every committed change to tables. The subscription is taken before
// the first query so no change between the two is missed. The channel closes
// when ctx is done or the store detaches.
func watchQuery[T any](ctx context.Context, r *Repository, tables []string, query func(context.Context, *Repository) ([]T, error)) (<-chan []T, error) {
	r = r.root()
	changes, err := r.store.Watch(ctx, tables...)
	if err != nil {
		return nil, fmt.Errorf("watching %v: %w", tables, err)
	}

	out := make(chan []T)
	go func() {
		defer close(out)

		emit := func() bool {
			items, err := query(ctx, r)
			if err != nil {
				if ctx.Err() != nil {
					return false
				}
				r.log.Warn("live query failed", "tables", tables, "error", err)
				return true
			}
			select {
			case out <- items:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !emit() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok || !emit() {
					return
				}
			}
		}
	}()
	return out, nil
}
