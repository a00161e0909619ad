package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/nutrihub/pkg/types"
)

// Compile-time interface check: foodsTable must implement Table.
var _ types.Table = (*foodsTable)(nil)

var foodColumns = []string{"name", "amount", "unit", "meal_id"}

const selectFoods = "SELECT id, name, amount, unit, meal_id FROM foods"

// foodsTable implements the Table interface for *types.Food.
type foodsTable struct {
	s *session
}

// Get retrieves a food by ID.
func (ft *foodsTable) Get(ctx context.Context, id int64) (any, error) {
	if id <= 0 {
		return nil, types.ErrInvalidID
	}
	q, release, err := ft.s.enter()
	if err != nil {
		return nil, err
	}
	defer release()

	f, err := hydrateFood(q.QueryRowContext(ctx, selectFoods+" WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("getting food %d: %w", id, err)
	}
	return f, nil
}

// Set inserts or replaces a food item.
func (ft *foodsTable) Set(ctx context.Context, id int64, data any) (int64, error) {
	f, ok := data.(*types.Food)
	if !ok {
		return 0, types.ErrInvalidData
	}
	id, err := resolveID(id, f.ID)
	if err != nil {
		return 0, err
	}

	q, release, err := ft.s.enter()
	if err != nil {
		return 0, err
	}
	defer release()

	id, err = upsert(ctx, q, types.FoodsTable, foodColumns, id, []any{f.Name, f.Amount, f.Unit, f.MealID})
	if err != nil {
		return 0, err
	}
	f.ID = id
	return id, ft.s.wrote(ctx, types.FoodsTable)
}

// Delete removes a food by ID.
func (ft *foodsTable) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return types.ErrInvalidID
	}
	q, release, err := ft.s.enter()
	if err != nil {
		return err
	}
	defer release()

	if err := deleteByID(ctx, q, types.FoodsTable, id); err != nil {
		return err
	}
	return ft.s.wrote(ctx, types.FoodsTable)
}

// Fetch returns foods matching the filter. Supported key: meal_id (int64).
func (ft *foodsTable) Fetch(ctx context.Context, filter types.Filter) ([]any, error) {
	sq := &selectQuery{base: selectFoods}

	mealID, ok, err := int64Filter(filter, types.FilterMealID)
	if err != nil {
		return nil, err
	}
	if ok {
		sq.where("meal_id = ?", mealID)
	}
	if err := sq.paginate(filter); err != nil {
		return nil, err
	}

	q, release, err := ft.s.enter()
	if err != nil {
		return nil, err
	}
	defer release()

	results, err := fetchRows(ctx, q, sq, func(r rowScanner) (any, error) {
		return hydrateFood(r)
	})
	if err != nil {
		return nil, fmt.Errorf("fetching foods: %w", err)
	}
	return results, nil
}

func hydrateFood(r rowScanner) (*types.Food, error) {
	var f types.Food
	if err := r.Scan(&f.ID, &f.Name, &f.Amount, &f.Unit, &f.MealID); err != nil {
		return nil, err
	}
	return &f, nil
}
