package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/nutrihub/pkg/types"
)

// Compile-time interface check: mealsTable must implement Table.
var _ types.Table = (*mealsTable)(nil)

var mealColumns = []string{"name", "plan_id"}

const selectMeals = "SELECT id, name, plan_id FROM meals"

// mealsTable implements the Table interface for *types.Meal. Meal.Foods is
// not stored.
type mealsTable struct {
	s *session
}

// Get retrieves a meal by ID.
func (mt *mealsTable) Get(ctx context.Context, id int64) (any, error) {
	if id <= 0 {
		return nil, types.ErrInvalidID
	}
	q, release, err := mt.s.enter()
	if err != nil {
		return nil, err
	}
	defer release()

	m, err := hydrateMeal(q.QueryRowContext(ctx, selectMeals+" WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("getting meal %d: %w", id, err)
	}
	return m, nil
}

// Set inserts or replaces a meal. The plan reference is stored as given.
func (mt *mealsTable) Set(ctx context.Context, id int64, data any) (int64, error) {
	m, ok := data.(*types.Meal)
	if !ok {
		return 0, types.ErrInvalidData
	}
	id, err := resolveID(id, m.ID)
	if err != nil {
		return 0, err
	}

	q, release, err := mt.s.enter()
	if err != nil {
		return 0, err
	}
	defer release()

	id, err = upsert(ctx, q, types.MealsTable, mealColumns, id, []any{m.Name, m.PlanID})
	if err != nil {
		return 0, err
	}
	m.ID = id
	return id, mt.s.wrote(ctx, types.MealsTable)
}

// Delete removes a meal by ID. Foods are not touched.
func (mt *mealsTable) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return types.ErrInvalidID
	}
	q, release, err := mt.s.enter()
	if err != nil {
		return err
	}
	defer release()

	if err := deleteByID(ctx, q, types.MealsTable, id); err != nil {
		return err
	}
	return mt.s.wrote(ctx, types.MealsTable)
}

// Fetch returns meals matching the filter. Supported key: plan_id (int64).
func (mt *mealsTable) Fetch(ctx context.Context, filter types.Filter) ([]any, error) {
	sq := &selectQuery{base: selectMeals}

	planID, ok, err := int64Filter(filter, types.FilterPlanID)
	if err != nil {
		return nil, err
	}
	if ok {
		sq.where("plan_id = ?", planID)
	}
	if err := sq.paginate(filter); err != nil {
		return nil, err
	}

	q, release, err := mt.s.enter()
	if err != nil {
		return nil, err
	}
	defer release()

	results, err := fetchRows(ctx, q, sq, func(r rowScanner) (any, error) {
		return hydrateMeal(r)
	})
	if err != nil {
		return nil, fmt.Errorf("fetching meals: %w", err)
	}
	return results, nil
}

func hydrateMeal(r rowScanner) (*types.Meal, error) {
	var m types.Meal
	if err := r.Scan(&m.ID, &m.Name, &m.PlanID); err != nil {
		return nil, err
	}
	return &m, nil
}
