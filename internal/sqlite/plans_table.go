package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/nutrihub/pkg/types"
)

// Compile-time interface check: plansTable must implement Table.
var _ types.Table = (*plansTable)(nil)

var planColumns = []string{"name", "is_template"}

const selectPlans = "SELECT id, name, is_template FROM plans"

// plansTable implements the Table interface for *types.Plan. Only the plan
// row is stored; Plan.Meals is ignored on write and left empty on read.
type plansTable struct {
	s *session
}

// Get retrieves a plan by ID.
func (pt *plansTable) Get(ctx context.Context, id int64) (any, error) {
	if id <= 0 {
		return nil, types.ErrInvalidID
	}
	q, release, err := pt.s.enter()
	if err != nil {
		return nil, err
	}
	defer release()

	p, err := hydratePlan(q.QueryRowContext(ctx, selectPlans+" WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("getting plan %d: %w", id, err)
	}
	return p, nil
}

// Set inserts or replaces a plan. An empty name is allowed for drafts.
func (pt *plansTable) Set(ctx context.Context, id int64, data any) (int64, error) {
	p, ok := data.(*types.Plan)
	if !ok {
		return 0, types.ErrInvalidData
	}
	id, err := resolveID(id, p.ID)
	if err != nil {
		return 0, err
	}

	q, release, err := pt.s.enter()
	if err != nil {
		return 0, err
	}
	defer release()

	id, err = upsert(ctx, q, types.PlansTable, planColumns, id, []any{p.Name, boolToInt(p.IsTemplate)})
	if err != nil {
		return 0, err
	}
	p.ID = id
	return id, pt.s.wrote(ctx, types.PlansTable)
}

// Delete removes a plan by ID. Meals are not touched.
func (pt *plansTable) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return types.ErrInvalidID
	}
	q, release, err := pt.s.enter()
	if err != nil {
		return err
	}
	defer release()

	if err := deleteByID(ctx, q, types.PlansTable, id); err != nil {
		return err
	}
	return pt.s.wrote(ctx, types.PlansTable)
}

// Fetch returns plans matching the filter. Supported key: is_template (bool).
func (pt *plansTable) Fetch(ctx context.Context, filter types.Filter) ([]any, error) {
	sq := &selectQuery{base: selectPlans}

	if v, ok := filter[types.FilterIsTemplate]; ok {
		isTemplate, ok := v.(bool)
		if !ok {
			return nil, types.ErrInvalidFilter
		}
		sq.where("is_template = ?", boolToInt(isTemplate))
	}
	if err := sq.paginate(filter); err != nil {
		return nil, err
	}

	q, release, err := pt.s.enter()
	if err != nil {
		return nil, err
	}
	defer release()

	results, err := fetchRows(ctx, q, sq, func(r rowScanner) (any, error) {
		return hydratePlan(r)
	})
	if err != nil {
		return nil, fmt.Errorf("fetching plans: %w", err)
	}
	return results, nil
}

func hydratePlan(r rowScanner) (*types.Plan, error) {
	var (
		p          types.Plan
		isTemplate int64
	)
	if err := r.Scan(&p.ID, &p.Name, &isTemplate); err != nil {
		return nil, err
	}
	p.IsTemplate = isTemplate != 0
	return &p, nil
}
