package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mesh-intelligence/nutrihub/pkg/types"
)

// Compile-time interface check: patientsTable must implement Table.
var _ types.Table = (*patientsTable)(nil)

var patientColumns = []string{"name", "plan_id", "email", "age", "sex", "height", "weight", "last_updated"}

const selectPatients = "SELECT id, name, plan_id, email, age, sex, height, weight, last_updated FROM patients"

// patientsTable implements the Table interface for *types.Patient.
type patientsTable struct {
	s *session
}

// Get retrieves a patient by ID.
func (pt *patientsTable) Get(ctx context.Context, id int64) (any, error) {
	if id <= 0 {
		return nil, types.ErrInvalidID
	}
	q, release, err := pt.s.enter()
	if err != nil {
		return nil, err
	}
	defer release()

	p, err := hydratePatient(q.QueryRowContext(ctx, selectPatients+" WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("getting patient %d: %w", id, err)
	}
	return p, nil
}

// Set inserts or replaces a patient. The patient name must not be empty.
// On success the stored id and LastUpdated are written back to data.
func (pt *patientsTable) Set(ctx context.Context, id int64, data any) (int64, error) {
	p, ok := data.(*types.Patient)
	if !ok {
		return 0, types.ErrInvalidData
	}
	if p.Name == "" {
		return 0, types.ErrInvalidName
	}
	id, err := resolveID(id, p.ID)
	if err != nil {
		return 0, err
	}

	lastUpdated := timeToMillis(p.LastUpdated)

	q, release, err := pt.s.enter()
	if err != nil {
		return 0, err
	}
	defer release()

	id, err = upsert(ctx, q, types.PatientsTable, patientColumns, id, []any{
		p.Name,
		nullableInt64(p.PlanID),
		nullableString(p.Email),
		p.Age,
		int64(p.Sex),
		p.Height,
		p.Weight,
		lastUpdated,
	})
	if err != nil {
		return 0, err
	}
	p.ID = id
	p.LastUpdated = millisToTime(lastUpdated)
	return id, pt.s.wrote(ctx, types.PatientsTable)
}

// Delete removes a patient by ID.
func (pt *patientsTable) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return types.ErrInvalidID
	}
	q, release, err := pt.s.enter()
	if err != nil {
		return err
	}
	defer release()

	if err := deleteByID(ctx, q, types.PatientsTable, id); err != nil {
		return err
	}
	return pt.s.wrote(ctx, types.PatientsTable)
}

// Fetch returns patients matching the filter. Supported keys are
// name_contains (string) and plan_id (int64).
func (pt *patientsTable) Fetch(ctx context.Context, filter types.Filter) ([]any, error) {
	sq := &selectQuery{base: selectPatients}

	if v, ok := filter[types.FilterNameContains]; ok {
		name, ok := v.(string)
		if !ok {
			return nil, types.ErrInvalidFilter
		}
		sq.where(`name LIKE '%' || ? || '%' ESCAPE '\'`, escapeLike(name))
	}
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

	q, release, err := pt.s.enter()
	if err != nil {
		return nil, err
	}
	defer release()

	results, err := fetchRows(ctx, q, sq, func(r rowScanner) (any, error) {
		return hydratePatient(r)
	})
	if err != nil {
		return nil, fmt.Errorf("fetching patients: %w", err)
	}
	return results, nil
}

// hydratePatient scans one patients row into a *types.Patient.
func hydratePatient(r rowScanner) (*types.Patient, error) {
	var (
		p           types.Patient
		planID      sql.NullInt64
		email       sql.NullString
		sex         int64
		lastUpdated int64
	)
	if err := r.Scan(&p.ID, &p.Name, &planID, &email, &p.Age, &sex, &p.Height, &p.Weight, &lastUpdated); err != nil {
		return nil, err
	}
	if planID.Valid {
		p.AssignPlan(planID.Int64)
	}
	p.Email = email.String
	p.Sex = int16(sex)
	p.LastUpdated = millisToTime(lastUpdated)
	return &p, nil
}

// timeToMillis stores a time as unix milliseconds; the zero time stores as 0.
func timeToMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func millisToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
