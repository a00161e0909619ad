package repository

import (
	"context"

	"github.com/mesh-intelligence/nutrihub/pkg/types"
)

// InsertPatient upserts p and returns its id. The plan reference is stored
// as given.
func (r *Repository) InsertPatient(ctx context.Context, p *types.Patient) (int64, error) {
	id, err := r.set(ctx, types.PatientsTable, p)
	if err != nil {
		return 0, err
	}
	r.log.Debug("patient saved", "patient_id", id)
	return id, nil
}

// GetPatientByID returns the patient with id, or nil when none exists.
func (r *Repository) GetPatientByID(ctx context.Context, id int64) (*types.Patient, error) {
	return get[types.Patient](ctx, r, types.PatientsTable, id)
}

// PatientsOnPlan returns every patient referencing planID.
func (r *Repository) PatientsOnPlan(ctx context.Context, planID int64) ([]types.Patient, error) {
	return fetch[types.Patient](ctx, r, types.PatientsTable, types.Filter{types.FilterPlanID: planID})
}

// DeletePatient removes the patient. When it was the last patient on its
// plan, the plan is deleted with its meals and foods. Deleting an absent
// patient is a no-op.
func (r *Repository) DeletePatient(ctx context.Context, p types.Patient) error {
	return r.InTransaction(ctx, func(tx *Repository) error {
		stored, err := tx.GetPatientByID(ctx, p.ID)
		if err != nil {
			return err
		}
		if stored == nil {
			tx.log.Debug("patient delete skipped, not found", "patient_id", p.ID)
			return nil
		}

		if err := tx.remove(ctx, types.PatientsTable, stored.ID); err != nil {
			return err
		}
		tx.log.Debug("patient deleted", "patient_id", stored.ID)

		if !stored.HasPlan() {
			return nil
		}
		others, err := tx.PatientsOnPlan(ctx, *stored.PlanID)
		if err != nil {
			return err
		}
		if len(others) > 0 {
			return nil
		}
		return tx.DeletePlan(ctx, types.Plan{ID: *stored.PlanID})
	})
}

// AllPatients streams every patient, re-emitting after each patients change.
func (r *Repository) AllPatients(ctx context.Context) (<-chan []types.Patient, error) {
	return watchQuery(ctx, r, []string{types.PatientsTable}, func(ctx context.Context, r *Repository) ([]types.Patient, error) {
		return fetch[types.Patient](ctx, r, types.PatientsTable, nil)
	})
}

// SearchPatients streams patients whose name contains name.
func (r *Repository) SearchPatients(ctx context.Context, name string) (<-chan []types.Patient, error) {
	return watchQuery(ctx, r, []string{types.PatientsTable}, func(ctx context.Context, r *Repository) ([]types.Patient, error) {
		return fetch[types.Patient](ctx, r, types.PatientsTable, types.Filter{types.FilterNameContains: name})
	})
}
