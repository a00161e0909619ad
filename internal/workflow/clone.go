package workflow

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/nutrihub/internal/repository"
	"github.com/mesh-intelligence/nutrihub/pkg/types"
)

// patientPlanName is the name given to a plan created for a patient.
func patientPlanName(p types.Patient) string {
	return p.Name + " plan"
}

// CloneFromTemplate deep-copies the template plan's meals and foods into a
// new non-template plan assigned to patient, and returns the new plan id.
// The template is only read. All writes happen in one transaction. A
// missing template yields an empty plan.
func CloneFromTemplate(ctx context.Context, repo *repository.Repository, patient types.Patient, templateID int64) (int64, error) {
	var newPlanID int64
	err := repo.InTransaction(ctx, func(tx *repository.Repository) error {
		var err error
		newPlanID, err = assignNewPlan(ctx, tx, patient)
		if err != nil {
			return err
		}

		meals, err := tx.PlanMeals(ctx, templateID)
		if err != nil {
			return err
		}
		for _, meal := range meals {
			newMealID, err := tx.InsertMeal(ctx, meal.CopyTo(newPlanID))
			if err != nil {
				return err
			}
			if newMealID == types.InvalidID {
				return fmt.Errorf("copying meal %d: %w", meal.ID, ErrPlanNotFound)
			}

			foods, err := tx.MealFoods(ctx, meal.ID)
			if err != nil {
				return err
			}
			for _, food := range foods {
				if _, err := tx.InsertFood(ctx, food.CopyTo(newMealID)); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("cloning template %d: %w", templateID, err)
	}
	return newPlanID, nil
}

// NewPlanForPatient creates an empty non-template plan assigned to patient
// and returns its id.
func NewPlanForPatient(ctx context.Context, repo *repository.Repository, patient types.Patient) (int64, error) {
	var planID int64
	err := repo.InTransaction(ctx, func(tx *repository.Repository) error {
		var err error
		planID, err = assignNewPlan(ctx, tx, patient)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("creating plan for patient %d: %w", patient.ID, err)
	}
	return planID, nil
}

func assignNewPlan(ctx context.Context, repo *repository.Repository, patient types.Patient) (int64, error) {
	planID, err := repo.InsertPlan(ctx, &types.Plan{Name: patientPlanName(patient), IsTemplate: false})
	if err != nil {
		return 0, err
	}
	patient.AssignPlan(planID)
	if _, err := repo.InsertPatient(ctx, &patient); err != nil {
		return 0, err
	}
	return planID, nil
}
