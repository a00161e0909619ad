package repository

import (
	"context"

	"github.com/mesh-intelligence/nutrihub/pkg/types"
)

// InsertPlan upserts plan and returns its id. Plan.Meals is not written.
func (r *Repository) InsertPlan(ctx context.Context, plan *types.Plan) (int64, error) {
	id, err := r.set(ctx, types.PlansTable, plan)
	if err != nil {
		return 0, err
	}
	r.log.Debug("plan saved", "plan_id", id, "template", plan.IsTemplate)
	return id, nil
}

// InsertMeal upserts meal when its plan exists. Otherwise nothing is written
// and InvalidID is returned.
func (r *Repository) InsertMeal(ctx context.Context, meal *types.Meal) (int64, error) {
	plan, err := r.GetPlanByID(ctx, meal.PlanID)
	if err != nil {
		return 0, err
	}
	if plan == nil {
		r.log.Debug("meal rejected, plan not found", "plan_id", meal.PlanID)
		return types.InvalidID, nil
	}
	return r.set(ctx, types.MealsTable, meal)
}

// InsertFood upserts food when its meal exists. Otherwise nothing is written
// and InvalidID is returned.
func (r *Repository) InsertFood(ctx context.Context, food *types.Food) (int64, error) {
	meal, err := get[types.Meal](ctx, r, types.MealsTable, food.MealID)
	if err != nil {
		return 0, err
	}
	if meal == nil {
		r.log.Debug("food rejected, meal not found", "meal_id", food.MealID)
		return types.InvalidID, nil
	}
	return r.set(ctx, types.FoodsTable, food)
}

// GetPlanByID returns the plan with id, or nil when none exists.
func (r *Repository) GetPlanByID(ctx context.Context, id int64) (*types.Plan, error) {
	return get[types.Plan](ctx, r, types.PlansTable, id)
}

// PlanMeals returns the meals of planID in insertion order. An absent plan
// has no meals.
func (r *Repository) PlanMeals(ctx context.Context, planID int64) ([]types.Meal, error) {
	return fetch[types.Meal](ctx, r, types.MealsTable, types.Filter{types.FilterPlanID: planID})
}

// MealFoods returns the foods of mealID in insertion order.
func (r *Repository) MealFoods(ctx context.Context, mealID int64) ([]types.Food, error) {
	return fetch[types.Food](ctx, r, types.FoodsTable, types.Filter{types.FilterMealID: mealID})
}

// TemplatePlans returns the current template plans.
func (r *Repository) TemplatePlans(ctx context.Context) ([]types.Plan, error) {
	return fetch[types.Plan](ctx, r, types.PlansTable, types.Filter{types.FilterIsTemplate: true})
}

// MealWithFoods returns the meal with its foods loaded, or nil when absent.
func (r *Repository) MealWithFoods(ctx context.Context, mealID int64) (*types.Meal, error) {
	meal, err := get[types.Meal](ctx, r, types.MealsTable, mealID)
	if err != nil || meal == nil {
		return nil, err
	}
	if meal.Foods, err = r.MealFoods(ctx, meal.ID); err != nil {
		return nil, err
	}
	return meal, nil
}

// PlanTree returns the plan with its meals and their foods loaded, or nil
// when the plan does not exist.
func (r *Repository) PlanTree(ctx context.Context, planID int64) (*types.Plan, error) {
	plan, err := r.GetPlanByID(ctx, planID)
	if err != nil || plan == nil {
		return nil, err
	}
	if err := r.loadMeals(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// loadMeals fills plan.Meals and each meal's Foods.
func (r *Repository) loadMeals(ctx context.Context, plan *types.Plan) error {
	meals, err := r.PlanMeals(ctx, plan.ID)
	if err != nil {
		return err
	}
	for i := range meals {
		if meals[i].Foods, err = r.MealFoods(ctx, meals[i].ID); err != nil {
			return err
		}
	}
	plan.Meals = meals
	return nil
}

// DeletePlan deletes the plan's meals (and their foods), then the plan.
// Patients still pointing at the plan are left without one.
func (r *Repository) DeletePlan(ctx context.Context, plan types.Plan) error {
	return r.InTransaction(ctx, func(tx *Repository) error {
		meals, err := tx.PlanMeals(ctx, plan.ID)
		if err != nil {
			return err
		}
		for _, m := range meals {
			if err := tx.DeleteMeal(ctx, m); err != nil {
				return err
			}
		}

		patients, err := tx.PatientsOnPlan(ctx, plan.ID)
		if err != nil {
			return err
		}
		for i := range patients {
			patients[i].PlanID = nil
			if _, err := tx.InsertPatient(ctx, &patients[i]); err != nil {
				return err
			}
		}

		if err := tx.remove(ctx, types.PlansTable, plan.ID); err != nil {
			return err
		}
		tx.log.Debug("plan deleted", "plan_id", plan.ID, "meals", len(meals))
		return nil
	})
}

// DeleteMeal deletes the meal's foods, then the meal. A missing meal is a
// no-op.
func (r *Repository) DeleteMeal(ctx context.Context, meal types.Meal) error {
	return r.InTransaction(ctx, func(tx *Repository) error {
		foods, err := tx.MealFoods(ctx, meal.ID)
		if err != nil {
			return err
		}
		for _, f := range foods {
			if err := tx.DeleteFood(ctx, f); err != nil {
				return err
			}
		}
		return tx.remove(ctx, types.MealsTable, meal.ID)
	})
}

// DeleteFood deletes the food with food.ID. A missing food is a no-op.
func (r *Repository) DeleteFood(ctx context.Context, food types.Food) error {
	return r.remove(ctx, types.FoodsTable, food.ID)
}

// AllTemplatePlans streams the template plans, re-emitting after each plans
// change.
func (r *Repository) AllTemplatePlans(ctx context.Context) (<-chan []types.Plan, error) {
	return watchQuery(ctx, r, []string{types.PlansTable}, func(ctx context.Context, r *Repository) ([]types.Plan, error) {
		return r.TemplatePlans(ctx)
	})
}

// TemplatePlanTrees streams the template plans with meals and foods loaded,
// re-emitting after any change to plans, meals or foods.
func (r *Repository) TemplatePlanTrees(ctx context.Context) (<-chan []types.Plan, error) {
	tables := []string{types.PlansTable, types.MealsTable, types.FoodsTable}
	return watchQuery(ctx, r, tables, func(ctx context.Context, r *Repository) ([]types.Plan, error) {
		plans, err := r.TemplatePlans(ctx)
		if err != nil {
			return nil, err
		}
		for i := range plans {
			if err := r.loadMeals(ctx, &plans[i]); err != nil {
				return nil, err
			}
		}
		return plans, nil
	})
}
