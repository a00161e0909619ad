package types

// Plan is a named collection of meals. Template plans are reusable blueprints
// cloned into patient-owned plans.
type Plan struct {
	ID         int64
	Name       string
	IsTemplate bool
	Meals      []Meal // Loaded on demand; never persisted with the plan row.
}

// Meal is a named collection of foods owned by exactly one plan.
type Meal struct {
	ID     int64
	Name   string
	PlanID int64
	Foods  []Food // Loaded on demand; never persisted with the meal row.
}

// Food is a single item of a meal.
type Food struct {
	ID     int64
	Name   string
	Amount int
	Unit   string
	MealID int64
}

// CopyTo returns a copy of the meal under planID with no ID and no foods.
func (m Meal) CopyTo(planID int64) *Meal {
	return &Meal{Name: m.Name, PlanID: planID}
}

// CopyTo returns a copy of the food under mealID with no ID.
func (f Food) CopyTo(mealID int64) *Food {
	return &Food{Name: f.Name, Amount: f.Amount, Unit: f.Unit, MealID: mealID}
}
