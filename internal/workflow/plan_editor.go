package workflow

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/nutrihub/internal/repository"
	"github.com/mesh-intelligence/nutrihub/pkg/types"
)

// EditorState is the lifecycle position of a PlanEditor.
type EditorState int

// Plan editor states.
const (
	EditorUninitialized EditorState = iota
	EditorInitialized
	EditorEditingMeal
	EditorClosed
)

func (s EditorState) String() string {
	switch s {
	case EditorUninitialized:
		return "uninitialized"
	case EditorInitialized:
		return "initialized"
	case EditorEditingMeal:
		return "editing_meal"
	case EditorClosed:
		return "closed"
	default:
		return fmt.Sprintf("EditorState(%d)", int(s))
	}
}

// Validation messages shown by the plan editor.
const (
	MsgPlanNameRequired = "Please inform the plan name"
	MsgPlanNeedsMeal    = "Please add at least one meal"
	MsgMealNameRequired = "Please inform the meal name"
	MsgMealNeedsFood    = "Please add at least one item"
)

// Defaults for a freshly added food item.
const (
	DefaultFoodName = "item"
	DefaultFoodUnit = "g"
)

// PlanEditor edits one plan and, one at a time, its meals. Every change is
// written through to the repository as it happens; validation only gates
// leaving a meal or closing the plan.
type PlanEditor struct {
	base
	sessionID string

	mu        sync.Mutex
	state     EditorState
	plan      types.Plan
	meals     []types.Meal
	meal      types.Meal
	foods     []types.Food
	addedMeal bool // the meal being edited was created in this meal session
}

// NewPlanEditor returns an uninitialized PlanEditor reporting to events.
func NewPlanEditor(repo *repository.Repository, events *Emitter, opts ...Option) *PlanEditor {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	e := &PlanEditor{base: newBase(repo, events, "plan_editor", opts), sessionID: id.String()}
	e.log = e.log.With("session_id", e.sessionID)
	return e
}

// Init loads planID, or creates an empty template plan when planID is not
// positive.
func (e *PlanEditor) Init(ctx context.Context, planID int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.require(EditorUninitialized); err != nil {
		return err
	}

	if planID <= 0 {
		plan := types.Plan{Name: "", IsTemplate: true}
		if _, err := e.repo.InsertPlan(ctx, &plan); err != nil {
			return err
		}
		e.plan = plan
		e.meals = nil
	} else {
		tree, err := e.repo.PlanTree(ctx, planID)
		if err != nil {
			return err
		}
		if tree == nil {
			return fmt.Errorf("opening plan %d: %w", planID, ErrPlanNotFound)
		}
		e.meals = tree.Meals
		tree.Meals = nil
		e.plan = *tree
	}

	e.state = EditorInitialized
	e.log.Debug("plan editor initialized", "plan_id", e.plan.ID)
	return nil
}

// ChangePlanName renames the plan and saves it.
func (e *PlanEditor) ChangePlanName(ctx context.Context, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.require(EditorInitialized, EditorEditingMeal); err != nil {
		return err
	}

	e.plan.Name = name
	plan := e.plan
	_, err := e.repo.InsertPlan(ctx, &plan)
	return err
}

// AddMeal creates an empty meal under the plan and starts editing it.
func (e *PlanEditor) AddMeal(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.require(EditorInitialized); err != nil {
		return err
	}

	meal := types.Meal{Name: "", PlanID: e.plan.ID}
	id, err := e.repo.InsertMeal(ctx, &meal)
	if err != nil {
		return err
	}
	if id == types.InvalidID {
		return fmt.Errorf("adding meal to plan %d: %w", e.plan.ID, ErrPlanNotFound)
	}

	e.meal = meal
	e.foods = []types.Food{}
	e.addedMeal = true
	e.state = EditorEditingMeal
	e.log.Debug("meal added", "meal_id", id)
	return nil
}

// EditMeal starts editing an existing meal of the plan.
func (e *PlanEditor) EditMeal(ctx context.Context, mealID int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.require(EditorInitialized); err != nil {
		return err
	}

	meal, err := e.repo.MealWithFoods(ctx, mealID)
	if err != nil {
		return err
	}
	if meal == nil || meal.PlanID != e.plan.ID {
		return fmt.Errorf("editing meal %d: %w", mealID, ErrMealNotFound)
	}

	e.foods = meal.Foods
	meal.Foods = nil
	e.meal = *meal
	e.addedMeal = false
	e.state = EditorEditingMeal
	return nil
}

// ChangeMealName renames the meal being edited and saves it.
func (e *PlanEditor) ChangeMealName(ctx context.Context, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.require(EditorEditingMeal); err != nil {
		return err
	}

	e.meal.Name = name
	meal := e.meal
	_, err := e.repo.InsertMeal(ctx, &meal)
	return err
}

// AddFood appends a placeholder food to the meal being edited.
func (e *PlanEditor) AddFood(ctx context.Context) (types.Food, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.require(EditorEditingMeal); err != nil {
		return types.Food{}, err
	}

	food := types.Food{Name: DefaultFoodName, Amount: 0, Unit: DefaultFoodUnit, MealID: e.meal.ID}
	id, err := e.repo.InsertFood(ctx, &food)
	if err != nil {
		return types.Food{}, err
	}
	if id == types.InvalidID {
		return types.Food{}, fmt.Errorf("adding food to meal %d: %w", e.meal.ID, ErrMealNotFound)
	}
	e.foods = append(e.foods, food)
	return food, nil
}

// ChangeFood updates one food of the meal being edited and saves it.
func (e *PlanEditor) ChangeFood(ctx context.Context, id int64, name, unit string, amount int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.require(EditorEditingMeal); err != nil {
		return err
	}

	for i := range e.foods {
		if e.foods[i].ID != id {
			continue
		}
		food := types.Food{ID: id, Name: name, Amount: amount, Unit: unit, MealID: e.meal.ID}
		if _, err := e.repo.InsertFood(ctx, &food); err != nil {
			return err
		}
		e.foods[i] = food
		return nil
	}
	return fmt.Errorf("changing food %d: %w", id, ErrFoodNotFound)
}

// CloseMeal leaves meal editing when the meal has a name and at least one
// food. On failure a message is emitted, the editor stays in the meal, and
// false is returned.
func (e *PlanEditor) CloseMeal(ctx context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.require(EditorEditingMeal); err != nil {
		return false, err
	}

	if strings.TrimSpace(e.meal.Name) == "" {
		return false, e.events.Send(ctx, ShowMessage{Text: MsgMealNameRequired})
	}
	if len(e.foods) == 0 {
		return false, e.events.Send(ctx, ShowMessage{Text: MsgMealNeedsFood})
	}

	if err := e.refreshMeals(ctx); err != nil {
		return false, err
	}
	e.leaveMeal()
	return true, nil
}

// CancelMeal leaves meal editing without validation. A meal added in this
// meal session is deleted along with its foods; changes to an existing meal
// stay saved.
func (e *PlanEditor) CancelMeal(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.require(EditorEditingMeal); err != nil {
		return err
	}

	if e.addedMeal {
		if err := e.repo.DeleteMeal(ctx, e.meal); err != nil {
			return err
		}
		e.log.Debug("added meal discarded", "meal_id", e.meal.ID)
	}
	if err := e.refreshMeals(ctx); err != nil {
		return err
	}
	e.leaveMeal()
	return nil
}

// ClosePlan saves the plan and asks to leave the editor when the plan has a
// name and at least one meal. On failure a message is emitted and false is
// returned.
func (e *PlanEditor) ClosePlan(ctx context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.require(EditorInitialized); err != nil {
		return false, err
	}

	if strings.TrimSpace(e.plan.Name) == "" {
		return false, e.events.Send(ctx, ShowMessage{Text: MsgPlanNameRequired})
	}
	if len(e.meals) == 0 {
		return false, e.events.Send(ctx, ShowMessage{Text: MsgPlanNeedsMeal})
	}

	plan := e.plan
	if _, err := e.repo.InsertPlan(ctx, &plan); err != nil {
		return false, err
	}
	e.state = EditorClosed
	e.log.Info("plan saved", "plan_id", e.plan.ID, "meals", len(e.meals))
	return true, e.events.Send(ctx, PopBackStack{})
}

// State returns the editor state.
func (e *PlanEditor) State() EditorState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Plan returns the plan with the meals known to the editor.
func (e *PlanEditor) Plan() types.Plan {
	e.mu.Lock()
	defer e.mu.Unlock()
	plan := e.plan
	plan.Meals = append([]types.Meal(nil), e.meals...)
	return plan
}

// Meal returns the meal being edited with its foods.
func (e *PlanEditor) Meal() types.Meal {
	e.mu.Lock()
	defer e.mu.Unlock()
	meal := e.meal
	meal.Foods = append([]types.Food(nil), e.foods...)
	return meal
}

// SessionID identifies this editor in logs.
func (e *PlanEditor) SessionID() string {
	return e.sessionID
}

func (e *PlanEditor) require(states ...EditorState) error {
	for _, s := range states {
		if e.state == s {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrEditorState, e.state)
}

func (e *PlanEditor) refreshMeals(ctx context.Context) error {
	tree, err := e.repo.PlanTree(ctx, e.plan.ID)
	if err != nil {
		return err
	}
	if tree == nil {
		return fmt.Errorf("reloading plan %d: %w", e.plan.ID, ErrPlanNotFound)
	}
	e.meals = tree.Meals
	return nil
}

func (e *PlanEditor) leaveMeal() {
	e.meal = types.Meal{}
	e.foods = nil
	e.addedMeal = false
	e.state = EditorInitialized
}
