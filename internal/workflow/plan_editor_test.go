package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/nutrihub/internal/repository"
	"github.com/mesh-intelligence/nutrihub/pkg/types"
)

func newEditor(t *testing.T, planID int64) (*PlanEditor, *Emitter) {
	t.Helper()
	return newEditorOn(t, setupRepo(t), planID)
}

func TestPlanEditorNewTemplate(t *testing.T) {
	ctx := context.Background()
	editor, events := newEditor(t, 0)

	plan := editor.Plan()
	assert.Positive(t, plan.ID)
	assert.True(t, plan.IsTemplate)
	assert.Empty(t, plan.Name)
	assert.NotEmpty(t, editor.SessionID())

	ok, err := editor.ClosePlan(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, editor.ChangePlanName(ctx, "Cutting"))
	ok, err = editor.ClosePlan(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []Event{
		ShowMessage{Text: MsgPlanNameRequired},
		ShowMessage{Text: MsgPlanNeedsMeal},
	}, events.Drain())

	require.NoError(t, editor.AddMeal(ctx))
	assert.Equal(t, EditorEditingMeal, editor.State())

	ok, err = editor.CloseMeal(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, editor.ChangeMealName(ctx, "Lunch"))
	ok, err = editor.CloseMeal(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []Event{
		ShowMessage{Text: MsgMealNameRequired},
		ShowMessage{Text: MsgMealNeedsFood},
	}, events.Drain())
	assert.Equal(t, EditorEditingMeal, editor.State())

	food, err := editor.AddFood(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultFoodName, food.Name)
	assert.Equal(t, DefaultFoodUnit, food.Unit)
	require.NoError(t, editor.ChangeFood(ctx, food.ID, "Rice", "g", 150))

	ok, err = editor.CloseMeal(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, EditorInitialized, editor.State())

	ok, err = editor.ClosePlan(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, EditorClosed, editor.State())
	assert.Equal(t, []Event{PopBackStack{}}, events.Drain())

	stored, err := editor.repo.PlanTree(ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cutting", stored.Name)
	require.Len(t, stored.Meals, 1)
	assert.Equal(t, "Lunch", stored.Meals[0].Name)
	assert.Equal(t, []types.Food{{ID: food.ID, Name: "Rice", Amount: 150, Unit: "g", MealID: stored.Meals[0].ID}}, stored.Meals[0].Foods)
}

func TestPlanEditorExistingPlan(t *testing.T) {
	ctx := context.Background()
	repo := setupRepo(t)
	template := seedTemplate(t, repo)

	editor, _ := newEditorOn(t, repo, template.ID)
	plan := editor.Plan()
	assert.Equal(t, "Template", plan.Name)
	require.Len(t, plan.Meals, 1)

	breakfast := plan.Meals[0]
	require.NoError(t, editor.EditMeal(ctx, breakfast.ID))
	assert.Equal(t, "Breakfast", editor.Meal().Name)
	require.Len(t, editor.Meal().Foods, 1)

	require.NoError(t, editor.ChangeMealName(ctx, "Morning"))
	require.NoError(t, editor.CancelMeal(ctx))

	meal, err := repo.MealWithFoods(ctx, breakfast.ID)
	require.NoError(t, err)
	require.NotNil(t, meal)
	assert.Equal(t, "Morning", meal.Name)
	assert.Equal(t, "Morning", editor.Plan().Meals[0].Name)
}

func TestPlanEditorCancelAddedMeal(t *testing.T) {
	ctx := context.Background()
	repo := setupRepo(t)
	template := seedTemplate(t, repo)
	editor, _ := newEditorOn(t, repo, template.ID)

	require.NoError(t, editor.AddMeal(ctx))
	added := editor.Meal()
	_, err := editor.AddFood(ctx)
	require.NoError(t, err)
	require.NoError(t, editor.CancelMeal(ctx))

	meal, err := repo.MealWithFoods(ctx, added.ID)
	require.NoError(t, err)
	assert.Nil(t, meal)
	assert.Len(t, editor.Plan().Meals, 1)
}

func TestPlanEditorErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing plan", func(t *testing.T) {
		editor := NewPlanEditor(setupRepo(t), NewEmitter(4), WithLogger(quiet))
		assert.ErrorIs(t, editor.Init(ctx, 42), ErrPlanNotFound)
		assert.Equal(t, EditorUninitialized, editor.State())
	})

	t.Run("operations out of state", func(t *testing.T) {
		editor := NewPlanEditor(setupRepo(t), NewEmitter(4), WithLogger(quiet))
		assert.ErrorIs(t, editor.AddMeal(ctx), ErrEditorState)
		require.NoError(t, editor.Init(ctx, 0))
		assert.ErrorIs(t, editor.Init(ctx, 0), ErrEditorState)
		assert.ErrorIs(t, editor.ChangeMealName(ctx, "x"), ErrEditorState)
		_, err := editor.AddFood(ctx)
		assert.ErrorIs(t, err, ErrEditorState)
		_, err = editor.CloseMeal(ctx)
		assert.ErrorIs(t, err, ErrEditorState)
	})

	t.Run("meal from another plan", func(t *testing.T) {
		repo := setupRepo(t)
		template := seedTemplate(t, repo)
		editor, _ := newEditorOn(t, repo, 0)
		assert.ErrorIs(t, editor.EditMeal(ctx, template.Meals[0].ID), ErrMealNotFound)
	})

	t.Run("unknown food", func(t *testing.T) {
		editor, _ := newEditor(t, 0)
		require.NoError(t, editor.AddMeal(ctx))
		assert.ErrorIs(t, editor.ChangeFood(ctx, 99, "x", "g", 1), ErrFoodNotFound)
	})
}

func TestEditorStateString(t *testing.T) {
	tests := []struct {
		state EditorState
		want  string
	}{
		{EditorUninitialized, "uninitialized"},
		{EditorInitialized, "initialized"},
		{EditorEditingMeal, "editing_meal"},
		{EditorClosed, "closed"},
		{EditorState(7), "EditorState(7)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.state.String())
	}
}

func newEditorOn(t *testing.T, repo *repository.Repository, planID int64) (*PlanEditor, *Emitter) {
	t.Helper()
	events := NewEmitter(16)
	editor := NewPlanEditor(repo, events, WithLogger(quiet))
	require.NoError(t, editor.Init(context.Background(), planID))
	return editor, events
}
