package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/nutrihub/pkg/types"
)

func TestPatientsTable_CRUD(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)
	tbl := getTable(t, b, types.PatientsTable)

	p := types.NewPatient("Alice", "alice@example.com", 30, types.SexFemale, 1.65, 60.5)
	p.AssignPlan(4)
	id, err := tbl.Set(ctx, 0, p)
	require.NoError(t, err)
	assert.Equal(t, id, p.ID, "Set writes the new id back")

	got, err := tbl.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	p.Name = "Alice Smith"
	p.PlanID = nil
	p.Email = ""
	_, err = tbl.Set(ctx, id, p)
	require.NoError(t, err)

	got, err = tbl.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Alice Smith", got.(*types.Patient).Name)
	assert.Nil(t, got.(*types.Patient).PlanID)
	assert.Empty(t, got.(*types.Patient).Email)

	require.NoError(t, tbl.Delete(ctx, id))
	_, err = tbl.Get(ctx, id)
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.ErrorIs(t, tbl.Delete(ctx, id), types.ErrNotFound)
}

func TestPatientsTable_LastUpdatedRoundTrip(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)
	tbl := getTable(t, b, types.PatientsTable)

	tests := []struct {
		name        string
		lastUpdated time.Time
	}{
		{"wall clock with monotonic reading", time.Now()},
		{"nanoseconds in another zone", time.Date(2025, 3, 9, 14, 30, 5, 123456789, time.FixedZone("BRT", -3*60*60))},
		{"zero", time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &types.Patient{Name: "Dora", LastUpdated: tt.lastUpdated}
			id, err := tbl.Set(ctx, 0, p)
			require.NoError(t, err)

			got, err := tbl.Get(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, p, got)
			assert.True(t, p.LastUpdated.Equal(tt.lastUpdated.Truncate(time.Millisecond)))
		})
	}
}

func TestPatientsTable_Validation(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)
	tbl := getTable(t, b, types.PatientsTable)

	_, err := tbl.Set(ctx, 0, &types.Patient{})
	assert.ErrorIs(t, err, types.ErrInvalidName)

	_, err = tbl.Set(ctx, 0, &types.Plan{Name: "wrong type"})
	assert.ErrorIs(t, err, types.ErrInvalidData)

	_, err = tbl.Set(ctx, -3, &types.Patient{Name: "Neg"})
	assert.ErrorIs(t, err, types.ErrInvalidID)

	_, err = tbl.Get(ctx, 0)
	assert.ErrorIs(t, err, types.ErrInvalidID)
}

func TestPatientsTable_Fetch(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)
	tbl := getTable(t, b, types.PatientsTable)

	planA := int64(1)
	for _, name := range []string{"Alice", "Bob", "Malice", "50%_off"} {
		p := types.NewPatient(name, "", 30, types.SexOther, 1.7, 70)
		if name == "Alice" || name == "Bob" {
			p.AssignPlan(planA)
		}
		_, err := tbl.Set(ctx, 0, p)
		require.NoError(t, err)
	}

	names := func(results []any) []string {
		var out []string
		for _, r := range results {
			out = append(out, r.(*types.Patient).Name)
		}
		return out
	}

	tests := []struct {
		name    string
		filter  types.Filter
		want    []string
		wantErr error
	}{
		{name: "nil filter returns all in id order", filter: nil, want: []string{"Alice", "Bob", "Malice", "50%_off"}},
		{name: "substring match", filter: types.Filter{types.FilterNameContains: "lice"}, want: []string{"Alice", "Malice"}},
		{name: "ascii case-insensitive", filter: types.Filter{types.FilterNameContains: "ALI"}, want: []string{"Alice", "Malice"}},
		{name: "wildcards are literal", filter: types.Filter{types.FilterNameContains: "%_"}, want: []string{"50%_off"}},
		{name: "no match", filter: types.Filter{types.FilterNameContains: "zzz"}, want: nil},
		{name: "by plan", filter: types.Filter{types.FilterPlanID: planA}, want: []string{"Alice", "Bob"}},
		{name: "limit and offset", filter: types.Filter{types.FilterLimit: 2, types.FilterOffset: 1}, want: []string{"Bob", "Malice"}},
		{name: "offset only", filter: types.Filter{types.FilterOffset: 3}, want: []string{"50%_off"}},
		{name: "bad name type", filter: types.Filter{types.FilterNameContains: 5}, wantErr: types.ErrInvalidFilter},
		{name: "bad plan type", filter: types.Filter{types.FilterPlanID: "1"}, wantErr: types.ErrInvalidFilter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := tbl.Fetch(ctx, tt.filter)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(results))
		})
	}
}

func TestPlansTable_CRUD(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)
	tbl := getTable(t, b, types.PlansTable)

	template := &types.Plan{Name: "Template", IsTemplate: true}
	own := &types.Plan{Name: "", IsTemplate: false}
	_, err := tbl.Set(ctx, 0, template)
	require.NoError(t, err)
	_, err = tbl.Set(ctx, 0, own)
	require.NoError(t, err, "draft plans may have an empty name")

	got, err := tbl.Get(ctx, template.ID)
	require.NoError(t, err)
	assert.Equal(t, template, got)

	templates, err := tbl.Fetch(ctx, types.Filter{types.FilterIsTemplate: true})
	require.NoError(t, err)
	assert.Equal(t, []any{template}, templates)

	others, err := tbl.Fetch(ctx, types.Filter{types.FilterIsTemplate: false})
	require.NoError(t, err)
	assert.Equal(t, []any{own}, others)

	_, err = tbl.Fetch(ctx, types.Filter{types.FilterIsTemplate: 1})
	assert.ErrorIs(t, err, types.ErrInvalidFilter)

	// Upsert with an explicit id creates the row when absent.
	_, err = tbl.Set(ctx, 42, &types.Plan{Name: "Explicit"})
	require.NoError(t, err)
	got, err = tbl.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "Explicit", got.(*types.Plan).Name)

	require.NoError(t, tbl.Delete(ctx, template.ID))
	assert.ErrorIs(t, tbl.Delete(ctx, template.ID), types.ErrNotFound)
}

func TestMealsAndFoodsTables(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)
	meals := getTable(t, b, types.MealsTable)
	foods := getTable(t, b, types.FoodsTable)

	breakfast := &types.Meal{Name: "Breakfast", PlanID: 1}
	lunch := &types.Meal{Name: "Lunch", PlanID: 1}
	other := &types.Meal{Name: "Dinner", PlanID: 2}
	for _, m := range []*types.Meal{breakfast, lunch, other} {
		_, err := meals.Set(ctx, 0, m)
		require.NoError(t, err)
	}

	planMeals, err := meals.Fetch(ctx, types.Filter{types.FilterPlanID: int64(1)})
	require.NoError(t, err)
	assert.Equal(t, []any{breakfast, lunch}, planMeals)

	bread := &types.Food{Name: "Bread", Amount: 1, Unit: "un", MealID: breakfast.ID}
	milk := &types.Food{Name: "Milk", Amount: 200, Unit: "ml", MealID: breakfast.ID}
	for _, f := range []*types.Food{bread, milk} {
		_, err := foods.Set(ctx, 0, f)
		require.NoError(t, err)
	}

	got, err := foods.Get(ctx, milk.ID)
	require.NoError(t, err)
	assert.Equal(t, milk, got)

	mealFoods, err := foods.Fetch(ctx, types.Filter{types.FilterMealID: breakfast.ID})
	require.NoError(t, err)
	assert.Equal(t, []any{bread, milk}, mealFoods)

	empty, err := foods.Fetch(ctx, types.Filter{types.FilterMealID: lunch.ID})
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	require.NoError(t, meals.Delete(ctx, breakfast.ID))
	remaining, err := foods.Fetch(ctx, types.Filter{types.FilterMealID: breakfast.ID})
	require.NoError(t, err)
	assert.Len(t, remaining, 2, "the store itself never cascades")
}
