package workflow

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/nutrihub/internal/repository"
	"github.com/mesh-intelligence/nutrihub/internal/sqlite"
	"github.com/mesh-intelligence/nutrihub/pkg/types"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func setupRepo(t *testing.T) *repository.Repository {
	t.Helper()
	b := sqlite.NewBackend()
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))
	t.Cleanup(func() { b.Detach() })
	return repository.New(b, repository.WithLogger(quiet))
}

// seedTemplate stores Template > Breakfast > Bread(1 un), the plan used across
// the clone tests.
func seedTemplate(t *testing.T, repo *repository.Repository) *types.Plan {
	t.Helper()
	ctx := context.Background()
	plan := &types.Plan{Name: "Template", IsTemplate: true}
	_, err := repo.InsertPlan(ctx, plan)
	require.NoError(t, err)
	meal := &types.Meal{Name: "Breakfast", PlanID: plan.ID}
	_, err = repo.InsertMeal(ctx, meal)
	require.NoError(t, err)
	_, err = repo.InsertFood(ctx, &types.Food{Name: "Bread", Amount: 1, Unit: "un", MealID: meal.ID})
	require.NoError(t, err)

	tree, err := repo.PlanTree(ctx, plan.ID)
	require.NoError(t, err)
	return tree
}

func savePatient(t *testing.T, repo *repository.Repository, name string) *types.Patient {
	t.Helper()
	p := types.NewPatient(name, "", 30, types.SexOther, 1.7, 70)
	_, err := repo.InsertPatient(context.Background(), p)
	require.NoError(t, err)
	return p
}
