package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/nutrihub/pkg/types"
)

// receiveUntil reads snapshots from ch until match accepts one.
func receiveUntil[T any](t *testing.T, ch <-chan []T, match func([]T) bool) []T {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case items, ok := <-ch:
			require.True(t, ok, "stream closed early")
			if match(items) {
				return items
			}
		case <-deadline:
			t.Fatal("no matching snapshot")
			return nil
		}
	}
}

func TestAllPatientsStream(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := setupRepository(t)

	stream, err := r.AllPatients(ctx)
	require.NoError(t, err)

	first := receiveUntil(t, stream, func([]types.Patient) bool { return true })
	assert.Empty(t, first, "initial snapshot of an empty store")

	alice := types.NewPatient("Alice", "", 30, types.SexFemale, 1.65, 60)
	_, err = r.InsertPatient(ctx, alice)
	require.NoError(t, err)

	got := receiveUntil(t, stream, func(ps []types.Patient) bool { return len(ps) == 1 })
	assert.Equal(t, *alice, got[0])

	require.NoError(t, r.DeletePatient(ctx, *alice))
	receiveUntil(t, stream, func(ps []types.Patient) bool { return len(ps) == 0 })
}

func TestSearchPatientsStream(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := setupRepository(t)

	for _, name := range []string{"Alice", "Bob"} {
		_, err := r.InsertPatient(ctx, types.NewPatient(name, "", 30, types.SexOther, 1.7, 70))
		require.NoError(t, err)
	}

	stream, err := r.SearchPatients(ctx, "li")
	require.NoError(t, err)

	got := receiveUntil(t, stream, func([]types.Patient) bool { return true })
	require.Len(t, got, 1)
	assert.Equal(t, "Alice", got[0].Name)

	_, err = r.InsertPatient(ctx, types.NewPatient("Clive", "", 30, types.SexOther, 1.7, 70))
	require.NoError(t, err)
	receiveUntil(t, stream, func(ps []types.Patient) bool { return len(ps) == 2 })
}

func TestTemplatePlanStreams(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := setupRepository(t)

	plans, err := r.AllTemplatePlans(ctx)
	require.NoError(t, err)
	trees, err := r.TemplatePlanTrees(ctx)
	require.NoError(t, err)

	assert.Empty(t, receiveUntil(t, plans, func([]types.Plan) bool { return true }))
	assert.Empty(t, receiveUntil(t, trees, func([]types.Plan) bool { return true }))

	_, err = r.InsertPlan(ctx, &types.Plan{Name: "Patient plan"})
	require.NoError(t, err)
	template := seedPlan(t, r, "Template", true, map[string][]string{"Breakfast": {"Bread"}}, "Breakfast")

	got := receiveUntil(t, plans, func(ps []types.Plan) bool { return len(ps) == 1 })
	assert.Equal(t, "Template", got[0].Name)
	assert.Empty(t, got[0].Meals, "plain stream does not load meals")

	tree := receiveUntil(t, trees, func(ps []types.Plan) bool {
		return len(ps) == 1 && len(ps[0].Meals) == 1 && len(ps[0].Meals[0].Foods) == 1
	})
	assert.Equal(t, *template, tree[0])

	_, err = r.InsertFood(ctx, &types.Food{Name: "Butter", Amount: 10, Unit: "g", MealID: template.Meals[0].ID})
	require.NoError(t, err)
	receiveUntil(t, trees, func(ps []types.Plan) bool {
		return len(ps) == 1 && len(ps[0].Meals[0].Foods) == 2
	})
}

func TestStreamClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := setupRepository(t)

	stream, err := r.AllPatients(ctx)
	require.NoError(t, err)
	cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-stream:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("stream not closed after cancel")
		}
	}
}

func TestStreamFromTransactionObservesStore(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := setupRepository(t)

	var stream <-chan []types.Patient
	err := r.InTransaction(ctx, func(tx *Repository) error {
		var err error
		stream, err = tx.AllPatients(ctx)
		return err
	})
	require.NoError(t, err)

	_, err = r.InsertPatient(ctx, types.NewPatient("Later", "", 30, types.SexOther, 1.7, 70))
	require.NoError(t, err)
	receiveUntil(t, stream, func(ps []types.Patient) bool { return len(ps) == 1 })
}
