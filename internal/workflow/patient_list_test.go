package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/nutrihub/pkg/types"
)

func TestPatientListNavigation(t *testing.T) {
	ctx := context.Background()
	repo := setupRepo(t)
	events := NewEmitter(8)
	list := NewPatientList(repo, events, WithLogger(quiet))

	require.NoError(t, list.OnClickAddPatient(ctx))
	require.NoError(t, list.OnClickEditPatient(ctx, types.Patient{ID: 4}))

	assert.Equal(t, []Event{
		Navigate{Route: RouteAddOrEditPatient},
		Navigate{Route: "add_or_edit_patient?patientId=4"},
	}, events.Drain())
}

func TestPatientListUpdatePlan(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		check func(t *testing.T, list *PatientList, events *Emitter)
	}{
		{
			name: "patient with plan opens it",
			check: func(t *testing.T, list *PatientList, events *Emitter) {
				p := savePatient(t, list.repo, "Has plan")
				p.AssignPlan(9)
				require.NoError(t, list.OnClickUpdatePlan(ctx, *p))
				assert.Equal(t, []Event{Navigate{Route: PlanRoute(9)}}, events.Drain())
			},
		},
		{
			name: "no templates creates an empty plan",
			check: func(t *testing.T, list *PatientList, events *Emitter) {
				p := savePatient(t, list.repo, "Eve")
				require.NoError(t, list.OnClickUpdatePlan(ctx, *p))

				stored, err := list.repo.GetPatientByID(ctx, p.ID)
				require.NoError(t, err)
				require.True(t, stored.HasPlan())
				assert.Equal(t, []Event{Navigate{Route: PlanRoute(*stored.PlanID)}}, events.Drain())

				show, _ := list.TemplateDialog()
				assert.False(t, show)
			},
		},
		{
			name: "templates open the dialog and selection clones",
			check: func(t *testing.T, list *PatientList, events *Emitter) {
				template := seedTemplate(t, list.repo)
				alice := savePatient(t, list.repo, "Alice")

				require.NoError(t, list.OnClickUpdatePlan(ctx, *alice))
				assert.Empty(t, events.Drain())
				show, selecting := list.TemplateDialog()
				assert.True(t, show)
				require.NotNil(t, selecting)
				assert.Equal(t, alice.ID, selecting.ID)

				require.NoError(t, list.OnSelectTemplatePlan(ctx, *template))
				show, _ = list.TemplateDialog()
				assert.False(t, show)

				stored, err := list.repo.GetPatientByID(ctx, alice.ID)
				require.NoError(t, err)
				require.True(t, stored.HasPlan())
				assert.Equal(t, []Event{Navigate{Route: PlanRoute(*stored.PlanID)}}, events.Drain())

				clone, err := list.repo.PlanTree(ctx, *stored.PlanID)
				require.NoError(t, err)
				require.Len(t, clone.Meals, 1)
				assert.Equal(t, "Bread", clone.Meals[0].Foods[0].Name)
			},
		},
		{
			name: "dialog can choose an empty plan instead",
			check: func(t *testing.T, list *PatientList, events *Emitter) {
				seedTemplate(t, list.repo)
				p := savePatient(t, list.repo, "Frank")

				require.NoError(t, list.OnClickUpdatePlan(ctx, *p))
				require.NoError(t, list.OnSelectNewPlan(ctx))

				stored, err := list.repo.GetPatientByID(ctx, p.ID)
				require.NoError(t, err)
				plan, err := list.repo.PlanTree(ctx, *stored.PlanID)
				require.NoError(t, err)
				assert.Equal(t, "Frank plan", plan.Name)
				assert.Empty(t, plan.Meals)
			},
		},
		{
			name: "selecting without an open dialog fails",
			check: func(t *testing.T, list *PatientList, events *Emitter) {
				assert.ErrorIs(t, list.OnSelectNewPlan(ctx), ErrNoPatientSelected)
				list.OnClickDismissDialog()
				show, p := list.TemplateDialog()
				assert.False(t, show)
				assert.Nil(t, p)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := NewEmitter(8)
			tt.check(t, NewPatientList(setupRepo(t), events, WithLogger(quiet)), events)
		})
	}
}

func TestPatientListSearchAndDelete(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	repo := setupRepo(t)
	list := NewPatientList(repo, NewEmitter(4), WithLogger(quiet))

	alice := savePatient(t, repo, "Alice")
	savePatient(t, repo, "Bob")

	all, err := list.Patients(ctx, "  ")
	require.NoError(t, err)
	assert.Len(t, nextSnapshot(t, all), 2)

	found, err := list.Patients(ctx, "Ali")
	require.NoError(t, err)
	got := nextSnapshot(t, found)
	require.Len(t, got, 1)
	assert.Equal(t, "Alice", got[0].Name)

	require.NoError(t, list.OnClickDeletePatient(ctx, *alice))
	got = snapshotUntil(t, all, func(ps []types.Patient) bool { return len(ps) == 1 })
	assert.Equal(t, "Bob", got[0].Name)
}

// snapshotUntil reads snapshots until one satisfies match.
func snapshotUntil[T any](t *testing.T, ch <-chan []T, match func([]T) bool) []T {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case items, ok := <-ch:
			require.True(t, ok, "stream closed")
			if match(items) {
				return items
			}
		case <-deadline:
			t.Fatal("no matching snapshot")
			return nil
		}
	}
}

func nextSnapshot[T any](t *testing.T, ch <-chan []T) []T {
	t.Helper()
	select {
	case items, ok := <-ch:
		require.True(t, ok)
		return items
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot")
		return nil
	}
}
