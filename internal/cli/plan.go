package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/nutrihub/internal/workflow"
	"github.com/mesh-intelligence/nutrihub/pkg/types"
)

func newPlanCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Manage meal plans",
	}
	cmd.AddCommand(
		newPlanListCmd(a),
		newPlanShowCmd(a),
		newPlanDeleteCmd(a),
		newPlanCreateCmd(a),
		newPlanRenameCmd(a),
	)
	return cmd
}

func newPlanListCmd(a *app) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List template plans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.repository()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			list := workflow.NewPlanList(repo, a.events, a.workflowOpts()...)
			snapshots, err := list.Plans(ctx)
			if err != nil {
				return sysError(err)
			}
			return follow(ctx, snapshots, watch, func(plans []types.Plan) error {
				return a.printPlans(cmd.OutOrStdout(), plans)
			})
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "keep printing the list as it changes")
	return cmd
}

func (a *app) printPlans(w io.Writer, plans []types.Plan) error {
	if a.jsonMode {
		return printJSON(w, plans)
	}
	if len(plans) == 0 {
		fmt.Fprintln(w, "No template plans found.")
		return nil
	}
	rows := make([]string, 0, len(plans))
	for _, plan := range plans {
		foods := 0
		for _, m := range plan.Meals {
			foods += len(m.Foods)
		}
		rows = append(rows, fmt.Sprintf("%d\t%s\t%d\t%d", plan.ID, plan.Name, len(plan.Meals), foods))
	}
	printTable(w, "ID\tNAME\tMEALS\tFOODS", rows)
	fmt.Fprintf(w, "Total: %d plan(s)\n", len(plans))
	return nil
}

func newPlanShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <plan-id>",
		Short: "Show a plan with its meals and foods",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("plan", args[0])
			if err != nil {
				return err
			}
			repo, err := a.repository()
			if err != nil {
				return err
			}
			plan, err := repo.PlanTree(cmd.Context(), id)
			if err != nil {
				return sysError(err)
			}
			if plan == nil {
				return notFound("plan", id)
			}
			if a.jsonMode {
				return printJSON(cmd.OutOrStdout(), plan)
			}

			w := cmd.OutOrStdout()
			kind := "plan"
			if plan.IsTemplate {
				kind = "template"
			}
			fmt.Fprintf(w, "%s (%s %d)\n", plan.Name, kind, plan.ID)
			for _, meal := range plan.Meals {
				fmt.Fprintf(w, "  %s\n", meal.Name)
				for _, food := range meal.Foods {
					fmt.Fprintf(w, "    %s %d %s\n", food.Name, food.Amount, food.Unit)
				}
			}
			return nil
		},
	}
}

func newPlanDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <plan-id>",
		Short: "Delete a plan with its meals and foods",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("plan", args[0])
			if err != nil {
				return err
			}
			repo, err := a.repository()
			if err != nil {
				return err
			}
			plan, err := repo.GetPlanByID(cmd.Context(), id)
			if err != nil {
				return sysError(err)
			}
			if plan == nil {
				return notFound("plan", id)
			}

			list := workflow.NewPlanList(repo, a.events, a.workflowOpts()...)
			if err := list.OnClickDeletePlan(cmd.Context(), *plan); err != nil {
				return sysError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted plan %d\n", id)
			return nil
		},
	}
}

// mealSpec is a meal given on the command line as
// "Name=food:amount:unit,food:amount:unit".
type mealSpec struct {
	name  string
	foods []types.Food
}

func parseMealSpec(s string) (mealSpec, error) {
	name, items, found := strings.Cut(s, "=")
	if !found {
		return mealSpec{}, fmt.Errorf("meal %q: expected Name=food:amount:unit,...", s)
	}
	spec := mealSpec{name: strings.TrimSpace(name)}
	for _, item := range strings.Split(items, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.Split(item, ":")
		if len(parts) != 3 {
			return mealSpec{}, fmt.Errorf("food %q: expected food:amount:unit", item)
		}
		amount, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil || amount < 0 {
			return mealSpec{}, fmt.Errorf("food %q: invalid amount %q", item, parts[1])
		}
		spec.foods = append(spec.foods, types.Food{
			Name:   strings.TrimSpace(parts[0]),
			Amount: amount,
			Unit:   strings.TrimSpace(parts[2]),
		})
	}
	return spec, nil
}

func newPlanCreateCmd(a *app) *cobra.Command {
	var name string
	var meals []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a template plan",
		Example: `  nutrihub plan create --name "Low carb" \
    --meal "Breakfast=Eggs:2:un,Coffee:200:ml" \
    --meal "Lunch=Chicken:150:g,Salad:100:g"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			specs := make([]mealSpec, 0, len(meals))
			for _, m := range meals {
				spec, err := parseMealSpec(m)
				if err != nil {
					return userError(err)
				}
				specs = append(specs, spec)
			}

			repo, err := a.repository()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			editor := workflow.NewPlanEditor(repo, a.events, a.workflowOpts()...)
			if err := editor.Init(ctx, 0); err != nil {
				return sysError(err)
			}

			ok, err := buildPlan(ctx, editor, name, specs)
			if err != nil || !ok {
				if derr := repo.DeletePlan(ctx, editor.Plan()); derr != nil {
					a.log.Warn("discarding draft plan", "plan_id", editor.Plan().ID, "error", derr)
				}
				if err != nil {
					return sysError(err)
				}
				return a.rejected()
			}

			a.log.Debug("plan created", "session_id", editor.SessionID())
			plan := editor.Plan()
			if a.jsonMode {
				return printJSON(cmd.OutOrStdout(), plan)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created template plan %d\n", plan.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "plan name")
	cmd.Flags().StringArrayVar(&meals, "meal", nil, `meal as "Name=food:amount:unit,..." (repeatable)`)
	return cmd
}

// buildPlan drives editor through naming the plan and adding each meal. It
// reports false when the editor rejected a step.
func buildPlan(ctx context.Context, editor *workflow.PlanEditor, name string, specs []mealSpec) (bool, error) {
	if err := editor.ChangePlanName(ctx, name); err != nil {
		return false, err
	}
	for _, spec := range specs {
		if err := editor.AddMeal(ctx); err != nil {
			return false, err
		}
		if err := editor.ChangeMealName(ctx, spec.name); err != nil {
			return false, err
		}
		for _, f := range spec.foods {
			food, err := editor.AddFood(ctx)
			if err != nil {
				return false, err
			}
			if err := editor.ChangeFood(ctx, food.ID, f.Name, f.Unit, f.Amount); err != nil {
				return false, err
			}
		}
		if ok, err := editor.CloseMeal(ctx); err != nil || !ok {
			return false, err
		}
	}
	return editor.ClosePlan(ctx)
}

func newPlanRenameCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <plan-id> <name>",
		Short: "Rename a plan",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("plan", args[0])
			if err != nil {
				return err
			}
			repo, err := a.repository()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			editor := workflow.NewPlanEditor(repo, a.events, a.workflowOpts()...)
			if err := editor.Init(ctx, id); err != nil {
				if errors.Is(err, workflow.ErrPlanNotFound) {
					return notFound("plan", id)
				}
				return sysError(err)
			}
			before := editor.Plan().Name
			if err := editor.ChangePlanName(ctx, args[1]); err != nil {
				return sysError(err)
			}
			ok, err := editor.ClosePlan(ctx)
			if err != nil {
				return sysError(err)
			}
			if !ok {
				if err := editor.ChangePlanName(ctx, before); err != nil {
					a.log.Warn("restoring plan name", "plan_id", id, "error", err)
				}
				return a.rejected()
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed plan %d to %q\n", id, args[1])
			return nil
		},
	}
}
