package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/nutrihub/internal/workflow"
	"github.com/mesh-intelligence/nutrihub/pkg/types"
)

// patientFields holds the editable patient flags.
type patientFields struct {
	name   string
	email  string
	sex    string
	age    int
	height float64
	weight float64
}

func (f *patientFields) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "patient name")
	cmd.Flags().StringVar(&f.email, "email", "", "email address")
	cmd.Flags().StringVar(&f.sex, "sex", "", "sex (male, female, other)")
	cmd.Flags().IntVar(&f.age, "age", workflow.AgeUnset, "age in years")
	cmd.Flags().Float64Var(&f.height, "height", 0, "height in meters")
	cmd.Flags().Float64Var(&f.weight, "weight", 0, "weight in kilograms")
}

// apply copies the flags set on cmd into the editor draft.
func (f *patientFields) apply(cmd *cobra.Command, editor *workflow.PatientEditor) error {
	changed := cmd.Flags().Changed
	if changed("name") {
		editor.SetName(f.name)
	}
	if changed("email") {
		editor.SetEmail(f.email)
	}
	if changed("sex") {
		sex, ok := types.ParseSex(f.sex)
		if !ok {
			return userError(fmt.Errorf("invalid sex %q", f.sex))
		}
		editor.SetSex(sex)
	}
	if changed("age") {
		editor.SetAge(f.age)
	}
	if changed("height") {
		editor.SetHeight(f.height)
	}
	if changed("weight") {
		editor.SetWeight(f.weight)
	}
	return nil
}

func newPatientCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patient",
		Short: "Manage patients",
	}
	cmd.AddCommand(
		newPatientAddCmd(a),
		newPatientEditCmd(a),
		newPatientListCmd(a),
		newPatientGetCmd(a),
		newPatientDeleteCmd(a),
		newPatientAssignTemplateCmd(a),
		newPatientNewPlanCmd(a),
	)
	return cmd
}

func newPatientAddCmd(a *app) *cobra.Command {
	var fields patientFields
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a patient",
		Example: `  nutrihub patient add --name "Ana Lima" --age 34 --sex female --height 1.62 --weight 58
  nutrihub patient add --name Bob --email bob@example.com --age 40 --height 1.8 --weight 82`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.repository()
			if err != nil {
				return err
			}
			editor := workflow.NewPatientEditor(repo, a.events, a.workflowOpts()...)
			if err := fields.apply(cmd, editor); err != nil {
				return err
			}
			return a.savePatient(cmd, editor, "Created")
		},
	}
	fields.register(cmd)
	return cmd
}

func newPatientEditCmd(a *app) *cobra.Command {
	var fields patientFields
	cmd := &cobra.Command{
		Use:     "edit <patient-id>",
		Short:   "Change the fields given as flags",
		Example: `  nutrihub patient edit 3 --weight 61.5`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("patient", args[0])
			if err != nil {
				return err
			}
			repo, err := a.repository()
			if err != nil {
				return err
			}
			editor := workflow.NewPatientEditor(repo, a.events, a.workflowOpts()...)
			if err := editor.Load(cmd.Context(), id); err != nil {
				if errors.Is(err, workflow.ErrPatientNotFound) {
					return notFound("patient", id)
				}
				return sysError(err)
			}
			if err := fields.apply(cmd, editor); err != nil {
				return err
			}
			return a.savePatient(cmd, editor, "Updated")
		},
	}
	fields.register(cmd)
	return cmd
}

func (a *app) savePatient(cmd *cobra.Command, editor *workflow.PatientEditor, verb string) error {
	ok, err := editor.Save(cmd.Context())
	if err != nil {
		return sysError(err)
	}
	if !ok {
		return a.rejected()
	}

	p := editor.Patient()
	if a.jsonMode {
		return printJSON(cmd.OutOrStdout(), p)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s patient %d\n", verb, p.ID)
	return nil
}

func newPatientListCmd(a *app) *cobra.Command {
	var search string
	var watch bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List patients",
		Example: `  nutrihub patient list
  nutrihub patient list --search ana
  nutrihub patient list --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.repository()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			list := workflow.NewPatientList(repo, a.events, a.workflowOpts()...)
			snapshots, err := list.Patients(ctx, search)
			if err != nil {
				return sysError(err)
			}
			return follow(ctx, snapshots, watch, func(patients []types.Patient) error {
				return a.printPatients(cmd.OutOrStdout(), patients)
			})
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "only patients whose name contains this text")
	cmd.Flags().BoolVar(&watch, "watch", false, "keep printing the list as it changes")
	return cmd
}

// follow prints the first snapshot, and with watch every later one until ctx
// is done.
func follow[T any](ctx context.Context, snapshots <-chan []T, watch bool, show func([]T) error) error {
	for {
		select {
		case items, ok := <-snapshots:
			if !ok {
				return nil
			}
			if err := show(items); err != nil {
				return err
			}
			if !watch {
				return nil
			}
		case <-ctx.Done():
			if watch {
				return nil
			}
			return ctx.Err()
		}
	}
}

func (a *app) printPatients(w io.Writer, patients []types.Patient) error {
	if a.jsonMode {
		return printJSON(w, patients)
	}
	if len(patients) == 0 {
		fmt.Fprintln(w, "No patients found.")
		return nil
	}
	rows := make([]string, 0, len(patients))
	for _, p := range patients {
		plan := "-"
		if p.HasPlan() {
			plan = strconv.FormatInt(*p.PlanID, 10)
		}
		rows = append(rows, fmt.Sprintf("%d\t%s\t%d\t%s\t%s", p.ID, p.Name, p.Age, types.SexText(p.Sex), plan))
	}
	printTable(w, "ID\tNAME\tAGE\tSEX\tPLAN", rows)
	fmt.Fprintf(w, "Total: %d patient(s)\n", len(patients))
	return nil
}

func newPatientGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <patient-id>",
		Short: "Show one patient",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.lookupPatient(cmd, args[0])
			if err != nil {
				return err
			}
			if a.jsonMode {
				return printJSON(cmd.OutOrStdout(), p)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "ID:      %d\n", p.ID)
			fmt.Fprintf(w, "Name:    %s\n", p.Name)
			if p.Email != "" {
				fmt.Fprintf(w, "Email:   %s\n", p.Email)
			}
			fmt.Fprintf(w, "Age:     %d\n", p.Age)
			fmt.Fprintf(w, "Sex:     %s\n", types.SexText(p.Sex))
			fmt.Fprintf(w, "Height:  %.2f m\n", p.Height)
			fmt.Fprintf(w, "Weight:  %.1f kg\n", p.Weight)
			if p.HasPlan() {
				fmt.Fprintf(w, "Plan:    %d\n", *p.PlanID)
			}
			fmt.Fprintf(w, "Updated: %s\n", p.LastUpdated.Format("2006-01-02 15:04"))
			return nil
		},
	}
}

func (a *app) lookupPatient(cmd *cobra.Command, arg string) (*types.Patient, error) {
	id, err := parseID("patient", arg)
	if err != nil {
		return nil, err
	}
	repo, err := a.repository()
	if err != nil {
		return nil, err
	}
	p, err := repo.GetPatientByID(cmd.Context(), id)
	if err != nil {
		return nil, sysError(err)
	}
	if p == nil {
		return nil, notFound("patient", id)
	}
	return p, nil
}

func newPatientDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <patient-id>",
		Short: "Delete a patient, and its plan when no other patient uses it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.lookupPatient(cmd, args[0])
			if err != nil {
				return err
			}
			list := workflow.NewPatientList(a.repo, a.events, a.workflowOpts()...)
			if err := list.OnClickDeletePatient(cmd.Context(), *p); err != nil {
				return sysError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted patient %d\n", p.ID)
			return nil
		},
	}
}

func newPatientAssignTemplateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "assign-template <patient-id> <template-id>",
		Short:   "Give a patient a copy of a template plan",
		Example: `  nutrihub patient assign-template 3 1`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := a.patientWithoutPlan(cmd, args[0])
			if err != nil {
				return err
			}
			templateID, err := parseID("template", args[1])
			if err != nil {
				return err
			}
			template, err := a.repo.GetPlanByID(ctx, templateID)
			if err != nil {
				return sysError(err)
			}
			if template == nil || !template.IsTemplate {
				return userError(fmt.Errorf("template %d: %w", templateID, types.ErrNotFound))
			}

			list := workflow.NewPatientList(a.repo, a.events, a.workflowOpts()...)
			if err := list.OnClickUpdatePlan(ctx, *p); err != nil {
				return sysError(err)
			}
			if err := list.OnSelectTemplatePlan(ctx, *template); err != nil {
				return sysError(err)
			}
			return a.reportAssigned(cmd, p)
		},
	}
}

func newPatientNewPlanCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "new-plan <patient-id>",
		Short: "Give a patient a new empty plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := a.patientWithoutPlan(cmd, args[0])
			if err != nil {
				return err
			}

			list := workflow.NewPatientList(a.repo, a.events, a.workflowOpts()...)
			if err := list.OnClickUpdatePlan(ctx, *p); err != nil {
				return sysError(err)
			}
			if open, _ := list.TemplateDialog(); open {
				if err := list.OnSelectNewPlan(ctx); err != nil {
					return sysError(err)
				}
			}
			return a.reportAssigned(cmd, p)
		},
	}
}

func (a *app) patientWithoutPlan(cmd *cobra.Command, arg string) (*types.Patient, error) {
	p, err := a.lookupPatient(cmd, arg)
	if err != nil {
		return nil, err
	}
	if p.HasPlan() {
		return nil, userError(fmt.Errorf("patient %d already has plan %d", p.ID, *p.PlanID))
	}
	return p, nil
}

func (a *app) reportAssigned(cmd *cobra.Command, p *types.Patient) error {
	planID, err := a.navigatedPlan()
	if err != nil {
		return err
	}
	if a.jsonMode {
		plan, err := a.repo.PlanTree(cmd.Context(), planID)
		if err != nil {
			return sysError(err)
		}
		return printJSON(cmd.OutOrStdout(), plan)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Assigned plan %d to patient %d\n", planID, p.ID)
	return nil
}
