package workflow

import (
	"context"
	"strings"
	"sync"

	"github.com/mesh-intelligence/nutrihub/internal/repository"
	"github.com/mesh-intelligence/nutrihub/pkg/types"
)

// PatientList drives the patient overview: searching, opening the patient
// editor, deleting, and giving a patient a plan (from a template or empty).
type PatientList struct {
	base

	mu                 sync.Mutex
	showTemplateDialog bool
	selecting          *types.Patient
}

// NewPatientList returns a PatientList reporting to events.
func NewPatientList(repo *repository.Repository, events *Emitter, opts ...Option) *PatientList {
	return &PatientList{base: newBase(repo, events, "patient_list", opts)}
}

// Patients streams every patient, or those whose name contains search when
// it is not blank.
func (l *PatientList) Patients(ctx context.Context, search string) (<-chan []types.Patient, error) {
	if strings.TrimSpace(search) == "" {
		return l.repo.AllPatients(ctx)
	}
	return l.repo.SearchPatients(ctx, search)
}

// OnClickAddPatient opens the editor for a new patient.
func (l *PatientList) OnClickAddPatient(ctx context.Context) error {
	return l.events.Send(ctx, Navigate{Route: RouteAddOrEditPatient})
}

// OnClickEditPatient opens the editor for p.
func (l *PatientList) OnClickEditPatient(ctx context.Context, p types.Patient) error {
	return l.events.Send(ctx, Navigate{Route: PatientRoute(p.ID)})
}

// OnClickDeletePatient deletes p, and its plan when no other patient uses it.
func (l *PatientList) OnClickDeletePatient(ctx context.Context, p types.Patient) error {
	l.log.Debug("delete patient", "patient_id", p.ID)
	return l.repo.DeletePatient(ctx, p)
}

// OnClickUpdatePlan opens p's plan. A patient without a plan is offered the
// template dialog when templates exist, and otherwise gets a new empty plan.
func (l *PatientList) OnClickUpdatePlan(ctx context.Context, p types.Patient) error {
	if p.HasPlan() {
		return l.events.Send(ctx, Navigate{Route: PlanRoute(*p.PlanID)})
	}

	templates, err := l.repo.TemplatePlans(ctx)
	if err != nil {
		return err
	}
	if len(templates) > 0 {
		l.mu.Lock()
		l.showTemplateDialog = true
		l.selecting = &p
		l.mu.Unlock()
		return nil
	}
	return l.startNewPlan(ctx, p)
}

// TemplateDialog reports whether the template dialog is open and for which
// patient.
func (l *PatientList) TemplateDialog() (bool, *types.Patient) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.selecting == nil {
		return l.showTemplateDialog, nil
	}
	p := *l.selecting
	return l.showTemplateDialog, &p
}

// OnClickDismissDialog closes the template dialog.
func (l *PatientList) OnClickDismissDialog() {
	l.mu.Lock()
	l.showTemplateDialog = false
	l.mu.Unlock()
}

// OnSelectTemplatePlan clones plan for the patient that opened the dialog and
// opens the copy in the plan editor.
func (l *PatientList) OnSelectTemplatePlan(ctx context.Context, plan types.Plan) error {
	p, err := l.closeDialog()
	if err != nil {
		return err
	}

	planID, err := CloneFromTemplate(ctx, l.repo, p, plan.ID)
	if err != nil {
		return err
	}
	l.log.Info("plan cloned from template", "patient_id", p.ID, "template_id", plan.ID, "plan_id", planID)
	return l.events.Send(ctx, Navigate{Route: PlanRoute(planID)})
}

// OnSelectNewPlan gives the patient that opened the dialog an empty plan.
func (l *PatientList) OnSelectNewPlan(ctx context.Context) error {
	p, err := l.closeDialog()
	if err != nil {
		return err
	}
	return l.startNewPlan(ctx, p)
}

func (l *PatientList) closeDialog() (types.Patient, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.showTemplateDialog = false
	if l.selecting == nil {
		return types.Patient{}, ErrNoPatientSelected
	}
	return *l.selecting, nil
}

func (l *PatientList) startNewPlan(ctx context.Context, p types.Patient) error {
	planID, err := NewPlanForPatient(ctx, l.repo, p)
	if err != nil {
		return err
	}
	l.log.Info("empty plan created", "patient_id", p.ID, "plan_id", planID)
	return l.events.Send(ctx, Navigate{Route: PlanRoute(planID)})
}
