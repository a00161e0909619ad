package workflow

import (
	"context"

	"github.com/mesh-intelligence/nutrihub/internal/repository"
	"github.com/mesh-intelligence/nutrihub/pkg/types"
)

// PlanList drives the template plan overview.
type PlanList struct {
	base
}

// NewPlanList returns a PlanList reporting to events.
func NewPlanList(repo *repository.Repository, events *Emitter, opts ...Option) *PlanList {
	return &PlanList{base: newBase(repo, events, "plan_list", opts)}
}

// Plans streams the template plans with their meals and foods.
func (l *PlanList) Plans(ctx context.Context) (<-chan []types.Plan, error) {
	return l.repo.TemplatePlanTrees(ctx)
}

// OnClickAddPlan opens the plan editor for a new template.
func (l *PlanList) OnClickAddPlan(ctx context.Context) error {
	return l.events.Send(ctx, Navigate{Route: RouteAddOrEditPlan})
}

// OnClickEditPlan opens plan in the plan editor.
func (l *PlanList) OnClickEditPlan(ctx context.Context, plan types.Plan) error {
	return l.events.Send(ctx, Navigate{Route: PlanRoute(plan.ID)})
}

// OnClickDeletePlan deletes plan with its meals and foods.
func (l *PlanList) OnClickDeletePlan(ctx context.Context, plan types.Plan) error {
	l.log.Debug("delete plan", "plan_id", plan.ID)
	return l.repo.DeletePlan(ctx, plan)
}
