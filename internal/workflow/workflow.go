package workflow

import (
	"errors"
	"log/slog"

	"github.com/mesh-intelligence/nutrihub/internal/repository"
)

// Workflow errors.
var (
	ErrEditorState       = errors.New("operation not allowed in the current editor state")
	ErrPlanNotFound      = errors.New("plan not found")
	ErrPatientNotFound   = errors.New("patient not found")
	ErrMealNotFound      = errors.New("meal not found")
	ErrFoodNotFound      = errors.New("food not found in the meal being edited")
	ErrNoPatientSelected = errors.New("no patient is selecting a plan")
)

// Option configures a workflow.
type Option func(*base)

// WithLogger sets the workflow logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *base) {
		if l != nil {
			b.log = l
		}
	}
}

// base holds what every workflow shares.
type base struct {
	repo   *repository.Repository
	events *Emitter
	log    *slog.Logger
}

func newBase(repo *repository.Repository, events *Emitter, component string, opts []Option) base {
	b := base{repo: repo, events: events, log: slog.Default()}
	for _, opt := range opts {
		opt(&b)
	}
	b.log = b.log.With("component", component)
	return b
}
