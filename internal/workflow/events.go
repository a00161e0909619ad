package workflow

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/nutrihub/pkg/types"
)

// Event is a one-shot instruction for the presentation layer.
type Event interface {
	event()
}

// Navigate asks the presentation layer to open Route.
type Navigate struct {
	Route string
}

// PopBackStack asks the presentation layer to close the current screen.
type PopBackStack struct{}

// ShowMessage asks the presentation layer to show a transient message.
type ShowMessage struct {
	Text   string
	Action string
}

func (Navigate) event()     {}
func (PopBackStack) event() {}
func (ShowMessage) event()  {}

func (e Navigate) String() string    { return "navigate " + e.Route }
func (PopBackStack) String() string  { return "pop back stack" }
func (e ShowMessage) String() string { return "message " + e.Text }

// Emitter delivers events in order to a single consumer.
type Emitter struct {
	ch chan Event
}

// NewEmitter returns an Emitter that buffers up to size undelivered events.
func NewEmitter(size int) *Emitter {
	if size < 1 {
		size = 1
	}
	return &Emitter{ch: make(chan Event, size)}
}

// Events returns the receive side of the emitter.
func (e *Emitter) Events() <-chan Event {
	return e.ch
}

// Send queues ev, blocking while the buffer is full until ctx is done.
func (e *Emitter) Send(ctx context.Context, ev Event) error {
	select {
	case e.ch <- ev:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("sending %v: %w", ev, ctx.Err())
	}
}

// Drain returns every event queued so far without blocking.
func (e *Emitter) Drain() []Event {
	var out []Event
	for {
		select {
		case ev := <-e.ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

// Routes understood by the presentation layer.
const (
	RoutePatientList      = "patient_list"
	RouteAddOrEditPatient = "add_or_edit_patient"
	RoutePlanList         = "meal_plan_list"
	RouteAddOrEditPlan    = "add_or_edit_plan"

	PatientIDArgument = "patientId"
	PlanIDArgument    = "planId"
)

// PatientRoute is the editor route for an existing patient.
func PatientRoute(id int64) string {
	return fmt.Sprintf("%s?%s=%d", RouteAddOrEditPatient, PatientIDArgument, id)
}

// PlanRoute is the editor route for an existing plan.
func PlanRoute(id int64) string {
	return fmt.Sprintf("%s?%s=%d", RouteAddOrEditPlan, PlanIDArgument, id)
}

// ParseRoute splits a route into its name and id argument. A route without
// an argument yields types.InvalidID.
func ParseRoute(route string) (string, int64, error) {
	name, rawQuery, found := strings.Cut(route, "?")
	if !found {
		return name, types.InvalidID, nil
	}
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "", 0, fmt.Errorf("parsing route %q: %w", route, err)
	}
	for _, arg := range []string{PatientIDArgument, PlanIDArgument} {
		if v := values.Get(arg); v != "" {
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return "", 0, fmt.Errorf("parsing %s in route %q: %w", arg, route, err)
			}
			return name, id, nil
		}
	}
	return name, types.InvalidID, nil
}
