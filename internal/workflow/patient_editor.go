package workflow

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"sync"

	"github.com/mesh-intelligence/nutrihub/internal/repository"
	"github.com/mesh-intelligence/nutrihub/pkg/types"
)

// Patient field limits.
const (
	AgeUnset  = -1
	MaxAge    = 100
	MaxHeight = 2.5
	MaxWeight = 200.0
)

// Validation messages shown by the patient editor.
const (
	MsgNameRequired  = "Please inform a name"
	MsgInvalidEmail  = "Please inform a valid email"
	MsgInvalidAge    = "Please inform a valid age"
	MsgHeightMissing = "Please inform the height"
	MsgWeightMissing = "Please inform the weight"
)

// PatientEditor edits a new or existing patient. Fields are held locally
// until Save.
type PatientEditor struct {
	base

	mu      sync.Mutex
	patient types.Patient
}

// NewPatientEditor returns an editor for a new patient with no age, height
// or weight set.
func NewPatientEditor(repo *repository.Repository, events *Emitter, opts ...Option) *PatientEditor {
	return &PatientEditor{
		base:    newBase(repo, events, "patient_editor", opts),
		patient: types.Patient{Age: AgeUnset, Sex: types.SexOther},
	}
}

// Load replaces the draft with the stored patient id.
func (e *PatientEditor) Load(ctx context.Context, id int64) error {
	p, err := e.repo.GetPatientByID(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("loading patient %d: %w", id, ErrPatientNotFound)
	}

	e.mu.Lock()
	e.patient = *p
	e.mu.Unlock()
	return nil
}

// Patient returns the current draft.
func (e *PatientEditor) Patient() types.Patient {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.patient
}

// SetName sets the draft name.
func (e *PatientEditor) SetName(name string) { e.update(func(p *types.Patient) { p.Name = name }) }

// SetEmail sets the draft email.
func (e *PatientEditor) SetEmail(email string) { e.update(func(p *types.Patient) { p.Email = email }) }

// SetSex sets the draft sex code.
func (e *PatientEditor) SetSex(sex int16) { e.update(func(p *types.Patient) { p.Sex = sex }) }

// SetAge sets the draft age.
func (e *PatientEditor) SetAge(age int) { e.update(func(p *types.Patient) { p.Age = age }) }

// SetHeight sets the draft height in meters.
func (e *PatientEditor) SetHeight(h float64) { e.update(func(p *types.Patient) { p.Height = h }) }

// SetWeight sets the draft weight in kilograms.
func (e *PatientEditor) SetWeight(w float64) { e.update(func(p *types.Patient) { p.Weight = w }) }

func (e *PatientEditor) update(fn func(*types.Patient)) {
	e.mu.Lock()
	fn(&e.patient)
	e.mu.Unlock()
}

// Save validates and stores the draft, then asks to leave the editor. An
// existing patient keeps its plan. On a validation failure a message is
// emitted and false is returned.
func (e *PatientEditor) Save(ctx context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if msg := validatePatient(e.patient); msg != "" {
		return false, e.events.Send(ctx, ShowMessage{Text: msg})
	}

	p := e.patient
	p.Name = strings.TrimSpace(p.Name)
	p.LastUpdated = types.Now()
	if _, err := e.repo.InsertPatient(ctx, &p); err != nil {
		return false, err
	}
	e.patient = p
	e.log.Info("patient saved", "patient_id", p.ID)
	return true, e.events.Send(ctx, PopBackStack{})
}

// Cancel leaves the editor without saving.
func (e *PatientEditor) Cancel(ctx context.Context) error {
	return e.events.Send(ctx, PopBackStack{})
}

// validatePatient returns the first failing validation message, or "".
func validatePatient(p types.Patient) string {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return MsgNameRequired
	case p.Email != "" && !validEmail(p.Email):
		return MsgInvalidEmail
	case p.Age <= AgeUnset || p.Age > MaxAge:
		return MsgInvalidAge
	case p.Height <= 0 || p.Height > MaxHeight:
		return MsgHeightMissing
	case p.Weight <= 0 || p.Weight > MaxWeight:
		return MsgWeightMissing
	}
	return ""
}

// validEmail accepts a bare address with a dotted domain.
func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s || addr.Name != "" {
		return false
	}
	_, domain, _ := strings.Cut(addr.Address, "@")
	return strings.Contains(domain, ".") && !strings.HasSuffix(domain, ".")
}
