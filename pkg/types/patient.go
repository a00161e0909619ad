package types

import (
	"strings"
	"time"
)

// InvalidID is returned by inserts the repository refuses because the
// parent entity does not exist.
const InvalidID int64 = -1

// Sex codes stored on a Patient.
const (
	SexMale   int16 = 0
	SexFemale int16 = 1
	SexOther  int16 = 9
)

var sexNames = map[int16]string{
	SexMale:   "Male",
	SexFemale: "Female",
	SexOther:  "Other",
}

// SexText returns the display name for a sex code, or an empty string for an
// unknown code.
func SexText(code int16) string {
	return sexNames[code]
}

// ParseSex maps a display name (case-insensitive) to its sex code.
func ParseSex(text string) (int16, bool) {
	for code, name := range sexNames {
		if strings.EqualFold(name, text) {
			return code, true
		}
	}
	return 0, false
}

// Patient is a person under nutritional follow-up.
type Patient struct {
	ID          int64     // Assigned by the store; 0 until persisted.
	Name        string    // Required, non-empty.
	PlanID      *int64    // Plan assigned to the patient, if any.
	Email       string    // Optional; empty means absent.
	Age         int       // Years.
	Sex         int16     // One of the Sex constants.
	Height      float64   // Meters.
	Weight      float64   // Kilograms.
	LastUpdated time.Time // Time of the last save.
}

// NewPatient returns an unsaved patient stamped with the current time.
func NewPatient(name, email string, age int, sex int16, height, weight float64) *Patient {
	return &Patient{
		Name:        name,
		Email:       email,
		Age:         age,
		Sex:         sex,
		Height:      height,
		Weight:      weight,
		LastUpdated: Now(),
	}
}

// HasPlan reports whether the patient references a plan.
func (p *Patient) HasPlan() bool {
	return p.PlanID != nil
}

// AssignPlan points the patient at planID.
func (p *Patient) AssignPlan(planID int64) {
	id := planID
	p.PlanID = &id
}

// Now returns the current time at the precision the store keeps.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
