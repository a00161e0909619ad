package types

import (
	"context"
	"errors"
)

// Table provides uniform CRUD operations for a single entity type.
// Get and Fetch return any; callers type-assert to the concrete entity
// pointer (*Patient, *Plan, *Meal, *Food).
type Table interface {
	// Get retrieves the entity with the given ID.
	// Returns ErrInvalidID if id is not positive and ErrNotFound if no
	// entity exists with that ID.
	Get(ctx context.Context, id int64) (any, error)

	// Set inserts or replaces an entity. When id is 0 the entity's own ID
	// is used; when both are 0 the store assigns a new ID. Returns the ID
	// used and writes it back into the entity.
	Set(ctx context.Context, id int64, data any) (int64, error)

	// Delete removes the entity with the given ID.
	// Returns ErrNotFound if no entity exists with that ID.
	Delete(ctx context.Context, id int64) error

	// Fetch returns all entities matching the filter, ordered by ID. An
	// empty filter returns every entity in the table.
	Fetch(ctx context.Context, filter Filter) ([]any, error)
}

// Filter narrows a Fetch. Keys are the Filter* constants; a value of the
// wrong type yields ErrInvalidFilter.
type Filter map[string]any

// Filter keys.
const (
	FilterNameContains = "name_contains" // string, patients
	FilterPlanID       = "plan_id"       // int64, patients and meals
	FilterIsTemplate   = "is_template"   // bool, plans
	FilterMealID       = "meal_id"       // int64, foods
	FilterLimit        = "limit"         // int
	FilterOffset       = "offset"        // int
)

// Table operation errors.
var (
	ErrNotFound      = errors.New("entity not found")
	ErrInvalidID     = errors.New("invalid entity ID")
	ErrInvalidData   = errors.New("invalid entity data")
	ErrInvalidName   = errors.New("invalid name")
	ErrInvalidFilter = errors.New("invalid filter value type")
)
