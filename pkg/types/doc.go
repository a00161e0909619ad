// Package types defines the Store and Table interfaces, the nutrition entity
// types (Patient, Plan, Meal, Food), and the standard errors shared by the
// store, the repository and the workflow layer.
package types
