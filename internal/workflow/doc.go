// Package workflow turns user intents into repository calls. Each workflow
// (patient list, plan list, plan editor, patient editor) owns its transient
// state and reports navigation and messages as Events on a shared Emitter.
package workflow
