// Package domain defines the core domain models for kasb.
//
// Domain models are plain values without IO dependencies:
//
//   - Session / User: the authenticated identity and its profile snapshot
//   - Step: states of the login / registration dialog and their transitions
//   - Validation rules for every field the dialog collects
//   - Errors: coded domain errors (KASB-<AREA>-<NNNN>)
package domain
