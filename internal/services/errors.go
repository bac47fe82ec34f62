// Package services implements the guidance engine: conversation storage,
// difficulty-mode policy, prompt context assembly, the hint ledger, response
// streaming and the chat orchestrator that sequences them.
//
// This file centralizes the service-level error classes. Collaborator errors
// are wrapped into one of these classes at the service boundary; the detail
// is logged, and handlers map the class to an HTTP status with errors.Is.
package services

import "errors"

var (
	// ErrUnauthenticated is returned when no owner identity accompanies a call.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrNotFound indicates an unknown project or milestone.
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned for malformed input: an empty or oversized
	// message, an invalid mode, or a non-positive milestone number.
	ErrValidation = errors.New("invalid input")

	// ErrPersistence wraps storage failures. For an assistant reply it means
	// the text was delivered but may not be saved.
	ErrPersistence = errors.New("persistence failed")

	// ErrGeneration wraps model failures, timeouts and empty generations.
	ErrGeneration = errors.New("generation failed")

	// ErrConflict is returned when a project was already started by the owner.
	ErrConflict = errors.New("conflict")

	// ErrDuplicateHint indicates a generated hint repeats one already issued
	// for the same (project, milestone, mode).
	ErrDuplicateHint = errors.New("duplicate hint")
)
