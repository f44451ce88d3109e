package domain

import "errors"

// Sentinel errors shared across the engine.
var (
	// ErrInvalidTransaction is returned when a transaction misses required fields.
	ErrInvalidTransaction = errors.New("invalid transaction")

	// ErrInvalidInput is returned for malformed analysis parameters.
	ErrInvalidInput = errors.New("invalid input")

	// ErrProfileNotFound is returned when no profile exists for an entity.
	ErrProfileNotFound = errors.New("risk profile not found")

	// ErrAlertNotFound is returned when updating an unknown alert.
	ErrAlertNotFound = errors.New("fraud alert not found")

	// ErrInvalidTransition is returned for a disallowed alert status change.
	ErrInvalidTransition = errors.New("invalid alert status transition")
)
