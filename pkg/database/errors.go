// Copyright 2026 Meshlayer

package database

import "errors"

// Sentinel errors for repository operations.
var (
	// ErrNotFound is returned when a requested row is not found.
	ErrNotFound = errors.New("database: not found")

	// ErrProofNotFound is returned when a proof row is not found.
	ErrProofNotFound = errors.New("database: proof not found")

	// ErrResultNotFound is returned when a result row is not found.
	ErrResultNotFound = errors.New("database: result not found")
)
