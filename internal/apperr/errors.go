// Package apperr defines sentinel errors shared across the engine.
package apperr

import "errors"

var (
	// ErrNotFound reports a missing entry or side file record.
	ErrNotFound = errors.New("not found")
	// ErrLocked reports a transient lock/permission failure on the order
	// file, typically because the host application holds it open.
	// Commits failing with ErrLocked leave in-memory state unchanged.
	ErrLocked = errors.New("file locked")
	// ErrStale reports background scan results superseded by a newer load.
	ErrStale = errors.New("stale results")
	// ErrBadState reports an operation invalid in the current load state.
	ErrBadState = errors.New("invalid state")
)
