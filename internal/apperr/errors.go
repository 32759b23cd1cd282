// Package apperr defines the sentinel errors shared across the engine.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidMove   = errors.New("invalid move")
	ErrRekeyConflict = errors.New("rekey conflict")
	ErrNoCollection  = errors.New("no collection open")
)
