package app

import "errors"

// ErrNotFound and related errors describe validation and runtime failures.
var (
	ErrNotFound       = errors.New("not found")
	ErrEmptySelection = errors.New("empty selection")
	ErrNoDirectory    = errors.New("no employee directory")
)
