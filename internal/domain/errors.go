package domain

import "errors"

var (
	ErrInvalidID         = errors.New("invalid id")
	ErrInvalidCustomerID = errors.New("invalid customer id")
	ErrInvalidName       = errors.New("invalid name")
	ErrInvalidTitle      = errors.New("invalid title")
	ErrInvalidType       = errors.New("invalid action type")
	ErrInvalidPriority   = errors.New("invalid priority")
	ErrInvalidSource     = errors.New("invalid source")
	ErrInvalidBucket     = errors.New("invalid due bucket")
	ErrInvalidSnoozeTime = errors.New("snooze time must not be in the past")
	ErrInvalidNote       = errors.New("invalid note")
	ErrNotOpen           = errors.New("action is not open")
	ErrNotRestorable     = errors.New("action is not restorable")
)
