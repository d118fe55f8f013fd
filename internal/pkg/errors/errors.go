package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing learners, activities and settings.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is a generic sentinel for input rejected at the boundary.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrLocked is returned when a learner or batch lock could not be acquired in time.
	ErrLocked = errors.New("locked")
)
