package gamification

import (
	"errors"
	"fmt"
)

// ErrInvalidUser is returned when a call carries the nil user ID.
var ErrInvalidUser = errors.New("invalid user id")

// ErrNonPositiveAmount is returned when an award amount is zero or negative.
var ErrNonPositiveAmount = errors.New("xp amount must be positive")

// ErrUnknownActivity is returned for an activity type outside the known set.
var ErrUnknownActivity = errors.New("unknown activity type")

// ErrEmptyDescription is returned when an award has no description.
var ErrEmptyDescription = errors.New("activity description is required")

// ErrCourseActivity is returned when a direct award names an activity type
// that only the course lifecycle may record.
var ErrCourseActivity = errors.New("course activities are recorded by the course lifecycle")

// ErrUnknownCourse is returned when a course ID does not exist in the catalog
// or the course is inactive.
var ErrUnknownCourse = errors.New("unknown course")

// ErrInvalidProgress is returned for progress percentages outside 0–100.
var ErrInvalidProgress = errors.New("progress percentage must be between 0 and 100")

// ErrNotFound is returned by stores when a single-row lookup misses.
var ErrNotFound = errors.New("not found")

// errAlreadyCompleted aborts a completion transaction that lost the race to
// another writer. It never escapes CourseService.
var errAlreadyCompleted = errors.New("course already completed")

// ValidationError reports malformed input rejected before any mutation.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// PersistenceError reports a failure of the backing store. The transaction
// that produced it has been rolled back.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// persistErr wraps err as a PersistenceError unless it already carries a
// ValidationError or PersistenceError.
func persistErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var ve *ValidationError
	var pe *PersistenceError
	if errors.As(err, &ve) || errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsPersistence reports whether err is (or wraps) a PersistenceError.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
