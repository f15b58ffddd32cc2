package status

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error carries the status a failure should be answered with.
type Error struct {
	cause  error
	Status Status
}

func NewError(err error, status Status) Error {
	return Error{cause: err, Status: status}
}

func (e Error) Error() string {
	cause := ""
	if e.cause != nil {
		cause = e.cause.Error()
	}

	return fmt.Sprintf("%s: %q", e.Status, cause)
}

func (e Error) Cause() error  { return e.cause }
func (e Error) Unwrap() error { return e.cause }

// StatusOf extracts the status attached to err.
// Errors without one map to 500.
func StatusOf(err error) Status {
	var se Error
	if errors.As(err, &se) {
		return se.Status
	}
	return InternalServerError
}
