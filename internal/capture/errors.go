package capture

import (
	"errors"
	"fmt"
)

var (
	// ErrServiceUnavailable means the capture endpoint is not on the bus.
	ErrServiceUnavailable = errors.New("screenshot service unavailable")

	// ErrUnknownFailure covers every other provider failure, including a
	// reply that reports success=false.
	ErrUnknownFailure = errors.New("screenshot failed")

	// ErrLaunchFailure means the fallback tool could not be started.
	ErrLaunchFailure = errors.New("screenshot tool could not be started")

	// ErrInteractiveOnly is returned by SelectArea on providers that can
	// only select as part of the area capture itself.
	ErrInteractiveOnly = errors.New("area selection happens during capture")
)

// opError attaches the failing operation to a classified error.
type opError struct {
	op    string
	class error
	err   error
}

func (e *opError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("%s: %v", e.op, e.class)
	}
	return fmt.Sprintf("%s: %v: %v", e.op, e.class, e.err)
}

func (e *opError) Unwrap() []error {
	if e.err == nil {
		return []error{e.class}
	}
	return []error{e.class, e.err}
}

// wrapErr classifies err under class for operation op.
func wrapErr(op string, class, err error) error {
	return &opError{op: op, class: class, err: err}
}

// Classify returns the sentinel an error belongs to, or ErrUnknownFailure
// for errors that carry none.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrServiceUnavailable):
		return ErrServiceUnavailable
	case errors.Is(err, ErrLaunchFailure):
		return ErrLaunchFailure
	default:
		return ErrUnknownFailure
	}
}

// UserMessage turns a capture error into the text shown to the user.
func UserMessage(err error) string {
	switch Classify(err) {
	case nil:
		return ""
	case ErrServiceUnavailable:
		return "The GNOME Shell screenshot service is not running. Kasbah needs GNOME Shell, or gnome-screenshot installed as a fallback."
	case ErrLaunchFailure:
		return "The screenshot tool could not be started. Check that gnome-screenshot is installed."
	default:
		return "Unable to take a screenshot."
	}
}
