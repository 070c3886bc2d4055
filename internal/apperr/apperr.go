// Package apperr holds the error taxonomy shared by services and the HTTP
// layer. Sentinels are matched with errors.Is; call sites wrap them with
// additional context.
package apperr

import "errors"

var (
	// ErrNotFound signals an entity lookup miss.
	ErrNotFound = errors.New("request not found")

	// Input validation failures.
	ErrMissingField    = errors.New("required field is empty")
	ErrInvalidPriority = errors.New("unknown priority")
	ErrInvalidStatus   = errors.New("unknown status value")
	ErrInvalidDate     = errors.New("start date is before today")
	ErrMissingCrew     = errors.New("a crew must be assigned")

	// State-machine guard violations.
	ErrNotFunded         = errors.New("request has not been funded")
	ErrAlreadyScheduled  = errors.New("request is already scheduled")
	ErrNotScheduled      = errors.New("request is not scheduled")
	ErrForbiddenStatus   = errors.New("status cannot be set manually")
	ErrNoFinancingLinked = errors.New("request has no financing linked")

	// ErrIntegration signals an external portal returned no usable data or
	// an unmapped status code.
	ErrIntegration = errors.New("external portal error")
)

// IsNotFound reports whether err is a lookup miss.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidInput reports whether err is a malformed or out-of-range input.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrInvalidPriority) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrMissingCrew)
}

// IsForbidden reports whether err is a state-machine guard violation.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrNotFunded) ||
		errors.Is(err, ErrAlreadyScheduled) ||
		errors.Is(err, ErrNotScheduled) ||
		errors.Is(err, ErrForbiddenStatus) ||
		errors.Is(err, ErrNoFinancingLinked)
}

// IsIntegration reports whether err came from an external portal.
func IsIntegration(err error) bool {
	return errors.Is(err, ErrIntegration)
}
