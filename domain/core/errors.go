package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound       = errors.New("resource not found")
	ErrJobNotFound    = fmt.Errorf("%w: imputation job", ErrNotFound)
	ErrColumnNotFound = fmt.Errorf("%w: column", ErrNotFound)

	// Input errors, reported before any value is touched
	ErrMalformedInput = errors.New("malformed input")
	ErrLengthMismatch = fmt.Errorf("%w: value and timestamp lengths differ", ErrMalformedInput)
	ErrSeriesTooShort = fmt.Errorf("%w: series too short", ErrMalformedInput)

	// Per-run conditions, absorbed by the imputer
	ErrInsufficientSupport = errors.New("insufficient support points")
	ErrFitFailed           = errors.New("interpolant fit failed")

	// Configuration errors
	ErrInvalidPolicy = errors.New("invalid imputation policy")
)

// NewNotFoundError builds a not-found error for a resource id
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

// NewMalformedInputError describes why an input was rejected
func NewMalformedInputError(reason string) error {
	return fmt.Errorf("%w: %s", ErrMalformedInput, reason)
}

// NewLengthMismatchError reports differing value/timestamp lengths
func NewLengthMismatchError(name string, values, timestamps int) error {
	return fmt.Errorf("%w: %q has %d values and %d timestamps", ErrLengthMismatch, name, values, timestamps)
}

// NewSeriesTooShortError reports a series below the smallest method's support
func NewSeriesTooShortError(name string, length, minimum int) error {
	return fmt.Errorf("%w: %q has %d points, need at least %d", ErrSeriesTooShort, name, length, minimum)
}

// NewInsufficientSupportError reports a run that cannot gather its support window
func NewInsufficientSupportError(start, length int, reason string) error {
	return fmt.Errorf("%w for run at %d (length %d): %s", ErrInsufficientSupport, start, length, reason)
}

// NewInvalidPolicyError reports an inconsistent threshold setting
func NewInvalidPolicyError(field string, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidPolicy, field, reason)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsMalformedInput(err error) bool {
	return errors.Is(err, ErrMalformedInput)
}

func IsInsufficientSupport(err error) bool {
	return errors.Is(err, ErrInsufficientSupport)
}

func IsFitFailure(err error) bool {
	return errors.Is(err, ErrFitFailed)
}
