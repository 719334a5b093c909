package errors

import (
	"errors"
	"fmt"
)

// Common error kinds for the inventory client
var (
	// Transport errors
	ErrNetwork = errors.New("network error")
	ErrHTTP    = errors.New("http error")

	// Authentication errors
	ErrUnauthorized      = errors.New("unauthorized")
	ErrNoRefreshToken    = errors.New("no refresh token stored")
	ErrNotAuthenticated  = errors.New("not authenticated")
	ErrInvalidCredential = errors.New("invalid credential")

	// Client-side validation errors
	ErrValidation = errors.New("validation error")

	// Storage errors
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrInvalidStoreType = errors.New("invalid store type")

	// General errors
	ErrNotFound    = errors.New("not found")
	ErrInternal    = errors.New("internal error")
	ErrUnsupported = errors.New("unsupported operation")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New is errors.New, re-exported so callers only need this package
func New(text string) error {
	return errors.New(text)
}
