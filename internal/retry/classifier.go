package retry

import (
	"context"
	"errors"
)

// FetchErrorClassifier treats every fetch failure as transient: network
// errors, timeouts and non-success HTTP statuses are all retried the same
// way. Only cancellation of the caller's context stops the loop.
type FetchErrorClassifier struct{}

// NewFetchErrorClassifier creates a new FetchErrorClassifier.
func NewFetchErrorClassifier() *FetchErrorClassifier {
	return &FetchErrorClassifier{}
}

// IsTransient reports whether err should be retried.
func (c *FetchErrorClassifier) IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var perm *PermanentError
	return !errors.As(err, &perm)
}

// PermanentError marks an error that must not be retried.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }

func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so classifiers stop retrying on it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}
