package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ClassifiedError carries a category that decides exit codes, HTTP statuses
// and whether the tracker retries, plus optional structured context.
type ClassifiedError struct {
	category   ErrorCategory
	severity   ErrorSeverity
	retry      RetryStrategy
	retryAfter time.Duration
	message    string
	cause      error
	context    ErrorContext
}

func (e *ClassifiedError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.category, e.severity, e.message, e.cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.category, e.severity, e.message)
}

func (e *ClassifiedError) Unwrap() error { return e.cause }

func (e *ClassifiedError) Category() ErrorCategory      { return e.category }
func (e *ClassifiedError) Severity() ErrorSeverity      { return e.severity }
func (e *ClassifiedError) RetryStrategy() RetryStrategy { return e.retry }
func (e *ClassifiedError) Message() string              { return e.message }
func (e *ClassifiedError) Cause() error                 { return e.cause }
func (e *ClassifiedError) Context() ErrorContext        { return e.context }

// RetryAfter reports the delay the remote asked for, if any.
func (e *ClassifiedError) RetryAfter() (time.Duration, bool) {
	return e.retryAfter, e.retryAfter > 0
}

// WithContext returns a copy of e with key set; e is not modified.
func (e *ClassifiedError) WithContext(key string, value any) *ClassifiedError {
	cp := *e
	cp.context = e.context.Merge(ErrorContext{key: value})
	return &cp
}

// Is matches another ClassifiedError with the same category and message.
func (e *ClassifiedError) Is(target error) bool {
	if other, ok := target.(*ClassifiedError); ok {
		return e.category == other.category && e.message == other.message
	}
	return false
}

// CanRetry reports whether an immediate retry loop may try again.
func (e *ClassifiedError) CanRetry() bool {
	return e.retry == RetryBackoff || e.retry == RetryRateLimit
}

// AsClassified finds the first ClassifiedError in the chain.
func AsClassified(err error) (*ClassifiedError, bool) {
	var classified *ClassifiedError
	if stderrors.As(err, &classified) {
		return classified, true
	}
	return nil, false
}

// HasCategory checks if any error in the tree belongs to category. Unlike
// AsClassified it looks past an outer classified error, so a persistence
// error wrapping a transport failure matches both. Joined errors are walked
// branch by branch.
func HasCategory(err error, category ErrorCategory) bool {
	if err == nil {
		return false
	}
	if classified, ok := err.(*ClassifiedError); ok && classified.category == category {
		return true
	}
	switch u := err.(type) {
	case interface{ Unwrap() error }:
		return HasCategory(u.Unwrap(), category)
	case interface{ Unwrap() []error }:
		for _, e := range u.Unwrap() {
			if HasCategory(e, category) {
				return true
			}
		}
	}
	return false
}

// GetCategory extracts the category from an error, or returns CategoryInternal.
func GetCategory(err error) ErrorCategory {
	if classified, ok := AsClassified(err); ok {
		return classified.Category()
	}
	return CategoryInternal
}
