package errors

import "maps"

// ErrorCategory represents the broad category of an error for classification and routing.
type ErrorCategory string

const (
	// CategoryConfig represents user-facing configuration and input errors.
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"
	CategoryNotFound   ErrorCategory = "not_found"

	// CategoryTransport represents failures talking to upstream sources.
	CategoryTransport ErrorCategory = "transport"
	CategoryGit       ErrorCategory = "git"
	CategoryNotify    ErrorCategory = "notify"

	// CategoryRecord represents per-record data problems.
	CategoryRecord    ErrorCategory = "record"
	CategoryInvariant ErrorCategory = "invariant"

	// CategoryPersistence represents storage errors.
	CategoryPersistence ErrorCategory = "persistence"
	CategoryIndex       ErrorCategory = "index"

	// CategoryRuntime represents runtime and infrastructure errors.
	CategoryRuntime  ErrorCategory = "runtime"
	CategoryDaemon   ErrorCategory = "daemon"
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates the impact level of an error.
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // the command or daemon exits
	SeverityError   ErrorSeverity = "error"   // the current cycle fails
	SeverityWarning ErrorSeverity = "warning" // logged; the cycle continues
	SeverityInfo    ErrorSeverity = "info"
)

// RetryStrategy indicates how an error should be handled in retry scenarios.
type RetryStrategy string

const (
	RetryNever     RetryStrategy = "never"      // Permanent; fetch failures of this kind enter FAILED_FETCH
	RetryBackoff   RetryStrategy = "backoff"    // Transient; retried per the fetch policy
	RetryRateLimit RetryStrategy = "rate_limit" // Server asked us to slow down
)

// ErrorContext provides structured context for errors.
type ErrorContext map[string]any

// Set adds or updates a context value.
func (c ErrorContext) Set(key string, value any) ErrorContext {
	if c == nil {
		c = make(ErrorContext)
	}
	c[key] = value
	return c
}

// Get retrieves a context value.
func (c ErrorContext) Get(key string) (any, bool) {
	if c == nil {
		return nil, false
	}
	value, exists := c[key]
	return value, exists
}

// GetString retrieves a string context value.
func (c ErrorContext) GetString(key string) (string, bool) {
	if value, exists := c.Get(key); exists {
		if str, ok := value.(string); ok {
			return str, true
		}
	}
	return "", false
}

// Merge combines two contexts, with other taking precedence.
func (c ErrorContext) Merge(other ErrorContext) ErrorContext {
	if c == nil {
		return other
	}
	if other == nil {
		return c
	}
	result := make(ErrorContext)
	maps.Copy(result, c)
	maps.Copy(result, other)
	return result
}
