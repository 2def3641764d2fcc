// Package errors provides the structured error type for host failures:
// unreadable input, malformed declarations, bad configuration and broken
// internal invariants. Problems with the checked declarations themselves
// are diagnostics, not errors.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	CategoryInput    ErrorCategory = "INPUT"
	CategoryConfig   ErrorCategory = "CONFIG"
	CategoryInternal ErrorCategory = "INTERNAL"
)

// StandardError provides a consistent error format
type StandardError struct {
	Category ErrorCategory
	Code     string
	Message  string
	Context  map[string]interface{}
	Caller   string
	Cause    error
}

// Error implements the error interface
func (e *StandardError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s:%s] %s", e.Category, e.Code, e.Message)
	if pos, ok := e.Context["position"]; ok {
		fmt.Fprintf(&b, " at %v", pos)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *StandardError) Unwrap() error { return e.Cause }

// NewStandardError creates a new standardized error
func NewStandardError(category ErrorCategory, code, message string, context map[string]interface{}) *StandardError {
	pc, _, _, ok := runtime.Caller(1)
	caller := "unknown"
	if ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			caller = fn.Name()
		}
	}

	return &StandardError{
		Category: category,
		Code:     code,
		Message:  message,
		Context:  context,
		Caller:   caller,
	}
}

// Wrap attaches a cause to the error and returns it.
func (e *StandardError) Wrap(cause error) *StandardError {
	e.Cause = cause
	return e
}

// Is matches errors of the same category and code.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	return ok && t.Category == e.Category && t.Code == e.Code
}

// Common error constructors

// InvalidDeclaration reports a declaration the loader cannot build.
func InvalidDeclaration(position, details string) *StandardError {
	return NewStandardError(CategoryInput, "INVALID_DECLARATION", details,
		map[string]interface{}{"position": position})
}

// UnresolvedName reports a name that does not resolve in its scope.
func UnresolvedName(position, kind, name string) *StandardError {
	return NewStandardError(CategoryInput, "UNRESOLVED_NAME",
		fmt.Sprintf("cannot find %s `%s` in this scope", kind, name),
		map[string]interface{}{"position": position, "kind": kind, "name": name})
}

// InvalidConfig reports a bad configuration value.
func InvalidConfig(key string, value interface{}, details string) *StandardError {
	return NewStandardError(CategoryConfig, "INVALID_CONFIG",
		fmt.Sprintf("invalid value for %s: %s", key, details),
		map[string]interface{}{"key": key, "value": value})
}

// Internal reports a broken invariant of the checker itself.
func Internal(details string) *StandardError {
	return NewStandardError(CategoryInternal, "INTERNAL", details, nil)
}

// Categories returns the distinct categories found in err and everything
// it wraps or joins, sorted.
func Categories(err error) []ErrorCategory {
	seen := map[ErrorCategory]bool{}
	var walk func(error)
	walk = func(err error) {
		if err == nil {
			return
		}
		var se *StandardError
		if errors.As(err, &se) {
			seen[se.Category] = true
		}
		if j, ok := err.(interface{ Unwrap() []error }); ok {
			for _, e := range j.Unwrap() {
				walk(e)
			}
		}
	}
	walk(err)
	out := make([]ErrorCategory, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
