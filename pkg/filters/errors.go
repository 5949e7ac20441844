package filters

import "fmt"

// ValidationError reports a malformed filter, event type or autocomplete
// field. It is always raised before any network call.
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid filters: " + e.Reason
	}
	return fmt.Sprintf("invalid filter %q: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
