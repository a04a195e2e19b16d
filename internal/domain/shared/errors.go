package shared

// ValidationError is a user-facing rejection of an operation: a missing or
// malformed field, an unknown entity, a business-rule violation. The message
// is safe to show verbatim. Anything that is not a ValidationError is an
// internal fault and rolls the enclosing transaction back.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError builds a ValidationError with the given message
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// ConfigurationError signals a data-setup problem (e.g. no approval bracket
// covers the requested amount). Recoverable by an administrator, not a system
// fault, so it is surfaced like a validation failure rather than a 500.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return e.Message
}
