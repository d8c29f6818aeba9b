package common

import "fmt"

// DefinitionError indicates an invalid entity or migration declaration:
// a malformed migration name, or a name registered twice within one
// entity hierarchy. It is always fatal.
type DefinitionError struct {
	msg string
}

func (e *DefinitionError) Error() string { return e.msg }

// NewDefinitionError formats a new DefinitionError.
func NewDefinitionError(format string, args ...interface{}) *DefinitionError {
	return &DefinitionError{msg: fmt.Sprintf(format, args...)}
}

// ResolutionError indicates that ordering could not be computed: a
// dependency cycle between entities, or a migration target that names
// neither an applied nor a pending migration.
type ResolutionError struct {
	msg string
}

func (e *ResolutionError) Error() string { return e.msg }

// NewResolutionError formats a new ResolutionError.
func NewResolutionError(format string, args ...interface{}) *ResolutionError {
	return &ResolutionError{msg: fmt.Sprintf(format, args...)}
}

// ExecutionError wraps a failure raised while running a migration or a
// DDL statement, including a lifecycle hook abort. Unwrap exposes the
// underlying cause when there is one.
type ExecutionError struct {
	msg   string
	cause error
}

func (e *ExecutionError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.cause)
	}
	return e.msg
}

func (e *ExecutionError) Unwrap() error { return e.cause }

// NewExecutionError wraps cause with a formatted message. cause may be nil
// (hook aborts carry only a reason).
func NewExecutionError(cause error, format string, args ...interface{}) *ExecutionError {
	return &ExecutionError{msg: fmt.Sprintf(format, args...), cause: cause}
}
