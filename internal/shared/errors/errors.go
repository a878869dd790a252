package errors

import "fmt"

// Validation error codes returned verbatim to the caller before any
// configuration mutation takes place.
const (
	CodeInvalidTrigger        = "invalid_trigger"
	CodeInvalidTemplateKind   = "invalid_template_kind"
	CodeMissingMessage        = "missing_message"
	CodeMissingTemplateFields = "missing_template_fields"
	CodeInvalidTime           = "invalid_time"
	CodeMissingFields         = "missing_fields"
	CodeVersionConflict       = "version_conflict"
)

// AppError represents an application error
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s - %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped error to errors.Is/As.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a validation error with a machine code.
func NewValidationError(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Code:    "internal_error",
		Message: message,
		Err:     err,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, err error) *AppError {
	return &AppError{
		Code:    "not_found",
		Message: message,
		Err:     err,
	}
}

// NewConflictError creates a stale-write error for the config store.
func NewConflictError(message string) *AppError {
	return &AppError{
		Code:    CodeVersionConflict,
		Message: message,
	}
}

// IsCode reports whether err is an AppError with the given code.
func IsCode(err error, code string) bool {
	appErr, ok := err.(*AppError)
	return ok && appErr.Code == code
}
