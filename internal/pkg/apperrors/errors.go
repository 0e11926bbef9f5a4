package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

// Error taxonomy shared by services and the HTTP layer
var (
	ErrResourceNotFound   = errors.New("resource not found")
	ErrConflict           = errors.New("conflict")
	ErrValidationFailed   = errors.New("validation failed")
	ErrValidationGap      = errors.New("unresolved reference")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrBadRequest         = errors.New("bad request")
	ErrPermissionDenied   = errors.New("permission denied")

	// ErrMirrorSync marks a failed organizational mirror pass that ran after
	// the triggering write had already committed.
	ErrMirrorSync = errors.New("organizational mirror sync failed")
)

// Token errors
var (
	ErrTokenExpired  = errors.New("token expired")
	ErrTokenInvalid  = errors.New("invalid token")
	ErrInvalidFormat = errors.New("invalid token format")
)

// Error codes carried on CustomError
const (
	CodeSeatTaken         = "SEAT_TAKEN"
	CodeStudentEnrolled   = "STUDENT_ALREADY_ENROLLED"
	CodeAlreadyPromoted   = "APPLICATION_ALREADY_PROMOTED"
	CodeNotAdmitted       = "APPLICATION_NOT_ADMITTED"
	CodeDuplicateIdentity = "DUPLICATE_IDENTITY"
	CodeSchoolMissing     = "SCHOOL_MISSING"
	CodeUnresolvedRef     = "UNRESOLVED_REFERENCE"
)

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err     error
	Message string
	Code    string
	Details map[string]interface{}
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap interface
func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewCustomError creates a CustomError with underlying error
func NewCustomError(err error, message string) *CustomError {
	return &CustomError{
		Err:     err,
		Message: message,
	}
}

// WithDetails adds context details to the error
func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	e.Details = details
	return e
}

// WithCode adds an error code
func (e *CustomError) WithCode(code string) *CustomError {
	e.Code = code
	return e
}

// NewResourceNotFoundError creates a not-found error with a message
func NewResourceNotFoundError(message string) error {
	return NewCustomError(ErrResourceNotFound, message)
}

// NewConflictError creates a conflict error carrying a machine-readable code
func NewConflictError(code, message string) error {
	return NewCustomError(ErrConflict, message).WithCode(code)
}

// NewBadRequestError creates a bad request error with a message
func NewBadRequestError(message string) error {
	return NewCustomError(ErrBadRequest, message)
}

// NewValidationError creates a validation error with a message
func NewValidationError(message string) error {
	return NewCustomError(ErrValidationFailed, message)
}

// NewValidationGapError reports a mandatory reference that could not be resolved
func NewValidationGapError(message string) error {
	return NewCustomError(ErrValidationGap, message).WithCode(CodeUnresolvedRef)
}

// NewPreconditionFailedError reports a missing anchor record
func NewPreconditionFailedError(code, message string) error {
	return NewCustomError(ErrPreconditionFailed, message).WithCode(code)
}

// Code returns the CustomError code in err's chain, if any
func Code(err error) string {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// RecordError identifies one failed record of a bulk replace
type RecordError struct {
	Index int
	Name  string
	Err   error
}

func (e RecordError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("record %d (%s): %v", e.Index, e.Name, e.Err)
	}
	return fmt.Sprintf("record %d: %v", e.Index, e.Err)
}

// BatchError collects per-record failures of a bulk replace whose
// sibling records were committed.
type BatchError struct {
	Kind     string
	Failures []RecordError
}

func (e *BatchError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, f.Error())
	}
	return fmt.Sprintf("%s: %d record(s) failed: %s", e.Kind, len(e.Failures), strings.Join(parts, "; "))
}

// Unwrap exposes every record cause to errors.Is / errors.As
func (e *BatchError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// Add records a failure for the record at index
func (e *BatchError) Add(index int, name string, err error) {
	e.Failures = append(e.Failures, RecordError{Index: index, Name: name, Err: err})
}

// OrNil returns nil when no failure was recorded
func (e *BatchError) OrNil() error {
	if e == nil || len(e.Failures) == 0 {
		return nil
	}
	return e
}

// Is returns whether err matches target or any of errList
func Is(err, target error, errList ...error) bool {
	if errors.Is(err, target) {
		return true
	}
	for _, e := range errList {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}
