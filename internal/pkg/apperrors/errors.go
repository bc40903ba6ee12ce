package apperrors

import "errors"

// Common errors
var (
	// Resource errors
	ErrResourceNotFound      = errors.New("resource not found")
	ErrResourceAlreadyExists = errors.New("resource already exists")
	ErrConflict              = errors.New("conflict")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrBadRequest       = errors.New("bad request")

	// Store errors
	ErrTransientStore = errors.New("store temporarily unavailable")
)

// Group Errors
var (
	ErrGroupNotFound     = errors.New("group not found")
	ErrInvalidInviteCode = errors.New("invalid invite code")
	ErrAlreadyMember     = errors.New("already a member of this group")
	ErrNotMember         = errors.New("not a member of this group")
	ErrTooManyChallenges = errors.New("too many challenges")
	ErrNoChallenges      = errors.New("group needs at least one challenge")
)

// Progress Errors
var (
	ErrUnknownChallenge = errors.New("unknown challenge")
	ErrInvalidDelta     = errors.New("progress increment must be positive")
	ErrInvalidDate      = errors.New("invalid date key")
)

// NewResourceNotFoundError creates a new custom error for resource not found with a message
func NewResourceNotFoundError(message string) error {
	return &CustomError{
		Err:     ErrResourceNotFound,
		Message: message,
	}
}

// NewConflictError creates a new custom error for conflict situations with a message
func NewConflictError(message string) error {
	return &CustomError{
		Err:     ErrConflict,
		Message: message,
	}
}

// NewValidationError creates a validation error wrapping a more specific cause.
// cause may be nil.
func NewValidationError(cause error, message string) *CustomError {
	err := ErrValidationFailed
	if cause != nil {
		err = &wrapped{outer: ErrValidationFailed, inner: cause}
	}
	return &CustomError{
		Err:     err,
		Message: message,
	}
}

// NewTransientStoreError marks err as a retryable store failure.
func NewTransientStoreError(err error, message string) error {
	return &CustomError{
		Err:     &wrapped{outer: ErrTransientStore, inner: err},
		Message: message,
	}
}

// IsRetryable reports whether the caller may retry the whole operation.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransientStore)
}

// Is returns whether target matches any of the errors in errList
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

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err       error
	Message   string
	StatusMsg string
	Code      string
	Details   map[string]interface{}
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

// WithStatusMsg adds a user-friendly status message
func (e *CustomError) WithStatusMsg(msg string) *CustomError {
	e.StatusMsg = msg
	return e
}

// wrapped lets a CustomError match both its category and its cause.
type wrapped struct {
	outer error
	inner error
}

func (w *wrapped) Error() string {
	if w.inner == nil {
		return w.outer.Error()
	}
	return w.outer.Error() + ": " + w.inner.Error()
}

func (w *wrapped) Unwrap() []error {
	if w.inner == nil {
		return []error{w.outer}
	}
	return []error{w.outer, w.inner}
}
