// Package apperr defines the error kinds shared by repositories, services and handlers.
package apperr

import "errors"

// Error kinds. Use errors.Is against these to classify a failure.
var (
	ErrValidation         = errors.New("validation error")
	ErrAuth               = errors.New("authentication error")
	ErrRole               = errors.New("insufficient role")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrInvalidState       = errors.New("invalid state")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrGateway            = errors.New("payment gateway error")
	ErrPaymentNotRecorded = errors.New("payment received but order not recorded")
)

// Error carries a user-facing message together with its kind and an optional cause.
type Error struct {
	Kind    error
	Message string
	Cause   error
}

// New creates an Error of the given kind.
func New(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an Error of the given kind that keeps the underlying cause.
func Wrap(kind error, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

// Message returns the user-facing message of err if it is an *Error,
// otherwise fallback.
func Message(err error, fallback string) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return fallback
}
