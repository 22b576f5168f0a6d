package faults

import (
	"errors"
	"fmt"
)

// Kind classifies an error condition. The string value is the wire-visible
// error type reported to callers.
type Kind string

const (
	KindValidation      Kind = "ValidationError"
	KindAuthentication  Kind = "AuthenticationError"
	KindAuthorization   Kind = "AuthorizationError"
	KindBusinessLogic   Kind = "BusinessLogicError"
	KindSecurity        Kind = "SecurityException"
	KindDatabase        Kind = "DatabaseError"
	KindExternalService Kind = "ExternalServiceError"
	KindConfiguration   Kind = "ConfigurationError"
	KindUnknown         Kind = "InternalError"
)

// Error is a kind-tagged error carried from the service layer to the HTTP
// boundary. The message is internal; an optional user message overrides the
// severity default when the error is handled.
type Error struct {
	kind        Kind
	message     string
	userMessage string
	details     map[string]any
	cause       error
}

// New constructs a kind-tagged error.
func New(kind Kind, message string) *Error {
	return &Error{kind: kind, message: message}
}

// Newf constructs a kind-tagged error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{kind: kind, message: fmt.Sprintf(format, args...)}
}

// Wrap tags an underlying error with a kind and message.
func Wrap(kind Kind, cause error, message string) *Error {
	return &Error{kind: kind, message: message, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.message + ": " + e.cause.Error()
	}
	return e.message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Kind returns the error's classification.
func (e *Error) Kind() Kind {
	return e.kind
}

// WithDetails attaches diagnostic key/value data. Details are logged, never
// returned to callers.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.details = details
	return e
}

// WithUserMessage sets the outward-facing message used instead of the
// severity default.
func (e *Error) WithUserMessage(message string) *Error {
	e.userMessage = message
	return e
}

// KindOf resolves the classification of an arbitrary error. Errors that do
// not carry a kind anywhere in their chain are unclassified.
func KindOf(err error) Kind {
	var fault *Error
	if errors.As(err, &fault) {
		return fault.kind
	}
	return KindUnknown
}

// IsKind reports whether the error chain carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// UserMessage returns the caller-facing message attached to the error chain,
// or the empty string when none was set.
func UserMessage(err error) string {
	var fault *Error
	if errors.As(err, &fault) {
		return fault.userMessage
	}
	return ""
}

// DetailsOf returns the diagnostic details attached to the error chain.
func DetailsOf(err error) map[string]any {
	var fault *Error
	if errors.As(err, &fault) {
		return fault.details
	}
	return nil
}
