// Package gicerr defines the error taxonomy shared by every gicli
// component. It keeps the shape of the teacher's exception.BatchError:
// a module tag, a human message, an optional wrapped cause, and
// retryable/skippable flags, plus a Kind so callers can errors.As into
// *Error and dispatch on the table in spec §7 without string matching.
package gicerr

import "fmt"

// Kind names one of the error categories from the error handling table.
type Kind string

const (
	ConfigurationInvalid     Kind = "ConfigurationInvalid"
	DependencyMissing        Kind = "DependencyMissing"
	DependencyCycle          Kind = "DependencyCycle"
	EnvMissing               Kind = "EnvMissing"
	SessionMissing           Kind = "SessionMissing"
	TemplatePathMissing      Kind = "TemplatePathMissing"
	HTTPTransport            Kind = "HttpTransport"
	HTTPAuthExpired          Kind = "HttpAuthExpired"
	AuthTokenExtractionFailed Kind = "AuthTokenExtractionFailed"
	SinkFailure              Kind = "SinkFailure"
	DatabaseConnectionFailed Kind = "DatabaseConnectionFailed"
	RowInsertFailed          Kind = "RowInsertFailed"
)

// Error is the concrete error type raised across gicli's core.
type Error struct {
	Kind        Kind
	Module      string
	Message     string
	OriginalErr error
	Retryable   bool
	Skippable   bool
}

// New builds an *Error with explicit retry/skip flags.
func New(kind Kind, module, message string, cause error, retryable, skippable bool) *Error {
	return &Error{
		Kind:        kind,
		Module:      module,
		Message:     message,
		OriginalErr: cause,
		Retryable:   retryable,
		Skippable:   skippable,
	}
}

// Newf is New with a formatted message.
func Newf(kind Kind, module, format string, args ...any) *Error {
	return New(kind, module, fmt.Sprintf(format, args...), nil, false, false)
}

func (e *Error) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Kind, e.Module, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Kind, e.Module, e.Message)
}

func (e *Error) Unwrap() error { return e.OriginalErr }

// IsRetryable reports whether the failed operation may be retried.
func (e *Error) IsRetryable() bool { return e.Retryable }

// IsSkippable reports whether the surrounding loop may continue past this error.
func (e *Error) IsSkippable() bool { return e.Skippable }

// Is allows errors.Is(err, &gicerr.Error{Kind: k}) matching on Kind
// alone: a target *Error with empty Module and Message matches any
// *Error of the same Kind.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return other.Kind == e.Kind && other.Module == "" && other.Message == ""
}

// KindOf extracts the Kind from err if it is (or wraps) a *Error.
func KindOf(err error) (Kind, bool) {
	var gerr *Error
	if as(err, &gerr) {
		return gerr.Kind, true
	}
	return "", false
}

// as is a tiny local errors.As to avoid importing errors just for one call site
// used by KindOf; kept because gicerr is imported very widely and we want it
// dependency-light.
func as(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
