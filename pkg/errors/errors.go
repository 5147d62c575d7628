package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind is the closed set of failure classes a collection attempt can end in
type Kind string

const (
	KindSetupFailure     Kind = "setup_failure"
	KindRateLimited      Kind = "rate_limited"
	KindUnauthorized     Kind = "unauthorized"
	KindTransientNetwork Kind = "transient_network"
	KindRetryExhausted   Kind = "retry_exhausted"
	KindOther            Kind = "other"
)

// Error represents a Twitter API error with kind information
type Error struct {
	Kind    Kind
	Message string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error of the given kind
func New(kind Kind, code int, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Code:    code,
	}
}

// Wrap creates an Error of the given kind that wraps err
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf("%s: %v", message, err),
		Err:     err,
	}
}

// KindOf returns the kind of the first *Error in err's chain.
// Errors that carry no kind are KindOther.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if stderrors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindOther
}

// Is reports whether err carries the given kind
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsRetryable checks if an error kind should be retried
func IsRetryable(kind Kind) bool {
	switch kind {
	case KindRateLimited, KindTransientNetwork:
		return true
	default:
		return false
	}
}
