// Package domainerrors carries coded errors for the authentication core.
//
// Infrastructure layers return sentinel errors (pkg/platform/sentinel); the
// orchestration layer wraps them into coded errors here so callers can branch
// on the code without string matching. Nothing in this module surfaces an
// uncoded error across a package boundary.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies the failure class of a domain error.
type Code string

const (
	// CodeVerificationTimeout: the verification collaborator did not answer
	// within the per-call budget. Recoverable; one retry is allowed.
	CodeVerificationTimeout Code = "verification_timeout"

	// CodeVerificationFailed: the collaborator answered with a failure.
	CodeVerificationFailed Code = "verification_failed"

	// CodeVerificationInProgress: another verification is in flight. This is
	// a non-error sentinel for callers; they should wait, never show a banner.
	CodeVerificationInProgress Code = "verification_in_progress"

	// CodeLoopDetected: the redirect breaker tripped. Fatal to the session.
	CodeLoopDetected Code = "loop_detected"

	// CodeTooManyAttempts: three consecutive verification failures. Fatal,
	// forces /login.
	CodeTooManyAttempts Code = "too_many_attempts"

	// CodeStorageRead: a store read failed; the store is treated as empty.
	CodeStorageRead Code = "storage_read"

	// CodeLogoutStep: a single logout step failed. Logged, never blocks the
	// remaining steps.
	CodeLogoutStep Code = "logout_step_failed"

	CodeInternal Code = "internal"
)

// Error is a coded domain error, optionally wrapping a cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(cause error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// HasCode reports whether err or anything in its chain carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.cause
		if err == nil {
			return false
		}
	}
	return false
}

// CodeOf returns the code of the outermost coded error, or CodeInternal when
// err carries no code.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
