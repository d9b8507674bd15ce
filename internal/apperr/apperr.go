// Package apperr defines the error taxonomy shared by every transport and
// background loop in the service. Each class carries enough metadata to be
// mapped to an HTTP status without the caller needing to know about net/http.
package apperr

import (
	"errors"
	"fmt"
)

// Class identifies one of the error categories of the delivery pipeline.
type Class string

const (
	ClassNotFound         Class = "NOT_FOUND"
	ClassValidation       Class = "VALIDATION"
	ClassRateLimited      Class = "RATE_LIMITED"
	ClassConflictCAS      Class = "CONFLICT_CAS"
	ClassStoreUnavailable Class = "DURABLE_STORE_UNAVAILABLE"
	ClassLogUnavailable   Class = "LOG_UNAVAILABLE"
	ClassGridUnavailable  Class = "GRID_UNAVAILABLE"
	ClassPoison           Class = "SERIALIZATION_POISON"
	ClassProcessing       Class = "PROCESSING_FAILURE"
	ClassFatal            Class = "FATAL"
)

// Retryable classes: the caller may retry the same operation after backoff.
var retryable = map[Class]bool{
	ClassConflictCAS:      true,
	ClassStoreUnavailable: true,
	ClassLogUnavailable:   true,
	ClassGridUnavailable:  true,
}

// Error is the concrete error type carried through the service. It wraps an
// underlying cause while attaching a stable Class used for HTTP mapping and
// retry decisions.
type Error struct {
	Class   Class
	Reason  string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Class, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Class, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Retryable reports whether the originating operation may be retried.
func (e *Error) Retryable() bool { return retryable[e.Class] }

func newErr(class Class, reason, msg string, cause error) *Error {
	return &Error{Class: class, Reason: reason, Message: msg, Cause: cause}
}

func NotFound(reason, msg string) error { return newErr(ClassNotFound, reason, msg, nil) }

func Validation(reason, msg string) error { return newErr(ClassValidation, reason, msg, nil) }

func RateLimited(msg string) error { return newErr(ClassRateLimited, "rate_limited", msg, nil) }

func ConflictCAS(msg string, cause error) error {
	return newErr(ClassConflictCAS, "cas_conflict", msg, cause)
}

func StoreUnavailable(msg string, cause error) error {
	return newErr(ClassStoreUnavailable, "store_unavailable", msg, cause)
}

func LogUnavailable(msg string, cause error) error {
	return newErr(ClassLogUnavailable, "log_unavailable", msg, cause)
}

func GridUnavailable(msg string, cause error) error {
	return newErr(ClassGridUnavailable, "grid_unavailable", msg, cause)
}

func Poison(msg string, cause error) error {
	return newErr(ClassPoison, "poison_pill", msg, cause)
}

func Processing(msg string, cause error) error {
	return newErr(ClassProcessing, "processing_failure", msg, cause)
}

func Fatal(msg string, cause error) error {
	return newErr(ClassFatal, "fatal", msg, cause)
}

// ClassOf extracts the Class of err, if any of its wrapped causes is an
// *Error. Returns ("", false) for plain errors.
func ClassOf(err error) (Class, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Class, true
	}
	return "", false
}

// IsRetryable reports whether err (or a wrapped cause) is marked retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable()
	}
	return false
}
