package shared

import (
	"errors"
	"fmt"
)

// ErrorKind identifies a billing failure class. Kinds are part of the API
// surface: handlers translate them to status codes and clients branch on
// them, so they are stable codes rather than free-form strings.
type ErrorKind string

const (
	KindStockNotFound       ErrorKind = "STOCK_NOT_FOUND"
	KindInsufficientStock   ErrorKind = "INSUFFICIENT_STOCK"
	KindExpiredStock        ErrorKind = "EXPIRED_STOCK"
	KindCustomerRequired    ErrorKind = "CUSTOMER_REQUIRED_FOR_CREDIT"
	KindCreditLimitExceeded ErrorKind = "CREDIT_LIMIT_EXCEEDED"
	KindPatientInfoRequired ErrorKind = "PATIENT_INFO_REQUIRED"
	KindSequenceCorrupted   ErrorKind = "SEQUENCE_CORRUPTED"
	KindAlreadyCancelled    ErrorKind = "ALREADY_CANCELLED"
	KindDuplicateSubmission ErrorKind = "DUPLICATE_SUBMISSION"
	KindPersistenceFailure  ErrorKind = "PERSISTENCE_FAILURE"
	KindNotFound            ErrorKind = "NOT_FOUND"
	KindValidation          ErrorKind = "VALIDATION_FAILED"
)

// Error carries a kind plus enough structured detail for the caller to
// render a precise message (exact shortfall, limit vs. would-be balance).
type Error struct {
	Kind    ErrorKind
	Message string
	Meta    map[string]any
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewError builds a domain error without extra detail.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// NewErrorf builds a domain error with a formatted message.
func NewErrorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithMeta attaches structured detail to the error.
func (e *Error) WithMeta(meta map[string]any) *Error {
	e.Meta = meta
	return e
}

// KindOf extracts the ErrorKind from err, or empty when err is not a
// domain error.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
