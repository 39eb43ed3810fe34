package services

import "fmt"

// ErrorKind classifies ledger failures so the HTTP layer can map them to
// status codes without parsing message text.
type ErrorKind string

const (
	KindValidation           ErrorKind = "validation_error"
	KindNotFound             ErrorKind = "not_found"
	KindInsufficientFunds    ErrorKind = "insufficient_funds"
	KindTransient            ErrorKind = "transient_error"
	KindConsistencyViolation ErrorKind = "consistency_violation"
)

// LedgerError carries a machine-readable kind plus a human-readable message.
// The underlying cause (raw driver error) is kept for logging only and never
// serialized to clients.
type LedgerError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *LedgerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *LedgerError) Unwrap() error { return e.Cause }

func validationError(format string, args ...interface{}) *LedgerError {
	return &LedgerError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func notFoundError(format string, args ...interface{}) *LedgerError {
	return &LedgerError{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func insufficientFundsError(format string, args ...interface{}) *LedgerError {
	return &LedgerError{Kind: KindInsufficientFunds, Message: fmt.Sprintf(format, args...)}
}

func transientError(msg string, cause error) *LedgerError {
	return &LedgerError{Kind: KindTransient, Message: msg, Cause: cause}
}

func consistencyViolation(msg string) *LedgerError {
	return &LedgerError{Kind: KindConsistencyViolation, Message: msg}
}
