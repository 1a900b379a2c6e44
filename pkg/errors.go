package zledger

import (
	"fmt"
)

type ErrorCode string

const (
	// Validation failures: malformed input, rejected with no state change.
	BadRequest   ErrorCode = "bad-request"
	BadSolution  ErrorCode = "bad-solution"
	AmountError  ErrorCode = "bad-amount"
	UnknownInput ErrorCode = "unknown-input"

	// Consensus violations: accepting these would corrupt the ledger's
	// invariants for every other validator. Rejected, no state change.
	AlreadySpent           ErrorCode = "already-spent"
	BadUnlockingScript     ErrorCode = "bad-unlocking-script"
	AmountMismatch         ErrorCode = "amount-mismatch"
	DoubleSpend            ErrorCode = "double-spend"
	InvalidProof           ErrorCode = "invalid-proof"
	InsufficientDifficulty ErrorCode = "insufficient-difficulty"

	// Infrastructure.
	NotFound     ErrorCode = "not-found"
	NotAvailable ErrorCode = "not-available"
	DBConflict   ErrorCode = "db-conflict"
	UnknownError ErrorCode = "unknown-error"
)

type ErrorInfo struct {
	Code    ErrorCode // machine-readable ErrorCode enumeration
	Message string    // human-readable debug message (logged server-side in production)
}

func (e *ErrorInfo) Error() string {
	return string(e.Message)
}

func NewErr(code ErrorCode, format string, args ...any) error {
	return &ErrorInfo{Code: code, Message: fmt.Sprintf(format, args...)}
}

func IsError(err error, ofType ErrorCode) bool {
	if e, ok := err.(*ErrorInfo); ok {
		return e.Code == ofType
	}
	return false
}

func CodeOf(err error) ErrorCode {
	if e, ok := err.(*ErrorInfo); ok {
		return e.Code
	}
	return UnknownError
}

func IsNotFoundError(err error) bool {
	return IsError(err, NotFound)
}

func IsAlreadySpentError(err error) bool {
	return IsError(err, AlreadySpent)
}

func IsDoubleSpendError(err error) bool {
	return IsError(err, DoubleSpend)
}

func IsDBConflictError(err error) bool {
	return IsError(err, DBConflict)
}

// IsValidationError reports a malformed-input rejection: safe to
// surface to the submitter, no state was changed.
func IsValidationError(err error) bool {
	switch CodeOf(err) {
	case BadRequest, BadSolution, AmountError, UnknownInput:
		return true
	}
	return false
}

// IsConsensusViolation reports a rejection every honest validator must
// reproduce from the same state and input.
func IsConsensusViolation(err error) bool {
	switch CodeOf(err) {
	case AlreadySpent, BadUnlockingScript, AmountMismatch, DoubleSpend,
		InvalidProof, InsufficientDifficulty:
		return true
	}
	return false
}

// IsTransientError reports a collaborator or storage failure: the
// operation may succeed on retry and no decision about the input's
// validity has been made.
func IsTransientError(err error) bool {
	switch CodeOf(err) {
	case NotAvailable, DBConflict:
		return true
	}
	return false
}
