package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrScheduleNotFound    = errors.New("schedule not found")
	ErrContractNotFound    = errors.New("contract not found")

	// ErrScheduleAlreadyMaterialized is returned when a second materialize
	// call loses the first-writer-wins race. Callers treat it as a no-op.
	ErrScheduleAlreadyMaterialized = errors.New("schedule already materialized")

	// ErrDuplicateProviderID is returned when a provider transaction id is
	// already bound to another transaction. It is the storage-level
	// idempotency backstop against double settlement.
	ErrDuplicateProviderID = errors.New("provider transaction id already in use")
)

// ValidationError rejects malformed input before any mutation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// ConflictError is returned when an operation races with the current state of
// a transaction or schedule, e.g. cancelling a completed transaction or
// double-linking a schedule. When the requested end state already holds the
// caller should treat it as an idempotent no-op instead.
type ConflictError struct {
	Op      string
	From    string
	To      string
	Subject string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: invalid transition %s -> %s for %s", e.Op, e.From, e.To, e.Subject)
}

// ConsistencyError means the balance/movement chain no longer adds up for an
// account. It is fatal for that account: further mutation is halted and an
// operator has to resolve it. It is never repaired automatically.
type ConsistencyError struct {
	FranchiseeID int32
	Balance      decimal.Decimal
	MovementSum  decimal.Decimal
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("ledger inconsistency for franchisee %d: balance %s, movement sum %s",
		e.FranchiseeID, e.Balance, e.MovementSum)
}

// SignatureError rejects a webhook whose signature could not be verified.
// Processing fails closed; no state is touched.
type SignatureError struct {
	Reason string
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("webhook signature rejected: %s", e.Reason)
}

// AccountBlockedError is returned for posting attempts against an account
// frozen by a failed consistency audit.
type AccountBlockedError struct {
	FranchiseeID int32
}

func (e *AccountBlockedError) Error() string {
	return fmt.Sprintf("account %d is blocked, postings refused", e.FranchiseeID)
}

// IsConflict reports whether err is a state conflict.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
