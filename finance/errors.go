/*
errors.go - Centralized error types for the finance engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Expected edge cases (unknown campus, zero-workday months, stale
  workflow transitions) are handled locally and surfaced as typed
  failures, never as panics.

ERROR CATEGORIES:
  1. Lookup errors    - unknown campus/student/record
  2. Policy guards    - zero-workday months, duplicate refunds
  3. Workflow errors  - transitions out of a state that forbids them

USAGE:
  Callers match with errors.Is:

    if errors.Is(err, finance.ErrInvalidTransition) {
        // refund already processed
    }
*/
package finance

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrCampusNotFound is returned by the standards resolver when neither
	// an exact nor an alias match exists. Most callers should use
	// ResolveOrDefault instead, which applies the documented fallback.
	ErrCampusNotFound = errors.New("campus fee standard not found")

	// ErrStudentNotFound is returned when a referenced student doesn't exist.
	ErrStudentNotFound = errors.New("student not found")

	// ErrRefundNotFound is returned when a referenced refund record
	// doesn't exist.
	ErrRefundNotFound = errors.New("refund record not found")

	// ErrPaymentNotFound is returned when a referenced payment doesn't exist.
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrInvalidTransition is returned when a workflow method is invoked
	// from a state that does not permit it. Terminal states reject every
	// transition; there is no silent no-op.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrZeroWorkdayMonth signals a month with no eligible working days;
	// per-day rates are undefined and the refund computation short-circuits
	// to "no refund" rather than dividing by zero.
	ErrZeroWorkdayMonth = errors.New("month has no working days")

	// ErrDuplicateRefund is returned when a refund record already exists
	// for a (student, period) pair. Batch calculation treats this as a
	// recorded no-op and continues.
	ErrDuplicateRefund = errors.New("refund already exists for period")

	// ErrInvalidPeriod is returned for malformed year-month input.
	ErrInvalidPeriod = errors.New("invalid period")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidTransitionError reports the exact state that refused the move.
type InvalidTransitionError struct {
	RecordID string
	From     RefundStatus
	To       RefundStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("refund %s: cannot move %s -> %s", e.RecordID, e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// PaymentTransitionError is the payment-side equivalent.
type PaymentTransitionError struct {
	PaymentID string
	From      PaymentStatus
	To        PaymentStatus
}

func (e *PaymentTransitionError) Error() string {
	return fmt.Sprintf("payment %s: cannot move %s -> %s", e.PaymentID, e.From, e.To)
}

func (e *PaymentTransitionError) Unwrap() error { return ErrInvalidTransition }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound reports whether the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCampusNotFound) ||
		errors.Is(err, ErrStudentNotFound) ||
		errors.Is(err, ErrRefundNotFound) ||
		errors.Is(err, ErrPaymentNotFound)
}

// IsClientError reports whether the error is due to invalid caller input
// or a request the current state forbids, as opposed to a storage fault.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrDuplicateRefund) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrZeroWorkdayMonth)
}
