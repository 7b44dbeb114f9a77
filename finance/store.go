/*
store.go - Persistence interface between the engine and the database

PURPOSE:
  Defines the RecordStore collaborator the engine persists through. The
  engine never assumes a storage medium; it requires read-your-writes
  consistency within a single call chain and nothing more.

CONTRACTS:
  - AttendanceRecords are immutable inputs: the engine only reads them.
    SaveAttendance exists for the surrounding application (and tests).
  - RefundRecords are never deleted. SaveRefund upserts by ID; status
    changes flow exclusively through the workflow methods.
  - FeePayments are append-mostly: cancellation is a status change.
  - Mutation is last-writer-wins; callers needing multi-user safety add
    optimistic concurrency at the store boundary, not in the engine.

IMPLEMENTATIONS:
  - finance/store: in-memory store for tests and development
  - store/sqlite: production SQLite store

SEE ALSO:
  - service.go: the engine that consumes this interface
*/
package finance

import "context"

// =============================================================================
// FILTERS
// =============================================================================

// RefundFilter narrows a refund record query. Zero fields match all.
type RefundFilter struct {
	StudentID string
	Campus    string
	Period    *YearMonth
	Status    RefundStatus
}

// Matches reports whether the record passes the filter. Store
// implementations share this so filter semantics never diverge.
func (f RefundFilter) Matches(r *RefundRecord) bool {
	if f.StudentID != "" && r.StudentID != f.StudentID {
		return false
	}
	if f.Campus != "" && r.Campus != f.Campus {
		return false
	}
	if f.Period != nil && !r.Period.Equal(*f.Period) {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	return true
}

// PaymentFilter narrows a payment query. PeriodPrefix matches the stored
// period string by prefix so "2026-01" finds both single-month and range
// payments starting there.
type PaymentFilter struct {
	StudentID    string
	Campus       string
	PeriodPrefix string
	FeeType      FeeType
	Status       PaymentStatus
	HasDiscount  *bool
}

func (f PaymentFilter) Matches(p *FeePayment) bool {
	if f.StudentID != "" && p.StudentID != f.StudentID {
		return false
	}
	if f.Campus != "" && p.Campus != f.Campus {
		return false
	}
	if f.PeriodPrefix != "" && !hasPrefix(p.Period, f.PeriodPrefix) {
		return false
	}
	if f.FeeType != "" && p.FeeType != f.FeeType {
		return false
	}
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	if f.HasDiscount != nil && p.HasDiscount != *f.HasDiscount {
		return false
	}
	return true
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// QRPaymentFilter narrows a QR payment proof query.
type QRPaymentFilter struct {
	StudentID string
	PaymentID string
	Status    QRPaymentStatus
}

func (f QRPaymentFilter) Matches(r *QRPaymentRecord) bool {
	if f.StudentID != "" && r.StudentID != f.StudentID {
		return false
	}
	if f.PaymentID != "" && r.PaymentID != f.PaymentID {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	return true
}

// =============================================================================
// RECORD STORE
// =============================================================================

// RecordStore is the persistence collaborator injected into the engine.
type RecordStore interface {
	// Students.
	Student(ctx context.Context, id string) (*Student, error)
	StudentsByCampus(ctx context.Context, campus string) ([]Student, error)
	SaveStudent(ctx context.Context, s Student) error

	// Attendance. The engine reads; only the application writes.
	AttendanceOn(ctx context.Context, studentID, date string) (*AttendanceRecord, error)
	SaveAttendance(ctx context.Context, rec AttendanceRecord) error

	// Refund records. Never deleted.
	RefundByID(ctx context.Context, id string) (*RefundRecord, error)
	RefundForPeriod(ctx context.Context, studentID string, period YearMonth) (*RefundRecord, error)
	Refunds(ctx context.Context, f RefundFilter) ([]RefundRecord, error)
	SaveRefund(ctx context.Context, rec RefundRecord) error

	// Payments. Append-mostly ledger.
	PaymentByID(ctx context.Context, id string) (*FeePayment, error)
	Payments(ctx context.Context, f PaymentFilter) ([]FeePayment, error)
	SavePayment(ctx context.Context, p FeePayment) error

	// QR payment proofs.
	QRPaymentByID(ctx context.Context, id string) (*QRPaymentRecord, error)
	QRPayments(ctx context.Context, f QRPaymentFilter) ([]QRPaymentRecord, error)
	SaveQRPayment(ctx context.Context, rec QRPaymentRecord) error

	// Rule/config rows, kept for display and audit.
	FeeConfigs(ctx context.Context, campus string) ([]FeeConfig, error)
	SaveFeeConfig(ctx context.Context, cfg FeeConfig) error
	RefundRules(ctx context.Context, campus string) ([]RefundRuleConfig, error)
	SaveRefundRule(ctx context.Context, rule RefundRuleConfig) error
}
