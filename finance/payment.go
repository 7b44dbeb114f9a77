/*
payment.go - The billing ledger

PURPOSE:
  Creates and queries fee payment records. A payment covers one fee
  type for one billing cycle; recurring fees scale by the cycle factor
  (daily days/22, half-month 0.5, monthly 1, semester 6, yearly 12),
  one-time items ignore the cycle. On top of the per-cycle amount sits
  an independent payment-time discount (percentage, fixed, or a custom
  total override) whose percentage base is selected by DiscountTarget.

  The ledger is append-mostly: creating a payment never merges with or
  cancels prior payments for the same period. Overdue detection works
  from the set of confirmed tuition payments' paid-through months, not
  from creation-time checks.

KEY FUNCTIONS:
  - CreatePayment / ConfirmPayment / CancelPayment
  - StudentPaymentStatus / StudentsNeedingPayment: paid-through queries
  - StudentPaymentHistory / Payments: listing and confirmed totals

SEE ALSO:
  - discount.go: the student-level discount path, applied first
  - qr.go: QR proof records that confirm pending payments
*/
package finance

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentOptions carries the optional knobs for CreatePayment. The zero
// value creates a confirmed, undiscounted, cash payment starting this
// month.
type PaymentOptions struct {
	// Start of the covered range. Defaults to the current month.
	StartMonth *YearMonth

	// Payment-time discount, independent of the student-level discount.
	DiscountType   DiscountType
	DiscountValue  decimal.Decimal
	DiscountTarget DiscountTarget
	DiscountReason string

	// CustomAmount overrides the computed actual amount outright
	// (expressed as a discount so actual = standard - discount holds).
	CustomAmount *decimal.Decimal

	// Pending creates the record awaiting confirmation, used by the QR
	// payment flow. Default is confirmed on creation.
	Pending bool

	PaymentDate   string // YYYY-MM-DD, defaults to today
	Method        PaymentMethod
	ReceiptNumber string
	Operator      string
	ApprovedBy    string
	Notes         string
}

// paymentDiscount computes the payment-time discount amount against the
// per-cycle standard amount. Clamped so 0 <= discount <= standard.
func paymentDiscount(standard decimal.Decimal, feeType FeeType, opts PaymentOptions) decimal.Decimal {
	var d decimal.Decimal

	switch {
	case opts.CustomAmount != nil:
		d = standard.Sub(*opts.CustomAmount)
	case opts.DiscountType == DiscountPercentage:
		// A tuition-targeted percentage has no base on other fee types.
		if opts.DiscountTarget == TargetTuition && feeType != FeeTuition {
			return decimal.Zero
		}
		// Percentage discounts round to the whole yuan, matching the
		// student-level discount path.
		d = standard.Mul(opts.DiscountValue.Div(decimalHundred)).Round(0)
	case opts.DiscountType == DiscountFixed:
		d = opts.DiscountValue
	default:
		return decimal.Zero
	}

	if d.IsNegative() {
		return decimal.Zero
	}
	if d.GreaterThan(standard) {
		return standard
	}
	return d
}

// CreatePayment records one billing transaction for a student.
func (s *Service) CreatePayment(ctx context.Context, studentID string, feeType FeeType, cycle PaymentCycle, opts PaymentOptions) (*FeePayment, error) {
	student, err := s.Store.Student(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if student == nil {
		return nil, ErrStudentNotFound
	}

	fees := s.StudentActualFees(student)
	var base decimal.Decimal
	switch feeType {
	case FeeTuition:
		base = fees.Tuition
	case FeeMeal:
		base = fees.Meal
	case FeeAgency:
		base = fees.Agency
	case FeeBedding:
		base = fees.Bedding
	default:
		return nil, fmt.Errorf("unknown fee type %q", feeType)
	}

	standard := base
	if feeType.Recurring() {
		standard = base.Mul(cycle.Factor()).Round(2)
	}

	discount := paymentDiscount(standard, feeType, opts)
	actual := standard.Sub(discount)

	now := s.Clock.Now()
	start := YearMonthOf(now)
	if opts.StartMonth != nil {
		start = *opts.StartMonth
	}

	p := &FeePayment{
		ID:          "payment_" + uuid.NewString(),
		StudentID:   student.ID,
		StudentName: student.Name,
		Class:       student.Class,
		Campus:      student.Campus,

		Cycle:      cycle,
		StartMonth: start,

		FeeType: feeType,
		FeeName: feeType.DisplayName(),

		StandardAmount: standard,
		DiscountAmount: discount,
		ActualAmount:   actual,

		HasDiscount:    discount.IsPositive(),
		DiscountType:   opts.DiscountType,
		DiscountValue:  opts.DiscountValue,
		DiscountTarget: opts.DiscountTarget,
		DiscountReason: opts.DiscountReason,

		PaymentDate:   opts.PaymentDate,
		Method:        opts.Method,
		ReceiptNumber: opts.ReceiptNumber,

		Operator:   opts.Operator,
		ApprovedBy: opts.ApprovedBy,
		Notes:      opts.Notes,

		Status:    PaymentConfirmed,
		CreatedAt: now,
		UpdatedAt: now,
	}

	p.Period = start.String()
	if months := cycle.Months(); months > 1 {
		p.Period = start.String() + "~" + p.PaidThrough().String()
	}
	if p.PaymentDate == "" {
		p.PaymentDate = DateOf(now).Format("2006-01-02")
	}
	if p.Method == "" {
		p.Method = MethodCash
	}
	if opts.Pending {
		p.Status = PaymentPending
	}

	if err := s.Store.SavePayment(ctx, *p); err != nil {
		return nil, err
	}
	return p, nil
}

// ConfirmPayment moves a pending payment to confirmed.
func (s *Service) ConfirmPayment(ctx context.Context, id string) (*FeePayment, error) {
	p, err := s.Store.PaymentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrPaymentNotFound
	}
	if p.Status != PaymentPending {
		return nil, &PaymentTransitionError{PaymentID: id, From: p.Status, To: PaymentConfirmed}
	}

	p.Status = PaymentConfirmed
	p.UpdatedAt = s.Clock.Now()
	if err := s.Store.SavePayment(ctx, *p); err != nil {
		return nil, err
	}
	return p, nil
}

// CancelPayment voids a pending or confirmed payment. The record stays
// in the ledger with the cancellation reason appended to its notes.
func (s *Service) CancelPayment(ctx context.Context, id, reason string) (*FeePayment, error) {
	p, err := s.Store.PaymentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrPaymentNotFound
	}
	if p.Status == PaymentCancelled {
		return nil, &PaymentTransitionError{PaymentID: id, From: p.Status, To: PaymentCancelled}
	}

	p.Status = PaymentCancelled
	p.UpdatedAt = s.Clock.Now()
	if reason != "" {
		note := "[取消原因] " + reason
		if p.Notes != "" {
			note = p.Notes + "；" + note
		}
		p.Notes = note
	}
	if err := s.Store.SavePayment(ctx, *p); err != nil {
		return nil, err
	}
	return p, nil
}

// Payments lists ledger entries matching the filter.
func (s *Service) Payments(ctx context.Context, f PaymentFilter) ([]FeePayment, error) {
	return s.Store.Payments(ctx, f)
}

// PaymentHistory is one student's full ledger plus totals. The list
// keeps cancelled entries for audit; the aggregates cover confirmed
// payments only.
type PaymentHistory struct {
	Payments []FeePayment

	TotalPaid     decimal.Decimal
	TotalDiscount decimal.Decimal

	// LastPaymentDate is the most recent confirmed payment date
	// (YYYY-MM-DD), empty when nothing is confirmed.
	LastPaymentDate string
}

// StudentPaymentHistory lists every ledger entry for a student,
// cancelled ones included, with totals derived from the confirmed
// entries.
func (s *Service) StudentPaymentHistory(ctx context.Context, studentID string) (*PaymentHistory, error) {
	payments, err := s.Store.Payments(ctx, PaymentFilter{StudentID: studentID})
	if err != nil {
		return nil, err
	}

	h := &PaymentHistory{Payments: payments}
	for i := range payments {
		p := &payments[i]
		if p.Status != PaymentConfirmed {
			continue
		}
		h.TotalPaid = h.TotalPaid.Add(p.ActualAmount)
		h.TotalDiscount = h.TotalDiscount.Add(p.DiscountAmount)
		if p.PaymentDate > h.LastPaymentDate {
			h.LastPaymentDate = p.PaymentDate
		}
	}
	return h, nil
}

// PaymentStatusInfo is the paid-through summary for one student.
type PaymentStatusInfo struct {
	StudentID   string
	StudentName string
	Class       string

	// PaidThrough is the latest month covered by a confirmed tuition
	// payment; nil when no confirmed tuition payment exists.
	PaidThrough *YearMonth

	// Overdue is true when PaidThrough is before the current month.
	Overdue bool

	// OverdueMonths counts months owed up to and including the current
	// month. Zero when not overdue.
	OverdueMonths int
}

// StudentPaymentStatus derives the paid-through month from the set of
// confirmed tuition payments. Cancelled and pending payments do not
// extend coverage.
func (s *Service) StudentPaymentStatus(ctx context.Context, studentID string) (*PaymentStatusInfo, error) {
	student, err := s.Store.Student(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if student == nil {
		return nil, ErrStudentNotFound
	}

	payments, err := s.Store.Payments(ctx, PaymentFilter{
		StudentID: studentID,
		FeeType:   FeeTuition,
		Status:    PaymentConfirmed,
	})
	if err != nil {
		return nil, err
	}

	info := &PaymentStatusInfo{
		StudentID:   student.ID,
		StudentName: student.Name,
		Class:       student.Class,
	}
	for i := range payments {
		through := payments[i].PaidThrough()
		if info.PaidThrough == nil || info.PaidThrough.Before(through) {
			info.PaidThrough = &through
		}
	}

	current := YearMonthOf(s.Clock.Now())
	switch {
	case info.PaidThrough == nil:
		info.Overdue = true
		info.OverdueMonths = 1
	case info.PaidThrough.Before(current):
		info.Overdue = true
		info.OverdueMonths = info.PaidThrough.MonthsUntil(current)
	}
	return info, nil
}

// StudentsNeedingPayment returns payment status for every student of a
// campus whose coverage does not reach the current month.
func (s *Service) StudentsNeedingPayment(ctx context.Context, campus string) ([]PaymentStatusInfo, error) {
	students, err := s.Store.StudentsByCampus(ctx, campus)
	if err != nil {
		return nil, err
	}

	var out []PaymentStatusInfo
	for i := range students {
		info, err := s.StudentPaymentStatus(ctx, students[i].ID)
		if err != nil {
			return nil, err
		}
		if info.Overdue {
			out = append(out, *info)
		}
	}
	return out, nil
}
