/*
summary.go - Aggregate finance reports

PURPOSE:
  Monthly roll-ups for one campus: headcount and receivable from the
  discount engine, refund totals from the refund ledger, payment totals
  from the billing ledger. Built by composing the other components, no
  policy of its own.
*/
package finance

import (
	"context"

	"github.com/shopspring/decimal"
)

// FinanceSummary is the per-campus monthly dashboard row.
type FinanceSummary struct {
	Campus string
	Period YearMonth

	TotalStudents     int
	DiscountStudents  int
	MonthlyReceivable decimal.Decimal // sum of actual recurring fees

	// Refunds for the period. Pending counts records still in flight,
	// awaiting approval or payout.
	RefundCount     int
	PendingRefunds  int
	RefundAmount    decimal.Decimal // all non-rejected records
	CompletedRefund decimal.Decimal

	// Confirmed payments whose period starts in this month.
	PaymentCount  int
	PaymentAmount decimal.Decimal
}

// Summary builds the monthly roll-up for one campus.
func (s *Service) Summary(ctx context.Context, campus string, period YearMonth) (*FinanceSummary, error) {
	out := &FinanceSummary{Campus: campus, Period: period}

	students, err := s.Store.StudentsByCampus(ctx, campus)
	if err != nil {
		return nil, err
	}
	out.TotalStudents = len(students)
	for i := range students {
		fees := s.StudentActualFees(&students[i])
		out.MonthlyReceivable = out.MonthlyReceivable.Add(fees.Total)
		if fees.HasDiscount {
			out.DiscountStudents++
		}
	}

	refunds, err := s.Store.Refunds(ctx, RefundFilter{Campus: campus, Period: &period})
	if err != nil {
		return nil, err
	}
	for i := range refunds {
		r := &refunds[i]
		out.RefundCount++
		switch r.Status {
		case RefundPending, RefundApproved:
			out.PendingRefunds++
			out.RefundAmount = out.RefundAmount.Add(r.TotalRefund)
		case RefundCompleted:
			out.RefundAmount = out.RefundAmount.Add(r.TotalRefund)
			out.CompletedRefund = out.CompletedRefund.Add(r.TotalRefund)
		}
	}

	payments, err := s.Store.Payments(ctx, PaymentFilter{
		Campus:       campus,
		PeriodPrefix: period.String(),
		Status:       PaymentConfirmed,
	})
	if err != nil {
		return nil, err
	}
	out.PaymentCount = len(payments)
	for i := range payments {
		out.PaymentAmount = out.PaymentAmount.Add(payments[i].ActualAmount)
	}

	return out, nil
}

// FeeTypeStats is one row of the per-fee-type payment breakdown.
// Amount sums actual (post-discount) money; Discount sums what was
// waived on the same payments.
type FeeTypeStats struct {
	FeeType  FeeType
	Count    int
	Amount   decimal.Decimal
	Discount decimal.Decimal
}

// PaymentStatsReport is the per-campus payment breakdown for a period
// prefix: campus-wide totals plus one FeeTypeStats row per fee type
// that saw confirmed payments, in the canonical fee order.
type PaymentStatsReport struct {
	Campus string
	Period string

	// Headcount: a student is paid when any confirmed payment of the
	// period names them.
	TotalStudents  int
	PaidStudents   int
	UnpaidStudents int

	TotalStandard decimal.Decimal
	TotalDiscount decimal.Decimal
	TotalActual   decimal.Decimal

	// DiscountedPayments counts payments carrying any discount.
	DiscountedPayments int

	ByFeeType []FeeTypeStats
}

// PaymentStats builds the payment breakdown from confirmed payments of
// one campus and period prefix.
func (s *Service) PaymentStats(ctx context.Context, campus, periodPrefix string) (*PaymentStatsReport, error) {
	payments, err := s.Store.Payments(ctx, PaymentFilter{
		Campus:       campus,
		PeriodPrefix: periodPrefix,
		Status:       PaymentConfirmed,
	})
	if err != nil {
		return nil, err
	}
	students, err := s.Store.StudentsByCampus(ctx, campus)
	if err != nil {
		return nil, err
	}

	report := &PaymentStatsReport{
		Campus:        campus,
		Period:        periodPrefix,
		TotalStudents: len(students),
	}

	paid := map[string]bool{}
	byType := map[FeeType]*FeeTypeStats{}
	for i := range payments {
		p := &payments[i]
		paid[p.StudentID] = true

		report.TotalStandard = report.TotalStandard.Add(p.StandardAmount)
		report.TotalDiscount = report.TotalDiscount.Add(p.DiscountAmount)
		report.TotalActual = report.TotalActual.Add(p.ActualAmount)
		if p.HasDiscount {
			report.DiscountedPayments++
		}

		row, ok := byType[p.FeeType]
		if !ok {
			row = &FeeTypeStats{FeeType: p.FeeType}
			byType[p.FeeType] = row
		}
		row.Count++
		row.Amount = row.Amount.Add(p.ActualAmount)
		row.Discount = row.Discount.Add(p.DiscountAmount)
	}

	report.PaidStudents = len(paid)
	report.UnpaidStudents = report.TotalStudents - report.PaidStudents

	for _, ft := range []FeeType{FeeTuition, FeeMeal, FeeAgency, FeeBedding} {
		if row, ok := byType[ft]; ok {
			report.ByFeeType = append(report.ByFeeType, *row)
		}
	}
	return report, nil
}
