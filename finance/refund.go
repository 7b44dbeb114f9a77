/*
refund.go - The refund calculator

PURPOSE:
  The numeric heart of the engine: turns (actual fees, monthly
  attendance) into tuition and meal refund amounts plus the narrative
  reason string that appears on the refund record. The policy is fixed:

  TUITION: a student present more than half the month's working days
  gets no tuition refund. Otherwise, absent (for any reason) at least
  half the month refunds the full tuition; below that, only sick and
  personal leave days refund, prorated at tuition/totalWorkDays.

  MEAL: independent of the tuition branch. Three or more absent days
  (any reason) refund totalAbsent * (meal/totalWorkDays), capped at the
  full monthly meal fee. Below three days, nothing.

  All persisted amounts are rounded to 2 decimal places; the record
  total is the sum of the rounded parts.

KEY FUNCTIONS:
  - CalculateRefund: full computation, returns a pending RefundRecord
    (nil when nothing is refundable); does not persist
  - PreviewRefund: numerically identical what-if, no record identity
  - CalculateClassRefunds: batch over students, idempotent per
    (student, period), persists as it goes
  - SaveRefundRecord / RefundRecords: persistence and listing

SEE ALSO:
  - workflow.go: what happens to the record after calculation
*/
package finance

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MealRefundMinAbsentDays is the fixed absence threshold for meal
// refunds. It is a constant, not derived from the half-month threshold.
const MealRefundMinAbsentDays = 3

// autoCalculatedBy marks records produced by the calculator rather than
// entered by staff.
const autoCalculatedBy = "系统自动"

// defaultRefundReason is used when no policy clause fired but an amount
// was still produced (custom scopes can get here).
const defaultRefundReason = "月度考勤自动结算"

// refundOutcome is the scope-filtered result of the policy computation.
type refundOutcome struct {
	Tuition decimal.Decimal // rounded, 2dp
	Meal    decimal.Decimal // rounded, 2dp
	Reason  string
}

func (o refundOutcome) Total() decimal.Decimal { return o.Tuition.Add(o.Meal) }

// applyRefundPolicy runs the fixed policy over one month's numbers.
// Caller guarantees stats.TotalWorkDays > 0.
func applyRefundPolicy(fees ActualFees, stats MonthlyAttendanceStats, scope RefundScope) refundOutcome {
	scope = scope.OrDefault()
	workDays := decimal.NewFromInt(int64(stats.TotalWorkDays))
	halfMonth := stats.HalfMonthDays()
	totalAbsent := stats.TotalAbsent()

	var out refundOutcome
	var reasons []string

	if scope != ScopeMeal && stats.PresentDays <= halfMonth {
		reasons = append(reasons, fmt.Sprintf("出勤%d天（未超半月%d天）", stats.PresentDays, halfMonth))
		if totalAbsent >= halfMonth {
			out.Tuition = fees.Tuition
		} else {
			leaveDays := decimal.NewFromInt(int64(stats.SickLeaveDays + stats.PersonalLeaveDays))
			out.Tuition = fees.Tuition.Div(workDays).Mul(leaveDays)
		}
	}

	if scope != ScopeTuition && totalAbsent >= MealRefundMinAbsentDays {
		meal := fees.Meal.Div(workDays).Mul(decimal.NewFromInt(int64(totalAbsent)))
		if meal.GreaterThan(fees.Meal) {
			meal = fees.Meal
		}
		out.Meal = meal
		reasons = append(reasons, fmt.Sprintf("缺勤%d天（≥%d天可退伙食费）", totalAbsent, MealRefundMinAbsentDays))
	}

	// The leave clauses are narrative, not branch-bound: they appear
	// whenever the counts are non-zero, after the threshold clauses.
	if stats.SickLeaveDays > 0 {
		reasons = append(reasons, fmt.Sprintf("病假%d天", stats.SickLeaveDays))
	}
	if stats.PersonalLeaveDays > 0 {
		reasons = append(reasons, fmt.Sprintf("事假%d天", stats.PersonalLeaveDays))
	}

	// Clamp, then round. The record total is the sum of the rounded
	// parts so the persisted invariant holds exactly.
	if out.Tuition.IsNegative() {
		out.Tuition = decimal.Zero
	}
	if out.Meal.IsNegative() {
		out.Meal = decimal.Zero
	}
	out.Tuition = out.Tuition.Round(2)
	out.Meal = out.Meal.Round(2)

	if len(reasons) > 0 {
		out.Reason = strings.Join(reasons, "；")
	} else {
		out.Reason = defaultRefundReason
	}
	return out
}

// RefundID is the deterministic record identity for a (student, period)
// pair; it is what makes batch calculation idempotent.
func RefundID(studentID string, period YearMonth) string {
	return fmt.Sprintf("refund_%s_%s", studentID, period)
}

// CalculateRefund computes the refund record for one student-month.
// Returns (nil, nil) when nothing is refundable: a zero refund is never
// materialized. Returns ErrZeroWorkdayMonth when the month has no
// eligible working days. The record is NOT persisted; callers go
// through SaveRefundRecord or the batch path.
func (s *Service) CalculateRefund(ctx context.Context, studentID string, period YearMonth, scope RefundScope) (*RefundRecord, error) {
	student, err := s.Store.Student(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if student == nil {
		return nil, ErrStudentNotFound
	}

	fees := s.StudentActualFees(student)
	stats, err := s.MonthlyStats(ctx, studentID, period)
	if err != nil {
		return nil, err
	}
	if stats.TotalWorkDays == 0 {
		return nil, ErrZeroWorkdayMonth
	}

	out := applyRefundPolicy(fees, stats, scope)
	if !out.Total().IsPositive() {
		return nil, nil
	}

	return &RefundRecord{
		ID:          RefundID(studentID, period),
		StudentID:   student.ID,
		StudentName: student.Name,
		Class:       student.Class,
		Campus:      student.Campus,
		Period:      period,
		Scope:       scope.OrDefault(),

		OriginalAmount:    fees.Total,
		TotalWorkDays:     stats.TotalWorkDays,
		PresentDays:       stats.PresentDays,
		AbsentDays:        stats.AbsentDays,
		SickLeaveDays:     stats.SickLeaveDays,
		PersonalLeaveDays: stats.PersonalLeaveDays,

		TuitionRefund: out.Tuition,
		MealRefund:    out.Meal,
		TotalRefund:   out.Total(),

		Status:       RefundPending,
		CalculatedBy: autoCalculatedBy,
		CalculatedAt: s.Clock.Now(),

		Reason:              out.Reason,
		AttendanceRecordIDs: stats.AttendanceRecordIDs,
	}, nil
}

// RefundPreview is the what-if result shown before a record exists.
type RefundPreview struct {
	TuitionRefund decimal.Decimal
	MealRefund    decimal.Decimal
	TotalRefund   decimal.Decimal
	Reason        string
	Fees          ActualFees
	Stats         MonthlyAttendanceStats
}

// PreviewRefund runs the identical computation as CalculateRefund with
// no record identity and no persistence. A month with nothing
// refundable previews as all-zero rather than nil.
func (s *Service) PreviewRefund(ctx context.Context, studentID string, period YearMonth, scope RefundScope) (*RefundPreview, error) {
	student, err := s.Store.Student(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if student == nil {
		return nil, ErrStudentNotFound
	}

	fees := s.StudentActualFees(student)
	stats, err := s.MonthlyStats(ctx, studentID, period)
	if err != nil {
		return nil, err
	}
	if stats.TotalWorkDays == 0 {
		return nil, ErrZeroWorkdayMonth
	}

	out := applyRefundPolicy(fees, stats, scope)
	return &RefundPreview{
		TuitionRefund: out.Tuition,
		MealRefund:    out.Meal,
		TotalRefund:   out.Total(),
		Reason:        out.Reason,
		Fees:          fees,
		Stats:         stats,
	}, nil
}

// SaveRefundRecord persists a calculated record, refusing a second
// record for the same (student, period).
func (s *Service) SaveRefundRecord(ctx context.Context, rec *RefundRecord) error {
	if rec.ID == "" {
		rec.ID = RefundID(rec.StudentID, rec.Period)
	}
	existing, err := s.Store.RefundForPeriod(ctx, rec.StudentID, rec.Period)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != rec.ID {
		return ErrDuplicateRefund
	}
	return s.Store.SaveRefund(ctx, *rec)
}

// CalculateClassRefunds runs one-month calculation over a student list,
// persisting records in input order. Idempotent per (student, period):
// an existing record is a logged skip, never a duplicate or a failure
// of the whole batch. Students with nothing refundable are skipped.
func (s *Service) CalculateClassRefunds(ctx context.Context, studentIDs []string, period YearMonth, scope RefundScope) ([]RefundRecord, error) {
	var created []RefundRecord
	for _, id := range studentIDs {
		existing, err := s.Store.RefundForPeriod(ctx, id, period)
		if err != nil {
			return created, err
		}
		if existing != nil {
			s.Log.Info("refund already calculated, skipping",
				zap.String("student_id", id),
				zap.String("period", period.String()),
				zap.String("refund_id", existing.ID))
			continue
		}

		rec, err := s.CalculateRefund(ctx, id, period, scope)
		if err != nil {
			if errors.Is(err, ErrZeroWorkdayMonth) {
				return created, err
			}
			s.Log.Warn("refund calculation failed, continuing batch",
				zap.String("student_id", id),
				zap.String("period", period.String()),
				zap.Error(err))
			continue
		}
		if rec == nil {
			continue
		}
		if err := s.Store.SaveRefund(ctx, *rec); err != nil {
			return created, err
		}
		created = append(created, *rec)
	}
	return created, nil
}

// CalculateCampusRefunds is CalculateClassRefunds over every student of
// a campus, in store order.
func (s *Service) CalculateCampusRefunds(ctx context.Context, campus string, period YearMonth, scope RefundScope) ([]RefundRecord, error) {
	students, err := s.Store.StudentsByCampus(ctx, campus)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(students))
	for i, st := range students {
		ids[i] = st.ID
	}
	return s.CalculateClassRefunds(ctx, ids, period, scope)
}

// RefundRecords lists refund records matching the filter.
func (s *Service) RefundRecords(ctx context.Context, f RefundFilter) ([]RefundRecord, error) {
	return s.Store.Refunds(ctx, f)
}
