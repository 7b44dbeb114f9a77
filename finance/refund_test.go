package finance_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinxing-edu/finance-engine/finance"
	"github.com/jinxing-edu/finance-engine/finance/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================
// Shared by the other _test.go files in this package.

// testNow pins "today" to 2025-10-15, so September 2025 (which has
// exactly 22 working days, starting on a Monday) is fully in the past.
var testNow = time.Date(2025, time.October, 15, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, opts ...finance.Option) (*finance.Service, *store.Memory) {
	t.Helper()
	return newTestServiceAt(t, testNow, opts...)
}

func newTestServiceAt(t *testing.T, at time.Time, opts ...finance.Option) (*finance.Service, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	all := append([]finance.Option{finance.WithClock(finance.FixedClock{At: at})}, opts...)
	return finance.NewService(mem, all...), mem
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertAmount(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, got.Equal(amount(want)), "want %s, got %s %v", want, got, msgAndArgs)
}

func sept2025() finance.YearMonth {
	return finance.YearMonth{Year: 2025, Month: time.September}
}

func seedStudent(t *testing.T, mem *store.Memory, id, name, campus string, tier finance.ClassTier, d *finance.FeeDiscount) {
	t.Helper()
	err := mem.SaveStudent(context.Background(), finance.Student{
		ID:         id,
		Name:       name,
		Class:      "中一班",
		Campus:     campus,
		ClassTier:  tier,
		EnrollDate: "2025-09-01",
		Discount:   d,
	})
	require.NoError(t, err)
}

// fillAttendance writes one attendance record per working day of the
// month. plan maps the 1-based working-day index to a status; a "" from
// the plan leaves that day without a record.
func fillAttendance(t *testing.T, mem *store.Memory, studentID string, period finance.YearMonth, plan func(workday int) finance.AttendanceStatus) {
	t.Helper()
	ctx := context.Background()
	workday := 0
	for day := 1; day <= period.DaysInMonth(); day++ {
		if finance.IsWeekend(period.Date(day)) {
			continue
		}
		workday++
		status := plan(workday)
		if status == "" {
			continue
		}
		err := mem.SaveAttendance(ctx, finance.AttendanceRecord{
			ID:         fmt.Sprintf("att_%s_%s", studentID, period.DayString(day)),
			StudentID:  studentID,
			Date:       period.DayString(day),
			Status:     status,
			RecordedBy: "test",
			RecordedAt: testNow,
		})
		require.NoError(t, err)
	}
}

func allDays(status finance.AttendanceStatus) func(int) finance.AttendanceStatus {
	return func(int) finance.AttendanceStatus { return status }
}

// scenarioStandards is a one-campus table with round numbers so the
// policy arithmetic is easy to follow by hand.
func scenarioStandards() *finance.StandardsResolver {
	return finance.NewStandardsResolverWith([]finance.CampusFeeStandard{{
		CampusID:   "no17",
		CampusName: "十七幼",
		Standard:   finance.TierFees{Tuition: amount("2680"), Meal: amount("680")},
	}})
}

// =============================================================================
// REFUND POLICY TESTS
// =============================================================================

func TestCalculateRefund_LongSickLeave_FullTuitionPlusProratedMeal(t *testing.T) {
	// GIVEN: Fees 2680/680, 22 working days, present 8, sick 14
	// WHEN: Calculating the September refund
	// THEN: Full tuition (absent >= half month) plus 14/22 of the meal fee

	svc, mem := newTestService(t, finance.WithStandards(scenarioStandards()))
	ctx := context.Background()

	seedStudent(t, mem, "stu-1", "王小明", "十七幼", finance.TierStandard, nil)
	fillAttendance(t, mem, "stu-1", sept2025(), func(wd int) finance.AttendanceStatus {
		if wd <= 8 {
			return finance.StatusPresent
		}
		return finance.StatusSickLeave
	})

	rec, err := svc.CalculateRefund(ctx, "stu-1", sept2025(), finance.ScopeBoth)
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, 22, rec.TotalWorkDays)
	assert.Equal(t, 8, rec.PresentDays)
	assert.Equal(t, 14, rec.SickLeaveDays)

	assertAmount(t, "2680", rec.TuitionRefund)
	// 680 / 22 * 14 = 432.7272... -> 432.73
	assertAmount(t, "432.73", rec.MealRefund)
	assertAmount(t, "3112.73", rec.TotalRefund)
	assert.True(t, rec.TotalRefund.Equal(rec.TuitionRefund.Add(rec.MealRefund)))

	assert.Equal(t, finance.RefundPending, rec.Status)
	assert.Equal(t, "refund_stu-1_2025-09", rec.ID)
	assert.Contains(t, rec.Reason, "病假14天")
	assert.Contains(t, rec.Reason, "缺勤14天")
	assertAmount(t, "3360", rec.OriginalAmount)
	assert.Len(t, rec.AttendanceRecordIDs, 22)
}

func TestCalculateRefund_ProratedLeave_PartialMonth(t *testing.T) {
	// GIVEN: 21 working days observed (clock at Mon Sep 29, the 30th not
	//        yet recorded), present 11, sick 5, personal 2, plain absent 3
	// WHEN: Calculating the refund
	// THEN: Present <= half month (11) but absences below it, so tuition
	//       prorates over leave days only; plain absences still count
	//       toward the meal refund

	at := time.Date(2025, time.September, 29, 18, 0, 0, 0, time.UTC)
	svc, mem := newTestServiceAt(t, at, finance.WithStandards(scenarioStandards()))
	ctx := context.Background()

	seedStudent(t, mem, "stu-1", "王小明", "十七幼", finance.TierStandard, nil)
	fillAttendance(t, mem, "stu-1", sept2025(), func(wd int) finance.AttendanceStatus {
		switch {
		case wd <= 11:
			return finance.StatusPresent
		case wd <= 16:
			return finance.StatusSickLeave
		case wd <= 18:
			return finance.StatusPersonalLeave
		case wd <= 21:
			return finance.StatusAbsent
		default:
			return ""
		}
	})

	rec, err := svc.CalculateRefund(ctx, "stu-1", sept2025(), finance.ScopeBoth)
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, 21, rec.TotalWorkDays)
	// 2680 / 21 * 7 = 893.3333... -> 893.33
	assertAmount(t, "893.33", rec.TuitionRefund)
	// 680 / 21 * 10 = 323.8095... -> 323.81
	assertAmount(t, "323.81", rec.MealRefund)
	assert.Contains(t, rec.Reason, "病假5天")
	assert.Contains(t, rec.Reason, "事假2天")
}

func TestCalculateRefund_ReasonClauseOrder(t *testing.T) {
	// GIVEN: The long-sick-leave scenario (present 8, sick 14)
	// WHEN: Calculating the refund
	// THEN: The narrative reads attendance, then absence, then leave,
	//       joined with ；

	svc, mem := newTestService(t, finance.WithStandards(scenarioStandards()))
	ctx := context.Background()

	seedStudent(t, mem, "stu-1", "王小明", "十七幼", finance.TierStandard, nil)
	fillAttendance(t, mem, "stu-1", sept2025(), func(wd int) finance.AttendanceStatus {
		if wd <= 8 {
			return finance.StatusPresent
		}
		return finance.StatusSickLeave
	})

	rec, err := svc.CalculateRefund(ctx, "stu-1", sept2025(), finance.ScopeBoth)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "出勤8天（未超半月11天）；缺勤14天（≥3天可退伙食费）；病假14天", rec.Reason)
}

func TestCalculateRefund_LeaveClauseWithoutTuitionRefund(t *testing.T) {
	// GIVEN: Present 15 of 22 (no tuition refund) with 7 sick days
	// WHEN: Calculating the refund
	// THEN: The sick-leave clause still appears; it is narrative, not
	//       tied to the tuition branch

	svc, mem := newTestService(t, finance.WithStandards(scenarioStandards()))
	ctx := context.Background()

	seedStudent(t, mem, "stu-1", "王小明", "十七幼", finance.TierStandard, nil)
	fillAttendance(t, mem, "stu-1", sept2025(), func(wd int) finance.AttendanceStatus {
		if wd <= 15 {
			return finance.StatusPresent
		}
		return finance.StatusSickLeave
	})

	rec, err := svc.CalculateRefund(ctx, "stu-1", sept2025(), finance.ScopeBoth)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assertAmount(t, "0", rec.TuitionRefund)
	// 680 / 22 * 7 = 216.3636... -> 216.36
	assertAmount(t, "216.36", rec.MealRefund)
	assert.Equal(t, "缺勤7天（≥3天可退伙食费）；病假7天", rec.Reason)
}

func TestCalculateRefund_GoodAttendance_NothingRefundable(t *testing.T) {
	// GIVEN: Present 20 of 22 days, absent 2
	// WHEN: Calculating the refund
	// THEN: No record at all; a zero refund is never materialized

	svc, mem := newTestService(t, finance.WithStandards(scenarioStandards()))
	ctx := context.Background()

	seedStudent(t, mem, "stu-1", "王小明", "十七幼", finance.TierStandard, nil)
	fillAttendance(t, mem, "stu-1", sept2025(), func(wd int) finance.AttendanceStatus {
		if wd <= 20 {
			return finance.StatusPresent
		}
		return finance.StatusAbsent
	})

	rec, err := svc.CalculateRefund(ctx, "stu-1", sept2025(), finance.ScopeBoth)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestCalculateRefund_MealThreshold_ExactlyThreeAbsences(t *testing.T) {
	// GIVEN: Two students, one absent 2 days, one absent 3
	// WHEN: Calculating refunds
	// THEN: 2 absences yield nothing; 3 absences cross the meal threshold

	svc, mem := newTestService(t, finance.WithStandards(scenarioStandards()))
	ctx := context.Background()

	seedStudent(t, mem, "stu-2abs", "李思涵", "十七幼", finance.TierStandard, nil)
	fillAttendance(t, mem, "stu-2abs", sept2025(), func(wd int) finance.AttendanceStatus {
		if wd <= 2 {
			return finance.StatusAbsent
		}
		return finance.StatusPresent
	})

	seedStudent(t, mem, "stu-3abs", "张雨桐", "十七幼", finance.TierStandard, nil)
	fillAttendance(t, mem, "stu-3abs", sept2025(), func(wd int) finance.AttendanceStatus {
		if wd <= 3 {
			return finance.StatusAbsent
		}
		return finance.StatusPresent
	})

	rec, err := svc.CalculateRefund(ctx, "stu-2abs", sept2025(), finance.ScopeBoth)
	require.NoError(t, err)
	assert.Nil(t, rec, "2 absences are below the meal threshold")

	rec, err = svc.CalculateRefund(ctx, "stu-3abs", sept2025(), finance.ScopeBoth)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assertAmount(t, "0", rec.TuitionRefund)
	// 680 / 22 * 3 = 92.7272... -> 92.73
	assertAmount(t, "92.73", rec.MealRefund)
	assert.Contains(t, rec.Reason, "≥3天可退伙食费")
}

func TestCalculateRefund_HalfMonthBoundary(t *testing.T) {
	// GIVEN: 21 working days (half month = 11), plain absences only
	// WHEN: Present exactly 11 vs present 12
	// THEN: Neither gets a tuition refund; plain absences only prorate
	//       when the half-month full-refund clause fires

	at := time.Date(2025, time.September, 29, 18, 0, 0, 0, time.UTC)

	for _, tc := range []struct {
		name    string
		present int
	}{
		{"present exactly half month", 11},
		{"present above half month", 12},
	} {
		t.Run(tc.name, func(t *testing.T) {
			svc, mem := newTestServiceAt(t, at, finance.WithStandards(scenarioStandards()))
			ctx := context.Background()

			seedStudent(t, mem, "stu-1", "王小明", "十七幼", finance.TierStandard, nil)
			fillAttendance(t, mem, "stu-1", sept2025(), func(wd int) finance.AttendanceStatus {
				switch {
				case wd <= tc.present:
					return finance.StatusPresent
				case wd <= 21:
					return finance.StatusAbsent
				default:
					return ""
				}
			})

			rec, err := svc.CalculateRefund(ctx, "stu-1", sept2025(), finance.ScopeBoth)
			require.NoError(t, err)
			require.NotNil(t, rec, "plain absences still earn a meal refund")
			assertAmount(t, "0", rec.TuitionRefund)
			assert.True(t, rec.MealRefund.IsPositive())
		})
	}
}

func TestCalculateRefund_FullAbsence_CappedAtMonthlyFees(t *testing.T) {
	// GIVEN: Absent every working day of the month
	// WHEN: Calculating the refund
	// THEN: Refund equals the full monthly tuition + meal, never more

	svc, mem := newTestService(t, finance.WithStandards(scenarioStandards()))
	ctx := context.Background()

	seedStudent(t, mem, "stu-1", "王小明", "十七幼", finance.TierStandard, nil)
	fillAttendance(t, mem, "stu-1", sept2025(), allDays(finance.StatusAbsent))

	rec, err := svc.CalculateRefund(ctx, "stu-1", sept2025(), finance.ScopeBoth)
	require.NoError(t, err)
	require.NotNil(t, rec)

	assertAmount(t, "2680", rec.TuitionRefund)
	assertAmount(t, "680", rec.MealRefund, "meal refund is capped at the monthly fee")
	assertAmount(t, "3360", rec.TotalRefund)
}

func TestCalculateRefund_ScopeFiltersBranches(t *testing.T) {
	// GIVEN: A month that refunds both tuition and meal under ScopeBoth
	// WHEN: Recalculating with ScopeTuition and ScopeMeal
	// THEN: The out-of-scope branch is zeroed

	svc, mem := newTestService(t, finance.WithStandards(scenarioStandards()))
	ctx := context.Background()

	seedStudent(t, mem, "stu-1", "王小明", "十七幼", finance.TierStandard, nil)
	fillAttendance(t, mem, "stu-1", sept2025(), allDays(finance.StatusSickLeave))

	rec, err := svc.CalculateRefund(ctx, "stu-1", sept2025(), finance.ScopeTuition)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assertAmount(t, "2680", rec.TuitionRefund)
	assertAmount(t, "0", rec.MealRefund)

	rec, err = svc.CalculateRefund(ctx, "stu-1", sept2025(), finance.ScopeMeal)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assertAmount(t, "0", rec.TuitionRefund)
	assertAmount(t, "680", rec.MealRefund)
}

func TestCalculateRefund_ZeroWorkdayMonth(t *testing.T) {
	// GIVEN: A period entirely in the future
	// WHEN: Calculating or previewing
	// THEN: ErrZeroWorkdayMonth, not a zero-division or a silent nil

	svc, mem := newTestService(t)
	ctx := context.Background()
	seedStudent(t, mem, "stu-1", "王小明", "南江", finance.TierStandard, nil)

	future := finance.YearMonth{Year: 2025, Month: time.November}

	_, err := svc.CalculateRefund(ctx, "stu-1", future, finance.ScopeBoth)
	assert.ErrorIs(t, err, finance.ErrZeroWorkdayMonth)

	_, err = svc.PreviewRefund(ctx, "stu-1", future, finance.ScopeBoth)
	assert.ErrorIs(t, err, finance.ErrZeroWorkdayMonth)
}

func TestCalculateRefund_UnknownStudent(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.CalculateRefund(context.Background(), "nobody", sept2025(), finance.ScopeBoth)
	assert.ErrorIs(t, err, finance.ErrStudentNotFound)
}

func TestPreviewRefund_MatchesCalculation(t *testing.T) {
	// GIVEN: The long-sick-leave scenario
	// WHEN: Previewing and calculating
	// THEN: Identical amounts and reason; preview persists nothing

	svc, mem := newTestService(t, finance.WithStandards(scenarioStandards()))
	ctx := context.Background()

	seedStudent(t, mem, "stu-1", "王小明", "十七幼", finance.TierStandard, nil)
	fillAttendance(t, mem, "stu-1", sept2025(), func(wd int) finance.AttendanceStatus {
		if wd <= 8 {
			return finance.StatusPresent
		}
		return finance.StatusSickLeave
	})

	preview, err := svc.PreviewRefund(ctx, "stu-1", sept2025(), finance.ScopeBoth)
	require.NoError(t, err)
	rec, err := svc.CalculateRefund(ctx, "stu-1", sept2025(), finance.ScopeBoth)
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.True(t, preview.TuitionRefund.Equal(rec.TuitionRefund))
	assert.True(t, preview.MealRefund.Equal(rec.MealRefund))
	assert.True(t, preview.TotalRefund.Equal(rec.TotalRefund))
	assert.Equal(t, rec.Reason, preview.Reason)

	saved, err := mem.Refunds(ctx, finance.RefundFilter{})
	require.NoError(t, err)
	assert.Empty(t, saved, "neither preview nor calculate persists")
}

func TestPreviewRefund_NothingRefundable_AllZero(t *testing.T) {
	// GIVEN: Perfect attendance
	// WHEN: Previewing
	// THEN: A zero preview comes back, not nil

	svc, mem := newTestService(t, finance.WithStandards(scenarioStandards()))
	ctx := context.Background()

	seedStudent(t, mem, "stu-1", "王小明", "十七幼", finance.TierStandard, nil)
	fillAttendance(t, mem, "stu-1", sept2025(), allDays(finance.StatusPresent))

	preview, err := svc.PreviewRefund(ctx, "stu-1", sept2025(), finance.ScopeBoth)
	require.NoError(t, err)
	require.NotNil(t, preview)
	assert.True(t, preview.TotalRefund.IsZero())
	assert.Equal(t, 22, preview.Stats.TotalWorkDays)
}

// =============================================================================
// PERSISTENCE AND BATCH TESTS
// =============================================================================

func TestSaveRefundRecord_RejectsSecondRecordForPeriod(t *testing.T) {
	// GIVEN: A saved refund for (student, 2025-09)
	// WHEN: Saving a different record for the same pair
	// THEN: ErrDuplicateRefund; re-saving the same record is fine

	svc, mem := newTestService(t, finance.WithStandards(scenarioStandards()))
	ctx := context.Background()

	seedStudent(t, mem, "stu-1", "王小明", "十七幼", finance.TierStandard, nil)
	fillAttendance(t, mem, "stu-1", sept2025(), allDays(finance.StatusSickLeave))

	rec, err := svc.CalculateRefund(ctx, "stu-1", sept2025(), finance.ScopeBoth)
	require.NoError(t, err)
	require.NoError(t, svc.SaveRefundRecord(ctx, rec))
	require.NoError(t, svc.SaveRefundRecord(ctx, rec), "idempotent re-save")

	other := *rec
	other.ID = "refund_manual_override"
	err = svc.SaveRefundRecord(ctx, &other)
	assert.ErrorIs(t, err, finance.ErrDuplicateRefund)
}

func TestCalculateClassRefunds_IdempotentBatch(t *testing.T) {
	// GIVEN: Two students with absences, one with perfect attendance
	// WHEN: Running the class batch twice
	// THEN: First run creates two records, second run creates none, and
	//       the store still holds exactly two

	svc, mem := newTestService(t, finance.WithStandards(scenarioStandards()))
	ctx := context.Background()

	seedStudent(t, mem, "stu-a", "王小明", "十七幼", finance.TierStandard, nil)
	fillAttendance(t, mem, "stu-a", sept2025(), allDays(finance.StatusSickLeave))
	seedStudent(t, mem, "stu-b", "李思涵", "十七幼", finance.TierStandard, nil)
	fillAttendance(t, mem, "stu-b", sept2025(), func(wd int) finance.AttendanceStatus {
		if wd <= 4 {
			return finance.StatusAbsent
		}
		return finance.StatusPresent
	})
	seedStudent(t, mem, "stu-c", "张雨桐", "十七幼", finance.TierStandard, nil)
	fillAttendance(t, mem, "stu-c", sept2025(), allDays(finance.StatusPresent))

	ids := []string{"stu-a", "stu-b", "stu-c"}

	created, err := svc.CalculateClassRefunds(ctx, ids, sept2025(), finance.ScopeBoth)
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, "stu-a", created[0].StudentID)
	assert.Equal(t, "stu-b", created[1].StudentID)

	again, err := svc.CalculateClassRefunds(ctx, ids, sept2025(), finance.ScopeBoth)
	require.NoError(t, err)
	assert.Empty(t, again)

	saved, err := mem.Refunds(ctx, finance.RefundFilter{})
	require.NoError(t, err)
	assert.Len(t, saved, 2)
}

func TestCalculateCampusRefunds_CoversWholeCampus(t *testing.T) {
	// GIVEN: Students on two campuses
	// WHEN: Running the campus batch for one
	// THEN: Only that campus's students get records

	svc, mem := newTestService(t, finance.WithStandards(scenarioStandards()))
	ctx := context.Background()

	seedStudent(t, mem, "stu-a", "王小明", "十七幼", finance.TierStandard, nil)
	fillAttendance(t, mem, "stu-a", sept2025(), allDays(finance.StatusSickLeave))
	seedStudent(t, mem, "stu-b", "陈俊宇", "高新", finance.TierStandard, nil)
	fillAttendance(t, mem, "stu-b", sept2025(), allDays(finance.StatusSickLeave))

	created, err := svc.CalculateCampusRefunds(ctx, "十七幼", sept2025(), finance.ScopeBoth)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "stu-a", created[0].StudentID)
}
