package finance_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinxing-edu/finance-engine/finance"
)

// =============================================================================
// MONTHLY AGGREGATION TESTS
// =============================================================================

func TestMonthlyStats_FullMonthPresent(t *testing.T) {
	// GIVEN: September 2025 (starts on a Monday, 22 working days), every
	//        working day recorded present
	// WHEN: Aggregating with the clock in October
	// THEN: 22 working days, 22 present, nothing absent

	svc, mem := newTestService(t)
	ctx := context.Background()
	seedStudent(t, mem, "stu-1", "王小明", "南江", finance.TierStandard, nil)
	fillAttendance(t, mem, "stu-1", sept2025(), allDays(finance.StatusPresent))

	stats, err := svc.MonthlyStats(ctx, "stu-1", sept2025())
	require.NoError(t, err)

	assert.Equal(t, 22, stats.TotalWorkDays)
	assert.Equal(t, 22, stats.PresentDays)
	assert.Equal(t, 0, stats.TotalAbsent())
	assert.Equal(t, 11, stats.HalfMonthDays())
	assert.Len(t, stats.AttendanceRecordIDs, 22)
}

func TestMonthlyStats_MissingRecordsCountAsAbsent(t *testing.T) {
	// GIVEN: No attendance recorded at all for September
	// WHEN: Aggregating
	// THEN: Every past working day is absent; no record IDs collected

	svc, mem := newTestService(t)
	ctx := context.Background()
	seedStudent(t, mem, "stu-1", "王小明", "南江", finance.TierStandard, nil)

	stats, err := svc.MonthlyStats(ctx, "stu-1", sept2025())
	require.NoError(t, err)

	assert.Equal(t, 22, stats.TotalWorkDays)
	assert.Equal(t, 0, stats.PresentDays)
	assert.Equal(t, 22, stats.AbsentDays)
	assert.Empty(t, stats.AttendanceRecordIDs)
}

func TestMonthlyStats_LateAndEarlyLeaveCountAsPresent(t *testing.T) {
	// GIVEN: A month of lates, early leaves and plain presents
	// WHEN: Aggregating
	// THEN: All three count toward PresentDays; lates and early leaves
	//       also keep their own counters

	svc, mem := newTestService(t)
	ctx := context.Background()
	seedStudent(t, mem, "stu-1", "王小明", "南江", finance.TierStandard, nil)
	fillAttendance(t, mem, "stu-1", sept2025(), func(wd int) finance.AttendanceStatus {
		switch {
		case wd <= 3:
			return finance.StatusLate
		case wd <= 5:
			return finance.StatusEarlyLeave
		default:
			return finance.StatusPresent
		}
	})

	stats, err := svc.MonthlyStats(ctx, "stu-1", sept2025())
	require.NoError(t, err)

	assert.Equal(t, 22, stats.PresentDays)
	assert.Equal(t, 3, stats.LateDays)
	assert.Equal(t, 2, stats.EarlyLeaveDays)
	assert.Equal(t, 0, stats.TotalAbsent())
}

func TestMonthlyStats_RecordlessFutureDaysExcluded(t *testing.T) {
	// GIVEN: The clock stopped mid-month, Wed Sep 10, records only for
	//        the days that have happened
	// WHEN: Aggregating September
	// THEN: Only Sep 1-10's working days count (Mon 1 - Fri 5, Mon 8 -
	//       Wed 10 = 8 days); the rest of the month has not happened

	at := time.Date(2025, time.September, 10, 9, 0, 0, 0, time.UTC)
	svc, mem := newTestServiceAt(t, at)
	ctx := context.Background()
	seedStudent(t, mem, "stu-1", "王小明", "南江", finance.TierStandard, nil)
	fillAttendance(t, mem, "stu-1", sept2025(), func(wd int) finance.AttendanceStatus {
		if wd <= 8 {
			return finance.StatusPresent
		}
		return ""
	})

	stats, err := svc.MonthlyStats(ctx, "stu-1", sept2025())
	require.NoError(t, err)

	assert.Equal(t, 8, stats.TotalWorkDays)
	assert.Equal(t, 8, stats.PresentDays)
	assert.Equal(t, 0, stats.AbsentDays, "future days are not absences")
}

func TestMonthlyStats_PreFiledFutureLeaveCounts(t *testing.T) {
	// GIVEN: The clock at Mon Sep 15 with sick leave already filed for
	//        Tue Sep 16
	// WHEN: Aggregating September
	// THEN: The pre-filed day joins the month: 12 working days, 1 sick,
	//       and its record ID lands in the provenance list

	at := time.Date(2025, time.September, 15, 9, 0, 0, 0, time.UTC)
	svc, mem := newTestServiceAt(t, at)
	ctx := context.Background()
	seedStudent(t, mem, "stu-1", "王小明", "南江", finance.TierStandard, nil)
	fillAttendance(t, mem, "stu-1", sept2025(), func(wd int) finance.AttendanceStatus {
		switch {
		case wd <= 11:
			return finance.StatusPresent
		case wd == 12:
			return finance.StatusSickLeave
		default:
			return ""
		}
	})

	stats, err := svc.MonthlyStats(ctx, "stu-1", sept2025())
	require.NoError(t, err)

	assert.Equal(t, 12, stats.TotalWorkDays)
	assert.Equal(t, 11, stats.PresentDays)
	assert.Equal(t, 1, stats.SickLeaveDays)
	assert.Equal(t, 0, stats.AbsentDays)
	assert.Len(t, stats.AttendanceRecordIDs, 12)
	assert.Contains(t, stats.AttendanceRecordIDs, "att_stu-1_2025-09-16")
}

func TestMonthlyStats_WeekendRecordsIgnored(t *testing.T) {
	// GIVEN: A stray record on Saturday Sep 6
	// WHEN: Aggregating
	// THEN: Weekend days never enter the counters

	svc, mem := newTestService(t)
	ctx := context.Background()
	seedStudent(t, mem, "stu-1", "王小明", "南江", finance.TierStandard, nil)
	fillAttendance(t, mem, "stu-1", sept2025(), allDays(finance.StatusPresent))

	err := mem.SaveAttendance(ctx, finance.AttendanceRecord{
		ID:        "att_stu-1_2025-09-06",
		StudentID: "stu-1",
		Date:      "2025-09-06",
		Status:    finance.StatusPresent,
	})
	require.NoError(t, err)

	stats, err := svc.MonthlyStats(ctx, "stu-1", sept2025())
	require.NoError(t, err)

	assert.Equal(t, 22, stats.TotalWorkDays)
	assert.Equal(t, 22, stats.PresentDays)
}

func TestMonthlyStats_MixedLeaveKinds(t *testing.T) {
	// Sick, personal and plain absence land in separate counters but sum
	// through TotalAbsent.
	svc, mem := newTestService(t)
	ctx := context.Background()
	seedStudent(t, mem, "stu-1", "王小明", "南江", finance.TierStandard, nil)
	fillAttendance(t, mem, "stu-1", sept2025(), func(wd int) finance.AttendanceStatus {
		switch {
		case wd <= 4:
			return finance.StatusSickLeave
		case wd <= 6:
			return finance.StatusPersonalLeave
		case wd <= 9:
			return finance.StatusAbsent
		default:
			return finance.StatusPresent
		}
	})

	stats, err := svc.MonthlyStats(ctx, "stu-1", sept2025())
	require.NoError(t, err)

	assert.Equal(t, 4, stats.SickLeaveDays)
	assert.Equal(t, 2, stats.PersonalLeaveDays)
	assert.Equal(t, 3, stats.AbsentDays)
	assert.Equal(t, 9, stats.TotalAbsent())
	assert.Equal(t, 13, stats.PresentDays)
}

// =============================================================================
// PERIOD ARITHMETIC TESTS
// =============================================================================

func TestYearMonth_Arithmetic(t *testing.T) {
	nov := finance.YearMonth{Year: 2025, Month: time.November}

	assert.Equal(t, "2025-11", nov.String())
	assert.Equal(t, finance.YearMonth{Year: 2026, Month: time.April}, nov.AddMonths(5))
	assert.Equal(t, 5, nov.MonthsUntil(finance.YearMonth{Year: 2026, Month: time.April}))
	assert.Equal(t, 30, nov.DaysInMonth())
	assert.Equal(t, "2025-11-05", nov.DayString(5))
	assert.True(t, nov.Before(finance.YearMonth{Year: 2026, Month: time.January}))

	parsed, err := finance.ParseYearMonth("2025-09")
	require.NoError(t, err)
	assert.Equal(t, sept2025(), parsed)

	_, err = finance.ParseYearMonth("2025/09")
	assert.Error(t, err)
}
