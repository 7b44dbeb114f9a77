/*
attendance.go - Monthly attendance aggregation

PURPOSE:
  Reconstructs per-day attendance for every working day of a month and
  produces the summary counters the refund policy consumes. Weekends
  are skipped. A future working day counts only when a record already
  exists for it (pre-filed leave); recordless future days have not
  happened yet. A past working day with no record is treated as absent
  (TreatAsAbsent): missing data counts against attendance, never
  silently excused.

SEE ALSO:
  - refund.go: the consumer of MonthlyAttendanceStats
*/
package finance

import "context"

// MonthlyStats aggregates the student's attendance for one month.
// TotalWorkDays covers weekdays up to and including today per the
// injected Clock, plus any later weekday that already has a record:
// pre-filed leave counts toward the month and toward provenance.
func (s *Service) MonthlyStats(ctx context.Context, studentID string, period YearMonth) (MonthlyAttendanceStats, error) {
	var stats MonthlyAttendanceStats
	today := DateOf(s.Clock.Now())

	for day := 1; day <= period.DaysInMonth(); day++ {
		date := period.Date(day)
		if IsWeekend(date) {
			continue
		}

		rec, err := s.Store.AttendanceOn(ctx, studentID, period.DayString(day))
		if err != nil {
			return MonthlyAttendanceStats{}, err
		}
		if rec == nil {
			if date.After(today) {
				// Recordless future day: has not happened yet.
				continue
			}
			// TreatAsAbsent: no record for a past working day.
			stats.TotalWorkDays++
			stats.AbsentDays++
			continue
		}

		stats.TotalWorkDays++
		stats.AttendanceRecordIDs = append(stats.AttendanceRecordIDs, rec.ID)
		switch rec.Status {
		case StatusPresent:
			stats.PresentDays++
		case StatusLate:
			stats.PresentDays++
			stats.LateDays++
		case StatusEarlyLeave:
			stats.PresentDays++
			stats.EarlyLeaveDays++
		case StatusSickLeave:
			stats.SickLeaveDays++
		case StatusPersonalLeave:
			stats.PersonalLeaveDays++
		default:
			stats.AbsentDays++
		}
	}

	return stats, nil
}
