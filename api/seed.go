/*
seed.go - Demo data seeding for development and demos

PURPOSE:
  Populates the store with a realistic month of data: students across
  two campuses with varied class tiers and discounts, a full month of
  attendance in distinct patterns (full attendance, long sick leave,
  scattered absences), and seeded fee/refund config rows. Enough to
  exercise preview, batch calculation, the approval workflow and the
  summary report from a fresh database.

NOTE:
  Demo data only. Never wire this into a production deployment.

SEE ALSO:
  - handlers.go: the endpoints the seeded data feeds
*/
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/jinxing-edu/finance-engine/finance"
)

// SeedDemo loads demo students, a month of attendance, and the default
// config rows for their campuses.
// POST /api/demo/seed
func (h *Handler) SeedDemo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	period := finance.YearMonthOf(h.Service.Clock.Now())

	count, err := h.seedDemoData(ctx, period)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to seed demo data", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"students": count,
		"period":   period.String(),
	})
}

type demoStudent struct {
	student finance.Student
	// pattern picks the attendance shape seeded for the month:
	// "full", "long-sick", "scattered", "personal-leave".
	pattern string
}

func demoStudents() []demoStudent {
	ninety := decimal.NewFromInt(90)
	twoHundred := decimal.NewFromInt(200)

	return []demoStudent{
		{
			student: finance.Student{
				ID: "stu_demo_001", Name: "王小明", Class: "大一班",
				Campus: "十七幼", ClassTier: finance.TierStandard,
				EnrollDate: "2024-09-01",
			},
			pattern: "full",
		},
		{
			student: finance.Student{
				ID: "stu_demo_002", Name: "李思涵", Class: "大一班",
				Campus: "十七幼", ClassTier: finance.TierExcellence,
				EnrollDate: "2024-09-01",
			},
			pattern: "long-sick",
		},
		{
			student: finance.Student{
				ID: "stu_demo_003", Name: "张雨桐", Class: "中二班",
				Campus: "十七幼", ClassTier: finance.TierMusic,
				EnrollDate: "2025-03-01",
				Discount: &finance.FeeDiscount{
					HasDiscount: true,
					Type:        finance.DiscountPercentage,
					Value:       decimal.NewFromInt(10),
					Reason:      "教职工子女",
					ApprovedBy:  "园长",
				},
			},
			pattern: "scattered",
		},
		{
			student: finance.Student{
				ID: "stu_demo_004", Name: "陈俊宇", Class: "小一班",
				Campus: "高新", ClassTier: finance.TierStandard,
				EnrollDate: "2025-09-01",
				Discount: &finance.FeeDiscount{
					HasDiscount: true,
					Type:        finance.DiscountFixed,
					Value:       twoHundred,
					Reason:      "二孩减免",
					ApprovedBy:  "园长",
				},
			},
			pattern: "personal-leave",
		},
		{
			student: finance.Student{
				ID: "stu_demo_005", Name: "刘一诺", Class: "小一班",
				Campus: "高新", ClassTier: finance.TierStandard,
				EnrollDate: "2025-09-01",
				Discount: &finance.FeeDiscount{
					HasDiscount:   true,
					Type:          finance.DiscountCustom,
					CustomTuition: &ninety,
					ExemptItems:   []finance.FeeType{finance.FeeMeal},
					Reason:        "困难家庭资助",
					ApprovedBy:    "园长",
				},
			},
			pattern: "full",
		},
	}
}

func (h *Handler) seedDemoData(ctx context.Context, period finance.YearMonth) (int, error) {
	students := demoStudents()
	for _, d := range students {
		if err := h.Service.Store.SaveStudent(ctx, d.student); err != nil {
			return 0, err
		}
		if err := h.seedAttendance(ctx, d, period); err != nil {
			return 0, err
		}
		if err := h.Service.SeedDefaults(ctx, d.student.Campus); err != nil {
			return 0, err
		}
	}
	return len(students), nil
}

// seedAttendance writes one month of records in the pattern assigned to
// the student. Only days up to the clock's today get records; the
// aggregator treats the rest as not yet happened.
func (h *Handler) seedAttendance(ctx context.Context, d demoStudent, period finance.YearMonth) error {
	today := finance.DateOf(h.Service.Clock.Now())
	workday := 0

	for day := 1; day <= period.DaysInMonth(); day++ {
		date := period.Date(day)
		if finance.IsWeekend(date) || date.After(today) {
			continue
		}
		workday++

		status := finance.StatusPresent
		switch d.pattern {
		case "long-sick":
			if workday > 6 {
				status = finance.StatusSickLeave
			}
		case "scattered":
			if workday%5 == 0 {
				status = finance.StatusAbsent
			} else if workday%7 == 0 {
				status = finance.StatusLate
			}
		case "personal-leave":
			if workday >= 3 && workday <= 5 {
				status = finance.StatusPersonalLeave
			}
		}

		rec := finance.AttendanceRecord{
			ID:         fmt.Sprintf("att_%s_%s", d.student.ID, period.DayString(day)),
			StudentID:  d.student.ID,
			Date:       period.DayString(day),
			Status:     status,
			RecordedBy: "demo",
			RecordedAt: h.Service.Clock.Now(),
		}
		if status == finance.StatusSickLeave {
			rec.LeaveReason = "感冒发烧"
		}
		if status == finance.StatusPersonalLeave {
			rec.LeaveReason = "家中有事"
		}
		if err := h.Service.Store.SaveAttendance(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}
