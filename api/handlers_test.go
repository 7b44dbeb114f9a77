package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinxing-edu/finance-engine/api"
	"github.com/jinxing-edu/finance-engine/finance"
	"github.com/jinxing-edu/finance-engine/finance/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// testNow pins "today" to 2025-10-15, so September 2025 (22 working
// days) is fully in the past.
var testNow = time.Date(2025, time.October, 15, 12, 0, 0, 0, time.UTC)

func newTestRouter(t *testing.T) (http.Handler, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	svc := finance.NewService(mem, finance.WithClock(finance.FixedClock{At: testNow}))
	return api.NewRouter(api.NewHandler(svc, nil)), mem
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&out), "body: %s", rr.Body.String())
	return out
}

func createStudent(t *testing.T, h http.Handler, id, name, campus string) {
	t.Helper()
	rr := doJSON(t, h, http.MethodPost, "/api/students", map[string]any{
		"id":     id,
		"name":   name,
		"campus": campus,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
}

// recordMonth posts one attendance row per working day of September.
func recordMonth(t *testing.T, h http.Handler, studentID string, plan func(workday int) string) {
	t.Helper()
	sept := finance.YearMonth{Year: 2025, Month: time.September}
	workday := 0
	for day := 1; day <= sept.DaysInMonth(); day++ {
		if finance.IsWeekend(sept.Date(day)) {
			continue
		}
		workday++
		rr := doJSON(t, h, http.MethodPost, "/api/attendance", map[string]any{
			"student_id": studentID,
			"date":       sept.DayString(day),
			"status":     plan(workday),
		})
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	}
}

// =============================================================================
// STANDARDS AND STUDENTS
// =============================================================================

func TestAPI_Standards(t *testing.T) {
	h, _ := newTestRouter(t)

	rr := doJSON(t, h, http.MethodGet, "/api/standards", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	list := decodeBody[[]api.StandardDTO](t, rr)
	assert.Len(t, list, 10)

	rr = doJSON(t, h, http.MethodGet, "/api/standards/十七幼", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	std := decodeBody[api.StandardDTO](t, rr)
	assert.Equal(t, "no17", std.CampusID)
	assert.Equal(t, "2100.00", std.Standard.Tuition)
	require.NotNil(t, std.Music)
	assert.Equal(t, "3080.00", std.Music.Tuition)

	rr = doJSON(t, h, http.MethodGet, "/api/standards/不存在的园区", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAPI_StudentLifecycle(t *testing.T) {
	h, _ := newTestRouter(t)

	rr := doJSON(t, h, http.MethodPost, "/api/students", map[string]any{
		"id":         "stu-1",
		"name":       "王小明",
		"campus":     "南江",
		"class_tier": "standard",
		"discount": map[string]any{
			"has_discount": true,
			"type":         "fixed",
			"value":        "200",
			"reason":       "二孩减免",
		},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = doJSON(t, h, http.MethodGet, "/api/students/stu-1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	student := decodeBody[api.StudentDTO](t, rr)
	assert.Equal(t, "王小明", student.Name)
	require.NotNil(t, student.Discount)
	assert.True(t, student.Discount.HasDiscount)

	rr = doJSON(t, h, http.MethodGet, "/api/students/stu-1/fees", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	fees := decodeBody[api.ActualFeesDTO](t, rr)
	assert.Equal(t, "980.00", fees.Tuition)
	assert.Equal(t, "330.00", fees.Meal)
	assert.Equal(t, "1310.00", fees.Total)
	assert.True(t, fees.HasDiscount)

	rr = doJSON(t, h, http.MethodGet, "/api/students/ghost", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAPI_StudentValidation(t *testing.T) {
	h, _ := newTestRouter(t)

	// Missing required campus.
	rr := doJSON(t, h, http.MethodPost, "/api/students", map[string]any{
		"id":   "stu-1",
		"name": "王小明",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// Unknown tier.
	rr = doJSON(t, h, http.MethodPost, "/api/students", map[string]any{
		"id":         "stu-1",
		"name":       "王小明",
		"campus":     "南江",
		"class_tier": "platinum",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

// =============================================================================
// REFUND FLOW
// =============================================================================

func TestAPI_RefundFlow_EndToEnd(t *testing.T) {
	// GIVEN: A 南江 student present 8 days and sick 14 days in September
	// WHEN: Driving preview -> calculate -> approve -> complete over HTTP
	// THEN: Amounts, statuses and audit fields flow through each step

	h, _ := newTestRouter(t)
	createStudent(t, h, "stu-1", "王小明", "南江")
	recordMonth(t, h, "stu-1", func(wd int) string {
		if wd <= 8 {
			return "present"
		}
		return "sick_leave"
	})

	// Monthly stats over the API.
	rr := doJSON(t, h, http.MethodGet, "/api/students/stu-1/attendance/2025-09", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	stats := decodeBody[api.AttendanceStatsDTO](t, rr)
	assert.Equal(t, 22, stats.TotalWorkDays)
	assert.Equal(t, 14, stats.SickLeaveDays)
	assert.Equal(t, 11, stats.HalfMonthDays)

	// Preview: 南江 fees 1180/330, absent >= half month -> full tuition,
	// meal 330/22*14 = 210.
	refundReq := map[string]any{"student_id": "stu-1", "period": "2025-09"}
	rr = doJSON(t, h, http.MethodPost, "/api/refunds/preview", refundReq)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	preview := decodeBody[api.RefundPreviewDTO](t, rr)
	assert.Equal(t, "1180.00", preview.TuitionRefund)
	assert.Equal(t, "210.00", preview.MealRefund)
	assert.Equal(t, "1390.00", preview.TotalRefund)

	// Calculate persists a pending record with the same numbers.
	rr = doJSON(t, h, http.MethodPost, "/api/refunds/calculate", refundReq)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	rec := decodeBody[api.RefundDTO](t, rr)
	assert.Equal(t, "refund_stu-1_2025-09", rec.ID)
	assert.Equal(t, "pending", rec.Status)
	assert.Equal(t, "1390.00", rec.TotalRefund)
	assert.Contains(t, rec.Reason, "病假14天")

	// Approve.
	rr = doJSON(t, h, http.MethodPost, "/api/refunds/"+rec.ID+"/approve", map[string]any{
		"approver": "园长",
		"approved": true,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	approved := decodeBody[api.RefundDTO](t, rr)
	assert.Equal(t, "approved", approved.Status)
	assert.Equal(t, "园长", approved.ApprovedBy)
	require.NotNil(t, approved.ApprovedAt)

	// Complete.
	rr = doJSON(t, h, http.MethodPost, "/api/refunds/"+rec.ID+"/complete", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	done := decodeBody[api.RefundDTO](t, rr)
	assert.Equal(t, "completed", done.Status)
	require.NotNil(t, done.RefundedAt)

	// The listing shows the terminal record.
	rr = doJSON(t, h, http.MethodGet, "/api/refunds?student_id=stu-1&period=2025-09", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	list := decodeBody[[]api.RefundDTO](t, rr)
	require.Len(t, list, 1)
	assert.Equal(t, "completed", list[0].Status)
}

func TestAPI_RefundErrors(t *testing.T) {
	h, _ := newTestRouter(t)
	createStudent(t, h, "stu-1", "王小明", "南江")
	recordMonth(t, h, "stu-1", func(int) string { return "sick_leave" })

	t.Run("unknown student is 404", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodPost, "/api/refunds/calculate", map[string]any{
			"student_id": "ghost", "period": "2025-09",
		})
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("future period is 409", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodPost, "/api/refunds/calculate", map[string]any{
			"student_id": "stu-1", "period": "2025-11",
		})
		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("malformed period is 400", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodPost, "/api/refunds/calculate", map[string]any{
			"student_id": "stu-1", "period": "2025/09",
		})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("double approval is 409", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodPost, "/api/refunds/calculate", map[string]any{
			"student_id": "stu-1", "period": "2025-09",
		})
		require.Equal(t, http.StatusCreated, rr.Code)
		rec := decodeBody[api.RefundDTO](t, rr)

		approve := map[string]any{"approver": "园长", "approved": true}
		rr = doJSON(t, h, http.MethodPost, "/api/refunds/"+rec.ID+"/approve", approve)
		require.Equal(t, http.StatusOK, rr.Code)
		rr = doJSON(t, h, http.MethodPost, "/api/refunds/"+rec.ID+"/approve", approve)
		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("unknown refund is 404", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodPost, "/api/refunds/refund_ghost_2025-09/complete", nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestAPI_RefundCalculate_NothingRefundable(t *testing.T) {
	// Perfect attendance comes back as a refundable:false body, not an
	// empty record.
	h, _ := newTestRouter(t)
	createStudent(t, h, "stu-1", "王小明", "南江")
	recordMonth(t, h, "stu-1", func(int) string { return "present" })

	rr := doJSON(t, h, http.MethodPost, "/api/refunds/calculate", map[string]any{
		"student_id": "stu-1", "period": "2025-09",
	})
	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody[map[string]any](t, rr)
	assert.Equal(t, false, body["refundable"])
}

func TestAPI_RefundBatch(t *testing.T) {
	// GIVEN: Two students with absences
	// WHEN: Running the batch twice by student list
	// THEN: First run returns two records, second returns zero

	h, _ := newTestRouter(t)
	createStudent(t, h, "stu-a", "王小明", "南江")
	recordMonth(t, h, "stu-a", func(int) string { return "sick_leave" })
	createStudent(t, h, "stu-b", "李思涵", "南江")
	recordMonth(t, h, "stu-b", func(wd int) string {
		if wd <= 4 {
			return "absent"
		}
		return "present"
	})

	batch := map[string]any{
		"student_ids": []string{"stu-a", "stu-b"},
		"period":      "2025-09",
	}
	rr := doJSON(t, h, http.MethodPost, "/api/refunds/batch", batch)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	created := decodeBody[[]api.RefundDTO](t, rr)
	assert.Len(t, created, 2)

	rr = doJSON(t, h, http.MethodPost, "/api/refunds/batch", batch)
	require.Equal(t, http.StatusOK, rr.Code)
	again := decodeBody[[]api.RefundDTO](t, rr)
	assert.Empty(t, again)

	// Neither student_ids nor campus is a client error.
	rr = doJSON(t, h, http.MethodPost, "/api/refunds/batch", map[string]any{"period": "2025-09"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

// =============================================================================
// PAYMENT FLOW
// =============================================================================

func TestAPI_PaymentFlow(t *testing.T) {
	// GIVEN: A 南江 student paying a semester of tuition from September
	// WHEN: Creating, then checking status, then cancelling
	// THEN: The ledger and the paid-through summary stay consistent

	h, _ := newTestRouter(t)
	createStudent(t, h, "stu-1", "王小明", "南江")

	rr := doJSON(t, h, http.MethodPost, "/api/payments", map[string]any{
		"student_id":  "stu-1",
		"fee_type":    "tuition",
		"cycle_kind":  "semester",
		"start_month": "2025-09",
		"method":      "wechat",
		"operator":    "财务",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	p := decodeBody[api.PaymentDTO](t, rr)
	assert.Equal(t, "7080.00", p.StandardAmount)
	assert.Equal(t, "2025-09~2026-02", p.Period)
	assert.Equal(t, "confirmed", p.Status)

	rr = doJSON(t, h, http.MethodGet, "/api/students/stu-1/payment-status", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	status := decodeBody[api.PaymentStatusDTO](t, rr)
	require.NotNil(t, status.PaidThrough)
	assert.Equal(t, "2026-02", *status.PaidThrough)
	assert.False(t, status.Overdue)

	rr = doJSON(t, h, http.MethodPost, "/api/payments/"+p.ID+"/cancel", map[string]any{
		"reason": "退园",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	cancelled := decodeBody[api.PaymentDTO](t, rr)
	assert.Equal(t, "cancelled", cancelled.Status)
	assert.Contains(t, cancelled.Notes, "[取消原因] 退园")

	rr = doJSON(t, h, http.MethodGet, "/api/students/stu-1/payment-status", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	status = decodeBody[api.PaymentStatusDTO](t, rr)
	assert.True(t, status.Overdue, "cancelled payments do not extend coverage")

	rr = doJSON(t, h, http.MethodGet, "/api/students/stu-1/payments", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	history := decodeBody[api.PaymentHistoryDTO](t, rr)
	assert.Len(t, history.Payments, 1, "the cancelled payment stays in the ledger")
	assert.Equal(t, "0.00", history.TotalPaid, "totals cover confirmed payments only")
	assert.Empty(t, history.LastPaymentDate)

	rr = doJSON(t, h, http.MethodGet, "/api/campuses/南江/overdue", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	overdue := decodeBody[[]api.PaymentStatusDTO](t, rr)
	require.Len(t, overdue, 1)
	assert.Equal(t, "stu-1", overdue[0].StudentID)
}

func TestAPI_PaymentValidation(t *testing.T) {
	h, _ := newTestRouter(t)
	createStudent(t, h, "stu-1", "王小明", "南江")

	rr := doJSON(t, h, http.MethodPost, "/api/payments", map[string]any{
		"student_id": "stu-1",
		"fee_type":   "uniform",
		"cycle_kind": "monthly",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doJSON(t, h, http.MethodPost, "/api/payments", map[string]any{
		"student_id": "stu-1",
		"fee_type":   "tuition",
		"cycle_kind": "weekly",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAPI_QRPaymentFlow(t *testing.T) {
	// GIVEN: A pending payment with an uploaded proof
	// WHEN: Staff confirm it over HTTP
	// THEN: Proof and payment both end up confirmed

	h, _ := newTestRouter(t)
	createStudent(t, h, "stu-1", "王小明", "南江")

	rr := doJSON(t, h, http.MethodPost, "/api/payments", map[string]any{
		"student_id": "stu-1",
		"fee_type":   "tuition",
		"cycle_kind": "monthly",
		"pending":    true,
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	p := decodeBody[api.PaymentDTO](t, rr)
	assert.Equal(t, "pending", p.Status)

	rr = doJSON(t, h, http.MethodPost, "/api/qr-payments", map[string]any{
		"payment_id":  p.ID,
		"proof_image": "uploads/proof-001.jpg",
		"remark":      "微信扫码已付",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	proof := decodeBody[api.QRPaymentDTO](t, rr)
	assert.Equal(t, "pending", proof.Status)

	rr = doJSON(t, h, http.MethodPost, "/api/qr-payments/"+proof.ID+"/confirm", map[string]any{
		"reviewer": "财务",
		"note":     "截图清晰",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	reviewed := decodeBody[api.QRPaymentDTO](t, rr)
	assert.Equal(t, "confirmed", reviewed.Status)

	rr = doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/qr-payments?payment_id=%s", p.ID), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	list := decodeBody[[]api.QRPaymentDTO](t, rr)
	require.Len(t, list, 1)
	assert.Equal(t, "confirmed", list[0].Status)
}

// =============================================================================
// REPORTS AND CONFIG
// =============================================================================

func TestAPI_SummaryAndStats(t *testing.T) {
	h, _ := newTestRouter(t)
	createStudent(t, h, "stu-1", "王小明", "南江")
	recordMonth(t, h, "stu-1", func(int) string { return "sick_leave" })

	rr := doJSON(t, h, http.MethodPost, "/api/refunds/calculate", map[string]any{
		"student_id": "stu-1", "period": "2025-09",
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = doJSON(t, h, http.MethodPost, "/api/payments", map[string]any{
		"student_id":  "stu-1",
		"fee_type":    "tuition",
		"cycle_kind":  "monthly",
		"start_month": "2025-09",
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = doJSON(t, h, http.MethodGet, "/api/summary?campus=南江&period=2025-09", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	sum := decodeBody[api.SummaryDTO](t, rr)
	assert.Equal(t, 1, sum.TotalStudents)
	assert.Equal(t, "1510.00", sum.MonthlyReceivable)
	assert.Equal(t, 1, sum.RefundCount)
	assert.Equal(t, 1, sum.PendingRefunds)
	assert.Equal(t, "1510.00", sum.RefundAmount)
	assert.Equal(t, 1, sum.PaymentCount)
	assert.Equal(t, "1180.00", sum.PaymentAmount)

	rr = doJSON(t, h, http.MethodGet, "/api/payments/stats?campus=南江&period=2025-09", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	stats := decodeBody[api.PaymentStatsDTO](t, rr)
	assert.Equal(t, 1, stats.TotalStudents)
	assert.Equal(t, 1, stats.PaidStudents)
	assert.Equal(t, 0, stats.UnpaidStudents)
	assert.Equal(t, "1180.00", stats.TotalActual)
	require.Len(t, stats.ByFeeType, 1)
	assert.Equal(t, "tuition", stats.ByFeeType[0].FeeType)
	assert.Equal(t, "保教费", stats.ByFeeType[0].FeeName)
	assert.Equal(t, "1180.00", stats.ByFeeType[0].Amount)
	assert.Equal(t, "0.00", stats.ByFeeType[0].Discount)

	rr = doJSON(t, h, http.MethodGet, "/api/summary?campus=南江", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code, "period is required")
}

func TestAPI_SeedConfigs(t *testing.T) {
	h, _ := newTestRouter(t)

	rr := doJSON(t, h, http.MethodPost, "/api/campuses/南江/seed-configs", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = doJSON(t, h, http.MethodGet, "/api/campuses/南江/fee-configs", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, h, http.MethodGet, "/api/campuses/南江/refund-rules", nil)
	require.Equal(t, http.StatusOK, rr.Code)
}
