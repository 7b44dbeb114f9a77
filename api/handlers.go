/*
handlers.go - HTTP API handlers for the fee and refund engine

PURPOSE:
  Exposes the finance engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Standards:
    GET    /api/standards                     List fee standards
    GET    /api/standards/{campus}            Resolve a campus name

  Students:
    GET    /api/students?campus=              List students
    POST   /api/students                      Create/update student
    GET    /api/students/{id}                 Student details
    GET    /api/students/{id}/fees            Actual fees after discounts
    GET    /api/students/{id}/attendance/{period}  Monthly stats
    GET    /api/students/{id}/payments        Payment history
    GET    /api/students/{id}/payment-status  Paid-through summary

  Attendance:
    POST   /api/attendance                    Record one student-day

  Refunds:
    POST   /api/refunds/preview               What-if calculation
    POST   /api/refunds/calculate             Calculate and persist one
    POST   /api/refunds/batch                 Batch per class/campus
    GET    /api/refunds                       List with filters
    POST   /api/refunds/{id}/approve          Approve or reject
    POST   /api/refunds/{id}/complete         Mark paid out

  Payments:
    POST   /api/payments                      Create ledger entry
    GET    /api/payments                      List with filters
    GET    /api/payments/stats                Per-fee-type breakdown
    POST   /api/payments/{id}/confirm         Confirm pending payment
    POST   /api/payments/{id}/cancel          Void payment
    GET    /api/campuses/{campus}/overdue     Students needing payment

  QR payments:
    POST   /api/qr-payments                   Submit proof
    GET    /api/qr-payments                   List with filters
    POST   /api/qr-payments/{id}/confirm      Accept proof
    POST   /api/qr-payments/{id}/reject       Decline proof

  Reports / config:
    GET    /api/summary?campus=&period=       Monthly roll-up
    GET    /api/campuses/{campus}/fee-configs
    GET    /api/campuses/{campus}/refund-rules
    POST   /api/campuses/{campus}/seed-configs

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Conflict (invalid transition, duplicate refund)
  - 500: Internal errors

SECURITY NOTE:
  No authentication middleware. The surrounding deployment must gate
  who may reach approval and completion endpoints.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jinxing-edu/finance-engine/finance"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service  *finance.Service
	Log      *zap.Logger
	validate *validator.Validate
}

// NewHandler creates a new handler over the engine.
func NewHandler(svc *finance.Service, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		Service:  svc,
		Log:      log,
		validate: validator.New(),
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

// =============================================================================
// STANDARDS
// =============================================================================

// ListStandards returns all campus fee standards.
// GET /api/standards
func (h *Handler) ListStandards(w http.ResponseWriter, r *http.Request) {
	standards := h.Service.Standards.All()
	dtos := make([]StandardDTO, 0, len(standards))
	for i := range standards {
		dtos = append(dtos, toStandardDTO(&standards[i]))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetStandard resolves a campus name to its fee standard.
// GET /api/standards/{campus}
func (h *Handler) GetStandard(w http.ResponseWriter, r *http.Request) {
	campus := chi.URLParam(r, "campus")
	std, err := h.Service.CampusFeeStandard(campus)
	if err != nil {
		writeError(w, http.StatusNotFound, "Campus not found", err)
		return
	}
	writeJSON(w, http.StatusOK, toStandardDTO(std))
}

// =============================================================================
// STUDENTS
// =============================================================================

// ListStudents returns students, optionally filtered by campus.
// GET /api/students?campus=
func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.Service.Store.StudentsByCampus(r.Context(), r.URL.Query().Get("campus"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list students", err)
		return
	}
	dtos := make([]StudentDTO, 0, len(students))
	for i := range students {
		dtos = append(dtos, toStudentDTO(&students[i]))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateStudent creates or updates a student record.
// POST /api/students
func (h *Handler) CreateStudent(w http.ResponseWriter, r *http.Request) {
	var req CreateStudentRequest
	if !h.decode(w, r, &req) {
		return
	}

	student := finance.Student{
		ID:         req.ID,
		Name:       req.Name,
		Class:      req.Class,
		Campus:     req.Campus,
		ClassTier:  finance.ClassTier(req.ClassTier),
		EnrollDate: req.EnrollDate,
		FeeNotes:   req.FeeNotes,
	}
	if req.Discount != nil {
		d, err := fromDiscountDTO(req.Discount)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid discount amount", err)
			return
		}
		student.Discount = d
	}

	if err := h.Service.Store.SaveStudent(r.Context(), student); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save student", err)
		return
	}
	writeJSON(w, http.StatusCreated, toStudentDTO(&student))
}

// GetStudent returns one student.
// GET /api/students/{id}
func (h *Handler) GetStudent(w http.ResponseWriter, r *http.Request) {
	student, err := h.Service.Store.Student(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get student", err)
		return
	}
	if student == nil {
		writeError(w, http.StatusNotFound, "Student not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toStudentDTO(student))
}

// GetStudentFees returns the student's fee breakdown after discounts.
// GET /api/students/{id}/fees
func (h *Handler) GetStudentFees(w http.ResponseWriter, r *http.Request) {
	student, err := h.Service.Store.Student(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get student", err)
		return
	}
	if student == nil {
		writeError(w, http.StatusNotFound, "Student not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toActualFeesDTO(h.Service.StudentActualFees(student)))
}

// =============================================================================
// ATTENDANCE
// =============================================================================

// RecordAttendance writes one attendance row.
// POST /api/attendance
func (h *Handler) RecordAttendance(w http.ResponseWriter, r *http.Request) {
	var req RecordAttendanceRequest
	if !h.decode(w, r, &req) {
		return
	}

	rec := finance.AttendanceRecord{
		ID:          "att_" + req.StudentID + "_" + req.Date,
		StudentID:   req.StudentID,
		Date:        req.Date,
		Status:      finance.AttendanceStatus(req.Status),
		LeaveReason: req.LeaveReason,
		RecordedBy:  req.RecordedBy,
		RecordedAt:  time.Now().UTC(),
	}
	if err := h.Service.Store.SaveAttendance(r.Context(), rec); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save attendance", err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// GetAttendanceStats returns the monthly summary for one student.
// GET /api/students/{id}/attendance/{period}
func (h *Handler) GetAttendanceStats(w http.ResponseWriter, r *http.Request) {
	period, err := finance.ParseYearMonth(chi.URLParam(r, "period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period (use YYYY-MM)", err)
		return
	}
	stats, err := h.Service.MonthlyStats(r.Context(), chi.URLParam(r, "id"), period)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to aggregate attendance", err)
		return
	}
	writeJSON(w, http.StatusOK, toStatsDTO(period, stats))
}

// =============================================================================
// REFUNDS
// =============================================================================

// PreviewRefund runs the what-if calculation without persisting.
// POST /api/refunds/preview
func (h *Handler) PreviewRefund(w http.ResponseWriter, r *http.Request) {
	var req RefundRequest
	if !h.decode(w, r, &req) {
		return
	}
	period, err := finance.ParseYearMonth(req.Period)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period (use YYYY-MM)", err)
		return
	}

	preview, err := h.Service.PreviewRefund(r.Context(), req.StudentID, period, finance.RefundScope(req.Scope))
	if err != nil {
		writeEngineError(w, "Failed to preview refund", err)
		return
	}
	writeJSON(w, http.StatusOK, RefundPreviewDTO{
		TuitionRefund: preview.TuitionRefund.StringFixed(2),
		MealRefund:    preview.MealRefund.StringFixed(2),
		TotalRefund:   preview.TotalRefund.StringFixed(2),
		Reason:        preview.Reason,
		Fees:          toActualFeesDTO(preview.Fees),
		Stats:         toStatsDTO(period, preview.Stats),
	})
}

// CalculateRefund calculates and persists a single refund record.
// POST /api/refunds/calculate
func (h *Handler) CalculateRefund(w http.ResponseWriter, r *http.Request) {
	var req RefundRequest
	if !h.decode(w, r, &req) {
		return
	}
	period, err := finance.ParseYearMonth(req.Period)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period (use YYYY-MM)", err)
		return
	}

	rec, err := h.Service.CalculateRefund(r.Context(), req.StudentID, period, finance.RefundScope(req.Scope))
	if err != nil {
		writeEngineError(w, "Failed to calculate refund", err)
		return
	}
	if rec == nil {
		writeJSON(w, http.StatusOK, map[string]any{"refundable": false})
		return
	}
	if err := h.Service.SaveRefundRecord(r.Context(), rec); err != nil {
		writeEngineError(w, "Failed to save refund", err)
		return
	}
	writeJSON(w, http.StatusCreated, toRefundDTO(rec))
}

// BatchCalculateRefunds runs batch calculation over a student list or a
// whole campus.
// POST /api/refunds/batch
func (h *Handler) BatchCalculateRefunds(w http.ResponseWriter, r *http.Request) {
	var req RefundRequest
	if !h.decode(w, r, &req) {
		return
	}
	period, err := finance.ParseYearMonth(req.Period)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period (use YYYY-MM)", err)
		return
	}

	var created []finance.RefundRecord
	if len(req.StudentIDs) > 0 {
		created, err = h.Service.CalculateClassRefunds(r.Context(), req.StudentIDs, period, finance.RefundScope(req.Scope))
	} else if req.Campus != "" {
		created, err = h.Service.CalculateCampusRefunds(r.Context(), req.Campus, period, finance.RefundScope(req.Scope))
	} else {
		writeError(w, http.StatusBadRequest, "Provide student_ids or campus", nil)
		return
	}
	if err != nil {
		writeEngineError(w, "Batch calculation failed", err)
		return
	}

	dtos := make([]RefundDTO, 0, len(created))
	for i := range created {
		dtos = append(dtos, toRefundDTO(&created[i]))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListRefunds returns refund records matching the query filters.
// GET /api/refunds?student_id=&campus=&period=&status=
func (h *Handler) ListRefunds(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := finance.RefundFilter{
		StudentID: q.Get("student_id"),
		Campus:    q.Get("campus"),
		Status:    finance.RefundStatus(q.Get("status")),
	}
	if p := q.Get("period"); p != "" {
		period, err := finance.ParseYearMonth(p)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid period (use YYYY-MM)", err)
			return
		}
		f.Period = &period
	}

	recs, err := h.Service.RefundRecords(r.Context(), f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list refunds", err)
		return
	}
	dtos := make([]RefundDTO, 0, len(recs))
	for i := range recs {
		dtos = append(dtos, toRefundDTO(&recs[i]))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ApproveRefund decides a pending refund.
// POST /api/refunds/{id}/approve
func (h *Handler) ApproveRefund(w http.ResponseWriter, r *http.Request) {
	var req ApproveRefundRequest
	if !h.decode(w, r, &req) {
		return
	}

	rec, err := h.Service.ApproveRefund(r.Context(), chi.URLParam(r, "id"), req.Approver, req.Approved, req.Notes)
	if err != nil {
		writeEngineError(w, "Failed to approve refund", err)
		return
	}
	writeJSON(w, http.StatusOK, toRefundDTO(rec))
}

// CompleteRefund marks an approved refund as paid out.
// POST /api/refunds/{id}/complete
func (h *Handler) CompleteRefund(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Service.CompleteRefund(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, "Failed to complete refund", err)
		return
	}
	writeJSON(w, http.StatusOK, toRefundDTO(rec))
}

// =============================================================================
// PAYMENTS
// =============================================================================

// CreatePayment records one billing transaction.
// POST /api/payments
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req CreatePaymentRequest
	if !h.decode(w, r, &req) {
		return
	}

	cycle := finance.PaymentCycle{Kind: finance.CycleKind(req.CycleKind), Days: req.CycleDays}
	opts := finance.PaymentOptions{
		DiscountType:   finance.DiscountType(req.DiscountType),
		DiscountTarget: finance.DiscountTarget(req.DiscountTarget),
		DiscountReason: req.DiscountReason,
		Pending:        req.Pending,
		PaymentDate:    req.PaymentDate,
		Method:         finance.PaymentMethod(req.Method),
		ReceiptNumber:  req.ReceiptNumber,
		Operator:       req.Operator,
		ApprovedBy:     req.ApprovedBy,
		Notes:          req.Notes,
	}
	if req.DiscountValue != "" {
		v, err := decimal.NewFromString(req.DiscountValue)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid discount_value", err)
			return
		}
		opts.DiscountValue = v
	}
	if req.CustomAmount != "" {
		v, err := decimal.NewFromString(req.CustomAmount)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid custom_amount", err)
			return
		}
		opts.CustomAmount = &v
	}
	if req.StartMonth != "" {
		start, err := finance.ParseYearMonth(req.StartMonth)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid start_month (use YYYY-MM)", err)
			return
		}
		opts.StartMonth = &start
	}

	p, err := h.Service.CreatePayment(r.Context(), req.StudentID, finance.FeeType(req.FeeType), cycle, opts)
	if err != nil {
		writeEngineError(w, "Failed to create payment", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentDTO(p))
}

// ListPayments returns ledger entries matching the query filters.
// GET /api/payments?student_id=&campus=&period=&fee_type=&status=
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	payments, err := h.Service.Payments(r.Context(), finance.PaymentFilter{
		StudentID:    q.Get("student_id"),
		Campus:       q.Get("campus"),
		PeriodPrefix: q.Get("period"),
		FeeType:      finance.FeeType(q.Get("fee_type")),
		Status:       finance.PaymentStatus(q.Get("status")),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list payments", err)
		return
	}
	dtos := make([]PaymentDTO, 0, len(payments))
	for i := range payments {
		dtos = append(dtos, toPaymentDTO(&payments[i]))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ConfirmPayment confirms a pending payment.
// POST /api/payments/{id}/confirm
func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	p, err := h.Service.ConfirmPayment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, "Failed to confirm payment", err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentDTO(p))
}

// CancelPayment voids a payment.
// POST /api/payments/{id}/cancel
func (h *Handler) CancelPayment(w http.ResponseWriter, r *http.Request) {
	var req CancelPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err.Error() != "EOF" {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	p, err := h.Service.CancelPayment(r.Context(), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		writeEngineError(w, "Failed to cancel payment", err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentDTO(p))
}

// GetPaymentHistory returns every ledger entry for a student plus
// totals over the confirmed ones.
// GET /api/students/{id}/payments
func (h *Handler) GetPaymentHistory(w http.ResponseWriter, r *http.Request) {
	hist, err := h.Service.StudentPaymentHistory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list payments", err)
		return
	}
	dto := PaymentHistoryDTO{
		Payments:        make([]PaymentDTO, 0, len(hist.Payments)),
		TotalPaid:       hist.TotalPaid.StringFixed(2),
		TotalDiscount:   hist.TotalDiscount.StringFixed(2),
		LastPaymentDate: hist.LastPaymentDate,
	}
	for i := range hist.Payments {
		dto.Payments = append(dto.Payments, toPaymentDTO(&hist.Payments[i]))
	}
	writeJSON(w, http.StatusOK, dto)
}

// GetPaymentStatus returns the paid-through summary for a student.
// GET /api/students/{id}/payment-status
func (h *Handler) GetPaymentStatus(w http.ResponseWriter, r *http.Request) {
	info, err := h.Service.StudentPaymentStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, "Failed to get payment status", err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentStatusDTO(info))
}

// ListOverdueStudents returns paid-through info for every overdue
// student of a campus.
// GET /api/campuses/{campus}/overdue
func (h *Handler) ListOverdueStudents(w http.ResponseWriter, r *http.Request) {
	infos, err := h.Service.StudentsNeedingPayment(r.Context(), chi.URLParam(r, "campus"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list overdue students", err)
		return
	}
	dtos := make([]PaymentStatusDTO, 0, len(infos))
	for i := range infos {
		dtos = append(dtos, toPaymentStatusDTO(&infos[i]))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// QR PAYMENTS
// =============================================================================

// SubmitQRPayment files a payment proof against a pending payment.
// POST /api/qr-payments
func (h *Handler) SubmitQRPayment(w http.ResponseWriter, r *http.Request) {
	var req SubmitQRPaymentRequest
	if !h.decode(w, r, &req) {
		return
	}
	rec, err := h.Service.SubmitQRPayment(r.Context(), req.PaymentID, req.ProofImage, req.Remark)
	if err != nil {
		writeEngineError(w, "Failed to submit payment proof", err)
		return
	}
	writeJSON(w, http.StatusCreated, toQRPaymentDTO(rec))
}

// ListQRPayments returns proof records matching the query filters.
// GET /api/qr-payments?student_id=&payment_id=&status=
func (h *Handler) ListQRPayments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	recs, err := h.Service.Store.QRPayments(r.Context(), finance.QRPaymentFilter{
		StudentID: q.Get("student_id"),
		PaymentID: q.Get("payment_id"),
		Status:    finance.QRPaymentStatus(q.Get("status")),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list payment proofs", err)
		return
	}
	dtos := make([]QRPaymentDTO, 0, len(recs))
	for i := range recs {
		dtos = append(dtos, toQRPaymentDTO(&recs[i]))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ConfirmQRPayment accepts a proof and confirms its linked payment.
// POST /api/qr-payments/{id}/confirm
func (h *Handler) ConfirmQRPayment(w http.ResponseWriter, r *http.Request) {
	var req ReviewQRPaymentRequest
	if !h.decode(w, r, &req) {
		return
	}
	rec, err := h.Service.ConfirmQRPayment(r.Context(), chi.URLParam(r, "id"), req.Reviewer, req.Note)
	if err != nil {
		writeEngineError(w, "Failed to confirm payment proof", err)
		return
	}
	writeJSON(w, http.StatusOK, toQRPaymentDTO(rec))
}

// RejectQRPayment declines a proof.
// POST /api/qr-payments/{id}/reject
func (h *Handler) RejectQRPayment(w http.ResponseWriter, r *http.Request) {
	var req ReviewQRPaymentRequest
	if !h.decode(w, r, &req) {
		return
	}
	rec, err := h.Service.RejectQRPayment(r.Context(), chi.URLParam(r, "id"), req.Reviewer, req.Note)
	if err != nil {
		writeEngineError(w, "Failed to reject payment proof", err)
		return
	}
	writeJSON(w, http.StatusOK, toQRPaymentDTO(rec))
}

// =============================================================================
// REPORTS AND CONFIG
// =============================================================================

// GetSummary returns the monthly roll-up for a campus.
// GET /api/summary?campus=&period=
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	period, err := finance.ParseYearMonth(r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period (use YYYY-MM)", err)
		return
	}
	sum, err := h.Service.Summary(r.Context(), r.URL.Query().Get("campus"), period)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build summary", err)
		return
	}
	writeJSON(w, http.StatusOK, SummaryDTO{
		Campus:            sum.Campus,
		Period:            sum.Period.String(),
		TotalStudents:     sum.TotalStudents,
		DiscountStudents:  sum.DiscountStudents,
		MonthlyReceivable: sum.MonthlyReceivable.StringFixed(2),
		RefundCount:       sum.RefundCount,
		PendingRefunds:    sum.PendingRefunds,
		RefundAmount:      sum.RefundAmount.StringFixed(2),
		CompletedRefund:   sum.CompletedRefund.StringFixed(2),
		PaymentCount:      sum.PaymentCount,
		PaymentAmount:     sum.PaymentAmount.StringFixed(2),
	})
}

// GetPaymentStats returns the campus payment breakdown.
// GET /api/payments/stats?campus=&period=
func (h *Handler) GetPaymentStats(w http.ResponseWriter, r *http.Request) {
	report, err := h.Service.PaymentStats(r.Context(), r.URL.Query().Get("campus"), r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build payment stats", err)
		return
	}
	dto := PaymentStatsDTO{
		Campus:             report.Campus,
		Period:             report.Period,
		TotalStudents:      report.TotalStudents,
		PaidStudents:       report.PaidStudents,
		UnpaidStudents:     report.UnpaidStudents,
		TotalStandard:      report.TotalStandard.StringFixed(2),
		TotalDiscount:      report.TotalDiscount.StringFixed(2),
		TotalActual:        report.TotalActual.StringFixed(2),
		DiscountedPayments: report.DiscountedPayments,
		ByFeeType:          make([]FeeTypeStatsDTO, 0, len(report.ByFeeType)),
	}
	for _, row := range report.ByFeeType {
		dto.ByFeeType = append(dto.ByFeeType, FeeTypeStatsDTO{
			FeeType:  string(row.FeeType),
			FeeName:  row.FeeType.DisplayName(),
			Count:    row.Count,
			Amount:   row.Amount.StringFixed(2),
			Discount: row.Discount.StringFixed(2),
		})
	}
	writeJSON(w, http.StatusOK, dto)
}

// ListFeeConfigs returns fee config rows for a campus.
// GET /api/campuses/{campus}/fee-configs
func (h *Handler) ListFeeConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := h.Service.FeeConfigs(r.Context(), chi.URLParam(r, "campus"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list fee configs", err)
		return
	}
	writeJSON(w, http.StatusOK, configs)
}

// ListRefundRules returns refund rule rows for a campus.
// GET /api/campuses/{campus}/refund-rules
func (h *Handler) ListRefundRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.Service.RefundRuleConfigs(r.Context(), chi.URLParam(r, "campus"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list refund rules", err)
		return
	}
	writeJSON(w, http.StatusOK, rules)
}

// SeedConfigs writes the default config rows for a campus.
// POST /api/campuses/{campus}/seed-configs
func (h *Handler) SeedConfigs(w http.ResponseWriter, r *http.Request) {
	campus := chi.URLParam(r, "campus")
	if err := h.Service.SeedDefaults(r.Context(), campus); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to seed configs", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"campus": campus, "status": "seeded"})
}

// =============================================================================
// DTO CONVERSION
// =============================================================================

func toStandardDTO(s *finance.CampusFeeStandard) StandardDTO {
	dto := StandardDTO{
		CampusID:   s.CampusID,
		CampusName: s.CampusName,
		Standard: TierFeesDTO{
			Tuition: s.Standard.Tuition.StringFixed(2),
			Meal:    s.Standard.Meal.StringFixed(2),
		},
		AgencyFee:     s.Other.Agency.StringFixed(2),
		BeddingFee:    s.Other.Bedding.StringFixed(2),
		EffectiveDate: s.EffectiveDate,
	}
	if s.Excellence != nil {
		dto.Excellence = &TierFeesDTO{
			Tuition: s.Excellence.Tuition.StringFixed(2),
			Meal:    s.Excellence.Meal.StringFixed(2),
		}
	}
	if s.Music != nil {
		dto.Music = &TierFeesDTO{
			Tuition: s.Music.Tuition.StringFixed(2),
			Meal:    s.Music.Meal.StringFixed(2),
		}
	}
	return dto
}

func toStudentDTO(s *finance.Student) StudentDTO {
	dto := StudentDTO{
		ID:         s.ID,
		Name:       s.Name,
		Class:      s.Class,
		Campus:     s.Campus,
		ClassTier:  string(s.ClassTier.OrDefault()),
		EnrollDate: s.EnrollDate,
		FeeNotes:   s.FeeNotes,
	}
	if s.Discount != nil {
		d := &DiscountDTO{
			HasDiscount: s.Discount.HasDiscount,
			Type:        string(s.Discount.Type),
			Value:       s.Discount.Value.String(),
			Reason:      s.Discount.Reason,
			ApprovedBy:  s.Discount.ApprovedBy,
		}
		if s.Discount.CustomTuition != nil {
			v := s.Discount.CustomTuition.StringFixed(2)
			d.CustomTuition = &v
		}
		if s.Discount.CustomMealFee != nil {
			v := s.Discount.CustomMealFee.StringFixed(2)
			d.CustomMealFee = &v
		}
		for _, item := range s.Discount.ExemptItems {
			d.ExemptItems = append(d.ExemptItems, string(item))
		}
		dto.Discount = d
	}
	return dto
}

func fromDiscountDTO(d *DiscountDTO) (*finance.FeeDiscount, error) {
	out := &finance.FeeDiscount{
		HasDiscount: d.HasDiscount,
		Type:        finance.DiscountType(d.Type),
		Reason:      d.Reason,
		ApprovedBy:  d.ApprovedBy,
	}
	if d.Value != "" {
		v, err := decimal.NewFromString(d.Value)
		if err != nil {
			return nil, err
		}
		out.Value = v
	}
	if d.CustomTuition != nil {
		v, err := decimal.NewFromString(*d.CustomTuition)
		if err != nil {
			return nil, err
		}
		out.CustomTuition = &v
	}
	if d.CustomMealFee != nil {
		v, err := decimal.NewFromString(*d.CustomMealFee)
		if err != nil {
			return nil, err
		}
		out.CustomMealFee = &v
	}
	for _, item := range d.ExemptItems {
		out.ExemptItems = append(out.ExemptItems, finance.FeeType(item))
	}
	return out, nil
}

func toActualFeesDTO(f finance.ActualFees) ActualFeesDTO {
	return ActualFeesDTO{
		Tuition:         f.Tuition.StringFixed(2),
		Meal:            f.Meal.StringFixed(2),
		Agency:          f.Agency.StringFixed(2),
		Bedding:         f.Bedding.StringFixed(2),
		Total:           f.Total.StringFixed(2),
		HasDiscount:     f.HasDiscount,
		DiscountDetails: f.DiscountDetails,
	}
}

func toStatsDTO(period finance.YearMonth, s finance.MonthlyAttendanceStats) AttendanceStatsDTO {
	return AttendanceStatsDTO{
		Period:            period.String(),
		TotalWorkDays:     s.TotalWorkDays,
		PresentDays:       s.PresentDays,
		AbsentDays:        s.AbsentDays,
		SickLeaveDays:     s.SickLeaveDays,
		PersonalLeaveDays: s.PersonalLeaveDays,
		LateDays:          s.LateDays,
		EarlyLeaveDays:    s.EarlyLeaveDays,
		HalfMonthDays:     s.HalfMonthDays(),
	}
}

func toRefundDTO(r *finance.RefundRecord) RefundDTO {
	return RefundDTO{
		ID:          r.ID,
		StudentID:   r.StudentID,
		StudentName: r.StudentName,
		Class:       r.Class,
		Campus:      r.Campus,
		Period:      r.Period.String(),
		Scope:       string(r.Scope),

		OriginalAmount:    r.OriginalAmount.StringFixed(2),
		TotalWorkDays:     r.TotalWorkDays,
		PresentDays:       r.PresentDays,
		AbsentDays:        r.AbsentDays,
		SickLeaveDays:     r.SickLeaveDays,
		PersonalLeaveDays: r.PersonalLeaveDays,

		TuitionRefund: r.TuitionRefund.StringFixed(2),
		MealRefund:    r.MealRefund.StringFixed(2),
		TotalRefund:   r.TotalRefund.StringFixed(2),

		Status:       string(r.Status),
		CalculatedBy: r.CalculatedBy,
		CalculatedAt: r.CalculatedAt.Format(time.RFC3339),
		ApprovedBy:   r.ApprovedBy,
		ApprovedAt:   timeString(r.ApprovedAt),
		RefundedAt:   timeString(r.RefundedAt),

		Reason: r.Reason,
		Notes:  r.Notes,
	}
}

func toPaymentDTO(p *finance.FeePayment) PaymentDTO {
	return PaymentDTO{
		ID:          p.ID,
		StudentID:   p.StudentID,
		StudentName: p.StudentName,
		Class:       p.Class,
		Campus:      p.Campus,

		Period:     p.Period,
		CycleKind:  string(p.Cycle.Kind),
		CycleDays:  p.Cycle.Days,
		StartMonth: p.StartMonth.String(),
		FeeType:    string(p.FeeType),
		FeeName:    p.FeeName,

		StandardAmount: p.StandardAmount.StringFixed(2),
		DiscountAmount: p.DiscountAmount.StringFixed(2),
		ActualAmount:   p.ActualAmount.StringFixed(2),
		HasDiscount:    p.HasDiscount,
		DiscountReason: p.DiscountReason,

		PaymentDate:   p.PaymentDate,
		Method:        string(p.Method),
		ReceiptNumber: p.ReceiptNumber,
		Operator:      p.Operator,
		Notes:         p.Notes,

		Status:    string(p.Status),
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
	}
}

func toPaymentStatusDTO(info *finance.PaymentStatusInfo) PaymentStatusDTO {
	dto := PaymentStatusDTO{
		StudentID:     info.StudentID,
		StudentName:   info.StudentName,
		Class:         info.Class,
		Overdue:       info.Overdue,
		OverdueMonths: info.OverdueMonths,
	}
	if info.PaidThrough != nil {
		v := info.PaidThrough.String()
		dto.PaidThrough = &v
	}
	return dto
}

func toQRPaymentDTO(r *finance.QRPaymentRecord) QRPaymentDTO {
	return QRPaymentDTO{
		ID:          r.ID,
		StudentID:   r.StudentID,
		StudentName: r.StudentName,
		PaymentID:   r.PaymentID,
		ProofImage:  r.ProofImage,
		Remark:      r.Remark,
		Status:      string(r.Status),
		ReviewedBy:  r.ReviewedBy,
		ReviewedAt:  timeString(r.ReviewedAt),
		ReviewNote:  r.ReviewNote,
		UploadedAt:  r.UploadedAt.Format(time.RFC3339),
	}
}

func timeString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeEngineError maps engine error taxonomy onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, message string, err error) {
	switch {
	case finance.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case finance.IsClientError(err):
		writeError(w, http.StatusConflict, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
