/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  Amounts cross the wire as decimal strings ("432.73"), never JSON
  numbers, so clients cannot silently lose precision.

VALIDATION:
  Request types carry go-playground/validator tags; handlers run the
  shared validator before touching the engine.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

// =============================================================================
// STUDENTS
// =============================================================================

// StudentDTO represents a student in API responses.
type StudentDTO struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Class      string       `json:"class,omitempty"`
	Campus     string       `json:"campus"`
	ClassTier  string       `json:"class_tier"`
	EnrollDate string       `json:"enroll_date,omitempty"`
	Discount   *DiscountDTO `json:"discount,omitempty"`
	FeeNotes   string       `json:"fee_notes,omitempty"`
}

// DiscountDTO mirrors finance.FeeDiscount on the wire.
type DiscountDTO struct {
	HasDiscount   bool     `json:"has_discount"`
	Type          string   `json:"type,omitempty"`
	Value         string   `json:"value,omitempty"`
	Reason        string   `json:"reason,omitempty"`
	CustomTuition *string  `json:"custom_tuition,omitempty"`
	CustomMealFee *string  `json:"custom_meal_fee,omitempty"`
	ExemptItems   []string `json:"exempt_items,omitempty"`
	ApprovedBy    string   `json:"approved_by,omitempty"`
}

// CreateStudentRequest is the request to create or update a student.
type CreateStudentRequest struct {
	ID         string       `json:"id" validate:"required"`
	Name       string       `json:"name" validate:"required"`
	Class      string       `json:"class"`
	Campus     string       `json:"campus" validate:"required"`
	ClassTier  string       `json:"class_tier" validate:"omitempty,oneof=standard excellence music"`
	EnrollDate string       `json:"enroll_date" validate:"omitempty,datetime=2006-01-02"`
	Discount   *DiscountDTO `json:"discount"`
	FeeNotes   string       `json:"fee_notes"`
}

// =============================================================================
// FEES AND STANDARDS
// =============================================================================

// TierFeesDTO is one tier's monthly fee pair.
type TierFeesDTO struct {
	Tuition string `json:"tuition"`
	Meal    string `json:"meal"`
}

// StandardDTO represents a campus fee standard.
type StandardDTO struct {
	CampusID      string       `json:"campus_id"`
	CampusName    string       `json:"campus_name"`
	Standard      TierFeesDTO  `json:"standard"`
	Excellence    *TierFeesDTO `json:"excellence,omitempty"`
	Music         *TierFeesDTO `json:"music,omitempty"`
	AgencyFee     string       `json:"agency_fee"`
	BeddingFee    string       `json:"bedding_fee"`
	EffectiveDate string       `json:"effective_date"`
}

// ActualFeesDTO is the per-student fee breakdown after discounts.
type ActualFeesDTO struct {
	Tuition         string `json:"tuition"`
	Meal            string `json:"meal"`
	Agency          string `json:"agency"`
	Bedding         string `json:"bedding"`
	Total           string `json:"total"`
	HasDiscount     bool   `json:"has_discount"`
	DiscountDetails string `json:"discount_details,omitempty"`
}

// =============================================================================
// ATTENDANCE
// =============================================================================

// RecordAttendanceRequest writes one attendance row.
type RecordAttendanceRequest struct {
	StudentID   string `json:"student_id" validate:"required"`
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	Status      string `json:"status" validate:"required,oneof=present absent late early_leave sick_leave personal_leave"`
	LeaveReason string `json:"leave_reason"`
	RecordedBy  string `json:"recorded_by"`
}

// AttendanceStatsDTO is the monthly summary.
type AttendanceStatsDTO struct {
	Period            string `json:"period"`
	TotalWorkDays     int    `json:"total_work_days"`
	PresentDays       int    `json:"present_days"`
	AbsentDays        int    `json:"absent_days"`
	SickLeaveDays     int    `json:"sick_leave_days"`
	PersonalLeaveDays int    `json:"personal_leave_days"`
	LateDays          int    `json:"late_days"`
	EarlyLeaveDays    int    `json:"early_leave_days"`
	HalfMonthDays     int    `json:"half_month_days"`
}

// =============================================================================
// REFUNDS
// =============================================================================

// RefundRequest drives preview, single and batch calculation.
type RefundRequest struct {
	StudentID  string   `json:"student_id"`
	StudentIDs []string `json:"student_ids"`
	Campus     string   `json:"campus"`
	Period     string   `json:"period" validate:"required"`
	Scope      string   `json:"scope" validate:"omitempty,oneof=tuition meal both"`
}

// RefundDTO represents a refund record in API responses.
type RefundDTO struct {
	ID          string `json:"id"`
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name"`
	Class       string `json:"class,omitempty"`
	Campus      string `json:"campus"`
	Period      string `json:"period"`
	Scope       string `json:"scope"`

	OriginalAmount    string `json:"original_amount"`
	TotalWorkDays     int    `json:"total_work_days"`
	PresentDays       int    `json:"present_days"`
	AbsentDays        int    `json:"absent_days"`
	SickLeaveDays     int    `json:"sick_leave_days"`
	PersonalLeaveDays int    `json:"personal_leave_days"`

	TuitionRefund string `json:"tuition_refund"`
	MealRefund    string `json:"meal_refund"`
	TotalRefund   string `json:"total_refund"`

	Status       string  `json:"status"`
	CalculatedBy string  `json:"calculated_by"`
	CalculatedAt string  `json:"calculated_at"`
	ApprovedBy   string  `json:"approved_by,omitempty"`
	ApprovedAt   *string `json:"approved_at,omitempty"`
	RefundedAt   *string `json:"refunded_at,omitempty"`

	Reason string `json:"reason"`
	Notes  string `json:"notes,omitempty"`
}

// RefundPreviewDTO is the what-if response.
type RefundPreviewDTO struct {
	TuitionRefund string             `json:"tuition_refund"`
	MealRefund    string             `json:"meal_refund"`
	TotalRefund   string             `json:"total_refund"`
	Reason        string             `json:"reason"`
	Fees          ActualFeesDTO      `json:"fees"`
	Stats         AttendanceStatsDTO `json:"stats"`
}

// ApproveRefundRequest decides a pending refund.
type ApproveRefundRequest struct {
	Approver string `json:"approver" validate:"required"`
	Approved bool   `json:"approved"`
	Notes    string `json:"notes"`
}

// =============================================================================
// PAYMENTS
// =============================================================================

// CreatePaymentRequest records one billing transaction.
type CreatePaymentRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	FeeType   string `json:"fee_type" validate:"required,oneof=tuition meal agency bedding"`

	CycleKind string `json:"cycle_kind" validate:"required,oneof=daily half_month monthly semester yearly"`
	CycleDays int    `json:"cycle_days" validate:"omitempty,min=1"`

	StartMonth string `json:"start_month" validate:"omitempty,datetime=2006-01"`

	DiscountType   string `json:"discount_type" validate:"omitempty,oneof=percentage fixed custom"`
	DiscountValue  string `json:"discount_value"`
	DiscountTarget string `json:"discount_target" validate:"omitempty,oneof=tuition total"`
	DiscountReason string `json:"discount_reason"`
	CustomAmount   string `json:"custom_amount"`

	Pending       bool   `json:"pending"`
	PaymentDate   string `json:"payment_date" validate:"omitempty,datetime=2006-01-02"`
	Method        string `json:"method" validate:"omitempty,oneof=cash wechat alipay bank transfer other"`
	ReceiptNumber string `json:"receipt_number"`
	Operator      string `json:"operator"`
	ApprovedBy    string `json:"approved_by"`
	Notes         string `json:"notes"`
}

// PaymentDTO represents a ledger entry in API responses.
type PaymentDTO struct {
	ID          string `json:"id"`
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name"`
	Class       string `json:"class,omitempty"`
	Campus      string `json:"campus"`

	Period     string `json:"period"`
	CycleKind  string `json:"cycle_kind"`
	CycleDays  int    `json:"cycle_days,omitempty"`
	StartMonth string `json:"start_month"`
	FeeType    string `json:"fee_type"`
	FeeName    string `json:"fee_name"`

	StandardAmount string `json:"standard_amount"`
	DiscountAmount string `json:"discount_amount"`
	ActualAmount   string `json:"actual_amount"`
	HasDiscount    bool   `json:"has_discount"`
	DiscountReason string `json:"discount_reason,omitempty"`

	PaymentDate   string `json:"payment_date"`
	Method        string `json:"method"`
	ReceiptNumber string `json:"receipt_number,omitempty"`
	Operator      string `json:"operator,omitempty"`
	Notes         string `json:"notes,omitempty"`

	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// CancelPaymentRequest voids a payment.
type CancelPaymentRequest struct {
	Reason string `json:"reason"`
}

// PaymentStatusDTO is the paid-through summary for one student.
type PaymentStatusDTO struct {
	StudentID     string  `json:"student_id"`
	StudentName   string  `json:"student_name"`
	Class         string  `json:"class,omitempty"`
	PaidThrough   *string `json:"paid_through,omitempty"`
	Overdue       bool    `json:"overdue"`
	OverdueMonths int     `json:"overdue_months,omitempty"`
}

// =============================================================================
// QR PAYMENTS
// =============================================================================

// SubmitQRPaymentRequest files a payment proof.
type SubmitQRPaymentRequest struct {
	PaymentID  string `json:"payment_id" validate:"required"`
	ProofImage string `json:"proof_image" validate:"required"`
	Remark     string `json:"remark"`
}

// ReviewQRPaymentRequest confirms or rejects a proof.
type ReviewQRPaymentRequest struct {
	Reviewer string `json:"reviewer" validate:"required"`
	Note     string `json:"note"`
}

// QRPaymentDTO represents a proof record in API responses.
type QRPaymentDTO struct {
	ID          string  `json:"id"`
	StudentID   string  `json:"student_id"`
	StudentName string  `json:"student_name"`
	PaymentID   string  `json:"payment_id"`
	ProofImage  string  `json:"proof_image,omitempty"`
	Remark      string  `json:"remark,omitempty"`
	Status      string  `json:"status"`
	ReviewedBy  string  `json:"reviewed_by,omitempty"`
	ReviewedAt  *string `json:"reviewed_at,omitempty"`
	ReviewNote  string  `json:"review_note,omitempty"`
	UploadedAt  string  `json:"uploaded_at"`
}

// =============================================================================
// REPORTS
// =============================================================================

// SummaryDTO is the per-campus monthly dashboard row.
type SummaryDTO struct {
	Campus string `json:"campus"`
	Period string `json:"period"`

	TotalStudents     int    `json:"total_students"`
	DiscountStudents  int    `json:"discount_students"`
	MonthlyReceivable string `json:"monthly_receivable"`

	RefundCount     int    `json:"refund_count"`
	PendingRefunds  int    `json:"pending_refunds"`
	RefundAmount    string `json:"refund_amount"`
	CompletedRefund string `json:"completed_refund"`

	PaymentCount  int    `json:"payment_count"`
	PaymentAmount string `json:"payment_amount"`
}

// FeeTypeStatsDTO is one row of the per-fee-type payment breakdown.
type FeeTypeStatsDTO struct {
	FeeType  string `json:"fee_type"`
	FeeName  string `json:"fee_name"`
	Count    int    `json:"count"`
	Amount   string `json:"amount"`
	Discount string `json:"discount"`
}

// PaymentStatsDTO is the campus payment breakdown for a period.
type PaymentStatsDTO struct {
	Campus string `json:"campus"`
	Period string `json:"period"`

	TotalStudents  int `json:"total_students"`
	PaidStudents   int `json:"paid_students"`
	UnpaidStudents int `json:"unpaid_students"`

	TotalStandard string `json:"total_standard"`
	TotalDiscount string `json:"total_discount"`
	TotalActual   string `json:"total_actual"`

	DiscountedPayments int `json:"discounted_payments"`

	ByFeeType []FeeTypeStatsDTO `json:"by_fee_type"`
}

// PaymentHistoryDTO is one student's ledger with confirmed totals.
type PaymentHistoryDTO struct {
	Payments        []PaymentDTO `json:"payments"`
	TotalPaid       string       `json:"total_paid"`
	TotalDiscount   string       `json:"total_discount"`
	LastPaymentDate string       `json:"last_payment_date,omitempty"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
