/*
Package finance implements the tuition/meal fee and refund engine for a
multi-campus kindergarten group.

PURPOSE:
  This package turns raw daily attendance into money: per-campus fee
  schedules, student discount stacking, monthly attendance aggregation,
  prorated refund calculation, and the payment/refund approval workflow.
  Everything monetary is bit-for-bit reproducible.

KEY CONCEPTS IN THIS FILE (types.go):
  - Student / FeeDiscount: who is billed and how their fees deviate
  - AttendanceRecord: one row per (student, day), immutable input
  - RefundRecord: the auditable output of the refund calculator
  - FeePayment / PaymentCycle: append-only billing ledger entries
  - FeeType / ClassTier / status enums: centrally-defined variants

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal everywhere money flows, 2-dp at rest
  2. Immutability: refund records are never deleted, payments are
     cancelled by status change, attendance is read-only input
  3. Determinism: all "now" checks go through the injected Clock
  4. Auditability: refunds carry the attendance record IDs they were
     computed from

SEE ALSO:
  - standards.go: campus fee schedule resolution
  - discount.go: student discount application
  - refund.go: the refund policy itself
  - payment.go: billing cycles and paid-through tracking
*/
package finance

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// FEE TYPES AND CLASS TIERS
// =============================================================================

// FeeType identifies a billable item. Tuition and meal recur monthly;
// agency and bedding are one-time items.
type FeeType string

const (
	FeeTuition FeeType = "tuition"
	FeeMeal    FeeType = "meal"
	FeeAgency  FeeType = "agency"
	FeeBedding FeeType = "bedding"
)

// Recurring reports whether the fee is billed per month (and therefore
// scaled by a payment cycle) as opposed to a one-time item.
func (f FeeType) Recurring() bool {
	return f == FeeTuition || f == FeeMeal
}

// DisplayName returns the fee name as it appears on receipts.
func (f FeeType) DisplayName() string {
	switch f {
	case FeeTuition:
		return "保教费"
	case FeeMeal:
		return "伙食费"
	case FeeAgency:
		return "代办费"
	case FeeBedding:
		return "床品费"
	default:
		return string(f)
	}
}

// ClassTier is the pricing category a student belongs to.
type ClassTier string

const (
	TierStandard   ClassTier = "standard"
	TierExcellence ClassTier = "excellence"
	TierMusic      ClassTier = "music"
)

// OrDefault is the single canonical fallback for an unset tier.
// Every lookup goes through here so there is exactly one default.
func (t ClassTier) OrDefault() ClassTier {
	switch t {
	case TierExcellence, TierMusic:
		return t
	default:
		return TierStandard
	}
}

// DisplayName returns the tier name as it appears on receipts.
func (t ClassTier) DisplayName() string {
	switch t.OrDefault() {
	case TierExcellence:
		return "优苗班"
	case TierMusic:
		return "音乐班"
	default:
		return "标准班"
	}
}

// =============================================================================
// STUDENT AND DISCOUNT CONFIGURATION
// =============================================================================

// DiscountType distinguishes how a discount value is interpreted.
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
	DiscountCustom     DiscountType = "custom"
)

// FeeDiscount is a student's individual discount configuration, owned by
// finance staff and persisted with the student record.
//
// Resolution order is fixed (see ComputeActualFees): custom absolute
// override, then percentage, then fixed amount, then per-item exemptions.
// Exemptions always win.
type FeeDiscount struct {
	HasDiscount bool
	Type        DiscountType
	Value       decimal.Decimal
	Reason      string

	// Absolute overrides of the campus standard.
	CustomTuition *decimal.Decimal
	CustomMealFee *decimal.Decimal

	// Items forced to zero regardless of the steps above.
	ExemptItems []FeeType

	EffectiveFrom string
	EffectiveTo   string
	ApprovedBy    string
}

// Exempts reports whether the given fee item is zeroed by this discount.
func (d *FeeDiscount) Exempts(item FeeType) bool {
	if d == nil {
		return false
	}
	for _, e := range d.ExemptItems {
		if e == item {
			return true
		}
	}
	return false
}

// Student carries the subset of the student record the engine needs.
type Student struct {
	ID         string
	Name       string
	Class      string
	Campus     string
	ClassTier  ClassTier
	EnrollDate string

	Discount *FeeDiscount
	FeeNotes string
}

// =============================================================================
// ATTENDANCE
// =============================================================================

// AttendanceStatus is the recorded outcome for one student-day.
type AttendanceStatus string

const (
	StatusPresent       AttendanceStatus = "present"
	StatusAbsent        AttendanceStatus = "absent"
	StatusLate          AttendanceStatus = "late"
	StatusEarlyLeave    AttendanceStatus = "early_leave"
	StatusSickLeave     AttendanceStatus = "sick_leave"
	StatusPersonalLeave AttendanceStatus = "personal_leave"
)

// AttendanceRecord is one row per (student, calendar date). The engine
// treats these as immutable inputs; it never writes attendance.
type AttendanceRecord struct {
	ID           string
	StudentID    string
	Date         string // YYYY-MM-DD
	Status       AttendanceStatus
	CheckInTime  string
	CheckOutTime string
	LeaveReason  string
	RecordedBy   string
	RecordedAt   time.Time
}

// MonthlyAttendanceStats is derived fresh per request, never persisted.
// Late and early-leave days count toward PresentDays as well as their
// own counters.
type MonthlyAttendanceStats struct {
	TotalWorkDays     int
	PresentDays       int
	AbsentDays        int
	SickLeaveDays     int
	PersonalLeaveDays int
	LateDays          int
	EarlyLeaveDays    int

	// IDs of the records actually found; days inferred as absent because
	// no record exists are not represented here.
	AttendanceRecordIDs []string
}

// TotalAbsent is the absence count the refund policy works with: plain
// absence, sick leave and personal leave all count the same.
func (m MonthlyAttendanceStats) TotalAbsent() int {
	return m.AbsentDays + m.SickLeaveDays + m.PersonalLeaveDays
}

// HalfMonthDays is the half-month attendance threshold: the ceiling of
// half the month's working days.
func (m MonthlyAttendanceStats) HalfMonthDays() int {
	return (m.TotalWorkDays + 1) / 2
}

// MissingRecordPolicy names the rule applied to a past working day with
// no attendance record. The engine uses TreatAsAbsent: missing data
// counts against attendance, never silently excused.
type MissingRecordPolicy string

const TreatAsAbsent MissingRecordPolicy = "treat_as_absent"

// =============================================================================
// ACTUAL FEES - the discount engine's output
// =============================================================================

// ActualFees is the per-student fee breakdown after discounts.
// Total covers the recurring items only; agency and bedding are one-time.
type ActualFees struct {
	Tuition decimal.Decimal
	Meal    decimal.Decimal
	Agency  decimal.Decimal
	Bedding decimal.Decimal
	Total   decimal.Decimal

	HasDiscount     bool
	DiscountDetails string
}

// =============================================================================
// REFUND RECORDS
// =============================================================================

// RefundStatus is the workflow state of a refund record.
// Transitions only move forward: pending → approved|rejected,
// approved → completed. Rejected and completed are terminal.
type RefundStatus string

const (
	RefundPending   RefundStatus = "pending"
	RefundApproved  RefundStatus = "approved"
	RefundRejected  RefundStatus = "rejected"
	RefundCompleted RefundStatus = "completed"
)

// Terminal reports whether no further transition is permitted.
func (s RefundStatus) Terminal() bool {
	return s == RefundRejected || s == RefundCompleted
}

// RefundScope selects which fees a refund calculation covers.
type RefundScope string

const (
	ScopeTuition RefundScope = "tuition"
	ScopeMeal    RefundScope = "meal"
	ScopeBoth    RefundScope = "both"
)

// OrDefault resolves an unset scope to ScopeBoth.
func (s RefundScope) OrDefault() RefundScope {
	switch s {
	case ScopeTuition, ScopeMeal:
		return s
	default:
		return ScopeBoth
	}
}

// RefundRecord is the auditable result of a refund calculation.
// Records are never deleted; status advances only through the workflow.
type RefundRecord struct {
	ID          string
	StudentID   string
	StudentName string
	Class       string
	Campus      string
	Period      YearMonth
	Scope       RefundScope

	// Calculation basis.
	OriginalAmount    decimal.Decimal // actual monthly tuition + meal
	TotalWorkDays     int
	PresentDays       int
	AbsentDays        int
	SickLeaveDays     int
	PersonalLeaveDays int

	// Results, rounded to 2 decimal places.
	TuitionRefund decimal.Decimal
	MealRefund    decimal.Decimal
	TotalRefund   decimal.Decimal

	Status       RefundStatus
	CalculatedBy string
	CalculatedAt time.Time
	ApprovedBy   string
	ApprovedAt   *time.Time
	RefundedAt   *time.Time

	Reason string // derived narrative, see refund.go
	Notes  string

	// Provenance: the attendance records the numbers came from.
	AttendanceRecordIDs []string
}

// =============================================================================
// PAYMENTS
// =============================================================================

// WorkdaysPerMonth is the fixed divisor for daily proration.
const WorkdaysPerMonth = 22

// CycleKind enumerates the supported billing cycles.
type CycleKind string

const (
	CycleDaily     CycleKind = "daily"
	CycleHalfMonth CycleKind = "half_month"
	CycleMonthly   CycleKind = "monthly"
	CycleSemester  CycleKind = "semester"
	CycleYearly    CycleKind = "yearly"
)

// PaymentCycle is a tagged billing-cycle variant. Days is meaningful only
// for the daily cycle.
type PaymentCycle struct {
	Kind CycleKind
	Days int
}

func Daily(days int) PaymentCycle { return PaymentCycle{Kind: CycleDaily, Days: days} }

var (
	HalfMonth = PaymentCycle{Kind: CycleHalfMonth}
	Monthly   = PaymentCycle{Kind: CycleMonthly}
	Semester  = PaymentCycle{Kind: CycleSemester}
	Yearly    = PaymentCycle{Kind: CycleYearly}
)

// Factor returns the multiplier applied to a monthly fee for this cycle.
func (c PaymentCycle) Factor() decimal.Decimal {
	switch c.Kind {
	case CycleDaily:
		return decimal.NewFromInt(int64(c.Days)).Div(decimal.NewFromInt(WorkdaysPerMonth))
	case CycleHalfMonth:
		return decimal.NewFromFloat(0.5)
	case CycleSemester:
		return decimal.NewFromInt(6)
	case CycleYearly:
		return decimal.NewFromInt(12)
	default:
		return decimal.NewFromInt(1)
	}
}

// Months returns how many calendar months the cycle covers for
// paid-through tracking. Daily and half-month payments cover their
// start month.
func (c PaymentCycle) Months() int {
	switch c.Kind {
	case CycleSemester:
		return 6
	case CycleYearly:
		return 12
	default:
		return 1
	}
}

// PaymentMethod is how a payment was settled.
type PaymentMethod string

const (
	MethodCash     PaymentMethod = "cash"
	MethodWeChat   PaymentMethod = "wechat"
	MethodAlipay   PaymentMethod = "alipay"
	MethodBank     PaymentMethod = "bank"
	MethodTransfer PaymentMethod = "transfer"
	MethodOther    PaymentMethod = "other"
)

// PaymentStatus is the lifecycle state of a payment record.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentConfirmed PaymentStatus = "confirmed"
	PaymentCancelled PaymentStatus = "cancelled"
)

// DiscountTarget selects the base for a payment-time percentage
// discount. This is independent of the student-level discount path.
type DiscountTarget string

const (
	TargetTuition DiscountTarget = "tuition"
	TargetTotal   DiscountTarget = "total"
)

// FeePayment is one append-only billing ledger entry. Cancellation is a
// status change, never a deletion.
type FeePayment struct {
	ID          string
	StudentID   string
	StudentName string
	Class       string
	Campus      string

	Period     string // "2026-01" or "2026-01~2026-06"
	Cycle      PaymentCycle
	StartMonth YearMonth

	FeeType FeeType
	FeeName string

	StandardAmount decimal.Decimal
	DiscountAmount decimal.Decimal
	ActualAmount   decimal.Decimal // StandardAmount - DiscountAmount, never negative

	HasDiscount    bool
	DiscountType   DiscountType
	DiscountValue  decimal.Decimal
	DiscountTarget DiscountTarget
	DiscountReason string

	PaymentDate   string
	Method        PaymentMethod
	ReceiptNumber string

	Operator   string
	ApprovedBy string
	Notes      string

	Status    PaymentStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PaidThrough returns the last month this payment covers, computed by
// month arithmetic from the start month and the cycle length.
func (p *FeePayment) PaidThrough() YearMonth {
	return p.StartMonth.AddMonths(p.Cycle.Months() - 1)
}

// =============================================================================
// RULE / CONFIG ROWS (display and audit only)
// =============================================================================

// RefundRule names the proration rule a fee config follows.
type RefundRule string

const (
	RuleDaily     RefundRule = "daily"
	RuleHalfMonth RefundRule = "half_month"
	RuleFullMonth RefundRule = "full_month"
)

// FeeConfig is a per-campus fee item row. DailyRate is always
// MonthlyAmount / WorkdaysPerMonth.
type FeeConfig struct {
	ID            string
	Name          string
	Type          FeeType
	MonthlyAmount decimal.Decimal
	RefundRule    RefundRule
	DailyRate     decimal.Decimal
	Campus        string
	ClassTier     ClassTier
	Description   string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// RefundRuleConfig mirrors the canonical refund policy parameters for
// display and audit. The calculator hardcodes the same thresholds; this
// record exists so the numbers are visible and tunable later.
type RefundRuleConfig struct {
	ID      string
	Campus  string
	FeeType FeeType

	// Tuition rules.
	SickLeaveRefundRate     decimal.Decimal
	PersonalLeaveRefundRate decimal.Decimal

	// Meal rules.
	MealRefundPerDay decimal.Decimal
	MinAbsentDays    int

	EffectiveDate string
	CreatedBy     string
	CreatedAt     time.Time
}
