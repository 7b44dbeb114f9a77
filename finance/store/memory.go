// Package store provides RecordStore implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/jinxing-edu/finance-engine/finance"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	students    map[string]finance.Student
	attendance  map[attendanceKey]finance.AttendanceRecord
	refunds     map[string]finance.RefundRecord
	payments    map[string]finance.FeePayment
	qrPayments  map[string]finance.QRPaymentRecord
	feeConfigs  map[string]finance.FeeConfig
	refundRules map[string]finance.RefundRuleConfig

	// Insertion order per collection so listings are deterministic.
	refundOrder  []string
	paymentOrder []string
	qrOrder      []string
}

type attendanceKey struct {
	StudentID string
	Date      string
}

// The maps hold structs by value, but a few record types carry slices
// or pointers. Those are cloned on every save and read so callers can
// never alias the store's internal state.

func cloneStudent(s finance.Student) finance.Student {
	if s.Discount != nil {
		d := *s.Discount
		if d.CustomTuition != nil {
			v := *d.CustomTuition
			d.CustomTuition = &v
		}
		if d.CustomMealFee != nil {
			v := *d.CustomMealFee
			d.CustomMealFee = &v
		}
		d.ExemptItems = append([]finance.FeeType(nil), d.ExemptItems...)
		s.Discount = &d
	}
	return s
}

func cloneRefund(r finance.RefundRecord) finance.RefundRecord {
	r.AttendanceRecordIDs = append([]string(nil), r.AttendanceRecordIDs...)
	if r.ApprovedAt != nil {
		v := *r.ApprovedAt
		r.ApprovedAt = &v
	}
	if r.RefundedAt != nil {
		v := *r.RefundedAt
		r.RefundedAt = &v
	}
	return r
}

func cloneQRPayment(rec finance.QRPaymentRecord) finance.QRPaymentRecord {
	if rec.ReviewedAt != nil {
		v := *rec.ReviewedAt
		rec.ReviewedAt = &v
	}
	return rec
}

func NewMemory() *Memory {
	return &Memory{
		students:    make(map[string]finance.Student),
		attendance:  make(map[attendanceKey]finance.AttendanceRecord),
		refunds:     make(map[string]finance.RefundRecord),
		payments:    make(map[string]finance.FeePayment),
		qrPayments:  make(map[string]finance.QRPaymentRecord),
		feeConfigs:  make(map[string]finance.FeeConfig),
		refundRules: make(map[string]finance.RefundRuleConfig),
	}
}

// =============================================================================
// STUDENTS
// =============================================================================

func (m *Memory) Student(_ context.Context, id string) (*finance.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.students[id]; ok {
		s = cloneStudent(s)
		return &s, nil
	}
	return nil, nil
}

func (m *Memory) StudentsByCampus(_ context.Context, campus string) ([]finance.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []finance.Student
	for _, s := range m.students {
		if campus == "" || s.Campus == campus {
			out = append(out, cloneStudent(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) SaveStudent(_ context.Context, s finance.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.students[s.ID] = cloneStudent(s)
	return nil
}

// =============================================================================
// ATTENDANCE
// =============================================================================

func (m *Memory) AttendanceOn(_ context.Context, studentID, date string) (*finance.AttendanceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if rec, ok := m.attendance[attendanceKey{StudentID: studentID, Date: date}]; ok {
		return &rec, nil
	}
	return nil, nil
}

func (m *Memory) SaveAttendance(_ context.Context, rec finance.AttendanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attendance[attendanceKey{StudentID: rec.StudentID, Date: rec.Date}] = rec
	return nil
}

// =============================================================================
// REFUND RECORDS
// =============================================================================

func (m *Memory) RefundByID(_ context.Context, id string) (*finance.RefundRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if rec, ok := m.refunds[id]; ok {
		rec = cloneRefund(rec)
		return &rec, nil
	}
	return nil, nil
}

func (m *Memory) RefundForPeriod(_ context.Context, studentID string, period finance.YearMonth) (*finance.RefundRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, id := range m.refundOrder {
		rec := m.refunds[id]
		if rec.StudentID == studentID && rec.Period.Equal(period) {
			rec = cloneRefund(rec)
			return &rec, nil
		}
	}
	return nil, nil
}

func (m *Memory) Refunds(_ context.Context, f finance.RefundFilter) ([]finance.RefundRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []finance.RefundRecord
	for _, id := range m.refundOrder {
		rec := m.refunds[id]
		if f.Matches(&rec) {
			out = append(out, cloneRefund(rec))
		}
	}
	return out, nil
}

func (m *Memory) SaveRefund(_ context.Context, rec finance.RefundRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.refunds[rec.ID]; !ok {
		m.refundOrder = append(m.refundOrder, rec.ID)
	}
	m.refunds[rec.ID] = cloneRefund(rec)
	return nil
}

// =============================================================================
// PAYMENTS
// =============================================================================

func (m *Memory) PaymentByID(_ context.Context, id string) (*finance.FeePayment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.payments[id]; ok {
		return &p, nil
	}
	return nil, nil
}

func (m *Memory) Payments(_ context.Context, f finance.PaymentFilter) ([]finance.FeePayment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []finance.FeePayment
	for _, id := range m.paymentOrder {
		p := m.payments[id]
		if f.Matches(&p) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *Memory) SavePayment(_ context.Context, p finance.FeePayment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.payments[p.ID]; !ok {
		m.paymentOrder = append(m.paymentOrder, p.ID)
	}
	m.payments[p.ID] = p
	return nil
}

// =============================================================================
// QR PAYMENT PROOFS
// =============================================================================

func (m *Memory) QRPaymentByID(_ context.Context, id string) (*finance.QRPaymentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if rec, ok := m.qrPayments[id]; ok {
		rec = cloneQRPayment(rec)
		return &rec, nil
	}
	return nil, nil
}

func (m *Memory) QRPayments(_ context.Context, f finance.QRPaymentFilter) ([]finance.QRPaymentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []finance.QRPaymentRecord
	for _, id := range m.qrOrder {
		rec := m.qrPayments[id]
		if f.Matches(&rec) {
			out = append(out, cloneQRPayment(rec))
		}
	}
	return out, nil
}

func (m *Memory) SaveQRPayment(_ context.Context, rec finance.QRPaymentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.qrPayments[rec.ID]; !ok {
		m.qrOrder = append(m.qrOrder, rec.ID)
	}
	m.qrPayments[rec.ID] = cloneQRPayment(rec)
	return nil
}

// =============================================================================
// CONFIG ROWS
// =============================================================================

func (m *Memory) FeeConfigs(_ context.Context, campus string) ([]finance.FeeConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []finance.FeeConfig
	for _, cfg := range m.feeConfigs {
		if campus == "" || cfg.Campus == campus {
			out = append(out, cfg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) SaveFeeConfig(_ context.Context, cfg finance.FeeConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feeConfigs[cfg.ID] = cfg
	return nil
}

func (m *Memory) RefundRules(_ context.Context, campus string) ([]finance.RefundRuleConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []finance.RefundRuleConfig
	for _, rule := range m.refundRules {
		if campus == "" || rule.Campus == campus {
			out = append(out, rule)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) SaveRefundRule(_ context.Context, rule finance.RefundRuleConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refundRules[rule.ID] = rule
	return nil
}
