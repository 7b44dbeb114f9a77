/*
Package sqlite provides a SQLite-backed implementation of finance.RecordStore.

PURPOSE:
  Production persistence for the fee engine. In production with
  PostgreSQL the same patterns apply - only minor SQL dialect
  differences.

KEY TABLES:
  students:      Student records with embedded discount JSON
  attendance:    One row per (student, date), unique
  refunds:       Refund records, never deleted, status-only mutation
  payments:      Append-mostly billing ledger
  qr_payments:   Uploaded payment proofs awaiting review
  fee_configs:   Per-campus fee item rows (display/audit)
  refund_rules:  Per-campus refund policy rows (display/audit)

MONEY:
  Decimal amounts are stored as TEXT and parsed back with
  shopspring/decimal so nothing ever round-trips through float64.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - finance/store.go: Interface definition and filter semantics
  - finance/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/jinxing-edu/finance-engine/finance"
)

// Store implements finance.RecordStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS students (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		class TEXT,
		campus TEXT NOT NULL,
		class_tier TEXT,
		enroll_date TEXT,
		discount_json TEXT,
		fee_notes TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_students_campus
		ON students(campus);

	CREATE TABLE IF NOT EXISTS attendance (
		id TEXT PRIMARY KEY,
		student_id TEXT NOT NULL,
		date TEXT NOT NULL,
		status TEXT NOT NULL,
		check_in_time TEXT,
		check_out_time TEXT,
		leave_reason TEXT,
		recorded_by TEXT,
		recorded_at TEXT NOT NULL,
		UNIQUE(student_id, date)
	);

	-- Hot path: the aggregator looks up one (student, date) per working day
	CREATE INDEX IF NOT EXISTS idx_attendance_student_date
		ON attendance(student_id, date);

	-- Refund records: never deleted, one per (student, period)
	CREATE TABLE IF NOT EXISTS refunds (
		id TEXT PRIMARY KEY,
		student_id TEXT NOT NULL,
		student_name TEXT,
		class TEXT,
		campus TEXT,
		period TEXT NOT NULL,
		scope TEXT NOT NULL,
		original_amount TEXT NOT NULL,
		total_work_days INTEGER NOT NULL,
		present_days INTEGER NOT NULL,
		absent_days INTEGER NOT NULL,
		sick_leave_days INTEGER NOT NULL,
		personal_leave_days INTEGER NOT NULL,
		tuition_refund TEXT NOT NULL,
		meal_refund TEXT NOT NULL,
		total_refund TEXT NOT NULL,
		status TEXT NOT NULL,
		calculated_by TEXT,
		calculated_at TEXT NOT NULL,
		approved_by TEXT,
		approved_at TEXT,
		refunded_at TEXT,
		reason TEXT,
		notes TEXT,
		attendance_record_ids TEXT,
		UNIQUE(student_id, period)
	);

	CREATE INDEX IF NOT EXISTS idx_refunds_campus_period
		ON refunds(campus, period);
	CREATE INDEX IF NOT EXISTS idx_refunds_status
		ON refunds(status);

	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		student_id TEXT NOT NULL,
		student_name TEXT,
		class TEXT,
		campus TEXT,
		period TEXT NOT NULL,
		cycle_kind TEXT NOT NULL,
		cycle_days INTEGER DEFAULT 0,
		start_month TEXT NOT NULL,
		fee_type TEXT NOT NULL,
		fee_name TEXT,
		standard_amount TEXT NOT NULL,
		discount_amount TEXT NOT NULL,
		actual_amount TEXT NOT NULL,
		has_discount BOOLEAN DEFAULT FALSE,
		discount_type TEXT,
		discount_value TEXT,
		discount_target TEXT,
		discount_reason TEXT,
		payment_date TEXT,
		method TEXT,
		receipt_number TEXT,
		operator TEXT,
		approved_by TEXT,
		notes TEXT,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payments_student
		ON payments(student_id);
	CREATE INDEX IF NOT EXISTS idx_payments_campus_period
		ON payments(campus, period);
	CREATE INDEX IF NOT EXISTS idx_payments_status
		ON payments(status);

	CREATE TABLE IF NOT EXISTS qr_payments (
		id TEXT PRIMARY KEY,
		student_id TEXT NOT NULL,
		student_name TEXT,
		payment_id TEXT NOT NULL,
		proof_image TEXT,
		remark TEXT,
		status TEXT NOT NULL,
		reviewed_by TEXT,
		reviewed_at TEXT,
		review_note TEXT,
		uploaded_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_qr_payments_status
		ON qr_payments(status);
	CREATE INDEX IF NOT EXISTS idx_qr_payments_payment
		ON qr_payments(payment_id);

	CREATE TABLE IF NOT EXISTS fee_configs (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		monthly_amount TEXT NOT NULL,
		refund_rule TEXT,
		daily_rate TEXT,
		campus TEXT NOT NULL,
		class_tier TEXT,
		description TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_fee_configs_campus
		ON fee_configs(campus);

	CREATE TABLE IF NOT EXISTS refund_rules (
		id TEXT PRIMARY KEY,
		campus TEXT NOT NULL,
		fee_type TEXT NOT NULL,
		sick_leave_refund_rate TEXT,
		personal_leave_refund_rate TEXT,
		meal_refund_per_day TEXT,
		min_absent_days INTEGER DEFAULT 0,
		effective_date TEXT,
		created_by TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_refund_rules_campus
		ON refund_rules(campus);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// STUDENTS
// =============================================================================

func (s *Store) Student(ctx context.Context, id string) (*finance.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, class, campus, class_tier, enroll_date, discount_json, fee_notes FROM students WHERE id = ?",
		id,
	)
	st, err := scanStudent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return st, nil
}

func (s *Store) StudentsByCampus(ctx context.Context, campus string) ([]finance.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT id, name, class, campus, class_tier, enroll_date, discount_json, fee_notes FROM students"
	var args []any
	if campus != "" {
		query += " WHERE campus = ?"
		args = append(args, campus)
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []finance.Student
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, *st)
	}
	return students, rows.Err()
}

func (s *Store) SaveStudent(ctx context.Context, st finance.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var discountJSON []byte
	if st.Discount != nil {
		discountJSON, _ = json.Marshal(st.Discount)
	}

	query := `
		INSERT INTO students (id, name, class, campus, class_tier, enroll_date, discount_json, fee_notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			class = excluded.class,
			campus = excluded.campus,
			class_tier = excluded.class_tier,
			enroll_date = excluded.enroll_date,
			discount_json = excluded.discount_json,
			fee_notes = excluded.fee_notes
	`
	_, err := s.db.ExecContext(ctx, query,
		st.ID, st.Name, st.Class, st.Campus, string(st.ClassTier),
		st.EnrollDate, nullString(string(discountJSON)), st.FeeNotes,
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStudent(row rowScanner) (*finance.Student, error) {
	var st finance.Student
	var tier string
	var discountJSON sql.NullString

	err := row.Scan(&st.ID, &st.Name, &st.Class, &st.Campus, &tier,
		&st.EnrollDate, &discountJSON, &st.FeeNotes)
	if err != nil {
		return nil, err
	}

	st.ClassTier = finance.ClassTier(tier)
	if discountJSON.Valid && discountJSON.String != "" {
		var d finance.FeeDiscount
		if err := json.Unmarshal([]byte(discountJSON.String), &d); err == nil {
			st.Discount = &d
		}
	}
	return &st, nil
}

// =============================================================================
// ATTENDANCE
// =============================================================================

func (s *Store) AttendanceOn(ctx context.Context, studentID, date string) (*finance.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rec finance.AttendanceRecord
	var status, recordedAt string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, student_id, date, status, check_in_time, check_out_time, leave_reason, recorded_by, recorded_at
		 FROM attendance WHERE student_id = ? AND date = ?`,
		studentID, date,
	).Scan(&rec.ID, &rec.StudentID, &rec.Date, &status, &rec.CheckInTime,
		&rec.CheckOutTime, &rec.LeaveReason, &rec.RecordedBy, &recordedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rec.Status = finance.AttendanceStatus(status)
	rec.RecordedAt, _ = time.Parse(time.RFC3339, recordedAt)
	return &rec, nil
}

func (s *Store) SaveAttendance(ctx context.Context, rec finance.AttendanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// OR REPLACE rather than a targeted upsert: a correction may collide
	// on the id as well as on (student_id, date), and attendance rows are
	// overwritten whole.
	query := `
		INSERT OR REPLACE INTO attendance (id, student_id, date, status, check_in_time, check_out_time, leave_reason, recorded_by, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.StudentID, rec.Date, string(rec.Status),
		rec.CheckInTime, rec.CheckOutTime, rec.LeaveReason, rec.RecordedBy,
		rec.RecordedAt.Format(time.RFC3339),
	)
	return err
}

// =============================================================================
// REFUND RECORDS
// =============================================================================

const refundColumns = `id, student_id, student_name, class, campus, period, scope,
	original_amount, total_work_days, present_days, absent_days, sick_leave_days, personal_leave_days,
	tuition_refund, meal_refund, total_refund, status, calculated_by, calculated_at,
	approved_by, approved_at, refunded_at, reason, notes, attendance_record_ids`

func (s *Store) RefundByID(ctx context.Context, id string) (*finance.RefundRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs, err := s.queryRefunds(ctx, "SELECT "+refundColumns+" FROM refunds WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return &recs[0], nil
}

func (s *Store) RefundForPeriod(ctx context.Context, studentID string, period finance.YearMonth) (*finance.RefundRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs, err := s.queryRefunds(ctx,
		"SELECT "+refundColumns+" FROM refunds WHERE student_id = ? AND period = ?",
		studentID, period.String())
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return &recs[0], nil
}

func (s *Store) Refunds(ctx context.Context, f finance.RefundFilter) ([]finance.RefundRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT " + refundColumns + " FROM refunds WHERE 1=1"
	var args []any
	if f.StudentID != "" {
		query += " AND student_id = ?"
		args = append(args, f.StudentID)
	}
	if f.Campus != "" {
		query += " AND campus = ?"
		args = append(args, f.Campus)
	}
	if f.Period != nil {
		query += " AND period = ?"
		args = append(args, f.Period.String())
	}
	if f.Status != "" {
		query += " AND status = ?"
		args = append(args, string(f.Status))
	}
	query += " ORDER BY calculated_at ASC, id ASC"

	return s.queryRefunds(ctx, query, args...)
}

func (s *Store) SaveRefund(ctx context.Context, rec finance.RefundRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idsJSON, _ := json.Marshal(rec.AttendanceRecordIDs)

	query := `
		INSERT INTO refunds (` + refundColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			approved_by = excluded.approved_by,
			approved_at = excluded.approved_at,
			refunded_at = excluded.refunded_at,
			notes = excluded.notes
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.StudentID, rec.StudentName, rec.Class, rec.Campus,
		rec.Period.String(), string(rec.Scope),
		rec.OriginalAmount.String(), rec.TotalWorkDays, rec.PresentDays,
		rec.AbsentDays, rec.SickLeaveDays, rec.PersonalLeaveDays,
		rec.TuitionRefund.String(), rec.MealRefund.String(), rec.TotalRefund.String(),
		string(rec.Status), rec.CalculatedBy, rec.CalculatedAt.Format(time.RFC3339),
		rec.ApprovedBy, nullTime(rec.ApprovedAt), nullTime(rec.RefundedAt),
		rec.Reason, rec.Notes, string(idsJSON),
	)
	return err
}

func (s *Store) queryRefunds(ctx context.Context, query string, args ...any) ([]finance.RefundRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query refunds: %w", err)
	}
	defer rows.Close()

	var recs []finance.RefundRecord
	for rows.Next() {
		var (
			rec                    finance.RefundRecord
			period, scope, status  string
			original, tuition      string
			meal, total            string
			calculatedAt           string
			approvedAt, refundedAt sql.NullString
			idsJSON                sql.NullString
		)
		if err := rows.Scan(
			&rec.ID, &rec.StudentID, &rec.StudentName, &rec.Class, &rec.Campus,
			&period, &scope,
			&original, &rec.TotalWorkDays, &rec.PresentDays,
			&rec.AbsentDays, &rec.SickLeaveDays, &rec.PersonalLeaveDays,
			&tuition, &meal, &total,
			&status, &rec.CalculatedBy, &calculatedAt,
			&rec.ApprovedBy, &approvedAt, &refundedAt,
			&rec.Reason, &rec.Notes, &idsJSON,
		); err != nil {
			return nil, fmt.Errorf("failed to scan refund: %w", err)
		}

		rec.Period, _ = finance.ParseYearMonth(period)
		rec.Scope = finance.RefundScope(scope)
		rec.Status = finance.RefundStatus(status)
		rec.OriginalAmount = mustDecimal(original)
		rec.TuitionRefund = mustDecimal(tuition)
		rec.MealRefund = mustDecimal(meal)
		rec.TotalRefund = mustDecimal(total)
		rec.CalculatedAt, _ = time.Parse(time.RFC3339, calculatedAt)
		rec.ApprovedAt = parseNullTime(approvedAt)
		rec.RefundedAt = parseNullTime(refundedAt)
		if idsJSON.Valid && idsJSON.String != "" {
			json.Unmarshal([]byte(idsJSON.String), &rec.AttendanceRecordIDs)
		}

		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// =============================================================================
// PAYMENTS
// =============================================================================

const paymentColumns = `id, student_id, student_name, class, campus, period,
	cycle_kind, cycle_days, start_month, fee_type, fee_name,
	standard_amount, discount_amount, actual_amount,
	has_discount, discount_type, discount_value, discount_target, discount_reason,
	payment_date, method, receipt_number, operator, approved_by, notes,
	status, created_at, updated_at`

func (s *Store) PaymentByID(ctx context.Context, id string) (*finance.FeePayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ps, err := s.queryPayments(ctx, "SELECT "+paymentColumns+" FROM payments WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(ps) == 0 {
		return nil, nil
	}
	return &ps[0], nil
}

func (s *Store) Payments(ctx context.Context, f finance.PaymentFilter) ([]finance.FeePayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT " + paymentColumns + " FROM payments WHERE 1=1"
	var args []any
	if f.StudentID != "" {
		query += " AND student_id = ?"
		args = append(args, f.StudentID)
	}
	if f.Campus != "" {
		query += " AND campus = ?"
		args = append(args, f.Campus)
	}
	if f.PeriodPrefix != "" {
		query += " AND period LIKE ?"
		args = append(args, f.PeriodPrefix+"%")
	}
	if f.FeeType != "" {
		query += " AND fee_type = ?"
		args = append(args, string(f.FeeType))
	}
	if f.Status != "" {
		query += " AND status = ?"
		args = append(args, string(f.Status))
	}
	if f.HasDiscount != nil {
		query += " AND has_discount = ?"
		args = append(args, *f.HasDiscount)
	}
	query += " ORDER BY created_at ASC, id ASC"

	return s.queryPayments(ctx, query, args...)
}

func (s *Store) SavePayment(ctx context.Context, p finance.FeePayment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			notes = excluded.notes,
			receipt_number = excluded.receipt_number,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.StudentID, p.StudentName, p.Class, p.Campus, p.Period,
		string(p.Cycle.Kind), p.Cycle.Days, p.StartMonth.String(),
		string(p.FeeType), p.FeeName,
		p.StandardAmount.String(), p.DiscountAmount.String(), p.ActualAmount.String(),
		p.HasDiscount, string(p.DiscountType), p.DiscountValue.String(),
		string(p.DiscountTarget), p.DiscountReason,
		p.PaymentDate, string(p.Method), p.ReceiptNumber,
		p.Operator, p.ApprovedBy, p.Notes,
		string(p.Status), p.CreatedAt.Format(time.RFC3339), p.UpdatedAt.Format(time.RFC3339),
	)
	return err
}

func (s *Store) queryPayments(ctx context.Context, query string, args ...any) ([]finance.FeePayment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []finance.FeePayment
	for rows.Next() {
		var (
			p                    finance.FeePayment
			cycleKind, start     string
			feeType, method      string
			standard, disc, act  string
			discType, discTarget string
			discValue            string
			status               string
			createdAt, updatedAt string
		)
		if err := rows.Scan(
			&p.ID, &p.StudentID, &p.StudentName, &p.Class, &p.Campus, &p.Period,
			&cycleKind, &p.Cycle.Days, &start, &feeType, &p.FeeName,
			&standard, &disc, &act,
			&p.HasDiscount, &discType, &discValue, &discTarget, &p.DiscountReason,
			&p.PaymentDate, &method, &p.ReceiptNumber,
			&p.Operator, &p.ApprovedBy, &p.Notes,
			&status, &createdAt, &updatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}

		p.Cycle.Kind = finance.CycleKind(cycleKind)
		p.StartMonth, _ = finance.ParseYearMonth(start)
		p.FeeType = finance.FeeType(feeType)
		p.Method = finance.PaymentMethod(method)
		p.StandardAmount = mustDecimal(standard)
		p.DiscountAmount = mustDecimal(disc)
		p.ActualAmount = mustDecimal(act)
		p.DiscountType = finance.DiscountType(discType)
		p.DiscountValue = mustDecimal(discValue)
		p.DiscountTarget = finance.DiscountTarget(discTarget)
		p.Status = finance.PaymentStatus(status)
		p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// =============================================================================
// QR PAYMENT PROOFS
// =============================================================================

func (s *Store) QRPaymentByID(ctx context.Context, id string) (*finance.QRPaymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs, err := s.queryQRPayments(ctx,
		"SELECT id, student_id, student_name, payment_id, proof_image, remark, status, reviewed_by, reviewed_at, review_note, uploaded_at FROM qr_payments WHERE id = ?",
		id)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return &recs[0], nil
}

func (s *Store) QRPayments(ctx context.Context, f finance.QRPaymentFilter) ([]finance.QRPaymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT id, student_id, student_name, payment_id, proof_image, remark, status, reviewed_by, reviewed_at, review_note, uploaded_at FROM qr_payments WHERE 1=1"
	var args []any
	if f.StudentID != "" {
		query += " AND student_id = ?"
		args = append(args, f.StudentID)
	}
	if f.PaymentID != "" {
		query += " AND payment_id = ?"
		args = append(args, f.PaymentID)
	}
	if f.Status != "" {
		query += " AND status = ?"
		args = append(args, string(f.Status))
	}
	query += " ORDER BY uploaded_at ASC, id ASC"

	return s.queryQRPayments(ctx, query, args...)
}

func (s *Store) SaveQRPayment(ctx context.Context, rec finance.QRPaymentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO qr_payments (id, student_id, student_name, payment_id, proof_image, remark, status, reviewed_by, reviewed_at, review_note, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			reviewed_by = excluded.reviewed_by,
			reviewed_at = excluded.reviewed_at,
			review_note = excluded.review_note
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.StudentID, rec.StudentName, rec.PaymentID,
		rec.ProofImage, rec.Remark, string(rec.Status),
		rec.ReviewedBy, nullTime(rec.ReviewedAt), rec.ReviewNote,
		rec.UploadedAt.Format(time.RFC3339),
	)
	return err
}

func (s *Store) queryQRPayments(ctx context.Context, query string, args ...any) ([]finance.QRPaymentRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []finance.QRPaymentRecord
	for rows.Next() {
		var rec finance.QRPaymentRecord
		var status, uploadedAt string
		var reviewedAt sql.NullString
		if err := rows.Scan(&rec.ID, &rec.StudentID, &rec.StudentName, &rec.PaymentID,
			&rec.ProofImage, &rec.Remark, &status, &rec.ReviewedBy, &reviewedAt,
			&rec.ReviewNote, &uploadedAt); err != nil {
			return nil, err
		}
		rec.Status = finance.QRPaymentStatus(status)
		rec.ReviewedAt = parseNullTime(reviewedAt)
		rec.UploadedAt, _ = time.Parse(time.RFC3339, uploadedAt)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// =============================================================================
// CONFIG ROWS
// =============================================================================

func (s *Store) FeeConfigs(ctx context.Context, campus string) ([]finance.FeeConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT id, name, type, monthly_amount, refund_rule, daily_rate, campus, class_tier, description, created_at, updated_at FROM fee_configs"
	var args []any
	if campus != "" {
		query += " WHERE campus = ?"
		args = append(args, campus)
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []finance.FeeConfig
	for rows.Next() {
		var cfg finance.FeeConfig
		var feeType, rule, monthly, daily, tier, createdAt, updatedAt string
		if err := rows.Scan(&cfg.ID, &cfg.Name, &feeType, &monthly, &rule, &daily,
			&cfg.Campus, &tier, &cfg.Description, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		cfg.Type = finance.FeeType(feeType)
		cfg.RefundRule = finance.RefundRule(rule)
		cfg.MonthlyAmount = mustDecimal(monthly)
		cfg.DailyRate = mustDecimal(daily)
		cfg.ClassTier = finance.ClassTier(tier)
		cfg.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		cfg.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}

func (s *Store) SaveFeeConfig(ctx context.Context, cfg finance.FeeConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO fee_configs (id, name, type, monthly_amount, refund_rule, daily_rate, campus, class_tier, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			monthly_amount = excluded.monthly_amount,
			refund_rule = excluded.refund_rule,
			daily_rate = excluded.daily_rate,
			description = excluded.description,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		cfg.ID, cfg.Name, string(cfg.Type), cfg.MonthlyAmount.String(),
		string(cfg.RefundRule), cfg.DailyRate.String(),
		cfg.Campus, string(cfg.ClassTier), cfg.Description,
		cfg.CreatedAt.Format(time.RFC3339), cfg.UpdatedAt.Format(time.RFC3339),
	)
	return err
}

func (s *Store) RefundRules(ctx context.Context, campus string) ([]finance.RefundRuleConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT id, campus, fee_type, sick_leave_refund_rate, personal_leave_refund_rate, meal_refund_per_day, min_absent_days, effective_date, created_by, created_at FROM refund_rules"
	var args []any
	if campus != "" {
		query += " WHERE campus = ?"
		args = append(args, campus)
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []finance.RefundRuleConfig
	for rows.Next() {
		var rule finance.RefundRuleConfig
		var feeType, sickRate, personalRate, mealPerDay, createdAt string
		if err := rows.Scan(&rule.ID, &rule.Campus, &feeType, &sickRate, &personalRate,
			&mealPerDay, &rule.MinAbsentDays, &rule.EffectiveDate, &rule.CreatedBy, &createdAt); err != nil {
			return nil, err
		}
		rule.FeeType = finance.FeeType(feeType)
		rule.SickLeaveRefundRate = mustDecimal(sickRate)
		rule.PersonalLeaveRefundRate = mustDecimal(personalRate)
		rule.MealRefundPerDay = mustDecimal(mealPerDay)
		rule.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func (s *Store) SaveRefundRule(ctx context.Context, rule finance.RefundRuleConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO refund_rules (id, campus, fee_type, sick_leave_refund_rate, personal_leave_refund_rate, meal_refund_per_day, min_absent_days, effective_date, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			sick_leave_refund_rate = excluded.sick_leave_refund_rate,
			personal_leave_refund_rate = excluded.personal_leave_refund_rate,
			meal_refund_per_day = excluded.meal_refund_per_day,
			min_absent_days = excluded.min_absent_days,
			effective_date = excluded.effective_date
	`
	_, err := s.db.ExecContext(ctx, query,
		rule.ID, rule.Campus, string(rule.FeeType),
		rule.SickLeaveRefundRate.String(), rule.PersonalLeaveRefundRate.String(),
		rule.MealRefundPerDay.String(), rule.MinAbsentDays,
		rule.EffectiveDate, rule.CreatedBy, rule.CreatedAt.Format(time.RFC3339),
	)
	return err
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"attendance", "refunds", "payments", "qr_payments", "fee_configs", "refund_rules", "students"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(time.RFC3339), Valid: true}
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return nil
	}
	return &t
}

func mustDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
