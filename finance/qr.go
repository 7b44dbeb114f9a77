/*
qr.go - QR payment proof records

PURPOSE:
  Parents who pay by scanning a campus QR code upload a screenshot as
  proof; finance staff review it and either confirm or reject. A proof
  record links to the pending ledger entry it settles: confirming the
  proof confirms the payment, rejecting leaves the payment pending for
  another attempt.
*/
package finance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// QRPaymentStatus is the review state of an uploaded payment proof.
type QRPaymentStatus string

const (
	QRPending   QRPaymentStatus = "pending"
	QRConfirmed QRPaymentStatus = "confirmed"
	QRRejected  QRPaymentStatus = "rejected"
)

// QRPaymentRecord is one uploaded proof awaiting staff review.
type QRPaymentRecord struct {
	ID          string
	StudentID   string
	StudentName string
	PaymentID   string // the pending FeePayment this settles

	ProofImage string // opaque reference, storage is the caller's concern
	Remark     string

	Status     QRPaymentStatus
	ReviewedBy string
	ReviewedAt *time.Time
	ReviewNote string

	UploadedAt time.Time
}

// SubmitQRPayment files a proof against a pending payment.
func (s *Service) SubmitQRPayment(ctx context.Context, paymentID, proofImage, remark string) (*QRPaymentRecord, error) {
	p, err := s.Store.PaymentByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrPaymentNotFound
	}
	if p.Status != PaymentPending {
		return nil, &PaymentTransitionError{PaymentID: paymentID, From: p.Status, To: PaymentConfirmed}
	}

	rec := &QRPaymentRecord{
		ID:          "qrpay_" + uuid.NewString(),
		StudentID:   p.StudentID,
		StudentName: p.StudentName,
		PaymentID:   p.ID,
		ProofImage:  proofImage,
		Remark:      remark,
		Status:      QRPending,
		UploadedAt:  s.Clock.Now(),
	}
	if err := s.Store.SaveQRPayment(ctx, *rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// ConfirmQRPayment accepts a proof and confirms its linked payment.
func (s *Service) ConfirmQRPayment(ctx context.Context, id, reviewer, note string) (*QRPaymentRecord, error) {
	rec, err := s.reviewQRPayment(ctx, id, reviewer, note, QRConfirmed)
	if err != nil {
		return nil, err
	}
	if _, err := s.ConfirmPayment(ctx, rec.PaymentID); err != nil {
		return nil, err
	}
	return rec, nil
}

// RejectQRPayment declines a proof. The linked payment stays pending so
// the parent can submit again.
func (s *Service) RejectQRPayment(ctx context.Context, id, reviewer, note string) (*QRPaymentRecord, error) {
	return s.reviewQRPayment(ctx, id, reviewer, note, QRRejected)
}

func (s *Service) reviewQRPayment(ctx context.Context, id, reviewer, note string, target QRPaymentStatus) (*QRPaymentRecord, error) {
	rec, err := s.Store.QRPaymentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrPaymentNotFound
	}
	if rec.Status != QRPending {
		return nil, fmt.Errorf("qr payment %s already reviewed (%s): %w", id, rec.Status, ErrInvalidTransition)
	}

	now := s.Clock.Now()
	rec.Status = target
	rec.ReviewedBy = reviewer
	rec.ReviewedAt = &now
	rec.ReviewNote = note
	if err := s.Store.SaveQRPayment(ctx, *rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// PendingQRPaymentCount is the staff review queue depth.
func (s *Service) PendingQRPaymentCount(ctx context.Context) (int, error) {
	recs, err := s.Store.QRPayments(ctx, QRPaymentFilter{Status: QRPending})
	if err != nil {
		return 0, err
	}
	return len(recs), nil
}
