/*
workflow.go - Refund record lifecycle

PURPOSE:
  The state machine that carries a refund record from calculation to
  payout. Transitions only move forward:

      pending ──→ approved ──→ completed
         │
         └─────→ rejected

  Rejected and completed are terminal. A transition attempted from any
  other state fails with InvalidTransitionError and mutates nothing;
  there is no silent no-op.

SEE ALSO:
  - refund.go: where pending records come from
*/
package finance

import "context"

// ApproveRefund decides a pending refund. approved=true moves it to
// approved, false to rejected; either way the decision is stamped with
// the approver and the clock. Valid only from pending.
func (s *Service) ApproveRefund(ctx context.Context, id, approver string, approved bool, notes string) (*RefundRecord, error) {
	rec, err := s.Store.RefundByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrRefundNotFound
	}

	target := RefundApproved
	if !approved {
		target = RefundRejected
	}
	if rec.Status != RefundPending {
		return nil, &InvalidTransitionError{RecordID: id, From: rec.Status, To: target}
	}

	now := s.Clock.Now()
	rec.Status = target
	rec.ApprovedBy = approver
	rec.ApprovedAt = &now
	if notes != "" {
		rec.Notes = notes
	}

	if err := s.Store.SaveRefund(ctx, *rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// CompleteRefund marks an approved refund as paid out, stamping
// RefundedAt. Valid only from approved.
func (s *Service) CompleteRefund(ctx context.Context, id string) (*RefundRecord, error) {
	rec, err := s.Store.RefundByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrRefundNotFound
	}
	if rec.Status != RefundApproved {
		return nil, &InvalidTransitionError{RecordID: id, From: rec.Status, To: RefundCompleted}
	}

	now := s.Clock.Now()
	rec.Status = RefundCompleted
	rec.RefundedAt = &now

	if err := s.Store.SaveRefund(ctx, *rec); err != nil {
		return nil, err
	}
	return rec, nil
}
