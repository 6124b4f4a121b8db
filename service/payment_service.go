package service

import (
	"context"
	"fmt"
	"time"

	"ppn/errors"
	"ppn/events"
	"ppn/interfaces"
	"ppn/ledger"
	"ppn/monitoring"
	"ppn/payment"
	"ppn/types"
)

type PaymentServiceImpl struct {
	ledger      *ledger.Ledger
	tracker     interfaces.PaymentTrackerInterface
	eventRouter *events.EventRouter
}

func NewPaymentService(ld *ledger.Ledger, tracker interfaces.PaymentTrackerInterface, eventRouter *events.EventRouter) *PaymentServiceImpl {
	return &PaymentServiceImpl{ledger: ld, tracker: tracker, eventRouter: eventRouter}
}

// SubmitPayment runs a signed request through the ledger and keeps the
// tracker in sync with the outcome. The receipt is returned only after the
// transfer is durably applied.
func (s *PaymentServiceImpl) SubmitPayment(ctx context.Context, req *payment.Request) (*ledger.Receipt, error) {
	monitoring.IncreaseIngressPaymentCount()

	if req == nil || req.Sender == "" || req.Receiver == "" {
		monitoring.RecordRejectedPayment(string(errors.ErrCodeInvalidRequest))
		return nil, errors.NewError(errors.ErrCodeInvalidRequest, "payment request is missing sender or receiver")
	}

	hash := req.Hash()
	s.tracker.TrackPending(req)
	if s.eventRouter != nil {
		s.eventRouter.PublishPaymentEvent(events.NewPaymentSubmitted(hash, req))
	}

	started := time.Now()
	receipt, err := s.ledger.SendPayment(req)
	if err != nil {
		s.tracker.MarkFailed(hash, req.Sequence, string(errors.CodeOf(err)), err.Error())
		return nil, err
	}

	s.tracker.MarkCommitted(hash, receipt.Sequence, receipt.RecordAddress)
	monitoring.RecordCommitLatency(time.Since(started))
	return receipt, nil
}

// GetPaymentStatus answers from the tracker only. A hash the tracker has
// never seen is reported as not found, which a polling client treats as
// "keep waiting", not as failure.
func (s *PaymentServiceImpl) GetPaymentStatus(ctx context.Context, hash string) (*types.PaymentMeta, error) {
	if hash == "" {
		return nil, errors.NewError(errors.ErrCodeInvalidRequest, "payment hash is required")
	}
	meta, ok := s.tracker.Status(hash)
	if !ok {
		return nil, errors.NewError(errors.ErrCodePaymentNotFound,
			fmt.Sprintf("payment %s is not tracked by this node", hash))
	}
	return meta, nil
}
