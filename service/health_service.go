package service

import (
	"context"
	"time"

	"ppn/errors"
	"ppn/interfaces"
	"ppn/ledger"
	"ppn/types"
)

const nodeVersion = "1.0.0"

type HealthServiceImpl struct {
	ledger  *ledger.Ledger
	tracker interfaces.PaymentTrackerInterface
	selfID  string
	started time.Time
}

func NewHealthService(ld *ledger.Ledger, tracker interfaces.PaymentTrackerInterface, selfID string) *HealthServiceImpl {
	return &HealthServiceImpl{ledger: ld, tracker: tracker, selfID: selfID, started: time.Now()}
}

func (hs *HealthServiceImpl) Check(ctx context.Context) (*types.HealthStatus, error) {
	select {
	case <-ctx.Done():
		return nil, errors.NewError(errors.ErrCodeInternal, "health check timeout")
	default:
	}

	now := time.Now()
	resp := &types.HealthStatus{
		Status:    types.HealthServing,
		NodeID:    hs.selfID,
		Timestamp: uint64(now.Unix()),
		Uptime:    uint64(now.Sub(hs.started).Seconds()),
		Version:   nodeVersion,
	}

	// A node without an initialized sequence counter cannot take payments,
	// so it reports NOT_SERVING even though the process is up.
	if hs.ledger == nil || hs.tracker == nil {
		resp.Status = types.HealthNotServing
		resp.ErrorMessage = "One or more core services are not available"
		return resp, nil
	}

	state, err := hs.ledger.ProgramState()
	if err != nil {
		resp.Status = types.HealthNotServing
		resp.ErrorMessage = err.Error()
		return resp, nil
	}

	resp.TotalTransactions = state.TotalTransactions
	resp.PendingPayments = hs.tracker.PendingCount()
	return resp, nil
}
