package payment

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"ppn/exception"
	"ppn/logx"
	"ppn/monitoring"
	"ppn/types"
	"ppn/utils"
)

// PaymentTracker keeps request metadata from submission until well after
// settlement, so status polls are answered from memory instead of the ledger
type PaymentTracker struct {
	// payments maps commit handle to payment metadata
	payments sync.Map

	pendingCount int64
	settledCount int64
}

// NewPaymentTracker creates a new payment tracker instance
func NewPaymentTracker() *PaymentTracker {
	pt := &PaymentTracker{}
	pt.StartSettledCleanup(10 * time.Minute)
	return pt
}

// TrackPending registers a request accepted for processing
func (t *PaymentTracker) TrackPending(req *Request) {
	hash := req.Hash()
	meta := &types.PaymentMeta{
		Hash:     hash,
		Status:   types.PaymentStatusPending,
		Sequence: req.Sequence,
	}
	if _, loaded := t.payments.LoadOrStore(hash, meta); loaded {
		return
	}
	atomic.AddInt64(&t.pendingCount, 1)
	monitoring.SetTrackedPayments(atomic.LoadInt64(&t.pendingCount), "pending")
	logx.Info("TRACKER", fmt.Sprintf("Tracking pending payment: %s (sender: %s, sequence: %d)",
		utils.ShortenHash(hash), utils.ShortenHash(req.Sender), req.Sequence))
}

// MarkCommitted records settlement of the payment identified by hash
func (t *PaymentTracker) MarkCommitted(hash string, sequence uint64, recordAddress string) {
	t.settle(hash, &types.PaymentMeta{
		Hash:          hash,
		Status:        types.PaymentStatusCommitted,
		Sequence:      sequence,
		RecordAddress: recordAddress,
	})
	logx.Info("TRACKER", fmt.Sprintf("Payment committed: %s (sequence: %d, record: %s)",
		utils.ShortenHash(hash), sequence, utils.ShortenHash(recordAddress)))
}

// MarkFailed records rejection of the payment identified by hash
func (t *PaymentTracker) MarkFailed(hash string, sequence uint64, code string, errMsg string) {
	t.settle(hash, &types.PaymentMeta{
		Hash:      hash,
		Status:    types.PaymentStatusFailed,
		Sequence:  sequence,
		ErrorCode: code,
		Error:     errMsg,
	})
	logx.Warn("TRACKER", fmt.Sprintf("Payment failed: %s (%s: %s)", utils.ShortenHash(hash), code, errMsg))
}

func (t *PaymentTracker) settle(hash string, meta *types.PaymentMeta) {
	prev, existed := t.payments.Load(hash)
	t.payments.Store(hash, meta)
	if existed && prev.(*types.PaymentMeta).Status == types.PaymentStatusPending {
		atomic.AddInt64(&t.pendingCount, -1)
	}
	atomic.AddInt64(&t.settledCount, 1)
	monitoring.SetTrackedPayments(atomic.LoadInt64(&t.pendingCount), "pending")
	monitoring.SetTrackedPayments(atomic.LoadInt64(&t.settledCount), "settled")
}

// Status returns a copy of the tracked metadata for hash
func (t *PaymentTracker) Status(hash string) (*types.PaymentMeta, bool) {
	v, ok := t.payments.Load(hash)
	if !ok {
		return nil, false
	}
	meta := *(v.(*types.PaymentMeta))
	return &meta, true
}

// PendingCount returns the number of tracked payments still awaiting
// settlement.
func (t *PaymentTracker) PendingCount() int64 {
	return atomic.LoadInt64(&t.pendingCount)
}

// IsPending reports whether hash is tracked and not yet settled
func (t *PaymentTracker) IsPending(hash string) bool {
	v, ok := t.payments.Load(hash)
	if !ok {
		return false
	}
	return v.(*types.PaymentMeta).Status == types.PaymentStatusPending
}

// StartSettledCleanup periodically drops settled entries so the tracker does
// not grow without bound. Pending entries are never evicted.
func (t *PaymentTracker) StartSettledCleanup(interval time.Duration) {
	exception.SafeGo("tracker-cleanup", func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			t.payments.Range(func(key, value any) bool {
				if value.(*types.PaymentMeta).Status != types.PaymentStatusPending {
					t.payments.Delete(key)
					atomic.AddInt64(&t.settledCount, -1)
				}
				return true
			})
			monitoring.SetTrackedPayments(atomic.LoadInt64(&t.settledCount), "settled")
		}
	})
}
