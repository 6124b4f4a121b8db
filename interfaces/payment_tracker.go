package interfaces

import (
	"ppn/payment"
	"ppn/types"
)

// Tracking payments between submission and settlement
type PaymentTrackerInterface interface {
	TrackPending(req *payment.Request)
	MarkCommitted(hash string, sequence uint64, recordAddress string)
	MarkFailed(hash string, sequence uint64, code string, errMsg string)
	Status(hash string) (*types.PaymentMeta, bool)
	IsPending(hash string) bool
	PendingCount() int64
}
