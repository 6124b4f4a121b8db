package interfaces

import (
	"context"

	"ppn/ledger"
	"ppn/payment"
	"ppn/types"
)

type PaymentService interface {
	SubmitPayment(ctx context.Context, req *payment.Request) (*ledger.Receipt, error)
	GetPaymentStatus(ctx context.Context, hash string) (*types.PaymentMeta, error)
}
