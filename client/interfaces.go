package client

import (
	"context"
	"crypto/ed25519"

	"ppn/payment"
)

type LedgerClient interface {
	SendPayment(ctx context.Context, req *payment.Request) (*PaymentReceipt, error)
	SendPaymentAndWait(ctx context.Context, privKey ed25519.PrivateKey, receiver string, amount uint64, memo string) (*PaymentStatus, error)
	GetPaymentStatus(ctx context.Context, hash string) (*PaymentStatus, error)
	WaitForCommit(ctx context.Context, hash string) (*PaymentStatus, error)
	GetAccount(ctx context.Context, addr string) (*AccountInfo, error)
	GetBalance(ctx context.Context, addr string) (*BalanceInfo, error)
	GetState(ctx context.Context) (*StateInfo, error)
	GetHistory(ctx context.Context, addr string) (*HistoryInfo, error)
	CheckHealth(ctx context.Context) (*HealthInfo, error)
	Close() error
}
