package client

import (
	"errors"
	"fmt"

	"ppn/common"
	"ppn/payment"
	"ppn/record"
)

var (
	ErrInvalidAddress = errors.New("client: invalid address format")
	ErrInvalidAmount  = errors.New("client: amount must be > 0")
	ErrMemoTooLong    = errors.New("client: memo exceeds the byte limit")
	ErrSelfPayment    = errors.New("client: sender and receiver must differ")
)

// paymentParams mirrors the payment.send wire shape. Amounts travel as
// base-unit decimal strings.
type paymentParams struct {
	Sender    string `json:"sender"`
	Receiver  string `json:"receiver"`
	Amount    string `json:"amount"`
	Memo      string `json:"memo,omitempty"`
	Sequence  uint64 `json:"sequence"`
	Signature string `json:"signature"`
}

type statusParams struct {
	PaymentHash string `json:"payment_hash"`
}

type addressParams struct {
	Address string `json:"address"`
}

type historyParams struct {
	Sender string `json:"sender"`
}

type PaymentReceipt struct {
	Ok            bool   `json:"ok"`
	PaymentHash   string `json:"payment_hash"`
	Sequence      uint64 `json:"sequence"`
	RecordAddress string `json:"record_address"`
	Timestamp     int64  `json:"timestamp"`
}

type PaymentStatus struct {
	PaymentHash   string `json:"payment_hash"`
	Status        int32  `json:"status"`
	StatusLabel   string `json:"status_label"`
	Sequence      uint64 `json:"sequence"`
	RecordAddress string `json:"record_address,omitempty"`
	ErrorCode     string `json:"error_code,omitempty"`
	ErrorMessage  string `json:"error_message,omitempty"`
}

type AccountInfo struct {
	Address  string `json:"address"`
	Balance  string `json:"balance"`
	Owner    string `json:"owner,omitempty"`
	Exists   bool   `json:"exists"`
	Decimals uint32 `json:"decimals"`
}

type BalanceInfo struct {
	Address  string `json:"address"`
	Balance  string `json:"balance"`
	Decimals uint32 `json:"decimals"`
}

type StateInfo struct {
	TotalTransactions uint64 `json:"total_transactions"`
}

type HistoryEntry struct {
	Sender    string `json:"sender"`
	Receiver  string `json:"receiver"`
	Amount    string `json:"amount"`
	Timestamp int64  `json:"timestamp"`
	Memo      string `json:"memo,omitempty"`
}

type HistoryInfo struct {
	Records  []HistoryEntry `json:"records"`
	Total    int            `json:"total"`
	Skipped  int            `json:"skipped"`
	Decimals uint32         `json:"decimals"`
}

type HealthInfo struct {
	Status            string `json:"status"`
	NodeID            string `json:"node_id"`
	Timestamp         uint64 `json:"timestamp"`
	TotalTransactions uint64 `json:"total_transactions"`
	PendingPayments   int64  `json:"pending_payments"`
	Uptime            uint64 `json:"uptime"`
	Version           string `json:"version"`
	ErrorMessage      string `json:"error_message,omitempty"`
}

// BuildPaymentRequest assembles an unsigned transfer request, applying the
// same shape checks the node applies so obviously bad requests never leave
// the client.
func BuildPaymentRequest(sender, receiver string, amount uint64, memo string, sequence uint64) (*payment.Request, error) {
	if _, err := common.DecodePublicKey(sender); err != nil {
		return nil, fmt.Errorf("sender: %w", ErrInvalidAddress)
	}
	if _, err := common.DecodePublicKey(receiver); err != nil {
		return nil, fmt.Errorf("receiver: %w", ErrInvalidAddress)
	}
	if sender == receiver {
		return nil, ErrSelfPayment
	}
	if amount == 0 {
		return nil, ErrInvalidAmount
	}
	if len(memo) > record.MaxMemoBytes {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrMemoTooLong, len(memo), record.MaxMemoBytes)
	}

	return &payment.Request{
		Sender:   sender,
		Receiver: receiver,
		Amount:   amount,
		Memo:     memo,
		Sequence: sequence,
	}, nil
}
