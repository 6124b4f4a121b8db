package types

const (
	PaymentStatusFailed    = 0
	PaymentStatusCommitted = 1
	PaymentStatusPending   = 2
	PaymentStatusUnknown   = 3
)

// PaymentMeta describes the observed fate of a submitted payment. An
// Unknown status means the caller stopped waiting before the outcome was
// visible; it never means the payment failed.
type PaymentMeta struct {
	Hash          string `json:"hash"`
	Status        int32  `json:"status"`
	Sequence      uint64 `json:"sequence"`
	RecordAddress string `json:"record_address,omitempty"`
	ErrorCode     string `json:"error_code,omitempty"`
	Error         string `json:"error,omitempty"`
}

// StatusLabel renders a payment status for logs and CLI output.
func StatusLabel(status int32) string {
	switch status {
	case PaymentStatusFailed:
		return "failed"
	case PaymentStatusCommitted:
		return "committed"
	case PaymentStatusPending:
		return "pending"
	default:
		return "unknown"
	}
}
