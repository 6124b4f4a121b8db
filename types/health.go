package types

const (
	HealthServing    = "SERVING"
	HealthNotServing = "NOT_SERVING"
)

// HealthStatus is a point-in-time snapshot of a node, returned by the
// health endpoint and rendered by the CLI.
type HealthStatus struct {
	Status            string `json:"status"`
	NodeID            string `json:"node_id"`
	Timestamp         uint64 `json:"timestamp"`
	TotalTransactions uint64 `json:"total_transactions"`
	PendingPayments   int64  `json:"pending_payments"`
	Uptime            uint64 `json:"uptime"`
	Version           string `json:"version"`
	ErrorMessage      string `json:"error_message,omitempty"`
}
