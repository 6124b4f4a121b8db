package jsonrpc

import (
	"net"
	"net/http"
	"strings"

	"ppn/logx"
)

// JSON-RPC Method name constants
const (
	// Payment methods
	MethodPaymentSend   = "payment.send"
	MethodPaymentStatus = "payment.status"

	// Ledger methods
	MethodLedgerGetHistory = "ledger.gethistory"
	MethodLedgerGetState   = "ledger.getstate"

	// Account methods
	MethodAccountGetAccount = "account.getaccount"
	MethodAccountGetBalance = "account.getbalance"

	// Node methods
	MethodNodeGetHealth = "node.gethealth"
)

func extractClientIPFromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		logx.Debug("RPC", "X-Forwarded-For:", xff)
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if net.ParseIP(ip) != nil {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && net.ParseIP(host) != nil {
		return host
	}
	return "unknown"
}
