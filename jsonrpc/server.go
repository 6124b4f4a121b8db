package jsonrpc

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"strconv"
	"strings"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"
	"github.com/creachadair/jrpc2/jhttp"

	"ppn/errors"
	"ppn/interfaces"
	"ppn/jsonx"
	"ppn/logx"
	"ppn/monitoring"
	"ppn/payment"
	"ppn/ratelimit"
	"ppn/types"
	"ppn/utils"
)

// --- Error type used by handlers ---

type rpcError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// toJRPC2Error converts an rpcError into a jrpc2 error. When the message
// is a marshalled LedgerError the structured form travels in the data
// field, so clients keep the string taxonomy code alongside the numeric
// JSON-RPC code.
func toJRPC2Error(e *rpcError) error {
	if e == nil {
		return nil
	}
	var ledgerErr errors.LedgerError
	err := jsonx.Unmarshal([]byte(e.Message), &ledgerErr)
	if err == nil && ledgerErr.Code != "" {
		return jrpc2.Errorf(jrpc2.Code(e.Code), "%s", ledgerErr.Message).WithData(ledgerErr)
	}
	return jrpc2.Errorf(jrpc2.Code(e.Code), "%s", e.Message)
}

func serviceError(err error) *rpcError {
	return &rpcError{Code: rpcCodeFor(errors.CodeOf(err)), Message: err.Error()}
}

func rpcCodeFor(code errors.LedgerErrorCode) int {
	switch code {
	case errors.ErrCodeInvalidRequest, errors.ErrCodeInvalidAddress, errors.ErrCodeInvalidAmount,
		errors.ErrCodeMemoTooLong, errors.ErrCodeSelfPayment, errors.ErrCodeInvalidReceiver,
		errors.ErrCodeAmountOverflow, errors.ErrCodeInvalidSignature:
		return -32602
	case errors.ErrCodeUnauthorized:
		return -32001
	case errors.ErrCodeInsufficientFunds:
		return -32002
	case errors.ErrCodeStateNotInitialized:
		return -32003
	case errors.ErrCodeAccountNotFound, errors.ErrCodePaymentNotFound:
		return -32004
	case errors.ErrCodeSequenceConflict, errors.ErrCodeAddressCollision:
		return -32009
	}
	return -32000
}

// --- Params/Results ---

// Payment
type paymentParams struct {
	Sender    string `json:"sender"`
	Receiver  string `json:"receiver"`
	Amount    string `json:"amount"`
	Memo      string `json:"memo,omitempty"`
	Sequence  uint64 `json:"sequence"`
	Signature string `json:"signature"`
}

type sendPaymentResponse struct {
	Ok            bool   `json:"ok"`
	PaymentHash   string `json:"payment_hash"`
	Sequence      uint64 `json:"sequence"`
	RecordAddress string `json:"record_address"`
	Timestamp     int64  `json:"timestamp"`
}

type getPaymentStatusRequest struct {
	PaymentHash string `json:"payment_hash"`
}

type paymentStatusInfo struct {
	PaymentHash   string `json:"payment_hash"`
	Status        int32  `json:"status"`
	StatusLabel   string `json:"status_label"`
	Sequence      uint64 `json:"sequence"`
	RecordAddress string `json:"record_address,omitempty"`
	ErrorCode     string `json:"error_code,omitempty"`
	ErrorMessage  string `json:"error_message,omitempty"`
}

// Ledger
type getHistoryRequest struct {
	Sender string `json:"sender"`
}

type historyRecord struct {
	Sender    string `json:"sender"`
	Receiver  string `json:"receiver"`
	Amount    string `json:"amount"`
	Timestamp int64  `json:"timestamp"`
	Memo      string `json:"memo,omitempty"`
}

type getHistoryResponse struct {
	Records  []historyRecord `json:"records"`
	Total    int             `json:"total"`
	Skipped  int             `json:"skipped"`
	Decimals uint32          `json:"decimals"`
}

type getStateResponse struct {
	TotalTransactions uint64 `json:"total_transactions"`
}

// Account
type getAccountRequest struct {
	Address string `json:"address"`
}

type getAccountResponse struct {
	Address  string `json:"address"`
	Balance  string `json:"balance"`
	Owner    string `json:"owner,omitempty"`
	Exists   bool   `json:"exists"`
	Decimals uint32 `json:"decimals"`
}

type getBalanceRequest struct {
	Address string `json:"address"`
}

type getBalanceResponse struct {
	Address  string `json:"address"`
	Balance  string `json:"balance"`
	Decimals uint32 `json:"decimals"`
}

// Node
type healthResponse struct {
	Status            string `json:"status"`
	NodeID            string `json:"node_id"`
	Timestamp         uint64 `json:"timestamp"`
	TotalTransactions uint64 `json:"total_transactions"`
	PendingPayments   int64  `json:"pending_payments"`
	Uptime            uint64 `json:"uptime"`
	Version           string `json:"version"`
	ErrorMessage      string `json:"error_message,omitempty"`
}

// --- Server ---

type Server struct {
	addr       string
	paymentSvc interfaces.PaymentService
	ledgerSvc  interfaces.LedgerService
	acctSvc    interfaces.AccountService
	healthSvc  interfaces.HealthService
	corsConfig CORSConfig
	limiter    *ratelimit.Limiter
}

type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         int
}

func NewServer(addr string, paymentSvc interfaces.PaymentService, ledgerSvc interfaces.LedgerService, acctSvc interfaces.AccountService, healthSvc interfaces.HealthService) *Server {
	return &Server{
		addr:       addr,
		paymentSvc: paymentSvc,
		ledgerSvc:  ledgerSvc,
		acctSvc:    acctSvc,
		healthSvc:  healthSvc,
		corsConfig: CORSConfig{
			AllowedOrigins: []string{},
			AllowedMethods: []string{},
			AllowedHeaders: []string{},
			MaxAge:         0,
		},
	}
}

// Handler returns the JSON-RPC bridge with CORS applied. Start mounts it
// on the default mux; embedders can mount it on their own.
func (s *Server) Handler() http.Handler {
	jh := jhttp.NewBridge(s.buildMethodMap(), &jhttp.BridgeOptions{Server: &jrpc2.ServerOptions{}})

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := extractClientIPFromRequest(r)
		logx.Debug("RPC", "Request from", clientIP)
		s.setCORSHeaders(w, r)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		if s.limiter != nil && !s.limiter.Allow(clientIP) {
			monitoring.IncreaseThrottledRequestCount()
			logx.Warn("RPC", "Throttled request from", clientIP)
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		jh.ServeHTTP(w, r)
	})
}

func (s *Server) Start() {
	http.Handle("/", s.Handler())
	go http.ListenAndServe(s.addr, nil)
}

// SetCORSConfig allows configuring CORS settings
func (s *Server) SetCORSConfig(config CORSConfig) {
	s.corsConfig = config
}

// SetRateLimiter throttles requests per client IP. Without one the
// server accepts everything.
func (s *Server) SetRateLimiter(limiter *ratelimit.Limiter) {
	s.limiter = limiter
}

// Build jrpc2 method map
func (s *Server) buildMethodMap() handler.Map {
	return handler.Map{
		MethodPaymentSend: handler.New(func(ctx context.Context, p paymentParams) (*sendPaymentResponse, error) {
			res, err := s.rpcSendPayment(ctx, p)
			if err != nil {
				return nil, toJRPC2Error(err)
			}
			if res == nil {
				return nil, nil
			}
			return res.(*sendPaymentResponse), nil
		}),
		MethodPaymentStatus: handler.New(func(ctx context.Context, p getPaymentStatusRequest) (*paymentStatusInfo, error) {
			res, err := s.rpcGetPaymentStatus(ctx, p)
			if err != nil {
				return nil, toJRPC2Error(err)
			}
			if res == nil {
				return nil, nil
			}
			return res.(*paymentStatusInfo), nil
		}),
		MethodLedgerGetHistory: handler.New(func(ctx context.Context, p getHistoryRequest) (*getHistoryResponse, error) {
			res, err := s.rpcGetHistory(ctx, p)
			if err != nil {
				return nil, toJRPC2Error(err)
			}
			if res == nil {
				return nil, nil
			}
			return res.(*getHistoryResponse), nil
		}),
		MethodLedgerGetState: handler.New(func(ctx context.Context) (*getStateResponse, error) {
			res, err := s.rpcGetState(ctx)
			if err != nil {
				return nil, toJRPC2Error(err)
			}
			if res == nil {
				return nil, nil
			}
			return res.(*getStateResponse), nil
		}),
		MethodAccountGetAccount: handler.New(func(ctx context.Context, p getAccountRequest) (*getAccountResponse, error) {
			res, err := s.rpcGetAccount(ctx, p)
			if err != nil {
				return nil, toJRPC2Error(err)
			}
			if res == nil {
				return nil, nil
			}
			return res.(*getAccountResponse), nil
		}),
		MethodAccountGetBalance: handler.New(func(ctx context.Context, p getBalanceRequest) (*getBalanceResponse, error) {
			res, err := s.rpcGetBalance(ctx, p)
			if err != nil {
				return nil, toJRPC2Error(err)
			}
			if res == nil {
				return nil, nil
			}
			return res.(*getBalanceResponse), nil
		}),
		MethodNodeGetHealth: handler.New(func(ctx context.Context) (*healthResponse, error) {
			res, err := s.rpcGetHealth(ctx)
			if err != nil {
				return nil, toJRPC2Error(err)
			}
			if res == nil {
				return nil, nil
			}
			return res.(*healthResponse), nil
		}),
	}
}

// --- Implementations ---

func (s *Server) rpcSendPayment(ctx context.Context, p paymentParams) (interface{}, *rpcError) {
	amount, err := strconv.ParseUint(p.Amount, 10, 64)
	if err != nil {
		return nil, &rpcError{Code: -32602, Message: fmt.Sprintf("invalid amount %q: base-unit integer expected", p.Amount)}
	}

	req := &payment.Request{
		Sender:    p.Sender,
		Receiver:  p.Receiver,
		Amount:    amount,
		Memo:      p.Memo,
		Sequence:  p.Sequence,
		Signature: p.Signature,
	}
	receipt, err := s.paymentSvc.SubmitPayment(ctx, req)
	if err != nil {
		return nil, serviceError(err)
	}
	return &sendPaymentResponse{
		Ok:            true,
		PaymentHash:   receipt.Hash,
		Sequence:      receipt.Sequence,
		RecordAddress: receipt.RecordAddress,
		Timestamp:     receipt.Timestamp,
	}, nil
}

func (s *Server) rpcGetPaymentStatus(ctx context.Context, p getPaymentStatusRequest) (interface{}, *rpcError) {
	meta, err := s.paymentSvc.GetPaymentStatus(ctx, p.PaymentHash)
	if err != nil {
		return nil, serviceError(err)
	}
	return &paymentStatusInfo{
		PaymentHash:   meta.Hash,
		Status:        meta.Status,
		StatusLabel:   types.StatusLabel(meta.Status),
		Sequence:      meta.Sequence,
		RecordAddress: meta.RecordAddress,
		ErrorCode:     meta.ErrorCode,
		ErrorMessage:  meta.Error,
	}, nil
}

func (s *Server) rpcGetHistory(ctx context.Context, p getHistoryRequest) (interface{}, *rpcError) {
	result, err := s.ledgerSvc.GetHistory(ctx, p.Sender)
	if err != nil {
		return nil, serviceError(err)
	}
	records := make([]historyRecord, 0, len(result.Records))
	for _, rec := range result.Records {
		records = append(records, historyRecord{
			Sender:    rec.Sender,
			Receiver:  rec.Receiver,
			Amount:    strconv.FormatUint(rec.Amount, 10),
			Timestamp: rec.Timestamp,
			Memo:      rec.Memo,
		})
	}
	return &getHistoryResponse{
		Records:  records,
		Total:    len(records),
		Skipped:  result.Skipped,
		Decimals: uint32(utils.DecimalPlaces),
	}, nil
}

func (s *Server) rpcGetState(ctx context.Context) (interface{}, *rpcError) {
	state, err := s.ledgerSvc.GetProgramState(ctx)
	if err != nil {
		return nil, serviceError(err)
	}
	return &getStateResponse{TotalTransactions: state.TotalTransactions}, nil
}

func (s *Server) rpcGetAccount(ctx context.Context, p getAccountRequest) (interface{}, *rpcError) {
	acc, err := s.acctSvc.GetAccount(ctx, p.Address)
	if err != nil {
		return nil, serviceError(err)
	}
	if acc == nil {
		return &getAccountResponse{
			Address:  p.Address,
			Balance:  "0",
			Exists:   false,
			Decimals: uint32(utils.DecimalPlaces),
		}, nil
	}
	return &getAccountResponse{
		Address:  acc.Address,
		Balance:  acc.Balance.Dec(),
		Owner:    acc.Owner,
		Exists:   true,
		Decimals: uint32(utils.DecimalPlaces),
	}, nil
}

func (s *Server) rpcGetBalance(ctx context.Context, p getBalanceRequest) (interface{}, *rpcError) {
	balance, err := s.acctSvc.GetBalance(ctx, p.Address)
	if err != nil {
		return nil, serviceError(err)
	}
	return &getBalanceResponse{
		Address:  p.Address,
		Balance:  balance.Dec(),
		Decimals: uint32(utils.DecimalPlaces),
	}, nil
}

func (s *Server) rpcGetHealth(ctx context.Context) (interface{}, *rpcError) {
	health, err := s.healthSvc.Check(ctx)
	if err != nil {
		return nil, &rpcError{Code: -32000, Message: err.Error()}
	}
	return &healthResponse{
		Status:            health.Status,
		NodeID:            health.NodeID,
		Timestamp:         health.Timestamp,
		TotalTransactions: health.TotalTransactions,
		PendingPayments:   health.PendingPayments,
		Uptime:            health.Uptime,
		Version:           health.Version,
		ErrorMessage:      health.ErrorMessage,
	}, nil
}

// --- Helpers ---

func (s *Server) setCORSHeaders(w http.ResponseWriter, r *http.Request) {
	// Set allowed origins
	if len(s.corsConfig.AllowedOrigins) > 0 {
		if s.corsConfig.AllowedOrigins[0] == "*" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			// Check if the request origin is in the allowed list
			origin := r.Header.Get("Origin")
			for _, allowedOrigin := range s.corsConfig.AllowedOrigins {
				if origin == allowedOrigin {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
	}

	// Set allowed methods
	if len(s.corsConfig.AllowedMethods) > 0 {
		methods := strings.Join(s.corsConfig.AllowedMethods, ", ")
		w.Header().Set("Access-Control-Allow-Methods", methods)
	}

	// Set allowed headers
	if len(s.corsConfig.AllowedHeaders) > 0 {
		headers := strings.Join(s.corsConfig.AllowedHeaders, ", ")
		w.Header().Set("Access-Control-Allow-Headers", headers)
	}

	// Set max age
	if s.corsConfig.MaxAge > 0 {
		w.Header().Set("Access-Control-Max-Age", fmt.Sprintf("%d", s.corsConfig.MaxAge))
	}
}

// --- Env helpers ---

// CORSFromEnv reads environment variables and constructs a CORSConfig.
// Returns (cfg, true) if any CORS-related env var is set; otherwise (zero, false).
//
// Env vars:
// - CORS_ALLOWED_ORIGINS: comma-separated list
// - CORS_ALLOWED_METHODS: comma-separated list
// - CORS_ALLOWED_HEADERS: comma-separated list
// - CORS_MAX_AGE: integer seconds
func CORSFromEnv() (CORSConfig, bool) {
	origins := os.Getenv("CORS_ALLOWED_ORIGINS")
	methods := os.Getenv("CORS_ALLOWED_METHODS")
	headers := os.Getenv("CORS_ALLOWED_HEADERS")
	maxAgeStr := os.Getenv("CORS_MAX_AGE")

	var maxAge int
	if maxAgeStr != "" {
		if v, err := strconv.Atoi(maxAgeStr); err == nil {
			maxAge = v
		}
	}

	var allowedOrigins, allowedMethods, allowedHeaders []string
	if origins != "" {
		allowedOrigins = splitAndTrim(origins)
	}
	if methods != "" {
		allowedMethods = splitAndTrim(methods)
	}
	if headers != "" {
		allowedHeaders = splitAndTrim(headers)
	}

	provided := len(allowedOrigins) > 0 || len(allowedMethods) > 0 || len(allowedHeaders) > 0 || maxAge > 0
	if !provided {
		return CORSConfig{}, false
	}

	return CORSConfig{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: allowedMethods,
		AllowedHeaders: allowedHeaders,
		MaxAge:         maxAge,
	}, true
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	var out []string
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
