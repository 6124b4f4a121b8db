package client

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/jhttp"

	"ppn/errors"
	"ppn/jsonx"
	"ppn/logx"
	"ppn/payment"
	"ppn/types"
)

const (
	// DefaultMaxRetries is applied when Config.MaxRetries is zero.
	DefaultMaxRetries = 3
	// MaxRetryBound caps Config.MaxRetries. A conflict that survives this
	// many fresh sequences is surfaced instead of retried.
	MaxRetryBound = 5
	// DefaultPollInterval is applied when Config.PollInterval is zero.
	DefaultPollInterval = 500 * time.Millisecond
)

type Config struct {
	Endpoint     string
	MaxRetries   int
	PollInterval time.Duration
}

type PpnClient struct {
	cfg  Config
	conn *jrpc2.Client
}

func NewClient(cfg Config) (*PpnClient, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("client: endpoint is required")
	}
	if !strings.Contains(cfg.Endpoint, "://") {
		cfg.Endpoint = "http://" + cfg.Endpoint
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.MaxRetries > MaxRetryBound {
		cfg.MaxRetries = MaxRetryBound
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}

	ch := jhttp.NewChannel(cfg.Endpoint, nil)
	return &PpnClient{cfg: cfg, conn: jrpc2.NewClient(ch, nil)}, nil
}

func (c *PpnClient) CheckHealth(ctx context.Context) (*HealthInfo, error) {
	var res HealthInfo
	if err := c.conn.CallResult(ctx, "node.gethealth", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *PpnClient) GetAccount(ctx context.Context, addr string) (*AccountInfo, error) {
	var res AccountInfo
	if err := c.conn.CallResult(ctx, "account.getaccount", addressParams{Address: addr}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *PpnClient) GetBalance(ctx context.Context, addr string) (*BalanceInfo, error) {
	var res BalanceInfo
	if err := c.conn.CallResult(ctx, "account.getbalance", addressParams{Address: addr}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// GetState returns the ledger sequence counter. Its value is the sequence
// a fresh payment request must carry.
func (c *PpnClient) GetState(ctx context.Context) (*StateInfo, error) {
	var res StateInfo
	if err := c.conn.CallResult(ctx, "ledger.getstate", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *PpnClient) GetHistory(ctx context.Context, addr string) (*HistoryInfo, error) {
	var res HistoryInfo
	if err := c.conn.CallResult(ctx, "ledger.gethistory", historyParams{Sender: addr}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// SendPayment submits an already signed request once, with no retry.
func (c *PpnClient) SendPayment(ctx context.Context, req *payment.Request) (*PaymentReceipt, error) {
	params := paymentParams{
		Sender:    req.Sender,
		Receiver:  req.Receiver,
		Amount:    strconv.FormatUint(req.Amount, 10),
		Memo:      req.Memo,
		Sequence:  req.Sequence,
		Signature: req.Signature,
	}
	var res PaymentReceipt
	if err := c.conn.CallResult(ctx, "payment.send", params, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// GetPaymentStatus asks the node for the fate of a submitted payment. A
// hash the node does not track comes back as Unknown rather than an error,
// since the submission may have been lost before it was accepted.
func (c *PpnClient) GetPaymentStatus(ctx context.Context, hash string) (*PaymentStatus, error) {
	var res PaymentStatus
	err := c.conn.CallResult(ctx, "payment.status", statusParams{PaymentHash: hash}, &res)
	if err == nil {
		return &res, nil
	}
	if le := LedgerErrorFrom(err); le != nil && le.Code == errors.ErrCodePaymentNotFound {
		return unknownStatus(hash), nil
	}
	return nil, err
}

// SendPaymentAndWait reads the ledger counter, builds and signs a transfer,
// and submits it, fetching a fresh sequence and resubmitting when another
// payment wins the slot first. The returned status is terminal except when
// the context expires, in which case it is Unknown and the caller should
// re-check before ever resubmitting.
func (c *PpnClient) SendPaymentAndWait(ctx context.Context, privKey ed25519.PrivateKey, receiver string, amount uint64, memo string) (*PaymentStatus, error) {
	sender := AddressFromPrivateKey(privKey)

	var lastErr error
	var lastHash string
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			logx.Warn("CLIENT", fmt.Sprintf("Retrying payment (%d/%d): %v", attempt, c.cfg.MaxRetries, lastErr))
		}

		state, err := c.GetState(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return unknownStatus(lastHash), nil
			}
			return nil, err
		}

		req, err := BuildPaymentRequest(sender, receiver, amount, memo, state.TotalTransactions)
		if err != nil {
			return nil, err
		}
		req.Sign(privKey)
		lastHash = req.Hash()

		receipt, err := c.SendPayment(ctx, req)
		if err == nil {
			return &PaymentStatus{
				PaymentHash:   receipt.PaymentHash,
				Status:        types.PaymentStatusCommitted,
				StatusLabel:   types.StatusLabel(types.PaymentStatusCommitted),
				Sequence:      receipt.Sequence,
				RecordAddress: receipt.RecordAddress,
			}, nil
		}
		if ctx.Err() != nil {
			// The request may have landed after the deadline cut us off.
			return unknownStatus(lastHash), nil
		}
		if le := LedgerErrorFrom(err); le == nil || !errors.IsRetryable(le) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// WaitForCommit polls the node until hash settles. When the context ends
// first the result is Unknown; the payment may still land afterwards.
func (c *PpnClient) WaitForCommit(ctx context.Context, hash string) (*PaymentStatus, error) {
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()
	for {
		status, err := c.GetPaymentStatus(ctx, hash)
		if err != nil {
			if ctx.Err() != nil {
				return unknownStatus(hash), nil
			}
			return nil, err
		}
		if status.Status == types.PaymentStatusCommitted || status.Status == types.PaymentStatusFailed {
			return status, nil
		}
		select {
		case <-ctx.Done():
			return unknownStatus(hash), nil
		case <-ticker.C:
		}
	}
}

// Close shuts down the underlying JSON-RPC connection
func (c *PpnClient) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// LedgerErrorFrom extracts the structured ledger error carried in a
// JSON-RPC error's data field, or nil when err carries none.
func LedgerErrorFrom(err error) *errors.LedgerError {
	rpcErr, ok := err.(*jrpc2.Error)
	if !ok || len(rpcErr.Data) == 0 {
		return nil
	}
	var le errors.LedgerError
	if uerr := jsonx.Unmarshal(rpcErr.Data, &le); uerr != nil || le.Code == "" {
		return nil
	}
	return &le
}

func unknownStatus(hash string) *PaymentStatus {
	return &PaymentStatus{
		PaymentHash: hash,
		Status:      types.PaymentStatusUnknown,
		StatusLabel: types.StatusLabel(types.PaymentStatusUnknown),
	}
}
