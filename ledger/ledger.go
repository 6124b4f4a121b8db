// Package ledger is the core state machine: it validates a signed payment
// request, derives the record address for the current sequence number,
// moves value, writes the immutable record and advances the counter as a
// single bank unit. Everything else in the repo either feeds requests in
// or reads what this package committed.
package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/holiman/uint256"

	"ppn/bank"
	"ppn/common"
	"ppn/errors"
	"ppn/events"
	"ppn/logx"
	"ppn/monitoring"
	"ppn/payment"
	"ppn/record"
	"ppn/types"
	"ppn/utils"
)

// Receipt describes one committed payment: the commit handle clients poll
// with, the sequence number the payment consumed and the address the
// record landed at.
type Receipt struct {
	Hash          string `json:"hash"`
	Sequence      uint64 `json:"sequence"`
	RecordAddress string `json:"record_address"`
	Timestamp     int64  `json:"timestamp"`
}

// HistoryResult carries a sender's records plus the number of rows that
// matched the sender but could not be decoded.
type HistoryResult struct {
	Records []*record.Record `json:"records"`
	Skipped int              `json:"skipped"`
}

type Ledger struct {
	bank        *bank.Bank
	eventRouter *events.EventRouter
}

func NewLedger(b *bank.Bank, eventRouter *events.EventRouter) *Ledger {
	return &Ledger{
		bank:        b,
		eventRouter: eventRouter,
	}
}

// SendPayment validates req, moves the value and appends the transfer
// record, all inside one bank unit. On success the returned receipt names
// the consumed sequence number and the record address; on failure nothing
// was written and the error code says why.
func (l *Ledger) SendPayment(req *payment.Request) (*Receipt, error) {
	receipt, err := l.sendPayment(req)
	if err != nil {
		code := string(errors.CodeOf(err))
		monitoring.RecordRejectedPayment(code)
		if l.eventRouter != nil {
			l.eventRouter.PublishPaymentEvent(events.NewPaymentFailed(req.Hash(), code, err.Error()))
		}
		logx.Warn("LEDGER", fmt.Sprintf("Payment %s rejected: %v", utils.ShortenHash(req.Hash()), err))
		return nil, err
	}

	monitoring.IncreaseCommittedPaymentCount()
	monitoring.SetSequenceCounter(receipt.Sequence + 1)
	if l.eventRouter != nil {
		l.eventRouter.PublishPaymentEvent(events.NewPaymentCommitted(receipt.Hash, receipt.Sequence, receipt.RecordAddress))
	}
	logx.Info("LEDGER", fmt.Sprintf("Payment %s committed at sequence %d (record %s)",
		utils.ShortenHash(receipt.Hash), receipt.Sequence, utils.ShortenHash(receipt.RecordAddress)))
	return receipt, nil
}

func (l *Ledger) sendPayment(req *payment.Request) (*Receipt, error) {
	// Authentication first. The caller learns nothing about which part
	// of the check failed.
	if !req.Verify() {
		return nil, errors.NewError(errors.ErrCodeUnauthorized, errors.ErrMsgUnauthorized)
	}
	if req.Amount == 0 {
		return nil, errors.NewError(errors.ErrCodeInvalidAmount, errors.ErrMsgInvalidAmount)
	}
	if len(req.Memo) > record.MaxMemoBytes {
		return nil, errors.NewError(errors.ErrCodeMemoTooLong,
			fmt.Sprintf("memo is %d bytes, limit is %d", len(req.Memo), record.MaxMemoBytes))
	}
	if req.Sender == req.Receiver {
		return nil, errors.NewError(errors.ErrCodeSelfPayment, errors.ErrMsgSelfPayment)
	}
	if _, err := common.DecodePublicKey(req.Receiver); err != nil {
		return nil, errors.NewError(errors.ErrCodeInvalidReceiver, errors.ErrMsgInvalidReceiver)
	}

	receipt := &Receipt{Hash: req.Hash()}
	err := l.bank.Execute(func(u *bank.Unit) error {
		state, err := u.State()
		if err != nil {
			return err
		}
		if req.Sequence != state.TotalTransactions {
			return errors.NewError(errors.ErrCodeSequenceConflict,
				fmt.Sprintf("sequence %d is stale, ledger is at %d", req.Sequence, state.TotalTransactions))
		}
		seq := state.TotalTransactions
		if seq+1 < seq {
			return errors.NewError(errors.ErrCodeAmountOverflow, "sequence counter exhausted")
		}

		addr, err := record.Address(req.Sender, seq)
		if err != nil {
			return errors.NewError(errors.ErrCodeUnauthorized, errors.ErrMsgUnauthorized)
		}

		sender, err := u.GetAccount(req.Sender)
		if err != nil {
			return err
		}
		if sender == nil {
			return errors.NewError(errors.ErrCodeAccountNotFound,
				fmt.Sprintf("sender account %s does not exist", req.Sender))
		}

		receiver, err := u.GetAccount(req.Receiver)
		if err != nil {
			return err
		}
		if receiver != nil && !receiver.IsSystemOwned() {
			return errors.NewError(errors.ErrCodeInvalidReceiver, errors.ErrMsgInvalidReceiver)
		}
		if receiver == nil {
			if receiver, err = u.GetOrCreateAccount(req.Receiver, types.AccountOwnerSystem); err != nil {
				return err
			}
		}

		// The sender pays the amount plus rent for the record's storage.
		// Rent parks in the ledger-owned account at the record address.
		rent := u.Params().MinBalanceForSize(record.PackedSize)
		charge := new(uint256.Int).Add(uint256.NewInt(req.Amount), uint256.NewInt(rent))
		if l.bank.Spendable(sender).Cmp(charge) < 0 {
			return errors.NewError(errors.ErrCodeInsufficientFunds,
				fmt.Sprintf("need %s above the reserve (amount %d + record rent %d)", charge.String(), req.Amount, rent))
		}

		sender.Balance.Sub(sender.Balance, charge)
		receiver.Balance.Add(receiver.Balance, uint256.NewInt(req.Amount))

		rentVault, err := u.GetOrCreateAccount(addr, types.AccountOwnerLedger)
		if err != nil {
			return err
		}
		rentVault.Balance.Add(rentVault.Balance, uint256.NewInt(rent))

		rec := &record.Record{
			Sender:    req.Sender,
			Receiver:  req.Receiver,
			Amount:    req.Amount,
			Timestamp: u.UnixNow(),
			Memo:      req.Memo,
		}
		if err := u.AddRecord(addr, rec); err != nil {
			return err
		}

		state.TotalTransactions = seq + 1
		u.PutState(state)

		receipt.Sequence = seq
		receipt.RecordAddress = addr
		receipt.Timestamp = rec.Timestamp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// GetHistory returns every record the given identity sent, newest first.
// Rows are filtered on length and on the sender bytes at their fixed
// offset before any decode; rows that pass the filters but fail to decode
// are skipped and counted, never aborting the scan.
func (l *Ledger) GetHistory(sender string) (*HistoryResult, error) {
	started := time.Now()
	pub, err := common.DecodePublicKey(sender)
	if err != nil {
		return nil, errors.NewError(errors.ErrCodeInvalidAddress, errors.ErrMsgInvalidAddress)
	}

	result := &HistoryResult{Records: make([]*record.Record, 0)}
	scanErr := l.bank.ScanRecords(
		func(raw []byte) bool {
			return len(raw) == record.PackedSize && record.MatchesSender(raw, pub)
		},
		func(address string, raw []byte) bool {
			rec, unpackErr := record.Unpack(raw)
			if unpackErr != nil {
				result.Skipped++
				monitoring.IncreaseCorruptRecordCount()
				logx.Warn("LEDGER", fmt.Sprintf("Skipping undecodable record %s: %v", address, unpackErr))
				return true
			}
			result.Records = append(result.Records, rec)
			return true
		},
	)
	if scanErr != nil {
		return nil, fmt.Errorf("history scan failed: %w", scanErr)
	}

	sort.SliceStable(result.Records, func(i, j int) bool {
		return result.Records[i].Timestamp > result.Records[j].Timestamp
	})
	monitoring.RecordHistoryScan(time.Since(started), len(result.Records))
	return result, nil
}

// ProgramState returns the current sequencing state.
func (l *Ledger) ProgramState() (*types.ProgramState, error) {
	st, ok, err := l.bank.GetState()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.NewError(errors.ErrCodeStateNotInitialized, errors.ErrMsgStateNotInitialized)
	}
	return st, nil
}

// InitializeState creates the sequencing state with a zero counter. The
// call is idempotent; created reports whether this call did the creation.
func (l *Ledger) InitializeState() (*types.ProgramState, bool, error) {
	created, err := l.bank.InitializeState()
	if err != nil {
		return nil, false, err
	}
	st, _, err := l.bank.GetState()
	if err != nil {
		return nil, false, err
	}
	monitoring.SetSequenceCounter(st.TotalTransactions)
	return st, created, nil
}

// GetAccount returns account with addr (nil if not exist)
func (l *Ledger) GetAccount(addr string) (*types.Account, error) {
	return l.bank.GetAccount(addr)
}

// Balance returns current balance for addr
func (l *Ledger) Balance(addr string) (*uint256.Int, error) {
	acc, err := l.bank.GetAccount(addr)
	if err != nil {
		return uint256.NewInt(0), err
	}
	if acc == nil {
		return nil, errors.NewError(errors.ErrCodeAccountNotFound, errors.ErrMsgAccountNotFound)
	}
	return acc.Balance, nil
}

// GetRecord reads the record at a derived address. Callers that saw a
// confirmation time out re-check through here before resubmitting.
func (l *Ledger) GetRecord(address string) (*record.Record, error) {
	return l.bank.GetRecord(address)
}
