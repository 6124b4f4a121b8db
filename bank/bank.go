// Package bank is the execution substrate under the ledger: keyed
// account storage with reserve and rent economics, a wall clock, and the
// atomic multi-store commit every payment rides. The ledger sequences
// operations; the bank guarantees they apply entirely or not at all.
package bank

import (
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"ppn/db"
	"ppn/logx"
	"ppn/record"
	"ppn/store"
	"ppn/types"
)

// Alloc is one genesis balance grant.
type Alloc struct {
	Address string
	Amount  uint64
}

type Bank struct {
	// mu is the single serialization point: units that read-then-write
	// the sequencing cell or the same accounts cannot interleave.
	mu sync.Mutex

	txManager *db.DBTxManager
	accounts  store.AccountStore
	records   store.RecordStore
	state     store.StateStore
	params    Params
	clock     Clock
}

func NewBank(provider db.DatabaseProvider, accounts store.AccountStore, records store.RecordStore, state store.StateStore, params Params, clock Clock) *Bank {
	return &Bank{
		txManager: db.NewDBTxManager(provider),
		accounts:  accounts,
		records:   records,
		state:     state,
		params:    params,
		clock:     clock,
	}
}

// Params returns the substrate economics.
func (b *Bank) Params() Params {
	return b.params
}

// Execute runs fn against a fresh unit and commits everything the unit
// staged through one batch. If fn returns an error nothing is written;
// if the batch write fails nothing is written. There is no partial
// outcome.
func (b *Bank) Execute(fn func(u *Unit) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	u := newUnit(b)
	if err := fn(u); err != nil {
		return err
	}

	return b.txManager.WithBatch(func(batch db.DatabaseBatch) error {
		for _, acc := range u.overlay {
			if err := b.accounts.PutInBatch(batch, acc); err != nil {
				return err
			}
		}
		for _, sr := range u.records {
			if err := b.records.PutInBatch(batch, sr.address, sr.rec); err != nil {
				return err
			}
		}
		if u.stateDirty {
			b.state.PutInBatch(batch, u.state)
		}
		return nil
	})
}

// GetAccount reads an account outside any unit; nil when missing.
func (b *Bank) GetAccount(addr string) (*types.Account, error) {
	return b.accounts.GetByAddr(addr)
}

// GetState reads the sequencing cell; ok is false before initialization.
func (b *Bank) GetState() (*types.ProgramState, bool, error) {
	return b.state.Get()
}

// GetRecord reads the record at a derived address; nil when unoccupied.
func (b *Bank) GetRecord(address string) (*record.Record, error) {
	return b.records.GetByAddress(address)
}

// ScanRecords walks the packed record rows without decoding them; see
// store.RecordStore.Scan for the pred/fn contract.
func (b *Bank) ScanRecords(pred func(raw []byte) bool, fn func(address string, raw []byte) bool) error {
	return b.records.Scan(pred, fn)
}

// InitializeState creates the sequencing cell once. Returns true when
// this call created it, false when it already existed.
func (b *Bank) InitializeState() (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, ok, err := b.state.Get()
	if err != nil {
		return false, err
	}
	if ok {
		return false, nil
	}
	if err := b.state.Put(&types.ProgramState{TotalTransactions: 0}); err != nil {
		return false, err
	}
	logx.Info("BANK", "Program state initialized at sequence 0")
	return true, nil
}

// ApplyGenesis funds the initial accounts. Already-existing accounts are
// left untouched so a node restart cannot double-credit anyone.
func (b *Bank) ApplyGenesis(allocs []Alloc) error {
	return b.Execute(func(u *Unit) error {
		for _, alloc := range allocs {
			existing, err := u.GetAccount(alloc.Address)
			if err != nil {
				return fmt.Errorf("could not load genesis account %s: %w", alloc.Address, err)
			}
			if existing != nil {
				continue
			}
			acc, err := u.GetOrCreateAccount(alloc.Address, types.AccountOwnerSystem)
			if err != nil {
				return err
			}
			acc.Balance = uint256.NewInt(alloc.Amount)
			logx.Info("BANK", fmt.Sprintf("Genesis account %s funded with %d", alloc.Address, alloc.Amount))
		}
		return nil
	})
}

// Spendable is the balance the owner can actually move: everything above
// the base reserve.
func (b *Bank) Spendable(acc *types.Account) *uint256.Int {
	reserve := uint256.NewInt(b.params.BaseReserve)
	if acc.Balance.Cmp(reserve) <= 0 {
		return uint256.NewInt(0)
	}
	return new(uint256.Int).Sub(acc.Balance, reserve)
}
