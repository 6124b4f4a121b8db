package bank

import (
	"fmt"

	"github.com/holiman/uint256"

	"ppn/errors"
	"ppn/record"
	"ppn/types"
)

type stagedRecord struct {
	address string
	rec     *record.Record
}

// Unit is one atomic state transition under construction. Account reads
// copy into an overlay; mutations happen on the overlay copies; nothing
// reaches the database unless the whole unit commits. Record creation
// and the counter row stage the same way, so a payment's account moves,
// its record and its sequence advance land in one batch or not at all.
type Unit struct {
	bank *Bank
	now  int64

	overlay     map[string]*types.Account
	records     []stagedRecord
	recordAt    map[string]bool
	state       *types.ProgramState
	stateLoaded bool
	stateDirty  bool
}

func newUnit(b *Bank) *Unit {
	return &Unit{
		bank:     b,
		now:      b.clock.Now().Unix(),
		overlay:  make(map[string]*types.Account),
		recordAt: make(map[string]bool),
	}
}

// UnixNow is the substrate clock value fixed for this unit; every record
// the unit creates carries it.
func (u *Unit) UnixNow() int64 {
	return u.now
}

// Params exposes the substrate economics to validation logic.
func (u *Unit) Params() Params {
	return u.bank.params
}

// GetAccount returns the staged copy of an account, loading it from the
// store on first touch. Missing accounts return nil.
func (u *Unit) GetAccount(addr string) (*types.Account, error) {
	if acc, ok := u.overlay[addr]; ok {
		return acc, nil
	}
	base, err := u.bank.accounts.GetByAddr(addr)
	if err != nil {
		return nil, fmt.Errorf("could not load account %s: %w", addr, err)
	}
	if base == nil {
		return nil, nil
	}

	cp := &types.Account{
		Address: base.Address,
		Balance: new(uint256.Int).Set(base.Balance),
		Owner:   base.Owner,
	}
	u.overlay[addr] = cp
	return cp, nil
}

// GetOrCreateAccount returns the staged account, creating a zero-balance
// one with the given owner when the address has never been seen.
func (u *Unit) GetOrCreateAccount(addr string, owner string) (*types.Account, error) {
	acc, err := u.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	if acc != nil {
		return acc, nil
	}

	cp := &types.Account{
		Address: addr,
		Balance: uint256.NewInt(0),
		Owner:   owner,
	}
	u.overlay[addr] = cp
	return cp, nil
}

// State loads the sequencing cell into the unit; the read and the later
// PutState ride the same commit, which is what makes two units racing on
// one sequence number impossible.
func (u *Unit) State() (*types.ProgramState, error) {
	if u.stateLoaded {
		return u.state, nil
	}
	st, ok, err := u.bank.state.Get()
	if err != nil {
		return nil, fmt.Errorf("could not load program state: %w", err)
	}
	if !ok {
		return nil, errors.NewError(errors.ErrCodeStateNotInitialized, errors.ErrMsgStateNotInitialized)
	}
	u.state = st
	u.stateLoaded = true
	return st, nil
}

// PutState stages the advanced counter.
func (u *Unit) PutState(st *types.ProgramState) {
	u.state = st
	u.stateLoaded = true
	u.stateDirty = true
}

// AddRecord stages an immutable record at a derived address. An occupied
// address, in the store or staged earlier in this unit, fails the whole
// unit; records are never overwritten.
func (u *Unit) AddRecord(address string, rec *record.Record) error {
	if u.recordAt[address] {
		return errors.NewError(errors.ErrCodeAddressCollision, errors.ErrMsgAddressCollision)
	}
	occupied, err := u.bank.records.ExistsByAddress(address)
	if err != nil {
		return fmt.Errorf("could not check record address %s: %w", address, err)
	}
	if occupied {
		return errors.NewError(errors.ErrCodeAddressCollision, errors.ErrMsgAddressCollision)
	}

	u.recordAt[address] = true
	u.records = append(u.records, stagedRecord{address: address, rec: rec})
	return nil
}
