package bank

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"testing"
	"time"

	"github.com/holiman/uint256"

	"ppn/common"
	"ppn/db"
	"ppn/errors"
	"ppn/record"
	"ppn/store"
	"ppn/types"
)

type fixedClock struct {
	at time.Time
}

func (c fixedClock) Now() time.Time {
	return c.at
}

func newTestBank(t *testing.T) (*Bank, db.IterableProvider) {
	t.Helper()
	provider := db.NewMemoryProvider()
	accounts, records, state, err := store.CreateStores(provider)
	if err != nil {
		t.Fatalf("create stores: %v", err)
	}
	clock := fixedClock{at: time.Unix(1756100000, 0)}
	return NewBank(provider, accounts, records, state, DefaultParams(), clock), provider
}

func newTestIdentity(t *testing.T) string {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return common.EncodeBytesToBase58(pub)
}

func TestExecuteCommitsWholeUnit(t *testing.T) {
	b, _ := newTestBank(t)
	if _, err := b.InitializeState(); err != nil {
		t.Fatalf("InitializeState failed: %v", err)
	}

	sender := newTestIdentity(t)
	receiver := newTestIdentity(t)
	address, err := record.Address(sender, 0)
	if err != nil {
		t.Fatalf("derive address: %v", err)
	}

	err = b.Execute(func(u *Unit) error {
		acc, err := u.GetOrCreateAccount(sender, types.AccountOwnerSystem)
		if err != nil {
			return err
		}
		acc.Balance = uint256.NewInt(100)

		other, err := u.GetOrCreateAccount(receiver, types.AccountOwnerSystem)
		if err != nil {
			return err
		}
		other.Balance = uint256.NewInt(50)

		st, err := u.State()
		if err != nil {
			return err
		}
		st.TotalTransactions++
		u.PutState(st)

		return u.AddRecord(address, &record.Record{
			Sender:    sender,
			Receiver:  receiver,
			Amount:    50,
			Timestamp: u.UnixNow(),
		})
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	acc, err := b.GetAccount(sender)
	if err != nil || acc == nil {
		t.Fatalf("Expected committed sender account, got %v err=%v", acc, err)
	}
	if acc.Balance.Cmp(uint256.NewInt(100)) != 0 {
		t.Errorf("Expected balance 100, got %s", acc.Balance)
	}

	st, ok, err := b.GetState()
	if err != nil || !ok {
		t.Fatalf("Expected state, ok=%v err=%v", ok, err)
	}
	if st.TotalTransactions != 1 {
		t.Errorf("Expected counter 1, got %d", st.TotalTransactions)
	}

	rec, err := b.GetRecord(address)
	if err != nil || rec == nil {
		t.Fatalf("Expected committed record, got %v err=%v", rec, err)
	}
	if rec.Timestamp != 1756100000 {
		t.Errorf("Expected clock-pinned timestamp, got %d", rec.Timestamp)
	}
}

func TestExecuteFailureLeavesNothing(t *testing.T) {
	b, provider := newTestBank(t)
	if _, err := b.InitializeState(); err != nil {
		t.Fatalf("InitializeState failed: %v", err)
	}

	sender := newTestIdentity(t)
	address, err := record.Address(sender, 0)
	if err != nil {
		t.Fatalf("derive address: %v", err)
	}

	err = b.Execute(func(u *Unit) error {
		acc, err := u.GetOrCreateAccount(sender, types.AccountOwnerSystem)
		if err != nil {
			return err
		}
		acc.Balance = uint256.NewInt(999)

		st, err := u.State()
		if err != nil {
			return err
		}
		st.TotalTransactions = 42
		u.PutState(st)

		if err := u.AddRecord(address, &record.Record{Sender: sender, Receiver: sender, Amount: 1}); err != nil {
			return err
		}
		return fmt.Errorf("unit failed late")
	})
	if err == nil {
		t.Fatal("Expected unit error")
	}

	acc, err := b.GetAccount(sender)
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if acc != nil {
		t.Error("Failed unit leaked an account write")
	}

	st, _, err := b.GetState()
	if err != nil {
		t.Fatalf("GetState failed: %v", err)
	}
	if st.TotalTransactions != 0 {
		t.Errorf("Failed unit advanced the counter to %d", st.TotalTransactions)
	}

	rec, err := b.GetRecord(address)
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	if rec != nil {
		t.Error("Failed unit leaked a record write")
	}

	// the record keyspace must be completely empty
	count := 0
	provider.IteratePrefix([]byte(store.PrefixRecord), func(key, value []byte) bool {
		count++
		return true
	})
	if count != 0 {
		t.Errorf("Expected empty record keyspace, found %d rows", count)
	}
}

func TestUnitStateRequiresInitialization(t *testing.T) {
	b, _ := newTestBank(t)

	err := b.Execute(func(u *Unit) error {
		_, err := u.State()
		return err
	})
	if err == nil {
		t.Fatal("Expected error for uninitialized state")
	}
	if errors.CodeOf(err) != errors.ErrCodeStateNotInitialized {
		t.Errorf("Expected state_not_initialized, got %s", errors.CodeOf(err))
	}
}

func TestInitializeStateOnce(t *testing.T) {
	b, _ := newTestBank(t)

	created, err := b.InitializeState()
	if err != nil {
		t.Fatalf("InitializeState failed: %v", err)
	}
	if !created {
		t.Error("Expected first initialization to create state")
	}

	created, err = b.InitializeState()
	if err != nil {
		t.Fatalf("InitializeState failed: %v", err)
	}
	if created {
		t.Error("Expected second initialization to be a no-op")
	}
}

func TestApplyGenesisIdempotent(t *testing.T) {
	b, _ := newTestBank(t)
	addr := newTestIdentity(t)

	allocs := []Alloc{{Address: addr, Amount: 2000000}}
	if err := b.ApplyGenesis(allocs); err != nil {
		t.Fatalf("ApplyGenesis failed: %v", err)
	}
	if err := b.ApplyGenesis(allocs); err != nil {
		t.Fatalf("second ApplyGenesis failed: %v", err)
	}

	acc, err := b.GetAccount(addr)
	if err != nil || acc == nil {
		t.Fatalf("Expected genesis account, got %v err=%v", acc, err)
	}
	if acc.Balance.Cmp(uint256.NewInt(2000000)) != 0 {
		t.Errorf("Expected balance 2000000 after repeat genesis, got %s", acc.Balance)
	}
	if acc.Owner != types.AccountOwnerSystem {
		t.Errorf("Expected system-owned genesis account, got %s", acc.Owner)
	}
}

func TestAddRecordRejectsOccupiedAddress(t *testing.T) {
	b, _ := newTestBank(t)
	sender := newTestIdentity(t)
	address, err := record.Address(sender, 0)
	if err != nil {
		t.Fatalf("derive address: %v", err)
	}
	rec := &record.Record{Sender: sender, Receiver: sender, Amount: 1}

	// staged twice inside one unit
	err = b.Execute(func(u *Unit) error {
		if err := u.AddRecord(address, rec); err != nil {
			return err
		}
		return u.AddRecord(address, rec)
	})
	if errors.CodeOf(err) != errors.ErrCodeAddressCollision {
		t.Errorf("Expected address_collision inside unit, got %v", err)
	}

	// committed, then staged again in a later unit
	err = b.Execute(func(u *Unit) error {
		return u.AddRecord(address, rec)
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	err = b.Execute(func(u *Unit) error {
		return u.AddRecord(address, rec)
	})
	if errors.CodeOf(err) != errors.ErrCodeAddressCollision {
		t.Errorf("Expected address_collision across units, got %v", err)
	}
}

func TestSpendableRespectsReserve(t *testing.T) {
	b, _ := newTestBank(t)
	reserve := DefaultParams().BaseReserve

	acc := &types.Account{Balance: uint256.NewInt(reserve)}
	if b.Spendable(acc).Sign() != 0 {
		t.Error("Expected zero spendable at exactly the reserve")
	}

	acc = &types.Account{Balance: uint256.NewInt(reserve + 77)}
	if b.Spendable(acc).Cmp(uint256.NewInt(77)) != 0 {
		t.Errorf("Expected spendable 77, got %s", b.Spendable(acc))
	}

	acc = &types.Account{Balance: uint256.NewInt(0)}
	if b.Spendable(acc).Sign() != 0 {
		t.Error("Expected zero spendable for empty account")
	}
}

func TestMinBalanceForSize(t *testing.T) {
	p := Params{BaseReserve: 1000, RentPerByte: 10}
	want := uint64(1000 + 10*record.PackedSize)
	if got := p.MinBalanceForSize(record.PackedSize); got != want {
		t.Errorf("Expected %d, got %d", want, got)
	}
}
