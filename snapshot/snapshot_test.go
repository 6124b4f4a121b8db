package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/holiman/uint256"

	"ppn/bank"
	"ppn/db"
	"ppn/jsonx"
	"ppn/store"
	"ppn/types"
)

const (
	testAddrA = "4fYNw3dojWmWYdQLWjvMiAYaRYm3DLTMzMJ9yYGU18Ei"
	testAddrB = "8dHEUnmvXKsWDUnndXVCer32g7gDTmwjqehVxuhYCzcH"
)

func seedLedger(t *testing.T) *db.MemoryProvider {
	t.Helper()

	provider := db.NewMemoryProvider()
	accounts, records, states, err := store.CreateStores(provider)
	if err != nil {
		t.Fatalf("CreateStores failed: %v", err)
	}

	bk := bank.NewBank(provider, accounts, records, states, bank.DefaultParams(), bank.SystemClock{})
	if _, err := bk.InitializeState(); err != nil {
		t.Fatalf("InitializeState failed: %v", err)
	}
	err = bk.ApplyGenesis([]bank.Alloc{
		{Address: testAddrA, Amount: 5_000_000},
		{Address: testAddrB, Amount: 250_000},
	})
	if err != nil {
		t.Fatalf("ApplyGenesis failed: %v", err)
	}
	return provider
}

func TestExportAndLoadRoundTrip(t *testing.T) {
	provider := seedLedger(t)

	path, err := Export(provider, t.TempDir())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(f.Accounts) != 2 {
		t.Fatalf("Expected 2 accounts, got %d", len(f.Accounts))
	}
	if f.Meta.TotalTransactions != 0 {
		t.Errorf("Expected sequence 0, got %d", f.Meta.TotalTransactions)
	}
	if f.Accounts[0].Address != testAddrA {
		t.Errorf("Expected accounts sorted by address, got %s first", f.Accounts[0].Address)
	}
	if f.Accounts[0].Balance.Uint64() != 5_000_000 {
		t.Errorf("Expected balance 5000000, got %s", f.Accounts[0].Balance.Dec())
	}
}

func TestLoadDetectsTampering(t *testing.T) {
	provider := seedLedger(t)

	path, err := Export(provider, t.TempDir())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Bump the counter without refreshing the hash
	f.Meta.TotalTransactions++
	data, err := jsonx.Marshal(f)
	if err != nil {
		t.Fatalf("marshal tampered snapshot: %v", err)
	}
	tampered := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(tampered, data, 0o644); err != nil {
		t.Fatalf("write tampered snapshot: %v", err)
	}

	if _, err := Load(tampered); err == nil {
		t.Fatal("Expected integrity check to fail on tampered snapshot")
	}
}

func TestRestoreIntoEmptyStore(t *testing.T) {
	provider := seedLedger(t)

	path, err := Export(provider, t.TempDir())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	fresh := db.NewMemoryProvider()
	if err := Restore(f, fresh); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	accounts, _, states, err := store.CreateStores(fresh)
	if err != nil {
		t.Fatalf("CreateStores failed: %v", err)
	}
	acc, err := accounts.GetByAddr(testAddrB)
	if err != nil {
		t.Fatalf("GetByAddr failed: %v", err)
	}
	if acc == nil || acc.Balance.Uint64() != 250_000 {
		t.Fatalf("Expected restored balance 250000, got %+v", acc)
	}
	state, ok, err := states.Get()
	if err != nil || !ok {
		t.Fatalf("Expected restored program state, got ok=%v err=%v", ok, err)
	}
	if state.TotalTransactions != 0 {
		t.Errorf("Expected sequence 0, got %d", state.TotalTransactions)
	}
}

func TestRestoreRefusesLiveStore(t *testing.T) {
	provider := seedLedger(t)

	path, err := Export(provider, t.TempDir())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if err := Restore(f, provider); err == nil {
		t.Fatal("Expected restore over a live store to be refused")
	}
}

func TestComputeLedgerHashOrderIndependent(t *testing.T) {
	a := types.Account{Address: testAddrA, Balance: uint256.NewInt(10), Owner: types.AccountOwnerSystem}
	b := types.Account{Address: testAddrB, Balance: uint256.NewInt(20), Owner: types.AccountOwnerSystem}

	h1 := ComputeLedgerHash([]types.Account{a, b}, 7)
	h2 := ComputeLedgerHash([]types.Account{b, a}, 7)
	if h1 != h2 {
		t.Errorf("Expected order-independent hash, got %s and %s", h1, h2)
	}

	h3 := ComputeLedgerHash([]types.Account{a, b}, 8)
	if h1 == h3 {
		t.Error("Expected hash to change with the sequence counter")
	}
}
