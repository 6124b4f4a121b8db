package store

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"testing"

	"github.com/holiman/uint256"

	"ppn/common"
	"ppn/db"
	"ppn/record"
	"ppn/types"
)

func newTestIdentity(t *testing.T) (string, [common.PublicKeySize]byte) {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	var raw [common.PublicKeySize]byte
	copy(raw[:], pub)
	return common.EncodeBytesToBase58(pub), raw
}

func newTestStores(t *testing.T) (db.IterableProvider, AccountStore, RecordStore, StateStore) {
	t.Helper()
	provider := db.NewMemoryProvider()
	accounts, records, state, err := CreateStores(provider)
	if err != nil {
		t.Fatalf("create stores: %v", err)
	}
	return provider, accounts, records, state
}

func TestAccountStoreRoundTrip(t *testing.T) {
	_, accounts, _, _ := newTestStores(t)
	addr, _ := newTestIdentity(t)

	missing, err := accounts.GetByAddr(addr)
	if err != nil {
		t.Fatalf("GetByAddr failed: %v", err)
	}
	if missing != nil {
		t.Fatal("Expected nil for missing account")
	}

	acc := &types.Account{
		Address: addr,
		Balance: uint256.NewInt(2000000),
		Owner:   types.AccountOwnerSystem,
	}
	if err := accounts.Store(acc); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	got, err := accounts.GetByAddr(addr)
	if err != nil {
		t.Fatalf("GetByAddr failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected stored account")
	}
	if got.Address != addr || got.Owner != types.AccountOwnerSystem {
		t.Errorf("Unexpected account fields: %+v", got)
	}
	if got.Balance.Cmp(uint256.NewInt(2000000)) != 0 {
		t.Errorf("Expected balance 2000000, got %s", got.Balance)
	}

	exists, err := accounts.ExistsByAddr(addr)
	if err != nil || !exists {
		t.Errorf("Expected ExistsByAddr=true, got %v err=%v", exists, err)
	}
}

func TestAccountStoreGetBatch(t *testing.T) {
	_, accounts, _, _ := newTestStores(t)

	addr1, _ := newTestIdentity(t)
	addr2, _ := newTestIdentity(t)
	addr3, _ := newTestIdentity(t)

	for i, addr := range []string{addr1, addr2} {
		acc := &types.Account{
			Address: addr,
			Balance: uint256.NewInt(uint64(100 * (i + 1))),
			Owner:   types.AccountOwnerSystem,
		}
		if err := accounts.Store(acc); err != nil {
			t.Fatalf("Store failed: %v", err)
		}
	}

	result, err := accounts.GetBatch([]string{addr1, addr2, addr3})
	if err != nil {
		t.Fatalf("GetBatch failed: %v", err)
	}
	if result[addr1] == nil || result[addr2] == nil {
		t.Fatal("Expected both stored accounts in batch result")
	}
	if result[addr3] != nil {
		t.Error("Expected nil entry for missing account")
	}
	if result[addr1].Balance.Cmp(uint256.NewInt(100)) != 0 {
		t.Errorf("Expected balance 100, got %s", result[addr1].Balance)
	}
}

func TestAccountStorePutInBatchIsAtomic(t *testing.T) {
	provider, accounts, _, _ := newTestStores(t)
	addr, _ := newTestIdentity(t)

	batch := provider.Batch()
	defer batch.Close()

	acc := &types.Account{Address: addr, Balance: uint256.NewInt(5), Owner: types.AccountOwnerSystem}
	if err := accounts.PutInBatch(batch, acc); err != nil {
		t.Fatalf("PutInBatch failed: %v", err)
	}

	got, err := accounts.GetByAddr(addr)
	if err != nil {
		t.Fatalf("GetByAddr failed: %v", err)
	}
	if got != nil {
		t.Fatal("Staged account visible before batch write")
	}

	if err := batch.Write(); err != nil {
		t.Fatalf("batch write failed: %v", err)
	}
	got, err = accounts.GetByAddr(addr)
	if err != nil || got == nil {
		t.Fatalf("Expected account after batch write, got %v err=%v", got, err)
	}
}

func TestRecordStorePutGet(t *testing.T) {
	provider, _, records, _ := newTestStores(t)
	sender, _ := newTestIdentity(t)
	receiver, _ := newTestIdentity(t)

	address, err := record.Address(sender, 0)
	if err != nil {
		t.Fatalf("derive address: %v", err)
	}

	rec := &record.Record{
		Sender:    sender,
		Receiver:  receiver,
		Amount:    42,
		Timestamp: 1756100000,
		Memo:      "first",
	}

	batch := provider.Batch()
	if err := records.PutInBatch(batch, address, rec); err != nil {
		t.Fatalf("PutInBatch failed: %v", err)
	}
	if err := batch.Write(); err != nil {
		t.Fatalf("batch write failed: %v", err)
	}
	batch.Close()

	got, err := records.GetByAddress(address)
	if err != nil {
		t.Fatalf("GetByAddress failed: %v", err)
	}
	if got == nil || got.Amount != 42 || got.Memo != "first" {
		t.Errorf("Unexpected record: %+v", got)
	}

	exists, err := records.ExistsByAddress(address)
	if err != nil || !exists {
		t.Errorf("Expected ExistsByAddress=true, got %v err=%v", exists, err)
	}

	missing, err := records.GetByAddress("unoccupied")
	if err != nil {
		t.Fatalf("GetByAddress failed: %v", err)
	}
	if missing != nil {
		t.Error("Expected nil for unoccupied address")
	}
}

func TestRecordStoreScanFiltersBeforeDecode(t *testing.T) {
	provider, _, records, _ := newTestStores(t)
	sender, senderRaw := newTestIdentity(t)
	other, _ := newTestIdentity(t)
	receiver, _ := newTestIdentity(t)

	put := func(from string, seq uint64, amount uint64) {
		t.Helper()
		address, err := record.Address(from, seq)
		if err != nil {
			t.Fatalf("derive address: %v", err)
		}
		batch := provider.Batch()
		defer batch.Close()
		rec := &record.Record{Sender: from, Receiver: receiver, Amount: amount, Timestamp: int64(seq)}
		if err := records.PutInBatch(batch, address, rec); err != nil {
			t.Fatalf("PutInBatch failed: %v", err)
		}
		if err := batch.Write(); err != nil {
			t.Fatalf("batch write failed: %v", err)
		}
	}

	put(sender, 0, 10)
	put(other, 1, 20)
	put(sender, 2, 30)

	// a row in the record keyspace that is not a packed record
	if err := provider.Put([]byte(PrefixRecord+"junk"), []byte("not a record")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	var amounts []uint64
	pred := func(raw []byte) bool {
		return record.MatchesSender(raw, senderRaw)
	}
	err := records.Scan(pred, func(address string, raw []byte) bool {
		rec, err := record.Unpack(raw)
		if err != nil {
			t.Fatalf("rows passing the predicate must unpack: %v", err)
		}
		amounts = append(amounts, rec.Amount)
		return true
	})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if len(amounts) != 2 {
		t.Fatalf("Expected 2 matching records, got %d", len(amounts))
	}
	total := amounts[0] + amounts[1]
	if total != 40 {
		t.Errorf("Expected sender-scoped records 10 and 30, got %v", amounts)
	}

	// early stop
	count := 0
	err = records.Scan(nil, func(address string, raw []byte) bool {
		count++
		return false
	})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected scan to stop after 1 row, visited %d", count)
	}
}

func TestStateStoreLifecycle(t *testing.T) {
	provider, _, _, state := newTestStores(t)

	_, ok, err := state.Get()
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok {
		t.Fatal("Expected uninitialized state")
	}

	if err := state.Put(&types.ProgramState{TotalTransactions: 0}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, ok, err := state.Get()
	if err != nil || !ok {
		t.Fatalf("Expected initialized state, ok=%v err=%v", ok, err)
	}
	if got.TotalTransactions != 0 {
		t.Errorf("Expected counter 0, got %d", got.TotalTransactions)
	}

	batch := provider.Batch()
	state.PutInBatch(batch, &types.ProgramState{TotalTransactions: 7})

	got, _, err = state.Get()
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.TotalTransactions != 0 {
		t.Error("Staged counter visible before batch write")
	}

	if err := batch.Write(); err != nil {
		t.Fatalf("batch write failed: %v", err)
	}
	batch.Close()

	got, _, err = state.Get()
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.TotalTransactions != 7 {
		t.Errorf("Expected counter 7 after batch write, got %d", got.TotalTransactions)
	}
}

func TestStateStoreRejectsCorruptRow(t *testing.T) {
	provider, _, _, state := newTestStores(t)

	if err := provider.Put([]byte(KeyProgramState), []byte("short")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, _, err := state.Get(); err == nil {
		t.Error("Expected error for wrong-size state row")
	}

	row := make([]byte, stateRowSize)
	if err := provider.Put([]byte(KeyProgramState), row); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, _, err := state.Get(); err == nil {
		t.Error("Expected error for foreign state discriminator")
	}
}

func TestFactoryValidation(t *testing.T) {
	cases := []struct {
		name    string
		config  StoreConfig
		wantErr bool
	}{
		{"empty type", StoreConfig{}, true},
		{"leveldb without dir", StoreConfig{Type: LevelDBStoreType}, true},
		{"bolt without dir", StoreConfig{Type: BoltStoreType}, true},
		{"postgres without url", StoreConfig{Type: PostgresStoreType}, true},
		{"memory", StoreConfig{Type: MemoryStoreType}, false},
		{"leveldb with dir", StoreConfig{Type: LevelDBStoreType, Directory: "/tmp/x"}, false},
		{"unknown", StoreConfig{Type: "cassandra", Directory: "/tmp/x"}, true},
	}
	for _, tc := range cases {
		err := tc.config.Validate()
		if tc.wantErr && err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
		if !tc.wantErr && err != nil {
			t.Errorf("%s: unexpected error: %v", tc.name, err)
		}
	}
}

func TestFactoryCreatesWorkingMemoryStack(t *testing.T) {
	provider, err := CreateProvider(&StoreConfig{Type: MemoryStoreType})
	if err != nil {
		t.Fatalf("CreateProvider failed: %v", err)
	}
	defer provider.Close()

	accounts, records, state, err := CreateStores(provider)
	if err != nil {
		t.Fatalf("CreateStores failed: %v", err)
	}
	if accounts == nil || records == nil || state == nil {
		t.Fatal("Expected all stores")
	}

	for i := 0; i < 3; i++ {
		addr := fmt.Sprintf("addr-%d", i)
		acc := &types.Account{Address: addr, Balance: uint256.NewInt(1), Owner: types.AccountOwnerSystem}
		if err := accounts.Store(acc); err != nil {
			t.Fatalf("Store failed: %v", err)
		}
	}
	got, err := accounts.GetByAddr("addr-1")
	if err != nil || got == nil {
		t.Fatalf("Expected account, got %v err=%v", got, err)
	}
}
