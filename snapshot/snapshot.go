package snapshot

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"ppn/db"
	"ppn/jsonx"
	"ppn/logx"
	"ppn/store"
	"ppn/types"
)

// FileName is the single snapshot file a directory holds.
const FileName = "snapshot-latest.json"

// Meta describes the ledger the snapshot was taken from.
type Meta struct {
	TotalTransactions uint64 `json:"total_transactions"`
	TakenAt           int64  `json:"taken_at"`
	LedgerHash        string `json:"ledger_hash"`
}

// File is the on-disk snapshot layout: account state plus the sequence
// counter, hashed together so tampering is detectable. Transfer records
// are not part of a snapshot; a restored node starts with empty history.
type File struct {
	Meta     Meta            `json:"meta"`
	Accounts []types.Account `json:"accounts"`
}

// ComputeLedgerHash digests the account set and the sequence counter.
// Accounts are sorted by address first, so two ledgers holding the same
// state produce the same hash regardless of write order.
func ComputeLedgerHash(accounts []types.Account, totalTransactions uint64) string {
	sorted := make([]types.Account, len(accounts))
	copy(sorted, accounts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Address < sorted[j].Address })

	h := sha256.New()
	for _, acc := range sorted {
		h.Write([]byte(acc.Address))
		var balance [32]byte
		if acc.Balance != nil {
			balance = acc.Balance.Bytes32()
		}
		h.Write(balance[:])
		h.Write([]byte(acc.Owner))
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, totalTransactions)
	h.Write(buf)
	return hex.EncodeToString(h.Sum(nil))
}

// Export reads every account and the program state through provider and
// writes one snapshot file under dir. Returns the path written.
func Export(provider db.IterableProvider, dir string) (string, error) {
	accounts, err := readAccounts(provider)
	if err != nil {
		return "", err
	}

	state, ok, err := store.NewGenericStateStore(provider).Get()
	if err != nil {
		return "", fmt.Errorf("read program state: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("ledger has no program state, nothing to snapshot")
	}

	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Address < accounts[j].Address })
	file := &File{
		Meta: Meta{
			TotalTransactions: state.TotalTransactions,
			TakenAt:           time.Now().Unix(),
			LedgerHash:        ComputeLedgerHash(accounts, state.TotalTransactions),
		},
		Accounts: accounts,
	}

	data, err := jsonx.MarshalIndent(file, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create snapshot directory: %w", err)
	}
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write snapshot file: %w", err)
	}

	logx.Info("SNAPSHOT", fmt.Sprintf("Wrote %d accounts at sequence %d to %s",
		len(accounts), state.TotalTransactions, path))
	return path, nil
}

func readAccounts(provider db.IterableProvider) ([]types.Account, error) {
	var accounts []types.Account
	var decodeErr error
	err := provider.IteratePrefix([]byte(store.PrefixAccount), func(key, value []byte) bool {
		var acc types.Account
		if err := jsonx.Unmarshal(value, &acc); err != nil {
			decodeErr = fmt.Errorf("decode account row %s: %w", string(key), err)
			return false
		}
		accounts = append(accounts, acc)
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	return accounts, nil
}

// Load reads a snapshot file and verifies its integrity hash.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f File
	if err := jsonx.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	if got := ComputeLedgerHash(f.Accounts, f.Meta.TotalTransactions); got != f.Meta.LedgerHash {
		return nil, fmt.Errorf("snapshot %s failed integrity check", path)
	}
	return &f, nil
}

// Restore writes a loaded snapshot into an empty store, all accounts and
// the counter in one batch. A store that already holds a program state
// belongs to a live ledger and is refused.
func Restore(f *File, provider db.IterableProvider) error {
	accounts, _, states, err := store.CreateStores(provider)
	if err != nil {
		return fmt.Errorf("open stores: %w", err)
	}

	if _, exists, err := states.Get(); err != nil {
		return fmt.Errorf("read program state: %w", err)
	} else if exists {
		return fmt.Errorf("store already holds ledger state, refusing to restore over it")
	}

	batch := provider.Batch()
	defer batch.Close()

	for i := range f.Accounts {
		if err := accounts.PutInBatch(batch, &f.Accounts[i]); err != nil {
			return fmt.Errorf("stage account %s: %w", f.Accounts[i].Address, err)
		}
	}
	states.PutInBatch(batch, &types.ProgramState{TotalTransactions: f.Meta.TotalTransactions})

	if err := batch.Write(); err != nil {
		return fmt.Errorf("write snapshot rows: %w", err)
	}

	logx.Info("SNAPSHOT", fmt.Sprintf("Restored %d accounts at sequence %d",
		len(f.Accounts), f.Meta.TotalTransactions))
	return nil
}
