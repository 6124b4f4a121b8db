package store

import (
	"fmt"
	"sync"

	"ppn/db"
	"ppn/jsonx"
	"ppn/logx"
	"ppn/types"
)

type AccountStore interface {
	Store(account *types.Account) error
	PutInBatch(batch db.DatabaseBatch, account *types.Account) error
	GetByAddr(addr string) (*types.Account, error)
	GetBatch(addrs []string) (map[string]*types.Account, error)
	ExistsByAddr(addr string) (bool, error)
	MustClose()
}

type GenericAccountStore struct {
	mu         sync.RWMutex
	dbProvider db.DatabaseProvider
}

func NewGenericAccountStore(dbProvider db.DatabaseProvider) (*GenericAccountStore, error) {
	if dbProvider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}

	return &GenericAccountStore{
		dbProvider: dbProvider,
	}, nil
}

func (as *GenericAccountStore) Store(account *types.Account) error {
	as.mu.Lock()
	defer as.mu.Unlock()

	accountData, err := jsonx.Marshal(account)
	if err != nil {
		return fmt.Errorf("failed to marshal account: %w", err)
	}

	err = as.dbProvider.Put(as.getDbKey(account.Address), accountData)
	if err != nil {
		return fmt.Errorf("failed to write account to db: %w", err)
	}

	return nil
}

// PutInBatch stages the account write into a caller-owned batch. The
// payment commit path goes through here so account, record and state
// writes land in one atomic unit.
func (as *GenericAccountStore) PutInBatch(batch db.DatabaseBatch, account *types.Account) error {
	accountData, err := jsonx.Marshal(account)
	if err != nil {
		return fmt.Errorf("failed to marshal account: %w", err)
	}
	batch.Put(as.getDbKey(account.Address), accountData)
	return nil
}

// GetByAddr returns account instance from db, return both nil if not exist
func (as *GenericAccountStore) GetByAddr(addr string) (*types.Account, error) {
	as.mu.RLock()
	defer as.mu.RUnlock()

	data, err := as.dbProvider.Get(as.getDbKey(addr))
	if err != nil {
		return nil, fmt.Errorf("could not get account %s from db: %w", addr, err)
	}

	// Account doesn't exist
	if data == nil {
		return nil, nil
	}

	var acc types.Account
	if err := jsonx.Unmarshal(data, &acc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal account %s: %w", addr, err)
	}
	return &acc, nil
}

// GetBatch retrieves multiple accounts by addresses. Missing accounts return as nil entries.
func (as *GenericAccountStore) GetBatch(addrs []string) (map[string]*types.Account, error) {
	as.mu.RLock()
	defer as.mu.RUnlock()

	keys := make([][]byte, 0, len(addrs))
	for _, addr := range addrs {
		if addr == "" {
			continue
		}
		keys = append(keys, as.getDbKey(addr))
	}

	dataMap, err := as.dbProvider.GetBatch(keys)
	if err != nil {
		return nil, fmt.Errorf("could not batch get accounts from db: %w", err)
	}

	result := make(map[string]*types.Account, len(addrs))
	for _, addr := range addrs {
		if addr == "" {
			continue
		}
		data, ok := dataMap[string(as.getDbKey(addr))]
		if !ok {
			result[addr] = nil
			continue
		}
		var acc types.Account
		if err := jsonx.Unmarshal(data, &acc); err != nil {
			return nil, fmt.Errorf("failed to unmarshal account %s: %w", addr, err)
		}
		result[addr] = &acc
	}
	return result, nil
}

func (as *GenericAccountStore) ExistsByAddr(addr string) (bool, error) {
	as.mu.RLock()
	defer as.mu.RUnlock()

	return as.dbProvider.Has(as.getDbKey(addr))
}

func (as *GenericAccountStore) MustClose() {
	err := as.dbProvider.Close()
	if err != nil {
		logx.Error("ACCOUNT_STORE", "Failed to close db provider:", err.Error())
	}
}

func (as *GenericAccountStore) getDbKey(addr string) []byte {
	return []byte(PrefixAccount + addr)
}
