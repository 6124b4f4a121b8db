package store

import (
	"fmt"
	"sync"

	"ppn/db"
	"ppn/record"
)

// RecordStore holds the immutable transfer records, keyed by derived
// address. Rows are the packed fixed layout, which is what makes the
// predicate-before-decode scan possible.
type RecordStore interface {
	PutInBatch(batch db.DatabaseBatch, address string, rec *record.Record) error
	GetByAddress(address string) (*record.Record, error)
	ExistsByAddress(address string) (bool, error)

	// Scan walks every record row in address order. pred sees the raw
	// undecoded bytes and filters cheaply; fn receives rows that passed
	// and returns false to stop. fn gets its own copy of the row.
	Scan(pred func(raw []byte) bool, fn func(address string, raw []byte) bool) error

	MustClose()
}

type GenericRecordStore struct {
	mu         sync.RWMutex
	dbProvider db.IterableProvider
}

func NewGenericRecordStore(dbProvider db.IterableProvider) (*GenericRecordStore, error) {
	if dbProvider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}

	return &GenericRecordStore{
		dbProvider: dbProvider,
	}, nil
}

// PutInBatch packs the record and stages it at the given address. The
// ledger checks for collisions before staging; this layer only encodes.
func (rs *GenericRecordStore) PutInBatch(batch db.DatabaseBatch, address string, rec *record.Record) error {
	packed, err := rec.Pack()
	if err != nil {
		return fmt.Errorf("failed to pack record for %s: %w", address, err)
	}
	batch.Put(rs.getDbKey(address), packed)
	return nil
}

// GetByAddress returns the decoded record at an address, or nil when the
// address is unoccupied.
func (rs *GenericRecordStore) GetByAddress(address string) (*record.Record, error) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	data, err := rs.dbProvider.Get(rs.getDbKey(address))
	if err != nil {
		return nil, fmt.Errorf("could not get record %s from db: %w", address, err)
	}
	if data == nil {
		return nil, nil
	}

	rec, err := record.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack record %s: %w", address, err)
	}
	return rec, nil
}

func (rs *GenericRecordStore) ExistsByAddress(address string) (bool, error) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	return rs.dbProvider.Has(rs.getDbKey(address))
}

func (rs *GenericRecordStore) Scan(pred func(raw []byte) bool, fn func(address string, raw []byte) bool) error {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	prefixLen := len(PrefixRecord)
	return rs.dbProvider.IteratePrefix([]byte(PrefixRecord), func(key, value []byte) bool {
		if pred != nil && !pred(value) {
			return true
		}
		// iterator buffers are reused, hand fn a stable copy
		address := string(key[prefixLen:])
		raw := append([]byte(nil), value...)
		return fn(address, raw)
	})
}

func (rs *GenericRecordStore) MustClose() {
	rs.dbProvider.Close()
}

func (rs *GenericRecordStore) getDbKey(address string) []byte {
	return []byte(PrefixRecord + address)
}
