package store

import (
	"fmt"

	"ppn/db"
)

// StoreType represents the type of store implementation
type StoreType string

const (
	// LevelDBStoreType uses the LevelDB implementation
	LevelDBStoreType StoreType = "leveldb"

	// BoltStoreType uses the single-file bbolt implementation
	BoltStoreType StoreType = "bolt"

	// PostgresStoreType keeps ledger state in PostgreSQL
	PostgresStoreType StoreType = "postgres"

	// MemoryStoreType is ephemeral, for tests and throwaway nodes
	MemoryStoreType StoreType = "memory"
)

// StoreConfig holds configuration for creating store instances
type StoreConfig struct {
	// Type specifies which store implementation to use
	Type StoreType `json:"type" yaml:"type"`

	// Directory is the database path (for file-based databases)
	Directory string `json:"directory" yaml:"directory"`

	// DatabaseURL is the connection string (for postgres)
	DatabaseURL string `json:"database_url" yaml:"database_url"`
}

// Validate validates the store configuration
func (sc *StoreConfig) Validate() error {
	switch sc.Type {
	case "":
		return fmt.Errorf("store type cannot be empty")
	case LevelDBStoreType, BoltStoreType:
		if sc.Directory == "" {
			return fmt.Errorf("directory cannot be empty for %s store", sc.Type)
		}
	case PostgresStoreType:
		if sc.DatabaseURL == "" {
			return fmt.Errorf("database_url cannot be empty for postgres store")
		}
	case MemoryStoreType:
		// nothing required
	default:
		return fmt.Errorf("unsupported store type: %s", sc.Type)
	}
	return nil
}

// StoreFactory take responsibility to create store instances
type StoreFactory struct{}

// NewStoreFactory creates a new store factory
func NewStoreFactory() *StoreFactory {
	return &StoreFactory{}
}

// CreateProvider creates a database provider based on the configuration.
// Every store of a node shares the provider this returns; that shared
// handle is what allows one batch to span all of them.
func (sf *StoreFactory) CreateProvider(config *StoreConfig) (db.IterableProvider, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var provider db.DatabaseProvider
	var err error
	switch config.Type {
	case LevelDBStoreType:
		provider, err = db.NewLevelDBProvider(config.Directory)
	case BoltStoreType:
		provider, err = db.NewBoltProvider(config.Directory)
	case PostgresStoreType:
		provider, err = db.NewPostgresProvider(config.DatabaseURL)
	case MemoryStoreType:
		provider = db.NewMemoryProvider()
	default:
		return nil, fmt.Errorf("unsupported store type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	iterable, ok := provider.(db.IterableProvider)
	if !ok {
		provider.Close()
		return nil, fmt.Errorf("%s provider does not support iteration", config.Type)
	}
	return iterable, nil
}

// CreateStoresWithProvider builds the three ledger stores over one shared
// provider.
func (sf *StoreFactory) CreateStoresWithProvider(provider db.IterableProvider) (AccountStore, RecordStore, StateStore, error) {
	accStore, err := NewGenericAccountStore(provider)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create account store: %w", err)
	}

	recStore, err := NewGenericRecordStore(provider)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create record store: %w", err)
	}

	stateStore := NewGenericStateStore(provider)

	return accStore, recStore, stateStore, nil
}

// Global factory instance
var globalFactory = NewStoreFactory()

// CreateProvider creates a database provider using the global factory
func CreateProvider(config *StoreConfig) (db.IterableProvider, error) {
	return globalFactory.CreateProvider(config)
}

// CreateStores creates the ledger stores over a provider using the
// global factory
func CreateStores(provider db.IterableProvider) (AccountStore, RecordStore, StateStore, error) {
	return globalFactory.CreateStoresWithProvider(provider)
}
