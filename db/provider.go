package db

// DatabaseProvider abstracts the low-level key-value operations so the
// account, record and state stores can share one database without
// knowing which engine backs it. All stores of a node hand their writes
// to the same provider, which is what lets a payment commit through a
// single batch.
type DatabaseProvider interface {
	// Get retrieves a value by key. Missing keys return (nil, nil).
	Get(key []byte) ([]byte, error)

	// GetBatch retrieves multiple values by keys in a single operation.
	// Missing keys are absent from the result map.
	GetBatch(keys [][]byte) (map[string][]byte, error)

	// Put stores a key-value pair
	Put(key, value []byte) error

	// Delete removes a key-value pair
	Delete(key []byte) error

	// Has checks if a key exists
	Has(key []byte) (bool, error)

	// Close closes the database connection
	Close() error

	// Batch returns a new batch for atomic operations
	Batch() DatabaseBatch
}

// IterableProvider extends DatabaseProvider with prefix iteration, which
// the history scan depends on. Keys are visited in ascending byte order.
type IterableProvider interface {
	DatabaseProvider

	// IteratePrefix iterates over all key-value pairs with the given prefix.
	// The callback function should return false to stop iteration. Key and
	// value slices are only valid for the duration of the callback.
	IteratePrefix(prefix []byte, callback func(key, value []byte) bool) error
}

// DatabaseBatch provides atomic batch operations. Nothing staged in a
// batch is visible to reads until Write, and Write applies everything or
// nothing.
type DatabaseBatch interface {
	// Put adds a key-value pair to the batch
	Put(key, value []byte)

	// Delete adds a deletion to the batch
	Delete(key []byte)

	// Write commits all operations in the batch
	Write() error

	// Reset clears the batch
	Reset()

	// Close releases batch resources
	Close()
}
