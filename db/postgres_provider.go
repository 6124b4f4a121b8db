package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"ppn/logx"
)

const createLedgerKVTable = `
CREATE TABLE IF NOT EXISTS ledger_kv (
	key   BYTEA PRIMARY KEY,
	value BYTEA NOT NULL
);
`

// PostgresProvider implements DatabaseProvider over a PostgreSQL table,
// for deployments that keep ledger state next to existing relational
// infrastructure. One row per key; batches ride a single SQL transaction.
type PostgresProvider struct {
	db *sql.DB
}

// NewPostgresProvider connects with retry and ensures the backing table
// exists.
func NewPostgresProvider(databaseURL string) (DatabaseProvider, error) {
	const maxRetries = 5
	const retryDelay = 3 * time.Second

	var db *sql.DB
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			logx.Warn("POSTGRES", fmt.Sprintf("Retrying connection (attempt %d/%d) after error: %v", attempt+1, maxRetries, lastErr))
			time.Sleep(retryDelay)
		}

		var err error
		db, err = sql.Open("postgres", databaseURL)
		if err != nil {
			lastErr = fmt.Errorf("failed to open database connection: %w", err)
			continue
		}
		if err := db.Ping(); err != nil {
			db.Close()
			lastErr = fmt.Errorf("failed to ping database: %w", err)
			continue
		}

		if _, err := db.Exec(createLedgerKVTable); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create ledger_kv table: %w", err)
		}
		return &PostgresProvider{db: db}, nil
	}

	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, lastErr)
}

// Get retrieves a value by key
func (p *PostgresProvider) Get(key []byte) ([]byte, error) {
	var value []byte
	err := p.db.QueryRow(`SELECT value FROM ledger_kv WHERE key = $1`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

// GetBatch retrieves multiple values with one query
func (p *PostgresProvider) GetBatch(keys [][]byte) (map[string][]byte, error) {
	result := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	rows, err := p.db.Query(`SELECT key, value FROM ledger_kv WHERE key = ANY($1)`, pq.ByteaArray(keys))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var key, value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		result[string(key)] = value
	}
	return result, rows.Err()
}

// Put stores a key-value pair
func (p *PostgresProvider) Put(key, value []byte) error {
	_, err := p.db.Exec(
		`INSERT INTO ledger_kv (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		key, value)
	return err
}

// Delete removes a key-value pair
func (p *PostgresProvider) Delete(key []byte) error {
	_, err := p.db.Exec(`DELETE FROM ledger_kv WHERE key = $1`, key)
	return err
}

// Has checks if a key exists
func (p *PostgresProvider) Has(key []byte) (bool, error) {
	var found bool
	err := p.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM ledger_kv WHERE key = $1)`, key).Scan(&found)
	return found, err
}

// Close closes the database connection
func (p *PostgresProvider) Close() error {
	return p.db.Close()
}

// Batch returns a new batch for atomic operations
func (p *PostgresProvider) Batch() DatabaseBatch {
	return &PostgresBatch{db: p.db}
}

// IteratePrefix iterates over all key-value pairs with the given prefix
// in ascending key order.
func (p *PostgresProvider) IteratePrefix(prefix []byte, callback func(key, value []byte) bool) error {
	lower, upper := prefixRange(prefix)

	var rows *sql.Rows
	var err error
	if upper == nil {
		rows, err = p.db.Query(`SELECT key, value FROM ledger_kv WHERE key >= $1 ORDER BY key`, lower)
	} else {
		rows, err = p.db.Query(`SELECT key, value FROM ledger_kv WHERE key >= $1 AND key < $2 ORDER BY key`, lower, upper)
	}
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var key, value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return err
		}
		if !callback(key, value) {
			break
		}
	}
	return rows.Err()
}

// prefixRange returns the [lower, upper) key bounds covering every key
// with the given prefix. upper is nil when the prefix is all 0xFF and
// the range is unbounded above.
func prefixRange(prefix []byte) ([]byte, []byte) {
	lower := append([]byte(nil), prefix...)
	upper := append([]byte(nil), prefix...)
	for i := len(upper) - 1; i >= 0; i-- {
		if upper[i] < 0xFF {
			upper[i]++
			return lower, upper[:i+1]
		}
	}
	return lower, nil
}

type postgresBatchOp struct {
	key    []byte
	value  []byte
	delete bool
}

// PostgresBatch stages operations and applies them in one SQL
// transaction on Write.
type PostgresBatch struct {
	db  *sql.DB
	ops []postgresBatchOp
}

// Put adds a key-value pair to the batch
func (b *PostgresBatch) Put(key, value []byte) {
	b.ops = append(b.ops, postgresBatchOp{
		key:   append([]byte(nil), key...),
		value: append([]byte(nil), value...),
	})
}

// Delete adds a deletion to the batch
func (b *PostgresBatch) Delete(key []byte) {
	b.ops = append(b.ops, postgresBatchOp{
		key:    append([]byte(nil), key...),
		delete: true,
	})
}

// Write commits all operations in the batch
func (b *PostgresBatch) Write() error {
	tx, err := b.db.Begin()
	if err != nil {
		return err
	}
	for _, op := range b.ops {
		if op.delete {
			_, err = tx.Exec(`DELETE FROM ledger_kv WHERE key = $1`, op.key)
		} else {
			_, err = tx.Exec(
				`INSERT INTO ledger_kv (key, value) VALUES ($1, $2)
				 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
				op.key, op.value)
		}
		if err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Reset clears the batch
func (b *PostgresBatch) Reset() {
	b.ops = b.ops[:0]
}

// Close releases batch resources
func (b *PostgresBatch) Close() {
	b.ops = nil
}
