package store

import (
	"fmt"

	"ppn/db"
	"ppn/logx"
)

// copyBatchSize bounds how many rows one write batch carries during a
// store copy.
const copyBatchSize = 500

// CopyStores copies every account, record and state row from src to dst,
// for moving a ledger between database engines. Rows already in dst are
// overwritten. The copy is batched, not atomic as a whole; run it against
// a stopped node. Returns the number of rows copied.
func CopyStores(src db.IterableProvider, dst db.DatabaseProvider) (int, error) {
	total := 0
	for _, prefix := range []string{PrefixAccount, PrefixRecord} {
		n, err := copyPrefix(src, dst, []byte(prefix))
		if err != nil {
			return total, fmt.Errorf("copy %s rows: %w", prefix, err)
		}
		total += n
	}

	// The singleton counter row
	stateRow, err := src.Get([]byte(KeyProgramState))
	if err != nil {
		return total, fmt.Errorf("read program state: %w", err)
	}
	if stateRow != nil {
		if err := dst.Put([]byte(KeyProgramState), stateRow); err != nil {
			return total, fmt.Errorf("write program state: %w", err)
		}
		total++
	}

	logx.Info("STORE", fmt.Sprintf("Copied %d rows", total))
	return total, nil
}

func copyPrefix(src db.IterableProvider, dst db.DatabaseProvider, prefix []byte) (int, error) {
	batch := dst.Batch()
	defer batch.Close()

	count := 0
	staged := 0
	var writeErr error
	err := src.IteratePrefix(prefix, func(key, value []byte) bool {
		// Key and value are only valid inside the callback
		batch.Put(append([]byte(nil), key...), append([]byte(nil), value...))
		count++
		staged++
		if staged >= copyBatchSize {
			if writeErr = batch.Write(); writeErr != nil {
				return false
			}
			batch.Reset()
			staged = 0
		}
		return true
	})
	if err != nil {
		return count, err
	}
	if writeErr != nil {
		return count, writeErr
	}
	if staged > 0 {
		if err := batch.Write(); err != nil {
			return count, err
		}
	}
	return count, nil
}
