package store

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"ppn/common"
	"ppn/db"
	"ppn/types"
)

// StateStore persists the singleton ProgramState under one fixed key.
// Row layout: 8-byte discriminator tag + 8-byte little-endian counter.
// The counter row rides the same batch as the payment it sequences, so
// two concurrent payments can never both claim one sequence number.

var stateTag = common.DeriveTag("state:program:v1")

const stateRowSize = 16

type StateStore interface {
	Get() (*types.ProgramState, bool, error)
	Put(state *types.ProgramState) error
	PutInBatch(batch db.DatabaseBatch, state *types.ProgramState)
}

type GenericStateStore struct {
	provider db.DatabaseProvider
}

func NewGenericStateStore(provider db.DatabaseProvider) *GenericStateStore {
	return &GenericStateStore{provider: provider}
}

func (s *GenericStateStore) stateKey() []byte {
	return []byte(KeyProgramState)
}

func encodeState(state *types.ProgramState) []byte {
	row := make([]byte, stateRowSize)
	copy(row, stateTag[:])
	binary.LittleEndian.PutUint64(row[8:], state.TotalTransactions)
	return row
}

// Get returns the persisted state. The second result is false when the
// state has never been initialized.
func (s *GenericStateStore) Get() (*types.ProgramState, bool, error) {
	value, err := s.provider.Get(s.stateKey())
	if err != nil {
		return nil, false, fmt.Errorf("failed to get program state: %w", err)
	}
	if len(value) == 0 {
		return nil, false, nil
	}
	if len(value) != stateRowSize {
		return nil, false, fmt.Errorf("invalid program state length: %d", len(value))
	}
	if !bytes.Equal(value[:8], stateTag[:]) {
		return nil, false, fmt.Errorf("unknown program state discriminator")
	}
	return &types.ProgramState{
		TotalTransactions: binary.LittleEndian.Uint64(value[8:]),
	}, true, nil
}

// Put writes the state directly, used only by one-time initialization.
func (s *GenericStateStore) Put(state *types.ProgramState) error {
	if err := s.provider.Put(s.stateKey(), encodeState(state)); err != nil {
		return fmt.Errorf("failed to store program state: %w", err)
	}
	return nil
}

// PutInBatch stages the advanced counter into the payment's batch.
func (s *GenericStateStore) PutInBatch(batch db.DatabaseBatch, state *types.ProgramState) {
	batch.Put(s.stateKey(), encodeState(state))
}
