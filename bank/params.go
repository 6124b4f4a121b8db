package bank

// Params are the substrate economics: how much balance an account must
// retain and what record storage costs. Values are in base units.
type Params struct {
	// BaseReserve is the minimum balance every account keeps; it is not
	// spendable.
	BaseReserve uint64 `json:"base_reserve"`

	// RentPerByte prices the storage a new record occupies. The rent is
	// debited from the record's creator and parked in the ledger-owned
	// account at the record address.
	RentPerByte uint64 `json:"rent_per_byte"`
}

// DefaultParams returns the economics every network starts from.
func DefaultParams() Params {
	return Params{
		BaseReserve: 1000,
		RentPerByte: 10,
	}
}

// MinBalanceForSize is the balance an account of the given stored size
// must hold to exist.
func (p Params) MinBalanceForSize(size uint64) uint64 {
	return p.BaseReserve + p.RentPerByte*size
}
