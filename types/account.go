package types

import (
	"github.com/holiman/uint256"
)

// Account owners. System accounts are ordinary wallets that can send and
// receive. Ledger-owned accounts back transfer records and only ever
// hold the rent parked at creation time.
const (
	AccountOwnerSystem = "system"
	AccountOwnerLedger = "ledger"
)

type Account struct {
	Address string       `json:"address"`
	Balance *uint256.Int `json:"balance"`
	Owner   string       `json:"owner"`
}

// IsSystemOwned reports whether the account can take part in transfers
// as a sender or receiver.
func (a *Account) IsSystemOwned() bool {
	return a.Owner == AccountOwnerSystem
}
