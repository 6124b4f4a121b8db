package service

import (
	"context"

	"ppn/ledger"
	"ppn/logx"
	"ppn/types"

	"github.com/holiman/uint256"
)

type AccountServiceImpl struct {
	ledger *ledger.Ledger
}

func NewAccountService(ld *ledger.Ledger) *AccountServiceImpl {
	return &AccountServiceImpl{ledger: ld}
}

// GetAccount returns nil without error for an address the ledger has never
// seen. The transport layer renders that as a zero balance so wallets can
// show fresh keypairs without a special case.
func (s *AccountServiceImpl) GetAccount(ctx context.Context, address string) (*types.Account, error) {
	acc, err := s.ledger.GetAccount(address)
	if err != nil {
		logx.Error("ACCOUNT SERVICE", "Ledger error", err)
		return nil, err
	}
	return acc, nil
}

func (s *AccountServiceImpl) GetBalance(ctx context.Context, address string) (*uint256.Int, error) {
	return s.ledger.Balance(address)
}
