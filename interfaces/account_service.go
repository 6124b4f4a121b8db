package interfaces

import (
	"context"

	"ppn/types"

	"github.com/holiman/uint256"
)

type AccountService interface {
	GetAccount(ctx context.Context, address string) (*types.Account, error)
	GetBalance(ctx context.Context, address string) (*uint256.Int, error)
}
