package interfaces

import (
	"context"

	"ppn/ledger"
	"ppn/types"
)

type LedgerService interface {
	GetHistory(ctx context.Context, sender string) (*ledger.HistoryResult, error)
	GetProgramState(ctx context.Context) (*types.ProgramState, error)
}
