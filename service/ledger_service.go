package service

import (
	"context"
	"fmt"

	"ppn/ledger"
	"ppn/logx"
	"ppn/types"
	"ppn/utils"
)

type LedgerServiceImpl struct {
	ledger *ledger.Ledger
}

func NewLedgerService(ld *ledger.Ledger) *LedgerServiceImpl {
	return &LedgerServiceImpl{ledger: ld}
}

func (s *LedgerServiceImpl) GetHistory(ctx context.Context, sender string) (*ledger.HistoryResult, error) {
	result, err := s.ledger.GetHistory(sender)
	if err != nil {
		return nil, err
	}
	logx.Info("LEDGER SERVICE", fmt.Sprintf("History for %s: %d records, %d skipped", utils.ShortenHash(sender), len(result.Records), result.Skipped))
	return result, nil
}

func (s *LedgerServiceImpl) GetProgramState(ctx context.Context) (*types.ProgramState, error) {
	return s.ledger.ProgramState()
}
