package service

import (
	"context"
	"fmt"

	"social_fetcher/internal/domain"
)

// Ledger keeps a durable history of runs next to per-platform totals.
type Ledger struct {
	runs      RunStore
	states    PlatformStateStore
	txManager TransactionManager
}

func NewLedger(runs RunStore, states PlatformStateStore, txManager TransactionManager) *Ledger {
	return &Ledger{runs: runs, states: states, txManager: txManager}
}

// Record stores the run and bumps the platform totals in one transaction.
func (l *Ledger) Record(ctx context.Context, report *domain.RunReport) error {
	if report.Target == nil {
		return nil
	}

	return l.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := l.runs.Insert(txCtx, report); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		state, err := l.states.Get(txCtx, report.Target.Platform)
		if err != nil {
			return fmt.Errorf("get platform state: %w", err)
		}

		state.Platform = report.Target.Platform
		state.LastRunAt = report.FinishedAt
		state.TotalRuns++
		if report.Outcome == domain.OutcomeCompleted {
			finished := report.FinishedAt
			state.LastCompletedAt = &finished
			state.TotalCompleted++
		}

		if err := l.states.Update(txCtx, state); err != nil {
			return fmt.Errorf("update platform state: %w", err)
		}
		return nil
	})
}
