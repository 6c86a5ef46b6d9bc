package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"social_fetcher/internal/domain"
)

type PlatformStateStore struct {
	db *sqlx.DB
}

func NewPlatformStateStore(db *sqlx.DB) *PlatformStateStore {
	return &PlatformStateStore{db: db}
}

// Get locks and returns the running totals for a platform. Inside a
// transaction the row stays locked until commit.
func (s *PlatformStateStore) Get(ctx context.Context, platform string) (*domain.PlatformState, error) {
	var state domain.PlatformState
	query := `
		SELECT id, platform, last_run_at, last_completed_at, total_runs, total_completed
		FROM platform_state
		WHERE platform = $1
		FOR UPDATE`

	err := sqlx.GetContext(ctx, executor(ctx, s.db), &state, query, platform)
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.PlatformState{Platform: platform}, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *PlatformStateStore) Update(ctx context.Context, state *domain.PlatformState) error {
	query := `
		INSERT INTO platform_state (platform, last_run_at, last_completed_at, total_runs, total_completed)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (platform) DO UPDATE SET
			last_run_at = EXCLUDED.last_run_at,
			last_completed_at = EXCLUDED.last_completed_at,
			total_runs = EXCLUDED.total_runs,
			total_completed = EXCLUDED.total_completed`

	_, err := executor(ctx, s.db).ExecContext(ctx, query,
		state.Platform,
		state.LastRunAt,
		state.LastCompletedAt,
		state.TotalRuns,
		state.TotalCompleted,
	)
	return err
}
