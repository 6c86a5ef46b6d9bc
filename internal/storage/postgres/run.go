package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"social_fetcher/internal/domain"
)

type RunStore struct {
	db *sqlx.DB
}

func NewRunStore(db *sqlx.DB) *RunStore {
	return &RunStore{db: db}
}

// Insert appends one row per pipeline run that claimed a work item.
func (s *RunStore) Insert(ctx context.Context, r *domain.RunReport) error {
	query := `
		INSERT INTO ingest_runs (
			id, tracking_set_id, item_index, platform, username, outcome, error,
			fetched, skipped_no_id,
			profiles_upserted, profiles_modified, profiles_matched, profile_error,
			posts_upserted, posts_modified, posts_matched,
			started_at, finished_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18
		)
		ON CONFLICT (id) DO NOTHING`

	var setID, platform, username string
	var index int
	if r.Target != nil {
		setID, index, platform, username = r.Target.TrackingSetID, r.Target.Index, r.Target.Platform, r.Target.Username
	}

	_, err := executor(ctx, s.db).ExecContext(ctx, query,
		r.RunID,
		setID,
		index,
		platform,
		username,
		string(r.Outcome),
		errText(r.Err),
		r.Fetched,
		r.Posts.SkippedNoID,
		r.Profiles.Upserted,
		r.Profiles.Modified,
		r.Profiles.Matched,
		errText(r.ProfileErr),
		r.Posts.Upserted,
		r.Posts.Modified,
		r.Posts.Matched,
		r.StartedAt,
		r.FinishedAt,
	)
	return err
}

func errText(err error) sql.NullString {
	if err == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: err.Error(), Valid: true}
}
