package domain

import (
	"errors"
	"time"
)

var (
	ErrNoEndpoint     = errors.New("no endpoint configured for platform")
	ErrEmptyPayload   = errors.New("upstream returned empty payload")
	ErrUpstreamStatus = errors.New("upstream returned unexpected status")
)

// Outcome classifies how a run ended.
type Outcome string

const (
	OutcomeBusy        Outcome = "busy"
	OutcomeIdle        Outcome = "idle"
	OutcomeConfigError Outcome = "config_error"
	OutcomeFetchError  Outcome = "fetch_error"
	OutcomeClaimError  Outcome = "claim_error"
	OutcomePersistence Outcome = "persistence_error"
	OutcomeRaceLost    Outcome = "race_lost"
	OutcomeCompleted   Outcome = "completed"
)

// Claimed reports whether the run got as far as selecting a work item.
func (o Outcome) Claimed() bool {
	switch o {
	case OutcomeBusy, OutcomeIdle, OutcomeClaimError:
		return false
	}
	return true
}

// WriteCounts are the counters returned by a bulk upsert.
type WriteCounts struct {
	Upserted int64
	Modified int64
	Matched  int64
}

// PostCounts extends WriteCounts with the records dropped for lacking an id.
type PostCounts struct {
	WriteCounts
	SkippedNoID int
}

// RunReport describes one pass of the pipeline.
type RunReport struct {
	RunID      string
	Outcome    Outcome
	Err        error
	Target     *Target
	Fetched    int
	Profiles   WriteCounts
	ProfileErr error
	Posts      PostCounts
	PublishErr error
	StartedAt  time.Time
	FinishedAt time.Time
}

func (r *RunReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// PlatformState holds running totals per platform.
type PlatformState struct {
	ID              int64      `db:"id"`
	Platform        string     `db:"platform"`
	LastRunAt       time.Time  `db:"last_run_at"`
	LastCompletedAt *time.Time `db:"last_completed_at"`
	TotalRuns       int64      `db:"total_runs"`
	TotalCompleted  int64      `db:"total_completed"`
}
