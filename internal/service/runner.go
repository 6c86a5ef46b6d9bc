package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"social_fetcher/internal/aggregate"
	"social_fetcher/internal/config"
	"social_fetcher/internal/domain"
	"social_fetcher/internal/metrics"
	"social_fetcher/internal/normalize"
)

const ledgerTimeout = 10 * time.Second

// Runner executes one ingestion pass at a time:
// claim -> fetch -> normalize -> profiles -> posts -> complete.
type Runner struct {
	sets      TrackingSetStore
	profiles  ProfileStore
	posts     PostStore
	source    Source
	ledger    *Ledger
	publisher Publisher
	logger    *slog.Logger
	config    config.PollConfig

	now  func() time.Time
	busy atomic.Bool
}

func NewRunner(
	sets TrackingSetStore,
	profiles ProfileStore,
	posts PostStore,
	source Source,
	ledger *Ledger,
	publisher Publisher,
	logger *slog.Logger,
	cfg config.PollConfig,
) *Runner {
	return &Runner{
		sets:      sets,
		profiles:  profiles,
		posts:     posts,
		source:    source,
		ledger:    ledger,
		publisher: publisher,
		logger:    logger.With("component", "runner"),
		config:    cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// RunOnce performs a single pass. A call made while another pass is still in
// flight returns immediately with OutcomeBusy and touches nothing.
func (r *Runner) RunOnce(ctx context.Context) *domain.RunReport {
	if !r.busy.CompareAndSwap(false, true) {
		r.logger.Info("previous run still in progress, skipping tick")
		metrics.ObserveRun(string(domain.OutcomeBusy), 0)
		return &domain.RunReport{Outcome: domain.OutcomeBusy}
	}
	defer r.busy.Store(false)

	report := &domain.RunReport{
		RunID:     uuid.NewString(),
		StartedAt: r.now(),
	}

	r.run(ctx, report)

	report.FinishedAt = r.now()
	r.finish(ctx, report)

	return report
}

func (r *Runner) run(ctx context.Context, report *domain.RunReport) {
	set, err := r.sets.OldestPending(ctx)
	if err != nil {
		report.Outcome = domain.OutcomeClaimError
		report.Err = fmt.Errorf("claim work item: %w", err)
		return
	}
	if set == nil {
		report.Outcome = domain.OutcomeIdle
		return
	}

	index, ok := set.NextPending()
	if !ok {
		r.logger.Info("tracking set had no pending item after read", "tracking_set", set.ID)
		report.Outcome = domain.OutcomeIdle
		return
	}

	target := set.Resolve(index, r.config.DefaultPlatform)
	report.Target = &target

	logger := r.logger.With(
		"run_id", report.RunID,
		"tracking_set", target.TrackingSetID,
		"index", target.Index,
		"platform", target.Platform,
		"username", target.Username,
	)
	logger.Info("processing work item", "tracking_set_name", target.TrackingSetName)

	raw, err := r.fetch(ctx, target)
	if err != nil {
		report.Err = err
		if errors.Is(err, domain.ErrNoEndpoint) {
			report.Outcome = domain.OutcomeConfigError
		} else {
			report.Outcome = domain.OutcomeFetchError
		}
		return
	}

	now := r.now()
	label := normalize.Label(target.Platform)
	records := normalize.Normalize(raw, target.Platform, now)
	report.Fetched = len(records)
	logger.Info("normalized payload", "records", len(records))

	report.Profiles, report.ProfileErr = r.upsertProfiles(ctx, records, label, now)
	if report.ProfileErr != nil {
		logger.Error("profile upsert failed, continuing", "error", report.ProfileErr)
	}

	postIDs, err := r.upsertPosts(ctx, records, target, label, now, report)
	if err != nil {
		report.Outcome = domain.OutcomePersistence
		report.Err = err
		return
	}

	if r.publisher != nil && len(postIDs) > 0 {
		if err := r.publisher.PublishPosts(ctx, report, postIDs); err != nil {
			report.PublishErr = err
			logger.Warn("publish posts event failed", "error", err)
		}
	}

	completed, err := r.sets.Complete(ctx, target.TrackingSetID, target.Index, domain.Completion{
		ProcessedAt: r.now(),
		Items:       len(records),
		LastUpsert: domain.LastUpsert{
			Upserted: report.Posts.Upserted,
			Modified: report.Posts.Modified,
			Matched:  report.Posts.Matched,
			Count:    int64(len(records)),
		},
	})
	if err != nil {
		report.Outcome = domain.OutcomePersistence
		report.Err = fmt.Errorf("complete work item: %w", err)
		return
	}
	if !completed {
		report.Outcome = domain.OutcomeRaceLost
		return
	}

	report.Outcome = domain.OutcomeCompleted
}

// fetch resolves the endpoint before any request is made, so a platform
// without one never reaches the network.
func (r *Runner) fetch(ctx context.Context, target domain.Target) (any, error) {
	endpoint, err := r.source.Endpoint(target.Platform)
	if err != nil {
		return nil, fmt.Errorf("resolve endpoint: %w", err)
	}

	raw, err := r.source.Fetch(ctx, endpoint, target.Username)
	if err != nil {
		return nil, fmt.Errorf("fetch %s/%s: %w", target.Platform, target.Username, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("fetch %s/%s: %w", target.Platform, target.Username, domain.ErrEmptyPayload)
	}
	return raw, nil
}

func (r *Runner) upsertProfiles(ctx context.Context, records []domain.Record, label string, now time.Time) (domain.WriteCounts, error) {
	patches := aggregate.Profiles(records, label)
	if len(patches) == 0 {
		return domain.WriteCounts{}, nil
	}

	counts, err := r.profiles.Upsert(ctx, patches, now)
	if err != nil {
		return counts, fmt.Errorf("upsert profiles: %w", err)
	}
	return counts, nil
}

// upsertPosts writes every id-bearing record and counts the rest. It returns
// the ids it wrote.
func (r *Runner) upsertPosts(ctx context.Context, records []domain.Record, target domain.Target, label string, now time.Time, report *domain.RunReport) ([]string, error) {
	posts := make([]domain.Post, 0, len(records))
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		if !rec.HasID() {
			report.Posts.SkippedNoID++
			continue
		}
		posts = append(posts, rec.Post)
		ids = append(ids, rec.ID)
	}

	if len(posts) == 0 {
		return nil, nil
	}

	counts, err := r.posts.Upsert(ctx, posts, domain.PostWrite{
		TrackingSetID: target.TrackingSetID,
		Username:      target.Username,
		Source:        label,
		Now:           now,
	})
	report.Posts.WriteCounts = counts
	if err != nil {
		return nil, fmt.Errorf("upsert posts: %w", err)
	}
	return ids, nil
}

func (r *Runner) finish(ctx context.Context, report *domain.RunReport) {
	metrics.ObserveRun(string(report.Outcome), report.Duration())
	if t := report.Target; t != nil && report.Fetched > 0 {
		metrics.ObserveBatch(t.Platform, report.Fetched, report.Posts.SkippedNoID)
		metrics.ObserveWrites("profiles", report.Profiles.Upserted, report.Profiles.Modified, report.Profiles.Matched)
		metrics.ObserveWrites("posts", report.Posts.Upserted, report.Posts.Modified, report.Posts.Matched)
	}

	r.log(report)

	if r.ledger == nil || !report.Outcome.Claimed() {
		return
	}

	ledgerCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ledgerTimeout)
	defer cancel()

	if err := r.ledger.Record(ledgerCtx, report); err != nil {
		r.logger.Error("record run in ledger failed", "run_id", report.RunID, "error", err)
	}
}

func (r *Runner) log(report *domain.RunReport) {
	attrs := []any{
		"run_id", report.RunID,
		"outcome", report.Outcome,
		"duration", report.Duration(),
	}
	if t := report.Target; t != nil {
		attrs = append(attrs, "tracking_set", t.TrackingSetID, "index", t.Index, "platform", t.Platform, "username", t.Username)
	}

	switch report.Outcome {
	case domain.OutcomeIdle:
		r.logger.Info("no pending profiles found")
	case domain.OutcomeCompleted:
		r.logger.Info("work item completed", append(attrs,
			"fetched", report.Fetched,
			"profiles_upserted", report.Profiles.Upserted,
			"profiles_modified", report.Profiles.Modified,
			"posts_upserted", report.Posts.Upserted,
			"posts_modified", report.Posts.Modified,
			"posts_matched", report.Posts.Matched,
			"skipped_no_id", report.Posts.SkippedNoID,
		)...)
	case domain.OutcomeRaceLost:
		r.logger.Warn("work item changed since read, nothing updated", attrs...)
	case domain.OutcomeConfigError, domain.OutcomeFetchError:
		r.logger.Warn("skipping work item", append(attrs, "error", report.Err)...)
	default:
		r.logger.Error("run failed", append(attrs, "error", report.Err)...)
	}
}
