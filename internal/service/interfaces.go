package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"social_fetcher/internal/domain"
)

type TrackingSetStore interface {
	OldestPending(ctx context.Context) (*domain.TrackingSet, error)
	Complete(ctx context.Context, setID string, index int, c domain.Completion) (bool, error)
}

type ProfileStore interface {
	Upsert(ctx context.Context, patches []domain.ProfilePatch, now time.Time) (domain.WriteCounts, error)
}

type PostStore interface {
	Upsert(ctx context.Context, posts []domain.Post, w domain.PostWrite) (domain.WriteCounts, error)
}

type Source interface {
	Endpoint(platform string) (string, error)
	Fetch(ctx context.Context, endpoint, username string) (any, error)
}

type RunStore interface {
	Insert(ctx context.Context, r *domain.RunReport) error
}

type PlatformStateStore interface {
	Get(ctx context.Context, platform string) (*domain.PlatformState, error)
	Update(ctx context.Context, state *domain.PlatformState) error
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Publisher interface {
	PublishPosts(ctx context.Context, report *domain.RunReport, postIDs []string) error
	Close() error
}
