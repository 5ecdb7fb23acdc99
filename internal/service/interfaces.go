package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"listing_collector/internal/domain"
)

type RawListingStore interface {
	// InsertBatch stores one job's raw rows; rows are unique per (job, remote id).
	InsertBatch(ctx context.Context, jobID string, capturedAt time.Time, items []domain.RawListing) (int, error)
	ListByJob(ctx context.Context, jobID string) ([]domain.RawListing, error)
}

type ListingStore interface {
	GetByRemoteIDs(ctx context.Context, remoteIDs []string) (map[string]domain.CanonicalListing, error)
	UpsertBatch(ctx context.Context, listings []domain.CanonicalListing) (int, error)
	InfoByRemoteIDs(ctx context.Context, remoteIDs []string) (map[string]domain.ListingInfo, error)
}

type DailyStatStore interface {
	UpsertBatch(ctx context.Context, stats []domain.DailyStat) (int, error)
}

type PriceChangeStore interface {
	InsertBatch(ctx context.Context, changes []domain.PriceChange) (int, error)
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type SnapshotLoader interface {
	Load(ctx context.Context, location string) (*domain.Snapshot, error)
}

type Publisher interface {
	PublishReconciled(ctx context.Context, jobID string, result *domain.ReconcileResult) error
	Close() error
}
