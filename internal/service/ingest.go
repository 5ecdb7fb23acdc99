package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"listing_collector/internal/config"
	"listing_collector/internal/domain"
	"listing_collector/internal/metrics"
)

// IngestService turns one finished job's snapshot into canonical rows.
type IngestService struct {
	loader     SnapshotLoader
	raw        RawListingStore
	reconciler *Reconciler
	txManager  TransactionManager
	publisher  Publisher
	metrics    *metrics.Metrics
	logger     *slog.Logger
	config     config.ReconcileConfig
	now        func() time.Time
}

// NewIngestService wires the ingestion pipeline. publisher and m may be nil.
func NewIngestService(
	loader SnapshotLoader,
	raw RawListingStore,
	reconciler *Reconciler,
	txManager TransactionManager,
	publisher Publisher,
	m *metrics.Metrics,
	logger *slog.Logger,
	cfg config.ReconcileConfig,
) *IngestService {
	if cfg.WriteChunkSize <= 0 {
		cfg.WriteChunkSize = 500
	}
	return &IngestService{
		loader:     loader,
		raw:        raw,
		reconciler: reconciler,
		txManager:  txManager,
		publisher:  publisher,
		metrics:    m,
		logger:     logger.With("component", "ingest"),
		config:     cfg,
		now:        time.Now,
	}
}

func (s *IngestService) Ingest(ctx context.Context, jobID, location string) (*domain.SyncResult, error) {
	startTime := time.Now()
	logger := s.logger.With("job_id", jobID)
	logger.Info("starting ingest", "snapshot", location)

	res, err := s.ingest(ctx, jobID, location, logger)
	took := time.Since(startTime)
	if err != nil {
		s.metrics.SyncFinished(string(domain.SyncError), 0, 0, 0, took)
		return nil, err
	}

	s.metrics.SyncFinished(string(res.Status),
		res.Reconcile.ListingsUpserted, res.Reconcile.StatsUpserted, res.Reconcile.PriceChanges, took)

	logger.Info("ingest completed",
		"status", res.Status,
		"raw_rows", res.RawRows,
		"listings", res.Reconcile.ListingsUpserted,
		"price_changes", res.Reconcile.PriceChanges,
		"duration", took,
	)
	return res, nil
}

func (s *IngestService) ingest(ctx context.Context, jobID, location string, logger *slog.Logger) (*domain.SyncResult, error) {
	snap, err := s.loader.Load(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	if len(snap.Items) == 0 {
		return &domain.SyncResult{
			Status:  domain.SyncIdle,
			Message: "snapshot contains no listings",
		}, nil
	}

	capturedAt := s.now().UTC()
	snapshotAt := snap.ScrapedAt
	if snapshotAt.IsZero() {
		snapshotAt = capturedAt
	}

	var rawRows int
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		for _, batch := range chunk(snap.Items, s.config.WriteChunkSize) {
			n, err := s.raw.InsertBatch(txCtx, jobID, capturedAt, batch)
			if err != nil {
				return err
			}
			rawRows += n
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store raw listings: %w", err)
	}

	result, err := s.reconciler.Reconcile(ctx, jobID, snapshotAt)
	if err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishReconciled(ctx, jobID, result); err != nil {
			logger.Warn("failed to publish reconcile result", "error", err)
		}
	}

	return &domain.SyncResult{
		Status: domain.SyncSuccess,
		Message: fmt.Sprintf("synced %d listings, %d daily stats, %d price changes",
			result.Stats.ListingsUpserted, result.Stats.StatsUpserted, result.Stats.PriceChanges),
		RawRows:   rawRows,
		Reconcile: result.Stats,
	}, nil
}
