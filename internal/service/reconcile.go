package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"listing_collector/internal/config"
	"listing_collector/internal/domain"
)

type Reconciler struct {
	raw       RawListingStore
	listings  ListingStore
	stats     DailyStatStore
	changes   PriceChangeStore
	txManager TransactionManager
	logger    *slog.Logger
	config    config.ReconcileConfig
}

func NewReconciler(
	raw RawListingStore,
	listings ListingStore,
	stats DailyStatStore,
	changes PriceChangeStore,
	txManager TransactionManager,
	logger *slog.Logger,
	cfg config.ReconcileConfig,
) *Reconciler {
	if cfg.FetchChunkSize <= 0 {
		cfg.FetchChunkSize = 1000
	}
	if cfg.WriteChunkSize <= 0 {
		cfg.WriteChunkSize = 500
	}
	return &Reconciler{
		raw:       raw,
		listings:  listings,
		stats:     stats,
		changes:   changes,
		txManager: txManager,
		logger:    logger.With("component", "reconciler"),
		config:    cfg,
	}
}

// Reconcile merges the raw rows captured under jobID into the canonical
// tables. Listings are written before any daily stat or price change that
// references them. A storage error aborts the remaining steps.
func (r *Reconciler) Reconcile(ctx context.Context, jobID string, snapshotAt time.Time) (*domain.ReconcileResult, error) {
	startTime := time.Now()
	snapshotAt = snapshotAt.UTC()
	logger := r.logger.With("job_id", jobID)

	rows, err := r.raw.ListByJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("list raw listings: %w", err)
	}
	if len(rows) == 0 {
		logger.Info("no raw listings to reconcile")
		return &domain.ReconcileResult{}, nil
	}

	rows = lastByRemoteID(rows)
	remoteIDs := make([]string, len(rows))
	for i := range rows {
		remoteIDs[i] = rows[i].RemoteID
	}

	logger.Info("starting reconcile", "listings", len(remoteIDs), "snapshot_date", snapshotDay(snapshotAt))

	existing, err := r.fetchExisting(ctx, remoteIDs)
	if err != nil {
		return nil, fmt.Errorf("fetch existing listings: %w", err)
	}

	merged := make([]domain.CanonicalListing, len(rows))
	for i := range rows {
		var prior *domain.CanonicalListing
		if p, ok := existing[rows[i].RemoteID]; ok {
			prior = &p
		}
		merged[i] = resolveListing(&rows[i], prior, jobID, snapshotAt)
	}

	result := &domain.ReconcileResult{}

	err = r.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		for _, batch := range chunk(merged, r.config.WriteChunkSize) {
			n, err := r.listings.UpsertBatch(txCtx, batch)
			if err != nil {
				return err
			}
			result.Stats.ListingsUpserted += n
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("upsert listings: %w", err)
	}

	info, err := r.fetchInfo(ctx, remoteIDs)
	if err != nil {
		return nil, fmt.Errorf("fetch listing info: %w", err)
	}

	stats := make([]domain.DailyStat, 0, len(rows))
	var changes []domain.PriceChange
	for i := range rows {
		id := rows[i].RemoteID
		li, ok := info[id]
		if !ok {
			logger.Warn("canonical listing missing after upsert", "remote_id", id)
			continue
		}
		stats = append(stats, resolveDailyStat(&rows[i], li, jobID, snapshotAt))

		prior, seen := existing[id]
		if !seen || samePrice(prior.PriceCurrent, li.PriceCurrent) {
			continue
		}
		changes = append(changes, domain.PriceChange{
			ListingID: li.ID,
			RemoteID:  id,
			OldPrice:  prior.PriceCurrent,
			NewPrice:  li.PriceCurrent,
			ChangedAt: snapshotAt,
			JobID:     jobID,
		})
	}

	err = r.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		for _, batch := range chunk(stats, r.config.WriteChunkSize) {
			n, err := r.stats.UpsertBatch(txCtx, batch)
			if err != nil {
				return fmt.Errorf("upsert daily stats: %w", err)
			}
			result.Stats.StatsUpserted += n
		}
		for _, batch := range chunk(changes, r.config.WriteChunkSize) {
			n, err := r.changes.InsertBatch(txCtx, batch)
			if err != nil {
				return fmt.Errorf("insert price changes: %w", err)
			}
			result.Stats.PriceChanges += n
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.Changes = changes
	result.Stats.Duration = time.Since(startTime)

	logger.Info("reconcile completed",
		"listings", result.Stats.ListingsUpserted,
		"daily_stats", result.Stats.StatsUpserted,
		"price_changes", result.Stats.PriceChanges,
		"duration", result.Stats.Duration,
	)

	return result, nil
}

func (r *Reconciler) fetchExisting(ctx context.Context, remoteIDs []string) (map[string]domain.CanonicalListing, error) {
	out := make(map[string]domain.CanonicalListing, len(remoteIDs))
	for _, ids := range chunk(remoteIDs, r.config.FetchChunkSize) {
		found, err := r.listings.GetByRemoteIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		for k, v := range found {
			out[k] = v
		}
	}
	return out, nil
}

func (r *Reconciler) fetchInfo(ctx context.Context, remoteIDs []string) (map[string]domain.ListingInfo, error) {
	out := make(map[string]domain.ListingInfo, len(remoteIDs))
	for _, ids := range chunk(remoteIDs, r.config.FetchChunkSize) {
		found, err := r.listings.InfoByRemoteIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		for k, v := range found {
			out[k] = v
		}
	}
	return out, nil
}

// lastByRemoteID keeps one raw row per remote id. The last capture wins and
// the position of the first occurrence is kept.
func lastByRemoteID(rows []domain.RawListing) []domain.RawListing {
	index := make(map[string]int, len(rows))
	out := make([]domain.RawListing, 0, len(rows))
	for _, row := range rows {
		if i, ok := index[row.RemoteID]; ok {
			out[i] = row
			continue
		}
		index[row.RemoteID] = len(out)
		out = append(out, row)
	}
	return out
}

func chunk[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if size <= 0 {
		size = len(items)
	}
	out := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end])
	}
	return out
}
