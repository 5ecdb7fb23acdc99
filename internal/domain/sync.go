package domain

import "time"

// ReconcileStats holds the row counts of one reconciliation pass.
type ReconcileStats struct {
	ListingsUpserted int           `json:"listingsUpserted"`
	StatsUpserted    int           `json:"statsUpserted"`
	PriceChanges     int           `json:"priceChanges"`
	Duration         time.Duration `json:"-"`
}

type ReconcileResult struct {
	Stats   ReconcileStats
	Changes []PriceChange
}

// SyncResult is the outcome of ingesting one job's snapshot.
type SyncResult struct {
	Status    SyncStatus
	Message   string
	RawRows   int
	Reconcile ReconcileStats
}
