package domain

import "time"

// Snapshot is the raw capture of one collection run.
type Snapshot struct {
	ScrapedAt    time.Time
	CategoryURLs []string
	Total        int
	Items        []RawListing
}

// RawListing is one listing exactly as the collector captured it.
type RawListing struct {
	RemoteID        string
	Title           *string
	Price           *float64
	Currency        *string
	Location        *string
	URL             *string
	ImageURL        *string
	CategorySlug    *string
	SubcategorySlug *string
	Description     *string
	SellerName      *string
	SellerType      *string
	PostedAt        *time.Time
	PostedAtText    *string
	ConditionLabel  *string
	ViewCount       *int
	FavoritesCount  *int
	IsNew           *bool
	FetchedAt       *time.Time
	Raw             map[string]any
}

// CanonicalListing is the merged cross-run record of one remote identifier.
type CanonicalListing struct {
	ID               string
	RemoteID         string
	Title            *string
	Description      *string
	CategorySlug     *string
	SubcategorySlug  *string
	SellerName       *string
	SellerType       *string
	Location         *string
	ImageURL         *string
	PriceCurrent     *float64
	Currency         *string
	Status           *string
	IsNew            bool
	FirstSeenAt      *time.Time
	LastSeenAt       time.Time
	LastScrapedJobID string
	Metadata         map[string]any
}

// ListingInfo is the minimal canonical projection used as a join key.
type ListingInfo struct {
	ID           string   `db:"id"`
	RemoteID     string   `db:"remote_id"`
	PriceCurrent *float64 `db:"price_current"`
}

type DailyStat struct {
	ListingID      string
	SnapshotDate   string
	ViewsTotal     int
	FavoritesCount int
	Price          *float64
	ScrapedAt      time.Time
	JobID          string
}

type PriceChange struct {
	ListingID string    `json:"listingId"`
	RemoteID  string    `json:"remoteId"`
	OldPrice  *float64  `json:"oldPrice"`
	NewPrice  *float64  `json:"newPrice"`
	ChangedAt time.Time `json:"changedAt"`
	JobID     string    `json:"jobId"`
}
