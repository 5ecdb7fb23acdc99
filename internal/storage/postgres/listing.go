package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"listing_collector/internal/domain"
)

const listingColumns = 17

// listingConflictClause never touches first_seen_at, which is write-once.
const listingConflictClause = ` ON CONFLICT (remote_id) DO UPDATE SET
		title = EXCLUDED.title,
		description = EXCLUDED.description,
		category_slug = EXCLUDED.category_slug,
		subcategory_slug = EXCLUDED.subcategory_slug,
		seller_name = EXCLUDED.seller_name,
		seller_type = EXCLUDED.seller_type,
		location = EXCLUDED.location,
		image_url = EXCLUDED.image_url,
		price_current = EXCLUDED.price_current,
		currency = EXCLUDED.currency,
		status = EXCLUDED.status,
		is_new = EXCLUDED.is_new,
		last_seen_at = EXCLUDED.last_seen_at,
		last_scraped_job_id = EXCLUDED.last_scraped_job_id,
		metadata = EXCLUDED.metadata,
		updated_at = NOW()`

type ListingStore struct {
	db *sqlx.DB
}

func NewListingStore(db *sqlx.DB) *ListingStore {
	return &ListingStore{db: db}
}

type listingRow struct {
	ID               string     `db:"id"`
	RemoteID         string     `db:"remote_id"`
	Title            *string    `db:"title"`
	Description      *string    `db:"description"`
	CategorySlug     *string    `db:"category_slug"`
	SubcategorySlug  *string    `db:"subcategory_slug"`
	SellerName       *string    `db:"seller_name"`
	SellerType       *string    `db:"seller_type"`
	Location         *string    `db:"location"`
	ImageURL         *string    `db:"image_url"`
	PriceCurrent     *float64   `db:"price_current"`
	Currency         *string    `db:"currency"`
	Status           *string    `db:"status"`
	IsNew            bool       `db:"is_new"`
	FirstSeenAt      *time.Time `db:"first_seen_at"`
	LastSeenAt       time.Time  `db:"last_seen_at"`
	LastScrapedJobID *string    `db:"last_scraped_job_id"`
	Metadata         []byte     `db:"metadata"`
}

func (s *ListingStore) GetByRemoteIDs(ctx context.Context, remoteIDs []string) (map[string]domain.CanonicalListing, error) {
	result := make(map[string]domain.CanonicalListing, len(remoteIDs))
	if len(remoteIDs) == 0 {
		return result, nil
	}

	query := `
		SELECT id, remote_id, title, description, category_slug, subcategory_slug,
			seller_name, seller_type, location, image_url, price_current, currency,
			status, is_new, first_seen_at, last_seen_at, last_scraped_job_id, metadata
		FROM listings
		WHERE remote_id = ANY($1)`

	var rows []listingRow
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &rows, query, pq.Array(remoteIDs)); err != nil {
		return nil, err
	}

	for _, r := range rows {
		metadata, err := jsonMap(r.Metadata)
		if err != nil {
			return nil, fmt.Errorf("decode metadata for %s: %w", r.RemoteID, err)
		}
		l := domain.CanonicalListing{
			ID:              r.ID,
			RemoteID:        r.RemoteID,
			Title:           r.Title,
			Description:     r.Description,
			CategorySlug:    r.CategorySlug,
			SubcategorySlug: r.SubcategorySlug,
			SellerName:      r.SellerName,
			SellerType:      r.SellerType,
			Location:        r.Location,
			ImageURL:        r.ImageURL,
			PriceCurrent:    r.PriceCurrent,
			Currency:        r.Currency,
			Status:          r.Status,
			IsNew:           r.IsNew,
			FirstSeenAt:     r.FirstSeenAt,
			LastSeenAt:      r.LastSeenAt,
			Metadata:        metadata,
		}
		if r.LastScrapedJobID != nil {
			l.LastScrapedJobID = *r.LastScrapedJobID
		}
		result[r.RemoteID] = l
	}
	return result, nil
}

// UpsertBatch writes merged listings keyed by remote id. first_seen_at is only
// set on insert.
func (s *ListingStore) UpsertBatch(ctx context.Context, listings []domain.CanonicalListing) (int, error) {
	if len(listings) == 0 {
		return 0, nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO listings (
		remote_id, title, description, category_slug, subcategory_slug,
		seller_name, seller_type, location, image_url, price_current, currency,
		status, is_new, first_seen_at, last_seen_at, last_scraped_job_id, metadata
	) VALUES `)
	writeValues(&sb, len(listings), listingColumns)
	sb.WriteString(listingConflictClause)

	args := make([]any, 0, len(listings)*listingColumns)
	for _, l := range listings {
		metadata, err := jsonArg(l.Metadata)
		if err != nil {
			return 0, fmt.Errorf("encode metadata for %s: %w", l.RemoteID, err)
		}
		firstSeen := l.LastSeenAt
		if l.FirstSeenAt != nil {
			firstSeen = *l.FirstSeenAt
		}
		status := "active"
		if l.Status != nil {
			status = *l.Status
		}
		args = append(args,
			l.RemoteID, l.Title, l.Description, l.CategorySlug, l.SubcategorySlug,
			l.SellerName, l.SellerType, l.Location, l.ImageURL, l.PriceCurrent, l.Currency,
			status, l.IsNew, firstSeen, l.LastSeenAt, l.LastScrapedJobID, metadata,
		)
	}

	res, err := GetExecutor(ctx, s.db).ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *ListingStore) InfoByRemoteIDs(ctx context.Context, remoteIDs []string) (map[string]domain.ListingInfo, error) {
	result := make(map[string]domain.ListingInfo, len(remoteIDs))
	if len(remoteIDs) == 0 {
		return result, nil
	}

	query := `SELECT id, remote_id, price_current FROM listings WHERE remote_id = ANY($1)`

	var rows []domain.ListingInfo
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &rows, query, pq.Array(remoteIDs)); err != nil {
		return nil, err
	}
	for _, r := range rows {
		result[r.RemoteID] = r
	}
	return result, nil
}
