package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"listing_collector/internal/domain"
)

const rawListingColumns = 22

type RawListingStore struct {
	db *sqlx.DB
}

func NewRawListingStore(db *sqlx.DB) *RawListingStore {
	return &RawListingStore{db: db}
}

type rawListingRow struct {
	TapID           string     `db:"tap_id"`
	Title           *string    `db:"title"`
	Price           *float64   `db:"price"`
	Currency        *string    `db:"currency"`
	Location        *string    `db:"location"`
	URL             *string    `db:"url"`
	ImageURL        *string    `db:"image_url"`
	CategorySlug    *string    `db:"category_slug"`
	SubcategorySlug *string    `db:"subcategory_slug"`
	Description     *string    `db:"description"`
	SellerName      *string    `db:"seller_name"`
	SellerType      *string    `db:"seller_type"`
	PostedAt        *time.Time `db:"posted_at"`
	PostedAtText    *string    `db:"posted_at_text"`
	ConditionLabel  *string    `db:"condition_label"`
	ViewCount       *int       `db:"view_count"`
	FavoritesCount  *int       `db:"favorites_count"`
	IsNew           *bool      `db:"is_new"`
	FetchedAt       *time.Time `db:"fetched_at"`
	Raw             []byte     `db:"raw"`
}

// InsertBatch stores one job's captures. Re-ingesting the same job overwrites
// the earlier capture of each remote id.
func (s *RawListingStore) InsertBatch(ctx context.Context, jobID string, capturedAt time.Time, items []domain.RawListing) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO scraped_listings (
		job_id, tap_id, title, price, currency, location, url, image_url,
		category_slug, subcategory_slug, description, seller_name, seller_type,
		posted_at, posted_at_text, condition_label, view_count, favorites_count,
		is_new, fetched_at, raw, captured_at
	) VALUES `)
	writeValues(&sb, len(items), rawListingColumns)
	sb.WriteString(` ON CONFLICT (job_id, tap_id) DO UPDATE SET
		title = EXCLUDED.title,
		price = EXCLUDED.price,
		currency = EXCLUDED.currency,
		location = EXCLUDED.location,
		url = EXCLUDED.url,
		image_url = EXCLUDED.image_url,
		category_slug = EXCLUDED.category_slug,
		subcategory_slug = EXCLUDED.subcategory_slug,
		description = EXCLUDED.description,
		seller_name = EXCLUDED.seller_name,
		seller_type = EXCLUDED.seller_type,
		posted_at = EXCLUDED.posted_at,
		posted_at_text = EXCLUDED.posted_at_text,
		condition_label = EXCLUDED.condition_label,
		view_count = EXCLUDED.view_count,
		favorites_count = EXCLUDED.favorites_count,
		is_new = EXCLUDED.is_new,
		fetched_at = EXCLUDED.fetched_at,
		raw = EXCLUDED.raw,
		captured_at = EXCLUDED.captured_at`)

	args := make([]any, 0, len(items)*rawListingColumns)
	for _, it := range items {
		raw, err := jsonArg(it.Raw)
		if err != nil {
			return 0, fmt.Errorf("encode raw for %s: %w", it.RemoteID, err)
		}
		args = append(args,
			jobID, it.RemoteID, it.Title, it.Price, it.Currency, it.Location, it.URL, it.ImageURL,
			it.CategorySlug, it.SubcategorySlug, it.Description, it.SellerName, it.SellerType,
			it.PostedAt, it.PostedAtText, it.ConditionLabel, it.ViewCount, it.FavoritesCount,
			it.IsNew, it.FetchedAt, raw, capturedAt,
		)
	}

	res, err := GetExecutor(ctx, s.db).ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *RawListingStore) ListByJob(ctx context.Context, jobID string) ([]domain.RawListing, error) {
	query := `
		SELECT tap_id, title, price, currency, location, url, image_url,
			category_slug, subcategory_slug, description, seller_name, seller_type,
			posted_at, posted_at_text, condition_label, view_count, favorites_count,
			is_new, fetched_at, raw
		FROM scraped_listings
		WHERE job_id = $1
		ORDER BY id`

	var rows []rawListingRow
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &rows, query, jobID); err != nil {
		return nil, err
	}

	out := make([]domain.RawListing, len(rows))
	for i, r := range rows {
		raw, err := jsonMap(r.Raw)
		if err != nil {
			return nil, fmt.Errorf("decode raw for %s: %w", r.TapID, err)
		}
		out[i] = domain.RawListing{
			RemoteID:        r.TapID,
			Title:           r.Title,
			Price:           r.Price,
			Currency:        r.Currency,
			Location:        r.Location,
			URL:             r.URL,
			ImageURL:        r.ImageURL,
			CategorySlug:    r.CategorySlug,
			SubcategorySlug: r.SubcategorySlug,
			Description:     r.Description,
			SellerName:      r.SellerName,
			SellerType:      r.SellerType,
			PostedAt:        r.PostedAt,
			PostedAtText:    r.PostedAtText,
			ConditionLabel:  r.ConditionLabel,
			ViewCount:       r.ViewCount,
			FavoritesCount:  r.FavoritesCount,
			IsNew:           r.IsNew,
			FetchedAt:       r.FetchedAt,
			Raw:             raw,
		}
	}
	return out, nil
}
