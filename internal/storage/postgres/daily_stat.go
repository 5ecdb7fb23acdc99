package postgres

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"listing_collector/internal/domain"
)

const dailyStatColumns = 7

type DailyStatStore struct {
	db *sqlx.DB
}

func NewDailyStatStore(db *sqlx.DB) *DailyStatStore {
	return &DailyStatStore{db: db}
}

// UpsertBatch keeps one row per listing and day; a later capture of the same
// day overwrites the earlier one.
func (s *DailyStatStore) UpsertBatch(ctx context.Context, stats []domain.DailyStat) (int, error) {
	if len(stats) == 0 {
		return 0, nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO listing_daily_stats (
		listing_id, snapshot_date, views_total, favorites_count, price, scraped_at, job_id
	) VALUES `)
	writeValues(&sb, len(stats), dailyStatColumns)
	sb.WriteString(` ON CONFLICT (listing_id, snapshot_date) DO UPDATE SET
		views_total = EXCLUDED.views_total,
		favorites_count = EXCLUDED.favorites_count,
		price = EXCLUDED.price,
		scraped_at = EXCLUDED.scraped_at,
		job_id = EXCLUDED.job_id`)

	args := make([]any, 0, len(stats)*dailyStatColumns)
	for _, st := range stats {
		args = append(args,
			st.ListingID, st.SnapshotDate, st.ViewsTotal, st.FavoritesCount, st.Price, st.ScrapedAt, st.JobID,
		)
	}

	res, err := GetExecutor(ctx, s.db).ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
