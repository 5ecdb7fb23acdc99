package postgres

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"listing_collector/internal/domain"
)

const priceChangeColumns = 5

type PriceChangeStore struct {
	db *sqlx.DB
}

func NewPriceChangeStore(db *sqlx.DB) *PriceChangeStore {
	return &PriceChangeStore{db: db}
}

func (s *PriceChangeStore) InsertBatch(ctx context.Context, changes []domain.PriceChange) (int, error) {
	if len(changes) == 0 {
		return 0, nil
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO listing_price_changes (listing_id, old_price, new_price, changed_at, job_id) VALUES ")
	writeValues(&sb, len(changes), priceChangeColumns)

	args := make([]any, 0, len(changes)*priceChangeColumns)
	for _, c := range changes {
		args = append(args, c.ListingID, c.OldPrice, c.NewPrice, c.ChangedAt, c.JobID)
	}

	res, err := GetExecutor(ctx, s.db).ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
