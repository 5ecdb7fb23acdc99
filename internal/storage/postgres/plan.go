package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"listing_collector/internal/domain"
)

var ErrPlanNotFound = errors.New("plan not found")

const (
	categoryInclude = "include"
	categoryExclude = "exclude"
)

type PlanStore struct {
	db *sqlx.DB
	tx *TransactionManager
}

func NewPlanStore(db *sqlx.DB, tx *TransactionManager) *PlanStore {
	return &PlanStore{db: db, tx: tx}
}

type planRow struct {
	domain.Plan
	WeekDays  pq.Int64Array `db:"days_of_week"`
	MonthDays pq.Int64Array `db:"days_of_month"`
}

type planCategoryRow struct {
	PlanID     string `db:"plan_id"`
	CategoryID string `db:"category_id"`
	Mode       string `db:"mode"`
}

const planColumns = `id, name, schedule_type, timezone, run_hour, run_minute, days_of_week,
	days_of_month, once_run_at, category_strategy, interval_minutes, max_pages, max_listings,
	page_delay_ms, detail_delay_ms, headless, user_agent, enabled, summary, last_run_at,
	next_run_at, updated_at, updated_by`

func (s *PlanStore) Get(ctx context.Context, id string) (*domain.Plan, error) {
	plans, err := s.query(ctx, "SELECT "+planColumns+" FROM scrape_plans WHERE id = $1", id)
	if err != nil {
		return nil, err
	}
	if len(plans) == 0 {
		return nil, ErrPlanNotFound
	}
	return &plans[0], nil
}

func (s *PlanStore) List(ctx context.Context) ([]domain.Plan, error) {
	return s.query(ctx, "SELECT "+planColumns+" FROM scrape_plans ORDER BY name, id")
}

// DuePlans returns enabled plans whose next run is at or before now, oldest first.
func (s *PlanStore) DuePlans(ctx context.Context, now time.Time) ([]domain.Plan, error) {
	return s.query(ctx, "SELECT "+planColumns+` FROM scrape_plans
		WHERE enabled AND next_run_at IS NOT NULL AND next_run_at <= $1
		ORDER BY next_run_at, id`, now)
}

func (s *PlanStore) query(ctx context.Context, query string, args ...any) ([]domain.Plan, error) {
	exec := GetExecutor(ctx, s.db)

	var rows []planRow
	if err := sqlx.SelectContext(ctx, exec, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select plans: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	plans := make([]domain.Plan, len(rows))
	index := make(map[string]int, len(rows))
	ids := make([]string, len(rows))
	for i, r := range rows {
		p := r.Plan
		p.DaysOfWeek = toInts(r.WeekDays)
		p.DaysOfMonth = toInts(r.MonthDays)
		plans[i] = p
		index[p.ID] = i
		ids[i] = p.ID
	}

	var cats []planCategoryRow
	err := sqlx.SelectContext(ctx, exec, &cats, `
		SELECT plan_id, category_id, mode
		FROM scrape_plan_categories
		WHERE plan_id = ANY($1)
		ORDER BY plan_id, mode, position`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("select plan categories: %w", err)
	}
	for _, c := range cats {
		p := &plans[index[c.PlanID]]
		switch c.Mode {
		case categoryInclude:
			p.IncludeCategoryIDs = append(p.IncludeCategoryIDs, c.CategoryID)
		case categoryExclude:
			p.ExcludeCategoryIDs = append(p.ExcludeCategoryIDs, c.CategoryID)
		}
	}
	return plans, nil
}

// Save upserts the plan and replaces its category lists.
func (s *PlanStore) Save(ctx context.Context, p domain.Plan) error {
	return s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		exec := GetExecutor(ctx, s.db)

		_, err := exec.ExecContext(ctx, `
			INSERT INTO scrape_plans (`+planColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				schedule_type = EXCLUDED.schedule_type,
				timezone = EXCLUDED.timezone,
				run_hour = EXCLUDED.run_hour,
				run_minute = EXCLUDED.run_minute,
				days_of_week = EXCLUDED.days_of_week,
				days_of_month = EXCLUDED.days_of_month,
				once_run_at = EXCLUDED.once_run_at,
				category_strategy = EXCLUDED.category_strategy,
				interval_minutes = EXCLUDED.interval_minutes,
				max_pages = EXCLUDED.max_pages,
				max_listings = EXCLUDED.max_listings,
				page_delay_ms = EXCLUDED.page_delay_ms,
				detail_delay_ms = EXCLUDED.detail_delay_ms,
				headless = EXCLUDED.headless,
				user_agent = EXCLUDED.user_agent,
				enabled = EXCLUDED.enabled,
				summary = EXCLUDED.summary,
				next_run_at = EXCLUDED.next_run_at,
				updated_at = EXCLUDED.updated_at,
				updated_by = EXCLUDED.updated_by`,
			p.ID, p.Name, p.ScheduleType, p.Timezone, p.RunHour, p.RunMinute,
			pq.Array(toInt64s(p.DaysOfWeek)), pq.Array(toInt64s(p.DaysOfMonth)), p.OnceRunAt,
			p.CategoryStrategy, p.IntervalMinutes, p.MaxPages, p.MaxListings,
			p.PageDelayMs, p.DetailDelayMs, p.Headless, p.UserAgent, p.Enabled, p.Summary,
			p.LastRunAt, p.NextRunAt, p.UpdatedAt, p.UpdatedBy,
		)
		if err != nil {
			return fmt.Errorf("upsert plan: %w", err)
		}

		if _, err := exec.ExecContext(ctx, "DELETE FROM scrape_plan_categories WHERE plan_id = $1", p.ID); err != nil {
			return fmt.Errorf("clear plan categories: %w", err)
		}

		if err := s.insertCategories(ctx, exec, p.ID, categoryInclude, p.IncludeCategoryIDs); err != nil {
			return err
		}
		return s.insertCategories(ctx, exec, p.ID, categoryExclude, p.ExcludeCategoryIDs)
	})
}

func (s *PlanStore) insertCategories(ctx context.Context, exec sqlx.ExtContext, planID, mode string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := exec.ExecContext(ctx, `
		INSERT INTO scrape_plan_categories (plan_id, category_id, mode, position)
		SELECT $1, c.id, $2, c.ord - 1
		FROM unnest($3::text[]) WITH ORDINALITY AS c(id, ord)`,
		planID, mode, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("insert %s categories: %w", mode, err)
	}
	return nil
}

func (s *PlanStore) UpdateSchedule(ctx context.Context, id string, lastRunAt, nextRunAt *time.Time) error {
	res, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		"UPDATE scrape_plans SET last_run_at = COALESCE($2, last_run_at), next_run_at = $3 WHERE id = $1",
		id, lastRunAt, nextRunAt)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Disable switches a plan off and clears its next run.
func (s *PlanStore) Disable(ctx context.Context, id string) error {
	res, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		"UPDATE scrape_plans SET enabled = FALSE, next_run_at = NULL WHERE id = $1", id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *PlanStore) InsertRun(ctx context.Context, run domain.PlanRun) (int64, error) {
	var id int64
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &id, `
		INSERT INTO scrape_runs (plan_id, job_id, status, started_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		run.PlanID, run.JobID, run.Status, run.StartedAt)
	return id, err
}

func (s *PlanStore) FinishRun(ctx context.Context, run domain.PlanRun) error {
	res, err := GetExecutor(ctx, s.db).ExecContext(ctx, `
		UPDATE scrape_runs
		SET status = $2, error_message = $3, listings_count = $4, snapshot_path = $5, finished_at = $6
		WHERE id = $1`,
		run.ID, run.Status, run.ErrorMessage, run.ListingsCount, run.SnapshotPath, run.FinishedAt)
	if err != nil {
		return err
	}
	_, err = res.RowsAffected()
	return err
}

func (s *PlanStore) RecentRuns(ctx context.Context, planID string, limit int) ([]domain.PlanRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []domain.PlanRun
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &runs, `
		SELECT id, COALESCE(plan_id, '') AS plan_id, job_id, status, error_message,
			listings_count, snapshot_path, started_at, finished_at
		FROM scrape_runs
		WHERE plan_id = $1
		ORDER BY started_at DESC, id DESC
		LIMIT $2`, planID, limit)
	return runs, err
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrPlanNotFound
	}
	return nil
}

func toInts(in pq.Int64Array) []int {
	out := make([]int, len(in))
	for i, v := range in {
		out[i] = int(v)
	}
	return out
}

func toInt64s(in []int) []int64 {
	out := make([]int64, len(in))
	for i, v := range in {
		out[i] = int64(v)
	}
	return out
}
