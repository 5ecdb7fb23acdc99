package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listing_collector/internal/domain"
	"listing_collector/testdata/utils"
)

var planCols = []string{
	"id", "name", "schedule_type", "timezone", "run_hour", "run_minute", "days_of_week",
	"days_of_month", "once_run_at", "category_strategy", "interval_minutes", "max_pages", "max_listings",
	"page_delay_ms", "detail_delay_ms", "headless", "user_agent", "enabled", "summary", "last_run_at",
	"next_run_at", "updated_at", "updated_by",
}

func TestPlanStore_DuePlans(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Date(2025, 3, 11, 22, 0, 0, 0, time.UTC)
	next := now.Add(-time.Minute)

	mock.ExpectQuery(regexp.QuoteMeta("FROM scrape_plans WHERE enabled AND next_run_at IS NOT NULL AND next_run_at <= $1")).
		WithArgs(now).
		WillReturnRows(sqlmock.NewRows(planCols).
			AddRow("nightly", "Nightly", "weekly", "Asia/Baku", 2, 0, []byte("{1,3}"),
				[]byte("{}"), nil, "custom", 5, 2, 200,
				1500, 2200, true, "", true, "weekly on Mon, Wed at 02:00 Asia/Baku [0 2 * * 1,3]", nil,
				next, now, "admin"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM scrape_plan_categories")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"plan_id", "category_id", "mode"}).
			AddRow("nightly", "realty", "exclude").
			AddRow("nightly", "phones", "include").
			AddRow("nightly", "cars", "include"))

	plans, err := NewPlanStore(db, NewTransactionManager(db)).DuePlans(context.Background(), now)

	require.NoError(t, err)
	require.Len(t, plans, 1)
	p := plans[0]
	assert.Equal(t, domain.ScheduleWeekly, p.ScheduleType)
	assert.Equal(t, []int{1, 3}, p.DaysOfWeek)
	assert.Empty(t, p.DaysOfMonth)
	assert.Equal(t, domain.StrategyCustom, p.CategoryStrategy)
	assert.Equal(t, []string{"phones", "cars"}, p.IncludeCategoryIDs)
	assert.Equal(t, []string{"realty"}, p.ExcludeCategoryIDs)
	require.NotNil(t, p.NextRunAt)
	assert.True(t, next.Equal(*p.NextRunAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanStore_GetNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("FROM scrape_plans WHERE id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(planCols))

	_, err := NewPlanStore(db, NewTransactionManager(db)).Get(context.Background(), "missing")

	assert.ErrorIs(t, err, ErrPlanNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanStore_SaveReplacesCategoriesInOneTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO scrape_plans").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM scrape_plan_categories WHERE plan_id = $1")).
		WithArgs("nightly").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("INSERT INTO scrape_plan_categories").
		WithArgs("nightly", "include", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := NewPlanStore(db, NewTransactionManager(db)).Save(context.Background(), domain.Plan{
		ID:                 "nightly",
		ScheduleType:       domain.ScheduleDaily,
		CategoryStrategy:   domain.StrategyCustom,
		IncludeCategoryIDs: []string{"phones", "cars"},
		UpdatedAt:          now,
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanStore_UpdateScheduleUnknownPlan(t *testing.T) {
	db, mock := newMockDB(t)
	next := time.Date(2025, 3, 12, 22, 0, 0, 0, time.UTC)
	mock.ExpectExec("UPDATE scrape_plans SET last_run_at").
		WithArgs("gone", nil, next).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewPlanStore(db, NewTransactionManager(db)).UpdateSchedule(context.Background(), "gone", nil, &next)

	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestPlanStore_Runs(t *testing.T) {
	db, mock := newMockDB(t)
	started := time.Date(2025, 3, 11, 22, 0, 0, 0, time.UTC)
	finished := started.Add(4 * time.Minute)
	store := NewPlanStore(db, NewTransactionManager(db))

	mock.ExpectQuery("INSERT INTO scrape_runs").
		WithArgs("nightly", "job-1", "running", started).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectExec("UPDATE scrape_runs").
		WithArgs(int64(42), "success", nil, 120, "data/snapshots/tapaz-live.json", finished).
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := store.InsertRun(context.Background(), domain.PlanRun{
		PlanID: "nightly", JobID: "job-1", Status: "running", StartedAt: started,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	err = store.FinishRun(context.Background(), domain.PlanRun{
		ID:            id,
		Status:        "success",
		ListingsCount: utils.Ptr(120),
		SnapshotPath:  utils.Ptr("data/snapshots/tapaz-live.json"),
		FinishedAt:    &finished,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
