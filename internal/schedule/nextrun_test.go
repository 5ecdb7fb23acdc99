package schedule

import (
	"math/rand"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listing_collector/internal/domain"
)

func utc(y int, m time.Month, d, h, mi int) time.Time {
	return time.Date(y, m, d, h, mi, 0, 0, time.UTC)
}

func TestNextRun_Daily(t *testing.T) {
	plan := domain.Plan{ScheduleType: domain.ScheduleDaily, Timezone: "UTC", RunHour: 2}

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"before target today", utc(2025, 3, 10, 1, 0), utc(2025, 3, 10, 2, 0)},
		{"after target today", utc(2025, 3, 10, 3, 0), utc(2025, 3, 11, 2, 0)},
		{"exactly at target", utc(2025, 3, 10, 2, 0), utc(2025, 3, 11, 2, 0)},
		{"month rollover", utc(2025, 1, 31, 23, 0), utc(2025, 2, 1, 2, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextRun(plan, tt.now)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestNextRun_DailyInPlanTimezone(t *testing.T) {
	plan := domain.Plan{ScheduleType: domain.ScheduleDaily, Timezone: "Asia/Baku", RunHour: 2}

	// 23:00 UTC is already 03:00 next day in Baku (UTC+4)
	got, err := NextRun(plan, utc(2025, 3, 10, 23, 0))

	require.NoError(t, err)
	assert.True(t, utc(2025, 3, 11, 22, 0).Equal(got), "got %s", got.UTC())
}

func TestNextRun_Weekly(t *testing.T) {
	// 2025-03-11 is a Tuesday
	plan := domain.Plan{
		ScheduleType: domain.ScheduleWeekly,
		Timezone:     "UTC",
		RunHour:      6,
		RunMinute:    30,
		DaysOfWeek:   []int{int(time.Monday), int(time.Wednesday)},
	}

	got, err := NextRun(plan, utc(2025, 3, 11, 10, 0))
	require.NoError(t, err)
	assert.True(t, utc(2025, 3, 12, 6, 30).Equal(got), "got %s", got)

	got, err = NextRun(plan, utc(2025, 3, 12, 6, 30))
	require.NoError(t, err)
	assert.True(t, utc(2025, 3, 17, 6, 30).Equal(got), "got %s", got)
}

func TestNextRun_WeeklySameDayNextWeek(t *testing.T) {
	plan := domain.Plan{ScheduleType: domain.ScheduleWeekly, RunHour: 6, DaysOfWeek: []int{int(time.Tuesday)}}

	got, err := NextRun(plan, utc(2025, 3, 11, 10, 0))

	require.NoError(t, err)
	assert.True(t, utc(2025, 3, 18, 6, 0).Equal(got), "got %s", got)
}

func TestNextRun_WeeklyEmptySetDefaultsToMonday(t *testing.T) {
	plan := domain.Plan{ScheduleType: domain.ScheduleWeekly, RunHour: 6}

	got, err := NextRun(plan, utc(2025, 3, 11, 10, 0))

	require.NoError(t, err)
	assert.Equal(t, time.Monday, got.Weekday())
	assert.True(t, utc(2025, 3, 17, 6, 0).Equal(got), "got %s", got)
}

func TestNextRun_Monthly(t *testing.T) {
	tests := []struct {
		name string
		days []int
		now  time.Time
		want time.Time
	}{
		{"later this month", []int{1, 15}, utc(2025, 3, 10, 0, 0), utc(2025, 3, 15, 4, 0)},
		{"wraps to next month", []int{1, 15}, utc(2025, 3, 20, 0, 0), utc(2025, 4, 1, 4, 0)},
		{"empty defaults to first", nil, utc(2025, 3, 1, 5, 0), utc(2025, 4, 1, 4, 0)},
		{"skips short months", []int{31}, utc(2025, 3, 31, 5, 0), utc(2025, 5, 31, 4, 0)},
		{"february has no 30th", []int{30}, utc(2025, 1, 30, 5, 0), utc(2025, 3, 30, 4, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := domain.Plan{ScheduleType: domain.ScheduleMonthly, RunHour: 4, DaysOfMonth: tt.days}
			got, err := NextRun(plan, tt.now)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestNextRun_Once(t *testing.T) {
	at := utc(2025, 3, 12, 0, 0)
	_, err := NextRun(domain.Plan{ScheduleType: domain.ScheduleOnce, OnceRunAt: &at}, utc(2025, 3, 10, 0, 0))

	assert.ErrorIs(t, err, ErrNoFurtherRuns)
}

func TestNextRun_InvalidPlans(t *testing.T) {
	tests := []struct {
		name string
		plan domain.Plan
	}{
		{"unknown timezone", domain.Plan{ScheduleType: domain.ScheduleDaily, Timezone: "Mars/Olympus"}},
		{"hour out of range", domain.Plan{ScheduleType: domain.ScheduleDaily, RunHour: 24}},
		{"minute out of range", domain.Plan{ScheduleType: domain.ScheduleDaily, RunMinute: -1}},
		{"weekday out of range", domain.Plan{ScheduleType: domain.ScheduleWeekly, DaysOfWeek: []int{7}}},
		{"day of month out of range", domain.Plan{ScheduleType: domain.ScheduleMonthly, DaysOfMonth: []int{0}}},
		{"unknown type", domain.Plan{ScheduleType: "hourly"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NextRun(tt.plan, utc(2025, 3, 10, 0, 0))
			assert.ErrorIs(t, err, ErrInvalidPlan)
		})
	}
}

func TestNextRun_AgreesWithCron(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	zones := []string{"UTC", "Asia/Baku", "Asia/Tokyo"}
	start := utc(2024, 1, 1, 0, 0)

	for i := 0; i < 500; i++ {
		plan := domain.Plan{
			Timezone:  zones[rng.Intn(len(zones))],
			RunHour:   rng.Intn(24),
			RunMinute: rng.Intn(60),
		}
		switch i % 3 {
		case 0:
			plan.ScheduleType = domain.ScheduleDaily
		case 1:
			plan.ScheduleType = domain.ScheduleWeekly
			for n := rng.Intn(4); n > 0; n-- {
				plan.DaysOfWeek = append(plan.DaysOfWeek, rng.Intn(7))
			}
		case 2:
			plan.ScheduleType = domain.ScheduleMonthly
			for n := rng.Intn(4); n > 0; n-- {
				plan.DaysOfMonth = append(plan.DaysOfMonth, 1+rng.Intn(31))
			}
		}
		now := start.Add(time.Duration(rng.Int63n(int64(2 * 365 * 24 * time.Hour)))).Truncate(time.Minute)

		expr, err := CronExpression(plan)
		require.NoError(t, err)
		sched, err := cron.ParseStandard("CRON_TZ=" + plan.Timezone + " " + expr)
		require.NoError(t, err)

		got, err := NextRun(plan, now)
		require.NoError(t, err, "plan %+v now %s", plan, now)

		assert.True(t, got.After(now), "plan %+v now %s got %s", plan, now, got)
		assert.True(t, sched.Next(now).Equal(got), "plan %+v now %s: cron %s, got %s", plan, now, sched.Next(now), got)
	}
}
