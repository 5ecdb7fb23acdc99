package domain

import "time"

type ScheduleType string

const (
	ScheduleDaily   ScheduleType = "daily"
	ScheduleWeekly  ScheduleType = "weekly"
	ScheduleMonthly ScheduleType = "monthly"
	ScheduleOnce    ScheduleType = "once"
)

type CategoryStrategy string

const (
	// StrategyAll selects every catalog category except the excluded ones.
	StrategyAll CategoryStrategy = "all"
	// StrategyCustom selects only the included categories, in order.
	StrategyCustom CategoryStrategy = "custom"
)

// Plan is a recurring collection definition.
type Plan struct {
	ID                 string           `json:"id" db:"id"`
	Name               string           `json:"name" db:"name"`
	ScheduleType       ScheduleType     `json:"scheduleType" db:"schedule_type"`
	Timezone           string           `json:"timezone" db:"timezone"`
	RunHour            int              `json:"runHour" db:"run_hour"`
	RunMinute          int              `json:"runMinute" db:"run_minute"`
	DaysOfWeek         []int            `json:"daysOfWeek" db:"-"`
	DaysOfMonth        []int            `json:"daysOfMonth" db:"-"`
	OnceRunAt          *time.Time       `json:"onceRunAt,omitempty" db:"once_run_at"`
	CategoryStrategy   CategoryStrategy `json:"categoryStrategy" db:"category_strategy"`
	IncludeCategoryIDs []string         `json:"includeCategoryIds" db:"-"`
	ExcludeCategoryIDs []string         `json:"excludeCategoryIds" db:"-"`
	// IntervalMinutes is the pause between two categories of one run.
	IntervalMinutes int        `json:"intervalMinutes" db:"interval_minutes"`
	MaxPages        int        `json:"maxPages" db:"max_pages"`
	MaxListings     int        `json:"maxListings" db:"max_listings"`
	PageDelayMs     int        `json:"pageDelayMs" db:"page_delay_ms"`
	DetailDelayMs   int        `json:"detailDelayMs" db:"detail_delay_ms"`
	Headless        bool       `json:"headless" db:"headless"`
	UserAgent       string     `json:"userAgent,omitempty" db:"user_agent"`
	Enabled         bool       `json:"enabled" db:"enabled"`
	Summary         string     `json:"summary" db:"summary"`
	LastRunAt       *time.Time `json:"lastRunAt,omitempty" db:"last_run_at"`
	NextRunAt       *time.Time `json:"nextRunAt,omitempty" db:"next_run_at"`
	UpdatedAt       time.Time  `json:"updatedAt" db:"updated_at"`
	UpdatedBy       string     `json:"updatedBy,omitempty" db:"updated_by"`
}

// Category is one entry of the collectable category catalog.
type Category struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	URL  string `json:"url" yaml:"url"`
}

// PlanRun records one scheduled execution of a plan.
type PlanRun struct {
	ID            int64      `json:"id" db:"id"`
	PlanID        string     `json:"planId" db:"plan_id"`
	JobID         string     `json:"jobId" db:"job_id"`
	Status        string     `json:"status" db:"status"`
	ErrorMessage  *string    `json:"errorMessage,omitempty" db:"error_message"`
	ListingsCount *int       `json:"listingsCount,omitempty" db:"listings_count"`
	SnapshotPath  *string    `json:"snapshotPath,omitempty" db:"snapshot_path"`
	StartedAt     time.Time  `json:"startedAt" db:"started_at"`
	FinishedAt    *time.Time `json:"finishedAt,omitempty" db:"finished_at"`
}
