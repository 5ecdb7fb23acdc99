// Package schedule computes when recurring collection plans are due.
package schedule

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"listing_collector/internal/domain"
)

var (
	// ErrNoFurtherRuns is returned for plans that never recur.
	ErrNoFurtherRuns = errors.New("no further runs")
	// ErrScheduleExhausted means no matching day was found inside the lookahead window.
	ErrScheduleExhausted = errors.New("schedule exhausted")
	ErrInvalidPlan       = errors.New("invalid plan")
)

const (
	monthlyLookaheadDays = 62
	weeklyLookaheadDays  = 7
	defaultWeekday       = int(time.Monday)
	defaultMonthDay      = 1
)

// NextRun returns the first instant strictly after now at which the plan is due.
func NextRun(p domain.Plan, now time.Time) (time.Time, error) {
	loc, err := validate(p)
	if err != nil {
		return time.Time{}, err
	}

	local := now.In(loc)
	at := func(offset int) time.Time {
		return time.Date(local.Year(), local.Month(), local.Day()+offset, p.RunHour, p.RunMinute, 0, 0, loc)
	}

	switch p.ScheduleType {
	case domain.ScheduleDaily:
		// a DST gap can push the wall time of today's candidate past now
		for offset := 0; ; offset++ {
			if candidate := at(offset); candidate.After(now) {
				return candidate, nil
			}
		}

	case domain.ScheduleWeekly:
		days := weekdays(p.DaysOfWeek)
		for offset := 0; offset <= weeklyLookaheadDays; offset++ {
			candidate := at(offset)
			if slices.Contains(days, int(candidate.Weekday())) && candidate.After(now) {
				return candidate, nil
			}
		}
		shift := (days[0] - int(local.Weekday()) + 7) % 7
		return at(shift + 7), nil

	case domain.ScheduleMonthly:
		days := monthDays(p.DaysOfMonth)
		for offset := 0; offset < monthlyLookaheadDays; offset++ {
			candidate := at(offset)
			if slices.Contains(days, candidate.Day()) && candidate.After(now) {
				return candidate, nil
			}
		}
		return time.Time{}, fmt.Errorf("%w: no day in %v within %d days of %s",
			ErrScheduleExhausted, days, monthlyLookaheadDays, now.Format(time.RFC3339))

	case domain.ScheduleOnce:
		return time.Time{}, ErrNoFurtherRuns
	}

	return time.Time{}, fmt.Errorf("%w: unknown schedule type %q", ErrInvalidPlan, p.ScheduleType)
}

// Location resolves the plan timezone, defaulting to UTC.
func Location(p domain.Plan) (*time.Location, error) {
	if p.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %v", ErrInvalidPlan, p.Timezone, err)
	}
	return loc, nil
}

func validate(p domain.Plan) (*time.Location, error) {
	loc, err := Location(p)
	if err != nil {
		return nil, err
	}
	if p.RunHour < 0 || p.RunHour > 23 {
		return nil, fmt.Errorf("%w: run hour %d", ErrInvalidPlan, p.RunHour)
	}
	if p.RunMinute < 0 || p.RunMinute > 59 {
		return nil, fmt.Errorf("%w: run minute %d", ErrInvalidPlan, p.RunMinute)
	}
	for _, d := range p.DaysOfWeek {
		if d < 0 || d > 6 {
			return nil, fmt.Errorf("%w: weekday %d", ErrInvalidPlan, d)
		}
	}
	for _, d := range p.DaysOfMonth {
		if d < 1 || d > 31 {
			return nil, fmt.Errorf("%w: day of month %d", ErrInvalidPlan, d)
		}
	}
	return loc, nil
}

func weekdays(in []int) []int {
	if len(in) == 0 {
		return []int{defaultWeekday}
	}
	return sortedUnique(in)
}

func monthDays(in []int) []int {
	if len(in) == 0 {
		return []int{defaultMonthDay}
	}
	return sortedUnique(in)
}

func sortedUnique(in []int) []int {
	out := slices.Clone(in)
	slices.Sort(out)
	return slices.Compact(out)
}
