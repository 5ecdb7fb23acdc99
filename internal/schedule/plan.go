package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"listing_collector/internal/domain"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// CronExpression renders a recurring plan as a standard five-field cron expression.
func CronExpression(p domain.Plan) (string, error) {
	if _, err := validate(p); err != nil {
		return "", err
	}

	var expr string
	switch p.ScheduleType {
	case domain.ScheduleDaily:
		expr = fmt.Sprintf("%d %d * * *", p.RunMinute, p.RunHour)
	case domain.ScheduleWeekly:
		expr = fmt.Sprintf("%d %d * * %s", p.RunMinute, p.RunHour, joinInts(weekdays(p.DaysOfWeek)))
	case domain.ScheduleMonthly:
		expr = fmt.Sprintf("%d %d %s * *", p.RunMinute, p.RunHour, joinInts(monthDays(p.DaysOfMonth)))
	case domain.ScheduleOnce:
		return "", ErrNoFurtherRuns
	default:
		return "", fmt.Errorf("%w: unknown schedule type %q", ErrInvalidPlan, p.ScheduleType)
	}

	if _, err := cronParser.Parse(expr); err != nil {
		return "", fmt.Errorf("%w: cron %q: %v", ErrInvalidPlan, expr, err)
	}
	return expr, nil
}

// Summary is the human readable description stored alongside a plan.
func Summary(p domain.Plan) (string, error) {
	loc, err := Location(p)
	if err != nil {
		return "", err
	}
	clock := fmt.Sprintf("%02d:%02d %s", p.RunHour, p.RunMinute, loc.String())

	if p.ScheduleType == domain.ScheduleOnce {
		if p.OnceRunAt == nil {
			return "", fmt.Errorf("%w: once plan without run time", ErrInvalidPlan)
		}
		return "once at " + p.OnceRunAt.In(loc).Format("2006-01-02 15:04") + " " + loc.String(), nil
	}

	expr, err := CronExpression(p)
	if err != nil {
		return "", err
	}

	switch p.ScheduleType {
	case domain.ScheduleWeekly:
		names := make([]string, 0, len(p.DaysOfWeek))
		for _, d := range weekdays(p.DaysOfWeek) {
			names = append(names, time.Weekday(d).String()[:3])
		}
		return fmt.Sprintf("weekly on %s at %s [%s]", strings.Join(names, ", "), clock, expr), nil
	case domain.ScheduleMonthly:
		return fmt.Sprintf("monthly on day %s at %s [%s]", joinInts(monthDays(p.DaysOfMonth)), clock, expr), nil
	default:
		return fmt.Sprintf("daily at %s [%s]", clock, expr), nil
	}
}

// Normalize validates a plan and rebuilds its derived fields: sorted day sets,
// include list without excluded ids, summary and next run.
func Normalize(p domain.Plan, now time.Time) (domain.Plan, error) {
	if p.ScheduleType == "" {
		p.ScheduleType = domain.ScheduleDaily
	}
	if p.CategoryStrategy == "" {
		p.CategoryStrategy = domain.StrategyAll
	}
	if p.CategoryStrategy != domain.StrategyAll && p.CategoryStrategy != domain.StrategyCustom {
		return p, fmt.Errorf("%w: category strategy %q", ErrInvalidPlan, p.CategoryStrategy)
	}
	if p.IntervalMinutes < 0 {
		return p, fmt.Errorf("%w: negative interval", ErrInvalidPlan)
	}
	if _, err := validate(p); err != nil {
		return p, err
	}

	if len(p.DaysOfWeek) > 0 {
		p.DaysOfWeek = sortedUnique(p.DaysOfWeek)
	}
	if len(p.DaysOfMonth) > 0 {
		p.DaysOfMonth = sortedUnique(p.DaysOfMonth)
	}
	p.ExcludeCategoryIDs = uniqueStrings(p.ExcludeCategoryIDs, nil)
	p.IncludeCategoryIDs = uniqueStrings(p.IncludeCategoryIDs, p.ExcludeCategoryIDs)

	summary, err := Summary(p)
	if err != nil {
		return p, err
	}
	p.Summary = summary

	next, err := NextRun(p, now)
	switch {
	case errors.Is(err, ErrNoFurtherRuns):
		p.NextRunAt = nil
		if p.OnceRunAt != nil && p.OnceRunAt.After(now) {
			at := p.OnceRunAt.UTC()
			p.NextRunAt = &at
		}
	case err != nil:
		return p, err
	default:
		next = next.UTC()
		p.NextRunAt = &next
	}

	p.UpdatedAt = now.UTC()
	return p, nil
}

// uniqueStrings dedupes in, keeping first occurrences in order and dropping anything in skip.
func uniqueStrings(in, skip []string) []string {
	seen := make(map[string]struct{}, len(in)+len(skip))
	for _, s := range skip {
		seen[s] = struct{}{}
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func joinInts(in []int) string {
	parts := make([]string, len(in))
	for i, v := range in {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
