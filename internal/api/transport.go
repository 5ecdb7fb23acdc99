package api

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"listing_collector/internal/apperror"
	"listing_collector/internal/config"
	"listing_collector/internal/domain"
)

const (
	minPageLimit    = 1
	maxPageLimit    = 10
	minListingLimit = 10
	maxListingLimit = 1000
	minDelayMs      = 250
	maxDelayMs      = 20000
	minUserAgent    = 5
	maxUserAgent    = 256
	maxListLimit    = 100
)

type CreateJobRequest struct {
	CategoryURLs  []string           `json:"categoryUrls"`
	Selections    []domain.Selection `json:"selections"`
	PageLimit     int                `json:"pageLimit"`
	ListingLimit  int                `json:"listingLimit"`
	DelayMs       int                `json:"delayMs"`
	DetailDelayMs int                `json:"detailDelayMs"`
	Headless      *bool              `json:"headless"`
	UserAgent     *string            `json:"userAgent"`
}

func (r CreateJobRequest) Validate() *apperror.AppError {
	if len(r.CategoryURLs) == 0 {
		return apperror.New(apperror.BadRequest, "categoryUrls must contain at least one url")
	}
	for _, raw := range r.CategoryURLs {
		if !validURL(raw) {
			return apperror.New(apperror.BadRequest, fmt.Sprintf("invalid category url %q", raw))
		}
	}
	if r.PageLimit < minPageLimit || r.PageLimit > maxPageLimit {
		return apperror.New(apperror.BadRequest, fmt.Sprintf("pageLimit must be between %d and %d", minPageLimit, maxPageLimit))
	}
	if r.ListingLimit < minListingLimit || r.ListingLimit > maxListingLimit {
		return apperror.New(apperror.BadRequest, fmt.Sprintf("listingLimit must be between %d and %d", minListingLimit, maxListingLimit))
	}
	if r.DelayMs < minDelayMs || r.DelayMs > maxDelayMs {
		return apperror.New(apperror.BadRequest, fmt.Sprintf("delayMs must be between %d and %d", minDelayMs, maxDelayMs))
	}
	if r.DetailDelayMs < minDelayMs || r.DetailDelayMs > maxDelayMs {
		return apperror.New(apperror.BadRequest, fmt.Sprintf("detailDelayMs must be between %d and %d", minDelayMs, maxDelayMs))
	}
	if r.UserAgent != nil && (len(*r.UserAgent) < minUserAgent || len(*r.UserAgent) > maxUserAgent) {
		return apperror.New(apperror.BadRequest, fmt.Sprintf("userAgent must be %d to %d characters", minUserAgent, maxUserAgent))
	}
	return nil
}

func (r CreateJobRequest) Params(triggeredBy string) domain.JobParams {
	p := domain.JobParams{
		CategoryURLs:  r.CategoryURLs,
		Selections:    r.Selections,
		PageLimit:     r.PageLimit,
		ListingLimit:  r.ListingLimit,
		DelayMs:       r.DelayMs,
		DetailDelayMs: r.DetailDelayMs,
		Headless:      true,
		TriggeredBy:   triggeredBy,
	}
	if p.Selections == nil {
		p.Selections = []domain.Selection{}
	}
	if r.Headless != nil {
		p.Headless = *r.Headless
	}
	if r.UserAgent != nil {
		p.UserAgent = *r.UserAgent
	}
	return p
}

func validURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// UpdatePlanRequest carries the editable fields of a plan. Nil fields keep
// their stored value.
type UpdatePlanRequest struct {
	Name               *string                  `json:"name"`
	ScheduleType       *domain.ScheduleType     `json:"scheduleType"`
	Timezone           *string                  `json:"timezone"`
	RunHour            *int                     `json:"runHour"`
	RunMinute          *int                     `json:"runMinute"`
	DaysOfWeek         []int                    `json:"daysOfWeek"`
	DaysOfMonth        []int                    `json:"daysOfMonth"`
	OnceRunAt          *time.Time               `json:"onceRunAt"`
	CategoryStrategy   *domain.CategoryStrategy `json:"categoryStrategy"`
	IncludeCategoryIDs []string                 `json:"includeCategoryIds"`
	ExcludeCategoryIDs []string                 `json:"excludeCategoryIds"`
	IntervalMinutes    *int                     `json:"intervalMinutes"`
	MaxPages           *int                     `json:"maxPages"`
	MaxListings        *int                     `json:"maxListings"`
	PageDelayMs        *int                     `json:"pageDelayMs"`
	DetailDelayMs      *int                     `json:"detailDelayMs"`
	Headless           *bool                    `json:"headless"`
	UserAgent          *string                  `json:"userAgent"`
	Enabled            *bool                    `json:"enabled"`
	UpdatedBy          string                   `json:"updatedBy"`
}

func (r UpdatePlanRequest) Validate(catalog config.CatalogConfig) *apperror.AppError {
	if r.Timezone != nil && (len(*r.Timezone) < 2 || len(*r.Timezone) > 64) {
		return apperror.New(apperror.BadRequest, "timezone must be 2 to 64 characters")
	}
	if outOfRange(r.MaxPages, minPageLimit, maxPageLimit) {
		return apperror.New(apperror.BadRequest, fmt.Sprintf("maxPages must be between %d and %d", minPageLimit, maxPageLimit))
	}
	if outOfRange(r.MaxListings, minListingLimit, maxListingLimit) {
		return apperror.New(apperror.BadRequest, fmt.Sprintf("maxListings must be between %d and %d", minListingLimit, maxListingLimit))
	}
	if outOfRange(r.PageDelayMs, minDelayMs, maxDelayMs) {
		return apperror.New(apperror.BadRequest, fmt.Sprintf("pageDelayMs must be between %d and %d", minDelayMs, maxDelayMs))
	}
	if outOfRange(r.DetailDelayMs, minDelayMs, maxDelayMs) {
		return apperror.New(apperror.BadRequest, fmt.Sprintf("detailDelayMs must be between %d and %d", minDelayMs, maxDelayMs))
	}
	if r.UserAgent != nil && *r.UserAgent != "" && (len(*r.UserAgent) < minUserAgent || len(*r.UserAgent) > maxUserAgent) {
		return apperror.New(apperror.BadRequest, fmt.Sprintf("userAgent must be %d to %d characters", minUserAgent, maxUserAgent))
	}

	if len(catalog.Categories) == 0 {
		return nil
	}
	known := make(map[string]struct{}, len(catalog.Categories))
	for _, c := range catalog.Categories {
		known[c.ID] = struct{}{}
	}
	var unknown []string
	for _, id := range append(append([]string{}, r.IncludeCategoryIDs...), r.ExcludeCategoryIDs...) {
		if _, ok := known[id]; !ok {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		return apperror.New(apperror.BadRequest, "unknown categories: "+strings.Join(unknown, ", "))
	}
	return nil
}

// Apply overlays the request onto p.
func (r UpdatePlanRequest) Apply(p domain.Plan) domain.Plan {
	setString(&p.Name, r.Name)
	if r.ScheduleType != nil {
		p.ScheduleType = *r.ScheduleType
	}
	setString(&p.Timezone, r.Timezone)
	setInt(&p.RunHour, r.RunHour)
	setInt(&p.RunMinute, r.RunMinute)
	if r.DaysOfWeek != nil {
		p.DaysOfWeek = r.DaysOfWeek
	}
	if r.DaysOfMonth != nil {
		p.DaysOfMonth = r.DaysOfMonth
	}
	if r.OnceRunAt != nil {
		p.OnceRunAt = r.OnceRunAt
	}
	if r.CategoryStrategy != nil {
		p.CategoryStrategy = *r.CategoryStrategy
	}
	if r.IncludeCategoryIDs != nil {
		p.IncludeCategoryIDs = r.IncludeCategoryIDs
	}
	if r.ExcludeCategoryIDs != nil {
		p.ExcludeCategoryIDs = r.ExcludeCategoryIDs
	}
	setInt(&p.IntervalMinutes, r.IntervalMinutes)
	setInt(&p.MaxPages, r.MaxPages)
	setInt(&p.MaxListings, r.MaxListings)
	setInt(&p.PageDelayMs, r.PageDelayMs)
	setInt(&p.DetailDelayMs, r.DetailDelayMs)
	if r.Headless != nil {
		p.Headless = *r.Headless
	}
	setString(&p.UserAgent, r.UserAgent)
	if r.Enabled != nil {
		p.Enabled = *r.Enabled
	}
	p.UpdatedBy = r.UpdatedBy
	return p
}

// outOfRange treats nil and zero as unset.
func outOfRange(v *int, lo, hi int) bool {
	return v != nil && *v != 0 && (*v < lo || *v > hi)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
