package collector

import (
	"strconv"
	"strings"
)

// BuildEnv derives the worker environment from the job parameters.
func BuildEnv(cfg Config) []string {
	p := cfg.Params
	env := []string{
		"SCRAPE_CATEGORY_URLS=" + strings.Join(p.CategoryURLs, ","),
		"SCRAPE_MAX_PAGES=" + strconv.Itoa(p.PageLimit),
		"SCRAPE_MAX_LISTINGS=" + strconv.Itoa(p.ListingLimit),
		"SCRAPE_DELAY_MS=" + strconv.Itoa(p.DelayMs),
		"SCRAPE_DETAIL_DELAY_MS=" + strconv.Itoa(p.DetailDelayMs),
		"SCRAPE_CATEGORY_DELAY_MS=" + strconv.Itoa(p.CategoryDelayMs),
		"SCRAPE_HEADLESS=" + strconv.FormatBool(p.Headless),
		"SCRAPE_JOB_ID=" + cfg.JobID,
	}
	if ua := strings.TrimSpace(p.UserAgent); ua != "" {
		env = append(env, "SCRAPE_USER_AGENT="+ua)
	}
	if cfg.OutputDir != "" {
		env = append(env, "SCRAPE_OUTPUT_DIR="+cfg.OutputDir)
	}
	return env
}
