// Package snapshot loads collector snapshot files into raw listings.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"listing_collector/internal/domain"
)

// ErrNotFound is returned when the snapshot location does not exist.
var ErrNotFound = errors.New("snapshot not found")

// Config holds settings for snapshots published over HTTP.
type Config struct {
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Loader reads snapshots from a local path or an http(s) URL.
type Loader struct {
	httpClient     *http.Client
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         *slog.Logger
}

func NewLoader(cfg Config, logger *slog.Logger) *Loader {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	return &Loader{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		maxAttempts:    cfg.MaxAttempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		logger:         logger.With("component", "snapshot"),
	}
}

func (l *Loader) Load(ctx context.Context, location string) (*domain.Snapshot, error) {
	var file *File
	var err error
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		file, err = l.fetch(ctx, location)
	} else {
		file, err = l.read(location)
	}
	if err != nil {
		return nil, err
	}

	snap := l.transform(file)
	l.logger.Debug("snapshot loaded",
		"location", location,
		"items", len(file.Items),
		"accepted", len(snap.Items),
	)
	return snap, nil
}

func (l *Loader) read(path string) (*File, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	return decode(f)
}

func (l *Loader) fetch(ctx context.Context, url string) (*File, error) {
	var file *File
	var err error

	for attempt := 1; attempt <= l.maxAttempts; attempt++ {
		file, err = l.doRequest(ctx, url)
		if err == nil || errors.Is(err, ErrNotFound) {
			return file, err
		}

		if attempt == l.maxAttempts {
			break
		}

		backoff := l.calculateBackoff(attempt)
		l.logger.Warn("snapshot request failed, retrying",
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return nil, fmt.Errorf("after %d attempts: %w", l.maxAttempts, err)
}

func (l *Loader) doRequest(ctx context.Context, url string) (*File, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, url)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	return decode(resp.Body)
}

func (l *Loader) calculateBackoff(attempt int) time.Duration {
	backoff := l.initialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	if backoff > l.maxBackoff {
		backoff = l.maxBackoff
	}
	return backoff
}

func decode(r io.Reader) (*File, error) {
	var file File
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &file, nil
}

func (l *Loader) transform(file *File) *domain.Snapshot {
	snap := &domain.Snapshot{
		CategoryURLs: file.CategoryURLs,
		Total:        file.Total,
		Items:        make([]domain.RawListing, 0, len(file.Items)),
	}
	if t, ok := parseTime(&file.ScrapedAt); ok {
		snap.ScrapedAt = t
	}

	for _, it := range file.Items {
		remoteID := strings.TrimSpace(it.TapID)
		if remoteID == "" {
			remoteID = strings.TrimSpace(it.RemoteID)
		}
		if remoteID == "" {
			l.logger.Warn("skipping snapshot item without remote id", "url", deref(it.URL))
			continue
		}

		raw := domain.RawListing{
			RemoteID:        remoteID,
			Title:           it.Title,
			Price:           it.Price,
			Currency:        it.Currency,
			Location:        it.Location,
			URL:             it.URL,
			ImageURL:        it.ImageURL,
			CategorySlug:    it.CategorySlug,
			SubcategorySlug: it.SubcategorySlug,
			Description:     it.Description,
			SellerName:      it.SellerName,
			SellerType:      it.SellerType,
			PostedAtText:    it.PostedAtText,
			ConditionLabel:  it.ConditionLabel,
			ViewCount:       it.ViewCount,
			FavoritesCount:  it.FavoritesCount,
			IsNew:           it.IsNew,
			Raw:             it.Raw,
		}
		if t, ok := parseTime(it.PostedAtISO); ok {
			raw.PostedAt = &t
		} else if it.PostedAtISO != nil {
			l.logger.Warn("failed to parse posted date", "remote_id", remoteID, "date", *it.PostedAtISO)
		}
		if t, ok := parseTime(it.FetchedAt); ok {
			raw.FetchedAt = &t
		}

		snap.Items = append(snap.Items, raw)
	}

	snap.Items = DedupeByRemoteID(snap.Items)
	return snap
}

// DedupeByRemoteID concatenates pages of listings keeping the first
// occurrence of every remote id, in order.
func DedupeByRemoteID(pages ...[]domain.RawListing) []domain.RawListing {
	var n int
	for _, p := range pages {
		n += len(p)
	}

	seen := make(map[string]struct{}, n)
	out := make([]domain.RawListing, 0, n)
	for _, page := range pages {
		for _, item := range page {
			if _, ok := seen[item.RemoteID]; ok {
				continue
			}
			seen[item.RemoteID] = struct{}{}
			out = append(out, item)
		}
	}
	return out
}

func parseTime(s *string) (time.Time, bool) {
	if s == nil || *s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, *s)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
