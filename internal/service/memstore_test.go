package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"listing_collector/internal/domain"
)

// memStore keeps canonical tables in memory with the same keys and conflict
// rules as the postgres stores.
type memStore struct {
	mu sync.Mutex

	raw      map[string][]domain.RawListing
	listings map[string]domain.CanonicalListing
	stats    map[string]domain.DailyStat
	changes  []domain.PriceChange
	nextID   int

	failStats error
	writes    []string
}

func newMemStore() *memStore {
	return &memStore{
		raw:      make(map[string][]domain.RawListing),
		listings: make(map[string]domain.CanonicalListing),
		stats:    make(map[string]domain.DailyStat),
	}
}

type memRaw struct{ *memStore }
type memListings struct{ *memStore }
type memStats struct{ *memStore }
type memChanges struct{ *memStore }

func (m memRaw) InsertBatch(_ context.Context, jobID string, _ time.Time, items []domain.RawListing) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := m.raw[jobID]
	for _, item := range items {
		replaced := false
		for i := range rows {
			if rows[i].RemoteID == item.RemoteID {
				rows[i] = item
				replaced = true
			}
		}
		if !replaced {
			rows = append(rows, item)
		}
	}
	m.raw[jobID] = rows
	return len(items), nil
}

func (m memRaw) ListByJob(_ context.Context, jobID string) ([]domain.RawListing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.RawListing(nil), m.raw[jobID]...), nil
}

func (m memListings) GetByRemoteIDs(_ context.Context, remoteIDs []string) (map[string]domain.CanonicalListing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]domain.CanonicalListing)
	for _, id := range remoteIDs {
		if l, ok := m.listings[id]; ok {
			out[id] = l
		}
	}
	return out, nil
}

func (m memListings) UpsertBatch(_ context.Context, listings []domain.CanonicalListing) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.writes = append(m.writes, "listings")
	for _, l := range listings {
		if prev, ok := m.listings[l.RemoteID]; ok {
			l.ID = prev.ID
			l.FirstSeenAt = prev.FirstSeenAt
		} else {
			m.nextID++
			l.ID = fmt.Sprintf("lst-%d", m.nextID)
		}
		m.listings[l.RemoteID] = l
	}
	return len(listings), nil
}

func (m memListings) InfoByRemoteIDs(_ context.Context, remoteIDs []string) (map[string]domain.ListingInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]domain.ListingInfo)
	for _, id := range remoteIDs {
		if l, ok := m.listings[id]; ok {
			out[id] = domain.ListingInfo{ID: l.ID, RemoteID: l.RemoteID, PriceCurrent: l.PriceCurrent}
		}
	}
	return out, nil
}

func (m memStats) UpsertBatch(_ context.Context, stats []domain.DailyStat) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failStats != nil {
		return 0, m.failStats
	}
	m.writes = append(m.writes, "stats")
	for _, st := range stats {
		if _, ok := m.findListing(st.ListingID); !ok {
			return 0, fmt.Errorf("listing %s does not exist", st.ListingID)
		}
		m.stats[st.ListingID+"/"+st.SnapshotDate] = st
	}
	return len(stats), nil
}

func (m memChanges) InsertBatch(_ context.Context, changes []domain.PriceChange) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.writes = append(m.writes, "changes")
	m.changes = append(m.changes, changes...)
	return len(changes), nil
}

func (m *memStore) findListing(id string) (domain.CanonicalListing, bool) {
	for _, l := range m.listings {
		if l.ID == id {
			return l, true
		}
	}
	return domain.CanonicalListing{}, false
}

func (m *memStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (m *memStore) reconciler(cfg ...int) *Reconciler {
	rc := reconcileConfig(cfg...)
	return NewReconciler(memRaw{m}, memListings{m}, memStats{m}, memChanges{m}, m, discardLogger(), rc)
}
