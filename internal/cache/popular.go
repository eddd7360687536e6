// Package cache holds the process-wide popular listing snapshot.
package cache

import (
	"sync"
	"time"

	"github.com/gabriel/manhwa-hub/backend/internal/models"
)

const (
	DefaultTTL  = 15 * time.Minute
	DefaultSize = 8
)

// Popular keeps the first items of a listing pass for ttl. Contents are only
// ever replaced as a whole, never merged.
type Popular struct {
	mu          sync.RWMutex
	items       []models.ListingItem
	refreshedAt time.Time
	ttl         time.Duration
	size        int
	now         func() time.Time
}

func New(ttl time.Duration, size int, clock func() time.Time) *Popular {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if size <= 0 {
		size = DefaultSize
	}
	if clock == nil {
		clock = time.Now
	}
	return &Popular{ttl: ttl, size: size, now: clock}
}

// Snapshot returns a copy of the cached items, or an empty slice once expired.
func (p *Popular) Snapshot() []models.ListingItem {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.staleLocked() {
		return []models.ListingItem{}
	}
	out := make([]models.ListingItem, len(p.items))
	copy(out, p.items)
	return out
}

// RefreshIfStale stores the first size candidates when the cache is empty or
// expired. It reports whether a replacement happened.
func (p *Popular) RefreshIfStale(candidates []models.ListingItem) bool {
	if len(candidates) == 0 {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.staleLocked() {
		return false
	}

	limit := len(candidates)
	if limit > p.size {
		limit = p.size
	}
	next := make([]models.ListingItem, limit)
	copy(next, candidates[:limit])

	p.items = next
	p.refreshedAt = p.now()
	return true
}

func (p *Popular) RefreshedAt() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.refreshedAt
}

func (p *Popular) TTL() time.Duration {
	return p.ttl
}

func (p *Popular) staleLocked() bool {
	if len(p.items) == 0 {
		return true
	}
	return p.now().Sub(p.refreshedAt) > p.ttl
}
