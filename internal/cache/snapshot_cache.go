// Package cache holds the in-process board snapshot cache. Entries
// expire on a sliding TTL: reads and writes both re-arm the eviction
// timer, so an actively used board never falls out of the cache.
package cache

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"retro-board-api/internal/dto"
)

// DefaultTTL is the sliding expiration window for cached snapshots.
const DefaultTTL = 20 * time.Minute

type entry struct {
	snapshot *dto.BoardSnapshot
	timer    *time.Timer
	deadline time.Time
}

// SnapshotCache maps board id to its assembled snapshot. Entries are
// independent per board; a single mutex guards the map itself.
type SnapshotCache struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*entry
	ttl     time.Duration
}

// New creates a SnapshotCache with the default TTL.
func New() *SnapshotCache {
	return NewWithTTL(DefaultTTL)
}

// NewWithTTL creates a SnapshotCache with a custom TTL.
func NewWithTTL(ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{
		entries: make(map[uuid.UUID]*entry),
		ttl:     ttl,
	}
}

// Put stores a snapshot, replacing any existing entry and resetting its
// expiration deadline.
func (c *SnapshotCache) Put(boardID uuid.UUID, snapshot *dto.BoardSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[boardID]; ok {
		e.timer.Stop()
	}
	c.entries[boardID] = &entry{
		snapshot: snapshot,
		timer:    time.AfterFunc(c.ttl, func() { c.expire(boardID) }),
		deadline: time.Now().Add(c.ttl),
	}
}

// Get returns the cached snapshot and refreshes its deadline. Reads
// count as use, so the TTL slides.
func (c *SnapshotCache) Get(boardID uuid.UUID) (*dto.BoardSnapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[boardID]
	if !ok {
		return nil, false
	}
	e.timer.Stop()
	e.timer = time.AfterFunc(c.ttl, func() { c.expire(boardID) })
	e.deadline = time.Now().Add(c.ttl)
	return e.snapshot, true
}

// Invalidate drops the entry for a board, if any.
func (c *SnapshotCache) Invalidate(boardID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[boardID]; ok {
		e.timer.Stop()
		delete(c.entries, boardID)
	}
}

// Len returns the number of cached boards.
func (c *SnapshotCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// expire runs on a per-entry timer. A timer that lost the race against
// a concurrent refresh must not evict the refreshed entry, so the
// deadline is re-checked under the lock.
func (c *SnapshotCache) expire(boardID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[boardID]
	if !ok {
		return
	}
	if time.Now().Before(e.deadline) {
		return
	}
	delete(c.entries, boardID)
}
