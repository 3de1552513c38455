// Package timer schedules the deferred board-timer expiration. Each
// board carries a generation counter; bumping it on every start or stop
// logically cancels any pending callback without needing the schedule
// itself to be cancellable. Callbacks must additionally re-check
// persisted state before acting, since a callback can fire between a
// mutation and its bump.
package timer

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Scheduler runs at most one logically live deferred transition per
// board.
type Scheduler struct {
	mu          sync.Mutex
	generations map[uuid.UUID]uint64
}

// NewScheduler creates an empty Scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{generations: make(map[uuid.UUID]uint64)}
}

// Schedule bumps the board's generation and arms fn to run after d.
// fn only runs if no later Schedule or Cancel superseded it.
func (s *Scheduler) Schedule(boardID uuid.UUID, d time.Duration, fn func()) {
	s.mu.Lock()
	s.generations[boardID]++
	gen := s.generations[boardID]
	s.mu.Unlock()

	time.AfterFunc(d, func() {
		if !s.owns(boardID, gen) {
			return
		}
		fn()
	})
}

// Cancel invalidates any pending callback for the board.
func (s *Scheduler) Cancel(boardID uuid.UUID) {
	s.mu.Lock()
	s.generations[boardID]++
	s.mu.Unlock()
}

// Forget drops the board's generation state once the board itself is
// gone. Pending callbacks observe the missing entry and become no-ops.
func (s *Scheduler) Forget(boardID uuid.UUID) {
	s.mu.Lock()
	delete(s.generations, boardID)
	s.mu.Unlock()
}

func (s *Scheduler) owns(boardID uuid.UUID, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.generations[boardID]
	return ok && current == gen
}
