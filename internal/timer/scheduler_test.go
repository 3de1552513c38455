package timer

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestScheduler_FiresAfterDelay(t *testing.T) {
	s := NewScheduler()
	boardID := uuid.New()

	var fired atomic.Int32
	s.Schedule(boardID, 10*time.Millisecond, func() { fired.Add(1) })

	assert.Eventually(t, func() bool { return fired.Load() == 1 },
		time.Second, 5*time.Millisecond)
}

func TestScheduler_CancelSuppressesPending(t *testing.T) {
	s := NewScheduler()
	boardID := uuid.New()

	var fired atomic.Int32
	s.Schedule(boardID, 30*time.Millisecond, func() { fired.Add(1) })
	s.Cancel(boardID)

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load(), "cancelled callback must not fire")
}

func TestScheduler_RescheduleSupersedesOld(t *testing.T) {
	s := NewScheduler()
	boardID := uuid.New()

	var old, current atomic.Int32
	s.Schedule(boardID, 30*time.Millisecond, func() { old.Add(1) })
	s.Schedule(boardID, 60*time.Millisecond, func() { current.Add(1) })

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(0), old.Load(), "superseded callback must not fire")
	assert.Equal(t, int32(1), current.Load(), "latest schedule fires once")
}

func TestScheduler_ForgetDropsBoard(t *testing.T) {
	s := NewScheduler()
	boardID := uuid.New()

	var fired atomic.Int32
	s.Schedule(boardID, 30*time.Millisecond, func() { fired.Add(1) })
	s.Forget(boardID)

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
}

func TestScheduler_BoardsAreIndependent(t *testing.T) {
	s := NewScheduler()
	a, b := uuid.New(), uuid.New()

	var firedA, firedB atomic.Int32
	s.Schedule(a, 20*time.Millisecond, func() { firedA.Add(1) })
	s.Schedule(b, 20*time.Millisecond, func() { firedB.Add(1) })
	s.Cancel(a)

	assert.Eventually(t, func() bool { return firedB.Load() == 1 },
		time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(0), firedA.Load())
}
