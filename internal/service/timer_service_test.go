package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retro-board-api/internal/event"
	"retro-board-api/internal/response"
)

// shrinkTick makes one timer unit a few milliseconds so expiry paths
// run inside the test.
func shrinkTick(env *testEnv, d time.Duration) {
	env.timers.(*timerServiceImpl).tick = d
}

func TestStartTimer_UnlocksAndExpires(t *testing.T) {
	env := newTestEnv(t)
	shrinkTick(env, 10*time.Millisecond)
	ctx := context.Background()

	resp := env.createBoard(t)
	adminConn := env.join(t, resp.BoardID, "admin", "", true)
	env.broadcaster.reset()

	require.NoError(t, env.timers.Start(ctx, adminConn, &event.StartTimerPayload{
		BoardID:  resp.BoardID,
		Duration: 2,
	}))

	board, err := env.boardRepo.FindByID(ctx, resp.BoardID)
	require.NoError(t, err)
	assert.True(t, board.TimerActive)
	assert.False(t, board.IsLocked, "a running timer unlocks the board")
	assert.Equal(t, 2, board.TimerDuration)
	require.NotNil(t, board.TimerEndsAt)

	assert.Equal(t, []string{event.TimerStarted, event.BoardLocked, event.BoardState},
		env.broadcaster.boardEventNames(resp.BoardID))

	// Expiry re-locks and announces the full sequence.
	require.Eventually(t, func() bool {
		names := env.broadcaster.boardEventNames(resp.BoardID)
		return len(names) >= 7 && names[len(names)-4] == event.TimerEnded
	}, time.Second, 5*time.Millisecond)

	board, err = env.boardRepo.FindByID(ctx, resp.BoardID)
	require.NoError(t, err)
	assert.False(t, board.TimerActive)
	assert.True(t, board.IsLocked, "expiry re-locks the board")

	names := env.broadcaster.boardEventNames(resp.BoardID)
	assert.Equal(t, []string{event.TimerEnded, event.TimerStopped, event.BoardLocked, event.BoardState},
		names[len(names)-4:])
}

func TestStartTimer_RejectsNonPositiveDuration(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp := env.createBoard(t)
	adminConn := env.join(t, resp.BoardID, "admin", "", true)

	for _, duration := range []int{0, -5} {
		err := env.timers.Start(ctx, adminConn, &event.StartTimerPayload{
			BoardID:  resp.BoardID,
			Duration: duration,
		})
		var appErr *response.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, response.ErrCodeValidation, appErr.Code)
	}
}

func TestStartTimer_NonAdminIsSilent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp := env.createBoard(t)
	danaConn := env.join(t, resp.BoardID, "dana", resp.InviteCode, false)
	env.broadcaster.reset()

	require.NoError(t, env.timers.Start(ctx, danaConn, &event.StartTimerPayload{
		BoardID:  resp.BoardID,
		Duration: 5,
	}))

	board, err := env.boardRepo.FindByID(ctx, resp.BoardID)
	require.NoError(t, err)
	assert.False(t, board.TimerActive)
	assert.Empty(t, env.broadcaster.boardEventNames(resp.BoardID))
}

func TestStopTimer_SuppressesExpiry(t *testing.T) {
	env := newTestEnv(t)
	shrinkTick(env, 20*time.Millisecond)
	ctx := context.Background()

	resp := env.createBoard(t)
	adminConn := env.join(t, resp.BoardID, "admin", "", true)

	require.NoError(t, env.timers.Start(ctx, adminConn, &event.StartTimerPayload{
		BoardID:  resp.BoardID,
		Duration: 3,
	}))
	require.NoError(t, env.timers.Stop(ctx, adminConn, resp.BoardID))

	board, err := env.boardRepo.FindByID(ctx, resp.BoardID)
	require.NoError(t, err)
	assert.False(t, board.TimerActive)
	assert.True(t, board.IsLocked)
	assert.Nil(t, board.TimerEndsAt)
	assert.Zero(t, board.TimerDuration)

	// Wait past the original deadline: the cancelled expiry stays quiet.
	time.Sleep(120 * time.Millisecond)
	assert.NotContains(t, env.broadcaster.boardEventNames(resp.BoardID), event.TimerEnded)
}

func TestTimer_RestartSupersedesPrevious(t *testing.T) {
	env := newTestEnv(t)
	shrinkTick(env, 10*time.Millisecond)
	ctx := context.Background()

	resp := env.createBoard(t)
	adminConn := env.join(t, resp.BoardID, "admin", "", true)

	require.NoError(t, env.timers.Start(ctx, adminConn, &event.StartTimerPayload{
		BoardID:  resp.BoardID,
		Duration: 1,
	}))
	require.NoError(t, env.timers.Start(ctx, adminConn, &event.StartTimerPayload{
		BoardID:  resp.BoardID,
		Duration: 10,
	}))

	// The first deadline passes; the replacement keeps the timer alive.
	time.Sleep(40 * time.Millisecond)
	board, err := env.boardRepo.FindByID(ctx, resp.BoardID)
	require.NoError(t, err)
	assert.True(t, board.TimerActive, "superseded expiry must not stop the new timer")
	assert.NotContains(t, env.broadcaster.boardEventNames(resp.BoardID), event.TimerEnded)
}

func TestTimer_ExpiryAfterBoardEndedIsNoop(t *testing.T) {
	env := newTestEnv(t)
	shrinkTick(env, 20*time.Millisecond)
	ctx := context.Background()

	resp := env.createBoard(t)
	adminConn := env.join(t, resp.BoardID, "admin", "", true)

	require.NoError(t, env.timers.Start(ctx, adminConn, &event.StartTimerPayload{
		BoardID:  resp.BoardID,
		Duration: 2,
	}))
	require.NoError(t, env.boards.EndBoard(ctx, adminConn, resp.BoardID))
	env.broadcaster.reset()

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, env.broadcaster.boardEventNames(resp.BoardID),
		"an expiry for a deleted board must stay silent")
}
