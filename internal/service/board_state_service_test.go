package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retro-board-api/internal/domain"
	"retro-board-api/internal/event"
)

func TestGetFullBoardState_AssemblesSnapshot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp := env.createBoard(t)
	adminConn := env.join(t, resp.BoardID, "admin", "", true)
	env.join(t, resp.BoardID, "dana", resp.InviteCode, false)
	columns := env.columnIDs(t, resp.BoardID)

	require.NoError(t, env.comments.Add(ctx, adminConn, &event.AddCommentPayload{
		BoardID:  resp.BoardID,
		ColumnID: columns[0],
		Comment:  "first",
	}))
	require.NoError(t, env.comments.Add(ctx, adminConn, &event.AddCommentPayload{
		BoardID:  resp.BoardID,
		ColumnID: columns[0],
		Comment:  "second",
	}))

	snap, err := env.state.GetFullBoardState(ctx, resp.BoardID)
	require.NoError(t, err)
	require.NotNil(t, snap)

	assert.Equal(t, resp.BoardID, snap.ID)
	assert.Equal(t, "Sprint 12 Retro", snap.Name)
	assert.Equal(t, resp.InviteCode, snap.InviteCode)
	assert.Equal(t, int64(2), snap.ParticipantCount)
	require.Len(t, snap.Columns, 2)
	assert.Equal(t, "Went well", snap.Columns[0].Name)
	require.Len(t, snap.Columns[0].Comments, 2)
	assert.Equal(t, "first", snap.Columns[0].Comments[0].Text)
	assert.Equal(t, "second", snap.Columns[0].Comments[1].Text)
	assert.NotNil(t, snap.Columns[1].Comments, "empty columns carry an empty comment list")
	assert.Empty(t, snap.Columns[1].Comments)
}

func TestGetFullBoardState_MissingBoard(t *testing.T) {
	env := newTestEnv(t)

	snap, err := env.state.GetFullBoardState(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestGetFullBoardState_CachesUntilInvalidated(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp := env.createBoard(t)

	first, err := env.state.GetFullBoardState(ctx, resp.BoardID)
	require.NoError(t, err)
	assert.Equal(t, 1, env.cache.Len())

	// A direct store write the cache never saw: cached reads miss it.
	board, err := env.boardRepo.FindByID(ctx, resp.BoardID)
	require.NoError(t, err)
	board.Name = "Renamed offline"
	require.NoError(t, env.boardRepo.Update(ctx, board))

	cached, err := env.state.GetFullBoardState(ctx, resp.BoardID)
	require.NoError(t, err)
	assert.Same(t, first, cached, "a cached snapshot is returned as-is")
	assert.Equal(t, "Sprint 12 Retro", cached.Name)

	// Invalidation forces reassembly with the new state.
	env.state.Invalidate(resp.BoardID)
	fresh, err := env.state.GetFullBoardState(ctx, resp.BoardID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed offline", fresh.Name)
}

func TestGetFullBoardState_HonorsSortOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp := env.createBoard(t)
	adminConn := env.join(t, resp.BoardID, "admin", "", true)
	danaConn := env.join(t, resp.BoardID, "dana", resp.InviteCode, false)
	columns := env.columnIDs(t, resp.BoardID)

	require.NoError(t, env.boards.SetLock(ctx, adminConn, &event.ToggleLockPayload{BoardID: resp.BoardID, IsLocked: false}))
	for _, c := range []struct {
		conn uuid.UUID
		text string
	}{
		{danaConn, "zeta"},
		{adminConn, "alpha"},
		{danaConn, "beta"},
	} {
		require.NoError(t, env.comments.Add(ctx, c.conn, &event.AddCommentPayload{
			BoardID:  resp.BoardID,
			ColumnID: columns[0],
			Comment:  c.text,
		}))
	}

	collect := func() []string {
		snap, err := env.state.GetFullBoardState(ctx, resp.BoardID)
		require.NoError(t, err)
		out := make([]string, 0, len(snap.Columns[0].Comments))
		for _, c := range snap.Columns[0].Comments {
			out = append(out, c.Text)
		}
		return out
	}

	assert.Equal(t, []string{"zeta", "alpha", "beta"}, collect(), "chronological by default")

	require.NoError(t, env.boards.SetSortOrder(ctx, adminConn, &event.ChangeSortOrderPayload{
		BoardID:   resp.BoardID,
		SortOrder: string(domain.SortReverseChronological),
	}))
	assert.Equal(t, []string{"beta", "alpha", "zeta"}, collect())

	require.NoError(t, env.boards.SetSortOrder(ctx, adminConn, &event.ChangeSortOrderPayload{
		BoardID:   resp.BoardID,
		SortOrder: string(domain.SortByAuthor),
	}))
	// Author ties break chronologically.
	assert.Equal(t, []string{"alpha", "zeta", "beta"}, collect())
}
