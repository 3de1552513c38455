package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"retro-board-api/internal/domain"
	"retro-board-api/internal/dto"
	"retro-board-api/internal/event"
	"retro-board-api/internal/response"
)

func TestCreateBoard_Defaults(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp := env.createBoard(t)
	require.NotEqual(t, uuid.Nil, resp.BoardID)
	assert.Len(t, resp.InviteCode, 8)

	board, err := env.boardRepo.FindByID(ctx, resp.BoardID)
	require.NoError(t, err)
	assert.True(t, board.IsLocked, "new boards start locked")
	assert.False(t, board.ShowNames, "new boards hide author names")
	assert.Equal(t, domain.SortChronological, board.CommentSortOrder)
	assert.False(t, board.TimerActive)

	columns, err := env.columnRepo.FindByBoard(ctx, resp.BoardID)
	require.NoError(t, err)
	require.Len(t, columns, 2)
	assert.Equal(t, "Went well", columns[0].Name)
	assert.Equal(t, 0, columns[0].Position)
	assert.Equal(t, "Actions", columns[1].Name)
	assert.Equal(t, 1, columns[1].Position)
	assert.True(t, columns[1].AdminOnly)

	admin, err := env.userRepo.FindByBoardAndNickname(ctx, resp.BoardID, "admin")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin)
	assert.Nil(t, admin.SocketID, "admin has no connection until joining")
}

func TestCreateBoard_MissingFields(t *testing.T) {
	env := newTestEnv(t)

	cases := []dto.CreateBoardRequest{
		{Name: "Retro", Columns: []dto.CreateColumnRequest{{Name: "A"}}},
		{AdminNickname: "admin", Columns: []dto.CreateColumnRequest{{Name: "A"}}},
		{AdminNickname: "admin", Name: "Retro"},
	}
	for i, req := range cases {
		_, err := env.boards.CreateBoard(context.Background(), &req)
		var appErr *response.AppError
		require.ErrorAs(t, err, &appErr, "case %d", i)
		assert.Equal(t, response.ErrCodeValidation, appErr.Code, "case %d", i)
	}
}

func TestCreateBoard_CreateKeyGate(t *testing.T) {
	env := newTestEnv(t)
	gated := NewBoardService(env.boardRepo, env.columnRepo, env.userRepo, env.commentRepo,
		env.state, env.broadcaster, env.scheduler, "sekrit", env.metrics, zap.NewNop())

	req := dto.CreateBoardRequest{
		AdminNickname: "admin",
		Name:          "Retro",
		Columns:       []dto.CreateColumnRequest{{Name: "A"}},
		CreateKey:     "wrong",
	}
	_, err := gated.CreateBoard(context.Background(), &req)
	var appErr *response.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, response.ErrCodeForbidden, appErr.Code)

	req.CreateKey = "sekrit"
	resp, err := gated.CreateBoard(context.Background(), &req)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, resp.BoardID)
}

func TestSetLock_AdminToggles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp := env.createBoard(t)
	adminConn := env.join(t, resp.BoardID, "admin", "", true)
	env.broadcaster.reset()

	err := env.boards.SetLock(ctx, adminConn, &event.ToggleLockPayload{BoardID: resp.BoardID, IsLocked: false})
	require.NoError(t, err)

	board, err := env.boardRepo.FindByID(ctx, resp.BoardID)
	require.NoError(t, err)
	assert.False(t, board.IsLocked)

	assert.Equal(t, []string{event.BoardLocked, event.BoardState},
		env.broadcaster.boardEventNames(resp.BoardID))
}

func TestSetLock_NonAdminIsSilent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp := env.createBoard(t)
	memberConn := env.join(t, resp.BoardID, "dana", resp.InviteCode, false)
	env.broadcaster.reset()

	err := env.boards.SetLock(ctx, memberConn, &event.ToggleLockPayload{BoardID: resp.BoardID, IsLocked: false})
	require.NoError(t, err)

	board, err := env.boardRepo.FindByID(ctx, resp.BoardID)
	require.NoError(t, err)
	assert.True(t, board.IsLocked, "non-admin toggle must not change the lock")
	assert.Empty(t, env.broadcaster.boardEventNames(resp.BoardID))
}

func TestSetShowNames(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp := env.createBoard(t)
	adminConn := env.join(t, resp.BoardID, "admin", "", true)
	env.broadcaster.reset()

	err := env.boards.SetShowNames(ctx, adminConn, &event.ToggleShowNamesPayload{BoardID: resp.BoardID, ShowNames: true})
	require.NoError(t, err)

	board, err := env.boardRepo.FindByID(ctx, resp.BoardID)
	require.NoError(t, err)
	assert.True(t, board.ShowNames)
	assert.Equal(t, []string{event.ShowNamesToggled, event.BoardState},
		env.broadcaster.boardEventNames(resp.BoardID))
}

func TestSetSortOrder_RejectsUnknownOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp := env.createBoard(t)
	adminConn := env.join(t, resp.BoardID, "admin", "", true)

	err := env.boards.SetSortOrder(ctx, adminConn, &event.ChangeSortOrderPayload{
		BoardID:   resp.BoardID,
		SortOrder: "random",
	})
	var appErr *response.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, response.ErrCodeValidation, appErr.Code)

	board, err := env.boardRepo.FindByID(ctx, resp.BoardID)
	require.NoError(t, err)
	assert.Equal(t, domain.SortChronological, board.CommentSortOrder)
}

func TestSetSortOrder_Persists(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp := env.createBoard(t)
	adminConn := env.join(t, resp.BoardID, "admin", "", true)
	env.broadcaster.reset()

	err := env.boards.SetSortOrder(ctx, adminConn, &event.ChangeSortOrderPayload{
		BoardID:   resp.BoardID,
		SortOrder: string(domain.SortByAuthor),
	})
	require.NoError(t, err)

	board, err := env.boardRepo.FindByID(ctx, resp.BoardID)
	require.NoError(t, err)
	assert.Equal(t, domain.SortByAuthor, board.CommentSortOrder)
	assert.Equal(t, []string{event.CommentSortOrderChanged, event.BoardState},
		env.broadcaster.boardEventNames(resp.BoardID))
}

func TestEndBoard_DeletesEverything(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp := env.createBoard(t)
	adminConn := env.join(t, resp.BoardID, "admin", "", true)
	memberConn := env.join(t, resp.BoardID, "dana", resp.InviteCode, false)
	columns := env.columnIDs(t, resp.BoardID)

	// Boards start locked; open it so the member can seed a comment.
	require.NoError(t, env.boards.SetLock(ctx, adminConn, &event.ToggleLockPayload{
		BoardID:  resp.BoardID,
		IsLocked: false,
	}))

	require.NoError(t, env.comments.Add(ctx, memberConn, &event.AddCommentPayload{
		BoardID:  resp.BoardID,
		ColumnID: columns[0],
		Comment:  "pairing worked great",
	}))
	env.broadcaster.reset()

	require.NoError(t, env.boards.EndBoard(ctx, adminConn, resp.BoardID))

	_, err := env.boardRepo.FindByID(ctx, resp.BoardID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	remaining, err := env.columnRepo.FindByBoard(ctx, resp.BoardID)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	count, err := env.userRepo.CountByBoard(ctx, resp.BoardID)
	require.NoError(t, err)
	assert.Zero(t, count)

	comments, err := env.commentRepo.FindByBoard(ctx, resp.BoardID)
	require.NoError(t, err)
	assert.Empty(t, comments)

	// The room hears only the terminal event, never a post-delete snapshot.
	assert.Equal(t, []string{event.BoardEnded}, env.broadcaster.boardEventNames(resp.BoardID))
}

func TestEndBoard_NonAdminIsSilent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp := env.createBoard(t)
	memberConn := env.join(t, resp.BoardID, "dana", resp.InviteCode, false)
	env.broadcaster.reset()

	require.NoError(t, env.boards.EndBoard(ctx, memberConn, resp.BoardID))

	_, err := env.boardRepo.FindByID(ctx, resp.BoardID)
	assert.NoError(t, err, "board must survive a non-admin end attempt")
	assert.Empty(t, env.broadcaster.boardEventNames(resp.BoardID))
}

func TestExportBoard_Rendering(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp := env.createBoard(t)
	adminConn := env.join(t, resp.BoardID, "admin", "", true)
	columns := env.columnIDs(t, resp.BoardID)

	require.NoError(t, env.comments.Add(ctx, adminConn, &event.AddCommentPayload{
		BoardID:  resp.BoardID,
		ColumnID: columns[0],
		Comment:  "demo went smoothly",
	}))
	require.NoError(t, env.comments.Add(ctx, adminConn, &event.AddCommentPayload{
		BoardID:  resp.BoardID,
		ColumnID: columns[0],
		Comment:  "ci is fast now",
	}))

	text, err := env.boards.ExportBoard(ctx, resp.BoardID)
	require.NoError(t, err)

	board, err := env.boardRepo.FindByID(ctx, resp.BoardID)
	require.NoError(t, err)

	expected := fmt.Sprintf("Sprint 12 Retro - What happened this sprint - %s\n\n", board.CreatedAt.Format(exportDateLayout)) +
		"Went well\n* demo went smoothly\n* ci is fast now\n\n" +
		"Actions\n* (No comments yet)\n\n"
	assert.Equal(t, expected, text)
}

func TestExportBoard_NotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.boards.ExportBoard(context.Background(), uuid.New())
	var appErr *response.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, response.ErrCodeNotFound, appErr.Code)
}
