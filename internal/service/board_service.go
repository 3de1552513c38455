package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"retro-board-api/internal/domain"
	"retro-board-api/internal/dto"
	"retro-board-api/internal/event"
	"retro-board-api/internal/metrics"
	"retro-board-api/internal/repository"
	"retro-board-api/internal/response"
	"retro-board-api/internal/timer"
)

// exportDateLayout is the creation-date format on export headers.
const exportDateLayout = "02.01.2006 15:04"

// BoardService defines board lifecycle and admin-toggle logic.
type BoardService interface {
	CreateBoard(ctx context.Context, req *dto.CreateBoardRequest) (*dto.CreateBoardResponse, error)
	GetBoard(ctx context.Context, boardID uuid.UUID) (*dto.BoardSnapshot, error)
	ExportBoard(ctx context.Context, boardID uuid.UUID) (string, error)
	SetLock(ctx context.Context, socketID uuid.UUID, p *event.ToggleLockPayload) error
	SetShowNames(ctx context.Context, socketID uuid.UUID, p *event.ToggleShowNamesPayload) error
	SetSortOrder(ctx context.Context, socketID uuid.UUID, p *event.ChangeSortOrderPayload) error
	EndBoard(ctx context.Context, socketID, boardID uuid.UUID) error
}

// boardServiceImpl is the implementation of BoardService
type boardServiceImpl struct {
	boardRepo   repository.BoardRepository
	columnRepo  repository.ColumnRepository
	userRepo    repository.UserRepository
	commentRepo repository.CommentRepository
	state       BoardStateService
	broadcaster Broadcaster
	scheduler   *timer.Scheduler
	createKey   string
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

// NewBoardService creates a new instance of BoardService. createKey is
// the optional shared secret gating board creation; empty disables the
// gate.
func NewBoardService(
	boardRepo repository.BoardRepository,
	columnRepo repository.ColumnRepository,
	userRepo repository.UserRepository,
	commentRepo repository.CommentRepository,
	state BoardStateService,
	broadcaster Broadcaster,
	scheduler *timer.Scheduler,
	createKey string,
	m *metrics.Metrics,
	logger *zap.Logger,
) BoardService {
	return &boardServiceImpl{
		boardRepo:   boardRepo,
		columnRepo:  columnRepo,
		userRepo:    userRepo,
		commentRepo: commentRepo,
		state:       state,
		broadcaster: broadcaster,
		scheduler:   scheduler,
		createKey:   createKey,
		metrics:     m,
		logger:      logger,
	}
}

// CreateBoard creates a locked board with hidden names, its columns in
// the given order, and the admin session.
func (s *boardServiceImpl) CreateBoard(ctx context.Context, req *dto.CreateBoardRequest) (*dto.CreateBoardResponse, error) {
	if s.createKey != "" && req.CreateKey != s.createKey {
		return nil, response.NewAppError(response.ErrCodeForbidden, "Invalid create key", "")
	}
	if req.Name == "" || req.AdminNickname == "" || len(req.Columns) == 0 {
		return nil, response.NewAppError(response.ErrCodeValidation, "Missing required fields", "")
	}

	board := &domain.Board{
		Name:             req.Name,
		Description:      req.Description,
		InviteCode:       uuid.NewString()[:8],
		IsLocked:         true,
		ShowNames:        false,
		CommentSortOrder: domain.SortChronological,
	}
	if err := s.boardRepo.Create(ctx, board); err != nil {
		return nil, response.NewAppError(response.ErrCodeInternal, "Board creation failed", err.Error())
	}

	columns := make([]*domain.Column, 0, len(req.Columns))
	for i, col := range req.Columns {
		columns = append(columns, &domain.Column{
			BoardID:   board.ID,
			Name:      col.Name,
			AdminOnly: col.AdminOnly,
			Position:  i,
		})
	}
	if err := s.columnRepo.CreateBatch(ctx, columns); err != nil {
		return nil, response.NewAppError(response.ErrCodeInternal, "Board creation failed", err.Error())
	}

	admin := &domain.User{
		BoardID:  board.ID,
		Nickname: req.AdminNickname,
		IsAdmin:  true,
	}
	if err := s.userRepo.Create(ctx, admin); err != nil {
		return nil, response.NewAppError(response.ErrCodeInternal, "Board creation failed", err.Error())
	}

	s.metrics.IncrementBoardCreated()
	s.logger.Info("Board created",
		zap.String("board_id", board.ID.String()),
		zap.String("name", board.Name),
		zap.Int("columns", len(columns)),
	)

	return &dto.CreateBoardResponse{BoardID: board.ID, InviteCode: board.InviteCode}, nil
}

// GetBoard returns the full snapshot for the HTTP read endpoint.
func (s *boardServiceImpl) GetBoard(ctx context.Context, boardID uuid.UUID) (*dto.BoardSnapshot, error) {
	snap, err := s.state.GetFullBoardState(ctx, boardID)
	if err != nil {
		return nil, response.NewAppError(response.ErrCodeInternal, "Get board failed", err.Error())
	}
	if snap == nil {
		return nil, response.NewAppError(response.ErrCodeNotFound, "Board not found", "")
	}
	return snap, nil
}

// ExportBoard renders the board as plain text: a header line, then per
// column its name and one bullet per comment.
func (s *boardServiceImpl) ExportBoard(ctx context.Context, boardID uuid.UUID) (string, error) {
	snap, err := s.GetBoard(ctx, boardID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s - %s - %s\n\n", snap.Name, snap.Description, snap.CreatedAt.Format(exportDateLayout))
	for _, column := range snap.Columns {
		b.WriteString(column.Name + "\n")
		if len(column.Comments) > 0 {
			for _, comment := range column.Comments {
				fmt.Fprintf(&b, "* %s\n", comment.Text)
			}
		} else {
			b.WriteString("* (No comments yet)\n")
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}

// SetLock toggles the board lock. Admin-only; unknown sessions and
// missing boards are silent no-ops.
func (s *boardServiceImpl) SetLock(ctx context.Context, socketID uuid.UUID, p *event.ToggleLockPayload) error {
	user, board, ok, err := s.requireAdmin(ctx, socketID, p.BoardID)
	if err != nil || !ok {
		return err
	}

	board.IsLocked = p.IsLocked
	if err := s.boardRepo.Update(ctx, board); err != nil {
		return response.NewAppError(response.ErrCodeInternal, "Toggle lock failed", err.Error())
	}
	s.state.Invalidate(board.ID)

	s.logger.Info("Board lock toggled",
		zap.String("board_id", board.ID.String()),
		zap.String("by", user.Nickname),
		zap.Bool("is_locked", p.IsLocked),
	)
	s.broadcaster.ToBoard(board.ID, event.Outbound(event.BoardLocked, event.BoardLockedPayload{IsLocked: p.IsLocked}))
	broadcastBoardState(ctx, s.state, s.broadcaster, board.ID)
	return nil
}

// SetShowNames toggles author visibility. Admin-only.
func (s *boardServiceImpl) SetShowNames(ctx context.Context, socketID uuid.UUID, p *event.ToggleShowNamesPayload) error {
	_, board, ok, err := s.requireAdmin(ctx, socketID, p.BoardID)
	if err != nil || !ok {
		return err
	}

	board.ShowNames = p.ShowNames
	if err := s.boardRepo.Update(ctx, board); err != nil {
		return response.NewAppError(response.ErrCodeInternal, "Toggle show names failed", err.Error())
	}
	s.state.Invalidate(board.ID)

	s.broadcaster.ToBoard(board.ID, event.Outbound(event.ShowNamesToggled, event.ShowNamesToggledPayload{ShowNames: p.ShowNames}))
	broadcastBoardState(ctx, s.state, s.broadcaster, board.ID)
	return nil
}

// SetSortOrder changes the comment sort order. Admin-only; the value
// must be one of the recognized orders.
func (s *boardServiceImpl) SetSortOrder(ctx context.Context, socketID uuid.UUID, p *event.ChangeSortOrderPayload) error {
	user, board, ok, err := s.requireAdmin(ctx, socketID, p.BoardID)
	if err != nil || !ok {
		return err
	}

	order := domain.SortOrder(p.SortOrder)
	if !order.Valid() {
		return response.NewAppError(response.ErrCodeValidation, "Invalid sort order", p.SortOrder)
	}

	board.CommentSortOrder = order
	if err := s.boardRepo.Update(ctx, board); err != nil {
		return response.NewAppError(response.ErrCodeInternal, "Change sort order failed", err.Error())
	}
	s.state.Invalidate(board.ID)

	s.logger.Info("Comment sort order changed",
		zap.String("board_id", board.ID.String()),
		zap.String("by", user.Nickname),
		zap.String("sort_order", p.SortOrder),
	)
	s.broadcaster.ToBoard(board.ID, event.Outbound(event.CommentSortOrderChanged, event.SortOrderChangedPayload{SortOrder: p.SortOrder}))
	broadcastBoardState(ctx, s.state, s.broadcaster, board.ID)
	return nil
}

// EndBoard deletes the board and everything it owns, in dependency
// order so a mid-way failure leaves no orphaned rows pointing at a
// missing board.
func (s *boardServiceImpl) EndBoard(ctx context.Context, socketID, boardID uuid.UUID) error {
	user, board, ok, err := s.requireAdmin(ctx, socketID, boardID)
	if err != nil || !ok {
		return err
	}

	if err := s.commentRepo.DeleteByBoard(ctx, board.ID); err != nil {
		return response.NewAppError(response.ErrCodeInternal, "End board failed", err.Error())
	}
	if err := s.columnRepo.DeleteByBoard(ctx, board.ID); err != nil {
		return response.NewAppError(response.ErrCodeInternal, "End board failed", err.Error())
	}
	if err := s.userRepo.DeleteByBoard(ctx, board.ID); err != nil {
		return response.NewAppError(response.ErrCodeInternal, "End board failed", err.Error())
	}
	if err := s.boardRepo.Delete(ctx, board.ID); err != nil {
		return response.NewAppError(response.ErrCodeInternal, "End board failed", err.Error())
	}

	s.state.Invalidate(board.ID)
	s.scheduler.Forget(board.ID)
	s.metrics.IncrementBoardDeleted()

	s.logger.Info("Board ended",
		zap.String("board_id", board.ID.String()),
		zap.String("by", user.Nickname),
	)

	// The board is gone; no snapshot follows.
	s.broadcaster.ToBoard(board.ID, event.Outbound(event.BoardEnded, nil))
	return nil
}

// requireAdmin resolves the acting session and the board. ok is false
// for the silent no-op cases: unknown session, non-admin caller, or
// missing board.
func (s *boardServiceImpl) requireAdmin(ctx context.Context, socketID, boardID uuid.UUID) (*domain.User, *domain.Board, bool, error) {
	user, err := s.userRepo.FindByBoardAndSocket(ctx, boardID, socketID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, false, nil
		}
		return nil, nil, false, response.NewAppError(response.ErrCodeInternal, "Session lookup failed", err.Error())
	}
	if !user.IsAdmin {
		return nil, nil, false, nil
	}

	board, err := s.boardRepo.FindByID(ctx, boardID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, false, nil
		}
		return nil, nil, false, response.NewAppError(response.ErrCodeInternal, "Board lookup failed", err.Error())
	}
	return user, board, true, nil
}

// broadcastBoardState publishes a fresh snapshot to the board room.
// Absent boards broadcast nothing.
func broadcastBoardState(ctx context.Context, state BoardStateService, b Broadcaster, boardID uuid.UUID) {
	snap, err := state.GetFullBoardState(ctx, boardID)
	if err != nil || snap == nil {
		return
	}
	b.ToBoard(boardID, event.Outbound(event.BoardState, snap))
}
