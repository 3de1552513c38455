package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"retro-board-api/internal/cache"
	"retro-board-api/internal/dto"
	"retro-board-api/internal/metrics"
	"retro-board-api/internal/repository"
)

// BoardStateService assembles full board snapshots, read-through the
// snapshot cache. Mutating services must call Invalidate before
// reassembling so no stale snapshot survives a write.
type BoardStateService interface {
	// GetFullBoardState returns the assembled snapshot, or (nil, nil)
	// when the board no longer exists.
	GetFullBoardState(ctx context.Context, boardID uuid.UUID) (*dto.BoardSnapshot, error)
	Invalidate(boardID uuid.UUID)
}

// boardStateServiceImpl is the implementation of BoardStateService
type boardStateServiceImpl struct {
	cache       *cache.SnapshotCache
	boardRepo   repository.BoardRepository
	columnRepo  repository.ColumnRepository
	commentRepo repository.CommentRepository
	userRepo    repository.UserRepository
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

// NewBoardStateService creates a new instance of BoardStateService
func NewBoardStateService(
	snapshotCache *cache.SnapshotCache,
	boardRepo repository.BoardRepository,
	columnRepo repository.ColumnRepository,
	commentRepo repository.CommentRepository,
	userRepo repository.UserRepository,
	m *metrics.Metrics,
	logger *zap.Logger,
) BoardStateService {
	return &boardStateServiceImpl{
		cache:       snapshotCache,
		boardRepo:   boardRepo,
		columnRepo:  columnRepo,
		commentRepo: commentRepo,
		userRepo:    userRepo,
		metrics:     m,
		logger:      logger,
	}
}

// GetFullBoardState serves the cached snapshot when present, otherwise
// assembles board + ordered columns + ordered comments + participant
// count and caches the result.
func (s *boardStateServiceImpl) GetFullBoardState(ctx context.Context, boardID uuid.UUID) (*dto.BoardSnapshot, error) {
	if snap, ok := s.cache.Get(boardID); ok {
		s.metrics.RecordCacheLookup(true)
		return snap, nil
	}
	s.metrics.RecordCacheLookup(false)

	board, err := s.boardRepo.FindByID(ctx, boardID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	columns, err := s.columnRepo.FindByBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}

	columnSnaps := make([]dto.ColumnSnapshot, 0, len(columns))
	for _, col := range columns {
		comments, err := s.commentRepo.FindByColumnOrdered(ctx, col.ID, board.CommentSortOrder)
		if err != nil {
			return nil, err
		}
		commentSnaps := make([]dto.CommentSnapshot, 0, len(comments))
		for _, c := range comments {
			commentSnaps = append(commentSnaps, dto.NewCommentSnapshot(c))
		}
		columnSnaps = append(columnSnaps, dto.ColumnSnapshot{
			ID:        col.ID,
			Name:      col.Name,
			AdminOnly: col.AdminOnly,
			Position:  col.Position,
			Comments:  commentSnaps,
		})
	}

	count, err := s.userRepo.CountByBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}

	snap := &dto.BoardSnapshot{
		ID:               board.ID,
		Name:             board.Name,
		Description:      board.Description,
		InviteCode:       board.InviteCode,
		IsLocked:         board.IsLocked,
		ShowNames:        board.ShowNames,
		CommentSortOrder: board.CommentSortOrder,
		Timer: dto.TimerSnapshot{
			IsActive: board.TimerActive,
			EndTime:  board.TimerEndsAt,
			Duration: board.TimerDuration,
		},
		ParticipantCount: count,
		CreatedAt:        board.CreatedAt,
		Columns:          columnSnaps,
	}

	s.cache.Put(boardID, snap)
	return snap, nil
}

// Invalidate drops the board's cached snapshot.
func (s *boardStateServiceImpl) Invalidate(boardID uuid.UUID) {
	s.cache.Invalidate(boardID)
}
