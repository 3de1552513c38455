package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"retro-board-api/internal/domain"
	"retro-board-api/internal/dto"
	"retro-board-api/internal/event"
	"retro-board-api/internal/metrics"
	"retro-board-api/internal/repository"
	"retro-board-api/internal/response"
)

// CommentService handles posting, voting on, and deleting comments.
type CommentService interface {
	Add(ctx context.Context, connID uuid.UUID, p *event.AddCommentPayload) error
	ToggleLike(ctx context.Context, connID uuid.UUID, p *event.VotePayload) error
	ToggleDislike(ctx context.Context, connID uuid.UUID, p *event.VotePayload) error
	Delete(ctx context.Context, connID uuid.UUID, p *event.DeleteCommentPayload) error
}

// commentServiceImpl is the implementation of CommentService
type commentServiceImpl struct {
	boardRepo   repository.BoardRepository
	columnRepo  repository.ColumnRepository
	userRepo    repository.UserRepository
	commentRepo repository.CommentRepository
	state       BoardStateService
	broadcaster Broadcaster
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

// NewCommentService creates a new instance of CommentService
func NewCommentService(
	boardRepo repository.BoardRepository,
	columnRepo repository.ColumnRepository,
	userRepo repository.UserRepository,
	commentRepo repository.CommentRepository,
	state BoardStateService,
	broadcaster Broadcaster,
	m *metrics.Metrics,
	logger *zap.Logger,
) CommentService {
	return &commentServiceImpl{
		boardRepo:   boardRepo,
		columnRepo:  columnRepo,
		userRepo:    userRepo,
		commentRepo: commentRepo,
		state:       state,
		broadcaster: broadcaster,
		metrics:     m,
		logger:      logger,
	}
}

// Add posts a comment into a column. Admin-only columns and locked
// boards reject non-admin authors; unknown sessions, boards, and
// columns are silent no-ops.
func (s *commentServiceImpl) Add(ctx context.Context, connID uuid.UUID, p *event.AddCommentPayload) error {
	user, ok, err := s.resolveSession(ctx, connID, p.BoardID)
	if err != nil || !ok {
		return err
	}

	board, err := s.boardRepo.FindByID(ctx, p.BoardID)
	if err != nil {
		return ignoreNotFound(err, "Add comment failed")
	}
	column, err := s.columnRepo.FindByBoardAndID(ctx, p.BoardID, p.ColumnID)
	if err != nil {
		return ignoreNotFound(err, "Add comment failed")
	}

	if column.AdminOnly && !user.IsAdmin {
		return response.NewAppError(response.ErrCodeForbidden, "Only admin can add to this column", "")
	}
	if board.IsLocked && !user.IsAdmin {
		return response.NewAppError(response.ErrCodeForbidden, "Board is locked", "")
	}

	comment := &domain.Comment{
		BoardID:  p.BoardID,
		ColumnID: p.ColumnID,
		Text:     p.Comment,
		Author:   user.Nickname,
		Likes:    []string{},
		Dislikes: []string{},
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return response.NewAppError(response.ErrCodeInternal, "Add comment failed", err.Error())
	}

	s.metrics.IncrementCommentCreated()
	s.state.Invalidate(p.BoardID)

	s.broadcaster.ToBoard(p.BoardID, event.Outbound(event.CommentAdded, event.CommentAddedPayload{
		ColumnID: p.ColumnID,
		Comment:  dto.NewCommentSnapshot(comment),
	}))
	broadcastBoardState(ctx, s.state, s.broadcaster, p.BoardID)
	return nil
}

// ToggleLike flips the caller's membership in the like set. Adding a
// like removes any dislike by the same nickname.
func (s *commentServiceImpl) ToggleLike(ctx context.Context, connID uuid.UUID, p *event.VotePayload) error {
	return s.toggleVote(ctx, connID, p, true)
}

// ToggleDislike flips the caller's membership in the dislike set.
func (s *commentServiceImpl) ToggleDislike(ctx context.Context, connID uuid.UUID, p *event.VotePayload) error {
	return s.toggleVote(ctx, connID, p, false)
}

func (s *commentServiceImpl) toggleVote(ctx context.Context, connID uuid.UUID, p *event.VotePayload, like bool) error {
	user, ok, err := s.resolveSession(ctx, connID, p.BoardID)
	if err != nil || !ok {
		return err
	}

	comment, err := s.commentRepo.FindScoped(ctx, p.BoardID, p.ColumnID, p.CommentID)
	if err != nil {
		return ignoreNotFound(err, "Vote failed")
	}

	if like {
		if comment.LikedBy(user.Nickname) {
			comment.Likes = removeNickname(comment.Likes, user.Nickname)
		} else {
			comment.Likes = append(comment.Likes, user.Nickname)
			comment.Dislikes = removeNickname(comment.Dislikes, user.Nickname)
		}
	} else {
		if comment.DislikedBy(user.Nickname) {
			comment.Dislikes = removeNickname(comment.Dislikes, user.Nickname)
		} else {
			comment.Dislikes = append(comment.Dislikes, user.Nickname)
			comment.Likes = removeNickname(comment.Likes, user.Nickname)
		}
	}

	if err := s.commentRepo.UpdateVotes(ctx, comment); err != nil {
		return response.NewAppError(response.ErrCodeInternal, "Vote failed", err.Error())
	}

	s.state.Invalidate(p.BoardID)
	broadcastBoardState(ctx, s.state, s.broadcaster, p.BoardID)
	return nil
}

// Delete removes a comment. Only the author or an admin may delete;
// anything else is a silent no-op.
func (s *commentServiceImpl) Delete(ctx context.Context, connID uuid.UUID, p *event.DeleteCommentPayload) error {
	user, ok, err := s.resolveSession(ctx, connID, p.BoardID)
	if err != nil || !ok {
		return err
	}

	comment, err := s.commentRepo.FindScoped(ctx, p.BoardID, p.ColumnID, p.CommentID)
	if err != nil {
		return ignoreNotFound(err, "Delete comment failed")
	}

	if comment.Author != user.Nickname && !user.IsAdmin {
		return nil
	}

	if err := s.commentRepo.Delete(ctx, comment.ID); err != nil {
		return response.NewAppError(response.ErrCodeInternal, "Delete comment failed", err.Error())
	}

	s.state.Invalidate(p.BoardID)

	s.logger.Info("Comment deleted",
		zap.String("board_id", p.BoardID.String()),
		zap.String("comment_id", p.CommentID.String()),
		zap.String("by", user.Nickname),
	)

	s.broadcaster.ToBoard(p.BoardID, event.Outbound(event.CommentDeleted, event.CommentDeletedPayload{
		ColumnID:  p.ColumnID,
		CommentID: p.CommentID,
	}))
	broadcastBoardState(ctx, s.state, s.broadcaster, p.BoardID)
	return nil
}

// resolveSession looks up the acting session for the connection. ok is
// false when no session exists (silent no-op).
func (s *commentServiceImpl) resolveSession(ctx context.Context, connID, boardID uuid.UUID) (*domain.User, bool, error) {
	user, err := s.userRepo.FindByBoardAndSocket(ctx, boardID, connID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, response.NewAppError(response.ErrCodeInternal, "Session lookup failed", err.Error())
	}
	return user, true, nil
}

// ignoreNotFound maps record-not-found to a silent no-op and wraps
// anything else.
func ignoreNotFound(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return response.NewAppError(response.ErrCodeInternal, msg, err.Error())
}

func removeNickname(set []string, nickname string) []string {
	out := set[:0]
	for _, n := range set {
		if n != nickname {
			out = append(out, n)
		}
	}
	return out
}
