package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"retro-board-api/internal/domain"
	"retro-board-api/internal/event"
	"retro-board-api/internal/repository"
	"retro-board-api/internal/response"
)

// SessionService manages the join protocol and session lifecycle: one
// live connection per (board, nickname), reclaimable once the bound
// connection dies.
type SessionService interface {
	Join(ctx context.Context, connID uuid.UUID, p *event.JoinBoardPayload) error
	ChangeNickname(ctx context.Context, connID uuid.UUID, p *event.ChangeNicknamePayload) error
	RemoveUser(ctx context.Context, connID uuid.UUID, p *event.RemoveUserPayload) error
	Disconnect(ctx context.Context, connID uuid.UUID) error
}

// sessionServiceImpl is the implementation of SessionService
type sessionServiceImpl struct {
	boardRepo   repository.BoardRepository
	userRepo    repository.UserRepository
	commentRepo repository.CommentRepository
	state       BoardStateService
	broadcaster Broadcaster
	logger      *zap.Logger
}

// NewSessionService creates a new instance of SessionService
func NewSessionService(
	boardRepo repository.BoardRepository,
	userRepo repository.UserRepository,
	commentRepo repository.CommentRepository,
	state BoardStateService,
	broadcaster Broadcaster,
	logger *zap.Logger,
) SessionService {
	return &sessionServiceImpl{
		boardRepo:   boardRepo,
		userRepo:    userRepo,
		commentRepo: commentRepo,
		state:       state,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// Join validates the invite, binds or rebinds the nickname to the
// connection, and broadcasts the fresh snapshot plus participant count.
func (s *sessionServiceImpl) Join(ctx context.Context, connID uuid.UUID, p *event.JoinBoardPayload) error {
	board, err := s.boardRepo.FindByID(ctx, p.BoardID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NewAppError(response.ErrCodeNotFound, "Board not found", "")
		}
		return response.NewAppError(response.ErrCodeInternal, "Join board failed", err.Error())
	}

	// Admin claims skip the invite gate, as the admin created the code.
	if !p.IsAdmin && board.InviteCode != "" && p.InviteCode != board.InviteCode {
		return response.NewAppError(response.ErrCodeValidation, "Invalid invite code", "")
	}

	user, err := s.userRepo.FindByBoardAndNickname(ctx, p.BoardID, p.Nickname)
	switch {
	case err == nil:
		// Nickname exists. A live binding on another connection wins;
		// a dead one is reclaimed by this reconnection.
		if user.SocketID != nil && *user.SocketID != connID && s.broadcaster.IsConnected(*user.SocketID) {
			return response.NewAppError(response.ErrCodeAlreadyExists,
				"Nickname already in use. Please choose another name.", "")
		}
		if user.SocketID == nil || *user.SocketID != connID {
			user.SocketID = &connID
			if err := s.userRepo.Update(ctx, user); err != nil {
				return response.NewAppError(response.ErrCodeInternal, "Join board failed", err.Error())
			}
			s.state.Invalidate(p.BoardID)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = &domain.User{
			BoardID:  p.BoardID,
			Nickname: p.Nickname,
			IsAdmin:  p.IsAdmin,
			SocketID: &connID,
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return response.NewAppError(response.ErrCodeInternal, "Join board failed", err.Error())
		}
		s.state.Invalidate(p.BoardID)
	default:
		return response.NewAppError(response.ErrCodeInternal, "Join board failed", err.Error())
	}

	count, err := s.userRepo.CountByBoard(ctx, p.BoardID)
	if err != nil {
		return response.NewAppError(response.ErrCodeInternal, "Join board failed", err.Error())
	}

	s.logger.Info("User joined board",
		zap.String("board_id", p.BoardID.String()),
		zap.String("nickname", p.Nickname),
		zap.Bool("is_admin", user.IsAdmin),
		zap.Int64("participants", count),
	)

	broadcastBoardState(ctx, s.state, s.broadcaster, p.BoardID)
	s.broadcaster.ToBoard(p.BoardID, event.Outbound(event.ParticipantCountUpdated,
		event.ParticipantCountPayload{ParticipantCount: count}))
	return nil
}

// ChangeNickname renames the caller's session and propagates the new
// nickname into every comment author field and vote set. The multi-row
// rewrite is not atomic; a crash mid-update can leave a partial rename.
func (s *sessionServiceImpl) ChangeNickname(ctx context.Context, connID uuid.UUID, p *event.ChangeNicknamePayload) error {
	user, err := s.userRepo.FindByBoardAndSocket(ctx, p.BoardID, connID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NewAppError(response.ErrCodeNotFound, "User not found", "")
		}
		return response.NewAppError(response.ErrCodeInternal, "Nickname change failed", err.Error())
	}

	if user.IsAdmin {
		return response.NewAppError(response.ErrCodeForbidden, "Admins cannot change their nickname", "")
	}

	trimmed := strings.TrimSpace(p.NewNickname)
	if trimmed == "" {
		return response.NewAppError(response.ErrCodeValidation, "Nickname cannot be empty", "")
	}

	taken, err := s.userRepo.NicknameTakenByOther(ctx, p.BoardID, trimmed, user.ID)
	if err != nil {
		return response.NewAppError(response.ErrCodeInternal, "Nickname change failed", err.Error())
	}
	if taken {
		return response.NewAppError(response.ErrCodeAlreadyExists,
			"Nickname already in use. Please choose another name.", "")
	}

	oldNickname := user.Nickname
	user.Nickname = trimmed
	if err := s.userRepo.Update(ctx, user); err != nil {
		return response.NewAppError(response.ErrCodeInternal, "Nickname change failed", err.Error())
	}

	if err := s.commentRepo.UpdateAuthor(ctx, p.BoardID, oldNickname, trimmed); err != nil {
		return response.NewAppError(response.ErrCodeInternal, "Nickname change failed", err.Error())
	}

	if err := s.renameInVoteSets(ctx, p.BoardID, oldNickname, trimmed); err != nil {
		return response.NewAppError(response.ErrCodeInternal, "Nickname change failed", err.Error())
	}

	s.state.Invalidate(p.BoardID)

	s.logger.Info("Nickname changed",
		zap.String("board_id", p.BoardID.String()),
		zap.String("old", oldNickname),
		zap.String("new", trimmed),
	)

	s.broadcaster.ToBoard(p.BoardID, event.Outbound(event.NicknameChanged, event.NicknameChangedPayload{
		OldNickname: oldNickname,
		NewNickname: trimmed,
		UserID:      user.ID,
	}))
	broadcastBoardState(ctx, s.state, s.broadcaster, p.BoardID)
	s.broadcaster.ToConn(connID, event.Outbound(event.NicknameChangeSuccess,
		event.NicknameChangeSuccessPayload{NewNickname: trimmed}))
	return nil
}

// renameInVoteSets replaces oldNickname with newNickname in every
// like/dislike set on the board, preserving set membership.
func (s *sessionServiceImpl) renameInVoteSets(ctx context.Context, boardID uuid.UUID, oldNickname, newNickname string) error {
	comments, err := s.commentRepo.FindByBoard(ctx, boardID)
	if err != nil {
		return err
	}
	for _, comment := range comments {
		changed := replaceNickname(comment.Likes, oldNickname, newNickname)
		changed = replaceNickname(comment.Dislikes, oldNickname, newNickname) || changed
		if !changed {
			continue
		}
		if err := s.commentRepo.UpdateVotes(ctx, comment); err != nil {
			return err
		}
	}
	return nil
}

func replaceNickname(set []string, oldNickname, newNickname string) bool {
	for i, n := range set {
		if n == oldNickname {
			set[i] = newNickname
			return true
		}
	}
	return false
}

// RemoveUser kicks a participant: deletes their comments and session,
// tells the room, and notifies the target directly if still connected.
func (s *sessionServiceImpl) RemoveUser(ctx context.Context, connID uuid.UUID, p *event.RemoveUserPayload) error {
	admin, err := s.userRepo.FindByBoardAndSocket(ctx, p.BoardID, connID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NewAppError(response.ErrCodeForbidden, "Admin privileges are required for this action", "")
		}
		return response.NewAppError(response.ErrCodeInternal, "Remove user failed", err.Error())
	}
	if !admin.IsAdmin {
		return response.NewAppError(response.ErrCodeForbidden, "Admin privileges are required for this action", "")
	}

	if admin.Nickname == p.TargetNickname {
		return response.NewAppError(response.ErrCodeValidation, "You cannot remove yourself from the board", "")
	}

	target, err := s.userRepo.FindByBoardAndNickname(ctx, p.BoardID, p.TargetNickname)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NewAppError(response.ErrCodeNotFound, "User not found", "")
		}
		return response.NewAppError(response.ErrCodeInternal, "Remove user failed", err.Error())
	}

	if err := s.commentRepo.DeleteByAuthor(ctx, p.BoardID, p.TargetNickname); err != nil {
		return response.NewAppError(response.ErrCodeInternal, "Remove user failed", err.Error())
	}
	if err := s.userRepo.Delete(ctx, target.ID); err != nil {
		return response.NewAppError(response.ErrCodeInternal, "Remove user failed", err.Error())
	}

	s.state.Invalidate(p.BoardID)

	count, err := s.userRepo.CountByBoard(ctx, p.BoardID)
	if err != nil {
		return response.NewAppError(response.ErrCodeInternal, "Remove user failed", err.Error())
	}

	s.logger.Info("User removed from board",
		zap.String("board_id", p.BoardID.String()),
		zap.String("target", p.TargetNickname),
		zap.String("by", admin.Nickname),
	)

	s.broadcaster.ToBoard(p.BoardID, event.Outbound(event.UserRemoved, event.UserRemovedPayload{
		RemovedNickname:  p.TargetNickname,
		ParticipantCount: count,
		RemovedBy:        admin.Nickname,
	}))
	s.broadcaster.ToBoard(p.BoardID, event.Outbound(event.ParticipantCountUpdated,
		event.ParticipantCountPayload{ParticipantCount: count}))
	broadcastBoardState(ctx, s.state, s.broadcaster, p.BoardID)

	if target.SocketID != nil && s.broadcaster.IsConnected(*target.SocketID) {
		s.broadcaster.ToConn(*target.SocketID, event.Outbound(event.KickedFromBoard, event.KickedPayload{
			Message:   "You have been removed from the board",
			RemovedBy: admin.Nickname,
		}))
	}
	return nil
}

// Disconnect tears down the session bound to a dropped connection. The
// board is not known in advance; unknown connections are a no-op.
func (s *sessionServiceImpl) Disconnect(ctx context.Context, connID uuid.UUID) error {
	user, err := s.userRepo.FindBySocket(ctx, connID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return response.NewAppError(response.ErrCodeInternal, "Disconnect handling failed", err.Error())
	}

	boardID := user.BoardID
	if err := s.userRepo.Delete(ctx, user.ID); err != nil {
		return response.NewAppError(response.ErrCodeInternal, "Disconnect handling failed", err.Error())
	}

	s.state.Invalidate(boardID)

	count, err := s.userRepo.CountByBoard(ctx, boardID)
	if err != nil {
		return response.NewAppError(response.ErrCodeInternal, "Disconnect handling failed", err.Error())
	}

	s.logger.Info("User disconnected",
		zap.String("board_id", boardID.String()),
		zap.String("nickname", user.Nickname),
		zap.Int64("participants", count),
	)

	s.broadcaster.ToBoard(boardID, event.Outbound(event.UserLeft, event.UserLeftPayload{
		Nickname:         user.Nickname,
		ParticipantCount: count,
	}))
	s.broadcaster.ToBoard(boardID, event.Outbound(event.ParticipantCountUpdated,
		event.ParticipantCountPayload{ParticipantCount: count}))
	broadcastBoardState(ctx, s.state, s.broadcaster, boardID)
	return nil
}
