package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"retro-board-api/internal/domain"
	"retro-board-api/internal/event"
	"retro-board-api/internal/repository"
	"retro-board-api/internal/response"
	"retro-board-api/internal/timer"
)

// TimerService runs the per-board countdown: starting unlocks the
// board, expiry or stop re-locks it. The deferred expiration re-checks
// board existence and timer state before acting, so a timer that was
// stopped, restarted, or whose board was deleted in the interim fires
// as a no-op.
type TimerService interface {
	Start(ctx context.Context, connID uuid.UUID, p *event.StartTimerPayload) error
	Stop(ctx context.Context, connID, boardID uuid.UUID) error
}

// timerServiceImpl is the implementation of TimerService
type timerServiceImpl struct {
	boardRepo   repository.BoardRepository
	userRepo    repository.UserRepository
	state       BoardStateService
	broadcaster Broadcaster
	scheduler   *timer.Scheduler
	logger      *zap.Logger

	// tick is the duration of one timer unit. Production uses a
	// minute; tests shrink it.
	tick time.Duration
}

// NewTimerService creates a new instance of TimerService
func NewTimerService(
	boardRepo repository.BoardRepository,
	userRepo repository.UserRepository,
	state BoardStateService,
	broadcaster Broadcaster,
	scheduler *timer.Scheduler,
	logger *zap.Logger,
) TimerService {
	return &timerServiceImpl{
		boardRepo:   boardRepo,
		userRepo:    userRepo,
		state:       state,
		broadcaster: broadcaster,
		scheduler:   scheduler,
		logger:      logger,
		tick:        time.Minute,
	}
}

// Start moves the board timer to running, unlocks the board, and arms
// the deferred expiration. Starting over a running timer replaces it;
// the superseded callback observes a changed generation and does
// nothing.
func (s *timerServiceImpl) Start(ctx context.Context, connID uuid.UUID, p *event.StartTimerPayload) error {
	user, board, ok, err := s.requireAdmin(ctx, connID, p.BoardID)
	if err != nil || !ok {
		return err
	}
	if p.Duration <= 0 {
		return response.NewAppError(response.ErrCodeValidation, "Timer duration must be positive", "")
	}

	endsAt := time.Now().Add(time.Duration(p.Duration) * s.tick)
	board.TimerActive = true
	board.TimerEndsAt = &endsAt
	board.TimerDuration = p.Duration
	board.IsLocked = false
	if err := s.boardRepo.Update(ctx, board); err != nil {
		return response.NewAppError(response.ErrCodeInternal, "Start timer failed", err.Error())
	}

	s.state.Invalidate(board.ID)

	s.logger.Info("Timer started",
		zap.String("board_id", board.ID.String()),
		zap.String("by", user.Nickname),
		zap.Int("duration", p.Duration),
		zap.Time("ends_at", endsAt),
	)

	s.broadcaster.ToBoard(board.ID, event.Outbound(event.TimerStarted, event.TimerStartedPayload{
		EndTime:  endsAt,
		Duration: p.Duration,
	}))
	s.broadcaster.ToBoard(board.ID, event.Outbound(event.BoardLocked, event.BoardLockedPayload{IsLocked: false}))
	broadcastBoardState(ctx, s.state, s.broadcaster, board.ID)

	boardID := board.ID
	s.scheduler.Schedule(boardID, time.Duration(p.Duration)*s.tick, func() {
		s.expire(boardID)
	})
	return nil
}

// Stop moves the timer to inactive and re-locks the board. The pending
// expiration is cancelled logically via the generation bump; even if it
// fires, the state re-check makes it a no-op.
func (s *timerServiceImpl) Stop(ctx context.Context, connID, boardID uuid.UUID) error {
	user, board, ok, err := s.requireAdmin(ctx, connID, boardID)
	if err != nil || !ok {
		return err
	}

	board.TimerActive = false
	board.TimerEndsAt = nil
	board.TimerDuration = 0
	board.IsLocked = true
	if err := s.boardRepo.Update(ctx, board); err != nil {
		return response.NewAppError(response.ErrCodeInternal, "Stop timer failed", err.Error())
	}

	s.scheduler.Cancel(board.ID)
	s.state.Invalidate(board.ID)

	s.logger.Info("Timer stopped",
		zap.String("board_id", board.ID.String()),
		zap.String("by", user.Nickname),
	)

	s.broadcaster.ToBoard(board.ID, event.Outbound(event.TimerStopped, nil))
	s.broadcaster.ToBoard(board.ID, event.Outbound(event.BoardLocked, event.BoardLockedPayload{IsLocked: true}))
	broadcastBoardState(ctx, s.state, s.broadcaster, board.ID)
	return nil
}

// expire is the deferred transition back to inactive. The board may
// have been deleted or the timer stopped or restarted since this was
// scheduled; both are observed here and swallowed.
func (s *timerServiceImpl) expire(boardID uuid.UUID) {
	ctx := context.Background()

	board, err := s.boardRepo.FindByID(ctx, boardID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("Timer expiry lookup failed",
				zap.String("board_id", boardID.String()),
				zap.Error(err))
		}
		return
	}
	if !board.TimerActive {
		return
	}

	board.TimerActive = false
	board.IsLocked = true
	if err := s.boardRepo.Update(ctx, board); err != nil {
		s.logger.Error("Timer expiry update failed",
			zap.String("board_id", boardID.String()),
			zap.Error(err))
		return
	}

	s.state.Invalidate(boardID)

	s.logger.Info("Timer expired", zap.String("board_id", boardID.String()))

	s.broadcaster.ToBoard(boardID, event.Outbound(event.TimerEnded, nil))
	s.broadcaster.ToBoard(boardID, event.Outbound(event.TimerStopped, nil))
	s.broadcaster.ToBoard(boardID, event.Outbound(event.BoardLocked, event.BoardLockedPayload{IsLocked: true}))
	broadcastBoardState(ctx, s.state, s.broadcaster, boardID)
}

// requireAdmin mirrors the silent no-op rules of the other admin
// actions: unknown session, non-admin caller, or missing board.
func (s *timerServiceImpl) requireAdmin(ctx context.Context, connID, boardID uuid.UUID) (*domain.User, *domain.Board, bool, error) {
	u, uerr := s.userRepo.FindByBoardAndSocket(ctx, boardID, connID)
	if uerr != nil {
		if errors.Is(uerr, gorm.ErrRecordNotFound) {
			return nil, nil, false, nil
		}
		return nil, nil, false, response.NewAppError(response.ErrCodeInternal, "Session lookup failed", uerr.Error())
	}
	if !u.IsAdmin {
		return nil, nil, false, nil
	}

	b, berr := s.boardRepo.FindByID(ctx, boardID)
	if berr != nil {
		if errors.Is(berr, gorm.ErrRecordNotFound) {
			return nil, nil, false, nil
		}
		return nil, nil, false, response.NewAppError(response.ErrCodeInternal, "Board lookup failed", berr.Error())
	}
	return u, b, true, nil
}
