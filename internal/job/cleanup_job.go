package job

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"retro-board-api/internal/metrics"
	"retro-board-api/internal/repository"
	"retro-board-api/internal/service"
	"retro-board-api/internal/timer"
)

// CleanupJob removes boards created more than maxAge ago. Retro
// sessions are short-lived; age since creation, not last activity,
// decides staleness. It runs hourly and once at startup.
type CleanupJob struct {
	boardRepo   repository.BoardRepository
	columnRepo  repository.ColumnRepository
	userRepo    repository.UserRepository
	commentRepo repository.CommentRepository
	boardState  service.BoardStateService
	scheduler   *timer.Scheduler
	metrics     *metrics.Metrics
	logger      *zap.Logger
	maxAge      time.Duration
}

// NewCleanupJob creates a new CleanupJob instance
func NewCleanupJob(
	boardRepo repository.BoardRepository,
	columnRepo repository.ColumnRepository,
	userRepo repository.UserRepository,
	commentRepo repository.CommentRepository,
	boardState service.BoardStateService,
	scheduler *timer.Scheduler,
	m *metrics.Metrics,
	logger *zap.Logger,
	maxAge time.Duration,
) *CleanupJob {
	return &CleanupJob{
		boardRepo:   boardRepo,
		columnRepo:  columnRepo,
		userRepo:    userRepo,
		commentRepo: commentRepo,
		boardState:  boardState,
		scheduler:   scheduler,
		metrics:     m,
		logger:      logger,
		maxAge:      maxAge,
	}
}

// Run executes one sweep. It satisfies cron.Job.
func (j *CleanupJob) Run() {
	ctx := context.Background()
	cutoff := time.Now().Add(-j.maxAge)

	j.logger.Info("Starting stale board cleanup", zap.Time("cutoff", cutoff))

	staleBoards, err := j.boardRepo.FindOlderThan(ctx, cutoff)
	if err != nil {
		j.logger.Error("Failed to find stale boards", zap.Error(err))
		return
	}

	if len(staleBoards) == 0 {
		j.logger.Info("No stale boards found")
		return
	}

	deleted := 0
	for _, board := range staleBoards {
		if err := j.deleteBoard(ctx, board.ID); err != nil {
			j.logger.Error("Failed to delete stale board",
				zap.String("board_id", board.ID.String()),
				zap.Error(err))
			continue
		}
		deleted++

		j.logger.Debug("Deleted stale board",
			zap.String("board_id", board.ID.String()),
			zap.String("name", board.Name),
			zap.Time("created_at", board.CreatedAt))
	}

	j.logger.Info("Stale board cleanup completed",
		zap.Int("stale", len(staleBoards)),
		zap.Int("deleted", deleted))
}

// deleteBoard removes a board's rows children-first so the sweep works
// the same with and without database-level cascades.
func (j *CleanupJob) deleteBoard(ctx context.Context, boardID uuid.UUID) error {
	if err := j.commentRepo.DeleteByBoard(ctx, boardID); err != nil {
		return err
	}
	if err := j.columnRepo.DeleteByBoard(ctx, boardID); err != nil {
		return err
	}
	if err := j.userRepo.DeleteByBoard(ctx, boardID); err != nil {
		return err
	}
	if err := j.boardRepo.Delete(ctx, boardID); err != nil {
		return err
	}

	j.boardState.Invalidate(boardID)
	j.scheduler.Forget(boardID)
	j.metrics.IncrementBoardDeleted()
	return nil
}
