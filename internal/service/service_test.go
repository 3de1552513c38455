package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"retro-board-api/internal/cache"
	"retro-board-api/internal/database"
	"retro-board-api/internal/dto"
	"retro-board-api/internal/event"
	"retro-board-api/internal/metrics"
	"retro-board-api/internal/repository"
	"retro-board-api/internal/timer"
)

// recordedEvent is one captured room broadcast.
type recordedEvent struct {
	boardID uuid.UUID
	env     event.Envelope
}

// fakeBroadcaster captures broadcasts instead of pushing them over
// websockets. Liveness of a connection id is whatever the test says.
type fakeBroadcaster struct {
	mu          sync.Mutex
	boardEvents []recordedEvent
	connEvents  map[uuid.UUID][]event.Envelope
	live        map[uuid.UUID]bool
}

func newFakeBroadcaster() *fakeBroadcaster {
	return &fakeBroadcaster{
		connEvents: make(map[uuid.UUID][]event.Envelope),
		live:       make(map[uuid.UUID]bool),
	}
}

func (f *fakeBroadcaster) ToBoard(boardID uuid.UUID, env event.Envelope) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.boardEvents = append(f.boardEvents, recordedEvent{boardID: boardID, env: env})
}

func (f *fakeBroadcaster) ToConn(connID uuid.UUID, env event.Envelope) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connEvents[connID] = append(f.connEvents[connID], env)
}

func (f *fakeBroadcaster) IsConnected(connID uuid.UUID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.live[connID]
}

func (f *fakeBroadcaster) setLive(connID uuid.UUID, live bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.live[connID] = live
}

// boardEventNames returns the names broadcast to a board, in order.
func (f *fakeBroadcaster) boardEventNames(boardID uuid.UUID) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var names []string
	for _, rec := range f.boardEvents {
		if rec.boardID == boardID {
			names = append(names, rec.env.Event)
		}
	}
	return names
}

// connEventNames returns the names sent to one connection, in order.
func (f *fakeBroadcaster) connEventNames(connID uuid.UUID) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var names []string
	for _, env := range f.connEvents[connID] {
		names = append(names, env.Event)
	}
	return names
}

func (f *fakeBroadcaster) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.boardEvents = nil
	f.connEvents = make(map[uuid.UUID][]event.Envelope)
}

// testEnv wires the full service stack onto an in-memory database.
type testEnv struct {
	db          *gorm.DB
	boardRepo   repository.BoardRepository
	columnRepo  repository.ColumnRepository
	userRepo    repository.UserRepository
	commentRepo repository.CommentRepository
	cache       *cache.SnapshotCache
	scheduler   *timer.Scheduler
	broadcaster *fakeBroadcaster
	metrics     *metrics.Metrics

	state    BoardStateService
	boards   BoardService
	sessions SessionService
	comments CommentService
	timers   TimerService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	database.RegisterUUIDCallback(db)

	env := &testEnv{
		db:          db,
		boardRepo:   repository.NewBoardRepository(db),
		columnRepo:  repository.NewColumnRepository(db),
		userRepo:    repository.NewUserRepository(db),
		commentRepo: repository.NewCommentRepository(db),
		cache:       cache.New(),
		scheduler:   timer.NewScheduler(),
		broadcaster: newFakeBroadcaster(),
		metrics:     metrics.New(),
	}
	logger := zap.NewNop()

	env.state = NewBoardStateService(env.cache, env.boardRepo, env.columnRepo, env.commentRepo, env.userRepo, env.metrics, logger)
	env.boards = NewBoardService(env.boardRepo, env.columnRepo, env.userRepo, env.commentRepo, env.state, env.broadcaster, env.scheduler, "", env.metrics, logger)
	env.sessions = NewSessionService(env.boardRepo, env.userRepo, env.commentRepo, env.state, env.broadcaster, logger)
	env.comments = NewCommentService(env.boardRepo, env.columnRepo, env.userRepo, env.commentRepo, env.state, env.broadcaster, env.metrics, logger)
	env.timers = NewTimerService(env.boardRepo, env.userRepo, env.state, env.broadcaster, env.scheduler, logger)

	return env
}

// createBoard makes a board with two columns ("Went well" open,
// "Actions" admin-only) and returns the creation response.
func (env *testEnv) createBoard(t *testing.T) *dto.CreateBoardResponse {
	t.Helper()
	resp, err := env.boards.CreateBoard(context.Background(), &dto.CreateBoardRequest{
		AdminNickname: "admin",
		Name:          "Sprint 12 Retro",
		Description:   "What happened this sprint",
		Columns: []dto.CreateColumnRequest{
			{Name: "Went well"},
			{Name: "Actions", AdminOnly: true},
		},
	})
	if err != nil {
		t.Fatalf("failed to create board: %v", err)
	}
	return resp
}

// join binds a fresh connection to the board and marks it live.
func (env *testEnv) join(t *testing.T, boardID uuid.UUID, nickname, inviteCode string, isAdmin bool) uuid.UUID {
	t.Helper()
	connID := uuid.New()
	env.broadcaster.setLive(connID, true)
	err := env.sessions.Join(context.Background(), connID, &event.JoinBoardPayload{
		BoardID:    boardID,
		Nickname:   nickname,
		IsAdmin:    isAdmin,
		InviteCode: inviteCode,
	})
	if err != nil {
		t.Fatalf("failed to join board as %s: %v", nickname, err)
	}
	return connID
}

// columnIDs returns the board's column ids in position order.
func (env *testEnv) columnIDs(t *testing.T, boardID uuid.UUID) []uuid.UUID {
	t.Helper()
	columns, err := env.columnRepo.FindByBoard(context.Background(), boardID)
	if err != nil {
		t.Fatalf("failed to list columns: %v", err)
	}
	ids := make([]uuid.UUID, 0, len(columns))
	for _, col := range columns {
		ids = append(ids, col.ID)
	}
	return ids
}
