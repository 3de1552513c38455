package service

import (
	"github.com/google/uuid"

	"retro-board-api/internal/event"
)

// Broadcaster is the room-scoped publish side of the websocket hub.
// Services own broadcasting: every mutation emits its events before
// returning, so callers only translate failures.
type Broadcaster interface {
	// ToBoard publishes an event to every member of the board's room.
	ToBoard(boardID uuid.UUID, env event.Envelope)
	// ToConn publishes an event to one connection, if still open.
	ToConn(connID uuid.UUID, env event.Envelope)
	// IsConnected reports whether a connection id is still live.
	IsConnected(connID uuid.UUID) bool
}
