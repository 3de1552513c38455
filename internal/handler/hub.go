package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"retro-board-api/internal/event"
	"retro-board-api/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
)

// Client is one websocket connection. A connection becomes a board
// participant only after a successful joinBoard.
type Client struct {
	id   uuid.UUID
	conn *websocket.Conn
	send chan []byte
	hub  *Hub

	roomsMu sync.Mutex
	rooms   map[uuid.UUID]bool
}

// Hub owns room membership and fan-out. It implements
// service.Broadcaster. When a Redis client is configured, every room
// broadcast is also published so other replicas deliver it to their
// local members; locally originated messages are filtered out by
// instance id on receive.
type Hub struct {
	instanceID string

	clientsMu sync.RWMutex
	clients   map[uuid.UUID]*Client
	rooms     map[uuid.UUID]map[*Client]bool

	register   chan *Client
	unregister chan *Client

	redis   *redis.Client
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// fanoutMessage is the cross-replica envelope on the Redis channel.
type fanoutMessage struct {
	Origin  string         `json:"origin"`
	BoardID uuid.UUID      `json:"boardId"`
	Event   event.Envelope `json:"event"`
}

// NewHub creates the hub and starts its run loop. redisClient may be
// nil, in which case broadcasts stay process-local.
func NewHub(redisClient *redis.Client, m *metrics.Metrics, logger *zap.Logger) *Hub {
	h := &Hub{
		instanceID: uuid.NewString(),
		clients:    make(map[uuid.UUID]*Client),
		rooms:      make(map[uuid.UUID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		redis:      redisClient,
		metrics:    m,
		logger:     logger,
	}

	go h.run()
	if h.redis != nil {
		go h.subscribeFanout()
	}

	return h
}

func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.clientsMu.Lock()
			h.clients[client.id] = client
			h.clientsMu.Unlock()

			h.metrics.ConnectionOpened()
			h.logger.Debug("Client registered", zap.String("conn_id", client.id.String()))

		case client := <-h.unregister:
			h.clientsMu.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				for boardID := range client.boardRooms() {
					if members, ok := h.rooms[boardID]; ok {
						delete(members, client)
						if len(members) == 0 {
							delete(h.rooms, boardID)
						}
					}
				}
				close(client.send)
			}
			h.clientsMu.Unlock()

			h.metrics.ConnectionClosed()
			h.logger.Debug("Client unregistered", zap.String("conn_id", client.id.String()))
		}
	}
}

// JoinRoom subscribes a connection to a board's broadcast room.
func (h *Hub) JoinRoom(client *Client, boardID uuid.UUID) {
	client.roomsMu.Lock()
	client.rooms[boardID] = true
	client.roomsMu.Unlock()

	h.clientsMu.Lock()
	if h.rooms[boardID] == nil {
		h.rooms[boardID] = make(map[*Client]bool)
	}
	h.rooms[boardID][client] = true
	h.clientsMu.Unlock()
}

// ToBoard publishes an event to every member of the board's room and,
// when Redis is configured, to the other replicas.
func (h *Hub) ToBoard(boardID uuid.UUID, env event.Envelope) {
	h.metrics.RecordBroadcast(env.Event)
	h.deliverLocal(boardID, env)

	if h.redis == nil {
		return
	}
	payload, err := json.Marshal(fanoutMessage{
		Origin:  h.instanceID,
		BoardID: boardID,
		Event:   env,
	})
	if err != nil {
		return
	}
	channel := fmt.Sprintf("board:%s", boardID)
	if err := h.redis.Publish(context.Background(), channel, payload).Err(); err != nil {
		h.logger.Warn("Redis fanout publish failed",
			zap.String("board_id", boardID.String()),
			zap.Error(err))
	}
}

// ToConn publishes an event to one connection, if it is still open.
// The enqueue happens under the read lock: unregister closes the send
// channel under the write lock, so the frame cannot race the close.
func (h *Hub) ToConn(connID uuid.UUID, env event.Envelope) {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()

	client, ok := h.clients[connID]
	if !ok {
		return
	}
	client.enqueue(mustMarshal(env))
}

// IsConnected reports whether a connection id is still live on this
// instance.
func (h *Hub) IsConnected(connID uuid.UUID) bool {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	_, ok := h.clients[connID]
	return ok
}

// deliverLocal fans a frame out to the room's members on this
// instance. Enqueues stay under the read lock for the same reason as
// ToConn; enqueue never blocks, so the lock is held only briefly.
func (h *Hub) deliverLocal(boardID uuid.UUID, env event.Envelope) {
	payload := mustMarshal(env)

	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()

	for client := range h.rooms[boardID] {
		client.enqueue(payload)
	}
}

// subscribeFanout receives room events published by other replicas.
func (h *Hub) subscribeFanout() {
	pubsub := h.redis.PSubscribe(context.Background(), "board:*")
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var fanout fanoutMessage
		if err := json.Unmarshal([]byte(msg.Payload), &fanout); err != nil {
			h.logger.Warn("Malformed fanout message", zap.Error(err))
			continue
		}
		if fanout.Origin == h.instanceID {
			continue
		}
		h.deliverLocal(fanout.BoardID, fanout.Event)
	}
}

func (c *Client) boardRooms() map[uuid.UUID]bool {
	c.roomsMu.Lock()
	defer c.roomsMu.Unlock()
	rooms := make(map[uuid.UUID]bool, len(c.rooms))
	for id := range c.rooms {
		rooms[id] = true
	}
	return rooms
}

// enqueue hands a frame to the client's writer. A full send buffer
// means the client stopped reading; drop the frame rather than block
// the broadcaster.
func (c *Client) enqueue(payload []byte) {
	select {
	case c.send <- payload:
	default:
	}
}

func mustMarshal(env event.Envelope) []byte {
	payload, _ := json.Marshal(env)
	return payload
}
