package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"retro-board-api/internal/event"
	"retro-board-api/internal/response"
	"retro-board-api/internal/service"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler upgrades websocket connections and dispatches board
// actions to the services.
type WSHandler struct {
	hub            *Hub
	sessionService service.SessionService
	commentService service.CommentService
	boardService   service.BoardService
	timerService   service.TimerService
	logger         *zap.Logger
}

func NewWSHandler(
	hub *Hub,
	sessionService service.SessionService,
	commentService service.CommentService,
	boardService service.BoardService,
	timerService service.TimerService,
	logger *zap.Logger,
) *WSHandler {
	return &WSHandler{
		hub:            hub,
		sessionService: sessionService,
		commentService: commentService,
		boardService:   boardService,
		timerService:   timerService,
		logger:         logger,
	}
}

// HandleWebSocket godoc
// @Summary Board websocket endpoint
// @Description Upgrades to a websocket carrying board actions and events
// @Tags websocket
// @Router /ws [get]
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		id:    uuid.New(),
		conn:  conn,
		send:  make(chan []byte, 256),
		hub:   h.hub,
		rooms: make(map[uuid.UUID]bool),
	}
	h.hub.register <- client

	go client.writePump()
	go h.readPump(client)
}

func (h *WSHandler) readPump(client *Client) {
	defer func() {
		h.hub.unregister <- client
		client.conn.Close()

		if err := h.sessionService.Disconnect(context.Background(), client.id); err != nil {
			h.logger.Error("Disconnect cleanup failed",
				zap.String("conn_id", client.id.String()),
				zap.Error(err))
		}
	}()

	client.conn.SetReadLimit(maxMessageSize)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("Websocket read error",
					zap.String("conn_id", client.id.String()),
					zap.Error(err))
			}
			return
		}
		h.dispatch(client, message)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// dispatch routes one inbound frame to the owning service. Failures
// the caller should see come back as AppErrors and are forwarded on
// the caller's connection only.
func (h *WSHandler) dispatch(client *Client, message []byte) {
	var env event.Envelope
	if err := json.Unmarshal(message, &env); err != nil {
		h.sendError(client, event.Error, "Invalid message format")
		return
	}

	ctx := context.Background()

	var err error
	errEvent := event.Error

	switch env.Event {
	case event.ActionJoinBoard:
		var p event.JoinBoardPayload
		if err = json.Unmarshal(env.Data, &p); err == nil {
			h.hub.JoinRoom(client, p.BoardID)
			err = h.sessionService.Join(ctx, client.id, &p)
		}

	case event.ActionAddComment:
		var p event.AddCommentPayload
		if err = json.Unmarshal(env.Data, &p); err == nil {
			err = h.commentService.Add(ctx, client.id, &p)
		}

	case event.ActionLikeComment:
		var p event.VotePayload
		if err = json.Unmarshal(env.Data, &p); err == nil {
			err = h.commentService.ToggleLike(ctx, client.id, &p)
		}

	case event.ActionDislikeComment:
		var p event.VotePayload
		if err = json.Unmarshal(env.Data, &p); err == nil {
			err = h.commentService.ToggleDislike(ctx, client.id, &p)
		}

	case event.ActionDeleteComment:
		var p event.DeleteCommentPayload
		if err = json.Unmarshal(env.Data, &p); err == nil {
			err = h.commentService.Delete(ctx, client.id, &p)
		}

	case event.ActionChangeNickname:
		errEvent = event.NicknameChangeError
		var p event.ChangeNicknamePayload
		if err = json.Unmarshal(env.Data, &p); err == nil {
			err = h.sessionService.ChangeNickname(ctx, client.id, &p)
		}

	case event.ActionRemoveUser:
		var p event.RemoveUserPayload
		if err = json.Unmarshal(env.Data, &p); err == nil {
			err = h.sessionService.RemoveUser(ctx, client.id, &p)
		}

	case event.ActionToggleLock:
		var p event.ToggleLockPayload
		if err = json.Unmarshal(env.Data, &p); err == nil {
			err = h.boardService.SetLock(ctx, client.id, &p)
		}

	case event.ActionToggleShowNames:
		var p event.ToggleShowNamesPayload
		if err = json.Unmarshal(env.Data, &p); err == nil {
			err = h.boardService.SetShowNames(ctx, client.id, &p)
		}

	case event.ActionChangeCommentSortOrder:
		var p event.ChangeSortOrderPayload
		if err = json.Unmarshal(env.Data, &p); err == nil {
			err = h.boardService.SetSortOrder(ctx, client.id, &p)
		}

	case event.ActionStartTimer:
		var p event.StartTimerPayload
		if err = json.Unmarshal(env.Data, &p); err == nil {
			err = h.timerService.Start(ctx, client.id, &p)
		}

	case event.ActionStopTimer:
		var p event.BoardOnlyPayload
		if err = json.Unmarshal(env.Data, &p); err == nil {
			err = h.timerService.Stop(ctx, client.id, p.BoardID)
		}

	case event.ActionEndBoard:
		var p event.BoardOnlyPayload
		if err = json.Unmarshal(env.Data, &p); err == nil {
			err = h.boardService.EndBoard(ctx, client.id, p.BoardID)
		}

	default:
		h.logger.Debug("Unknown action",
			zap.String("event", env.Event),
			zap.String("conn_id", client.id.String()))
		return
	}

	if err == nil {
		return
	}

	var appErr *response.AppError
	if errors.As(err, &appErr) {
		h.sendError(client, errEvent, appErr.Message)
		return
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		h.sendError(client, errEvent, "Invalid message format")
		return
	}

	h.logger.Error("Action failed",
		zap.String("event", env.Event),
		zap.String("conn_id", client.id.String()),
		zap.Error(err))
	h.sendError(client, errEvent, "Internal server error")
}

func (h *WSHandler) sendError(client *Client, name, message string) {
	h.hub.ToConn(client.id, event.Outbound(name, event.ErrorPayload{Message: message}))
}
