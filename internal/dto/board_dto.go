package dto

import (
	"time"

	"github.com/google/uuid"

	"retro-board-api/internal/domain"
)

// CreateBoardRequest is the payload for POST /api/boards.
type CreateBoardRequest struct {
	AdminNickname string                `json:"adminNickname"`
	Name          string                `json:"name"`
	Description   string                `json:"description"`
	Columns       []CreateColumnRequest `json:"columns"`
	CreateKey     string                `json:"createKey"`
}

// CreateColumnRequest describes one column at board creation.
type CreateColumnRequest struct {
	Name      string `json:"name"`
	AdminOnly bool   `json:"adminOnly"`
}

// CreateBoardResponse carries the ids a client needs to join.
type CreateBoardResponse struct {
	BoardID    uuid.UUID `json:"boardId"`
	InviteCode string    `json:"inviteCode"`
}

// BoardSnapshot is the fully assembled board state rebroadcast to every
// participant after each mutation.
type BoardSnapshot struct {
	ID               uuid.UUID        `json:"id"`
	Name             string           `json:"name"`
	Description      string           `json:"description"`
	InviteCode       string           `json:"inviteCode"`
	IsLocked         bool             `json:"isLocked"`
	ShowNames        bool             `json:"showNames"`
	CommentSortOrder domain.SortOrder `json:"commentSortOrder"`
	Timer            TimerSnapshot    `json:"timer"`
	ParticipantCount int64            `json:"participantCount"`
	CreatedAt        time.Time        `json:"createdAt"`
	Columns          []ColumnSnapshot `json:"columns"`
}

// TimerSnapshot is the board timer state inside a snapshot.
type TimerSnapshot struct {
	IsActive bool       `json:"isActive"`
	EndTime  *time.Time `json:"endTime"`
	Duration int        `json:"duration"`
}

// ColumnSnapshot is one column with its ordered comments.
type ColumnSnapshot struct {
	ID        uuid.UUID         `json:"id"`
	Name      string            `json:"name"`
	AdminOnly bool              `json:"adminOnly"`
	Position  int               `json:"position"`
	Comments  []CommentSnapshot `json:"comments"`
}

// CommentSnapshot is one comment with its vote sets.
type CommentSnapshot struct {
	ID        uuid.UUID `json:"id"`
	ColumnID  uuid.UUID `json:"columnId"`
	Text      string    `json:"text"`
	Author    string    `json:"author"`
	Likes     []string  `json:"likes"`
	Dislikes  []string  `json:"dislikes"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewCommentSnapshot converts a persisted comment.
func NewCommentSnapshot(c *domain.Comment) CommentSnapshot {
	likes := c.Likes
	if likes == nil {
		likes = []string{}
	}
	dislikes := c.Dislikes
	if dislikes == nil {
		dislikes = []string{}
	}
	return CommentSnapshot{
		ID:        c.ID,
		ColumnID:  c.ColumnID,
		Text:      c.Text,
		Author:    c.Author,
		Likes:     likes,
		Dislikes:  dislikes,
		CreatedAt: c.CreatedAt,
	}
}
