// Package event defines the wire protocol spoken over the board
// websocket: inbound client actions and outbound room events.
package event

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Inbound action names.
const (
	ActionJoinBoard              = "joinBoard"
	ActionAddComment             = "addComment"
	ActionLikeComment            = "likeComment"
	ActionDislikeComment         = "dislikeComment"
	ActionChangeNickname         = "changeNickname"
	ActionToggleLock             = "toggleLock"
	ActionToggleShowNames        = "toggleShowNames"
	ActionChangeCommentSortOrder = "changeCommentSortOrder"
	ActionStartTimer             = "startTimer"
	ActionStopTimer              = "stopTimer"
	ActionEndBoard               = "endBoard"
	ActionDeleteComment          = "deleteComment"
	ActionRemoveUser             = "removeUser"
)

// Outbound event names.
const (
	BoardState              = "boardState"
	ParticipantCountUpdated = "participantCountUpdated"
	CommentAdded            = "commentAdded"
	CommentDeleted          = "commentDeleted"
	NicknameChanged         = "nicknameChanged"
	NicknameChangeSuccess   = "nicknameChangeSuccess"
	NicknameChangeError     = "nicknameChangeError"
	BoardLocked             = "boardLocked"
	ShowNamesToggled        = "showNamesToggled"
	CommentSortOrderChanged = "commentSortOrderChanged"
	TimerStarted            = "timerStarted"
	TimerEnded              = "timerEnded"
	TimerStopped            = "timerStopped"
	BoardEnded              = "boardEnded"
	UserRemoved             = "userRemoved"
	UserLeft                = "userLeft"
	KickedFromBoard         = "kickedFromBoard"
	Error                   = "error"
)

// Envelope is the frame exchanged in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Outbound builds an envelope with a marshaled payload. Marshal errors
// cannot occur for the payload types used here.
func Outbound(name string, payload interface{}) Envelope {
	var data json.RawMessage
	if payload != nil {
		data, _ = json.Marshal(payload)
	}
	return Envelope{Event: name, Data: data}
}

// JoinBoardPayload is the joinBoard action payload.
type JoinBoardPayload struct {
	BoardID    uuid.UUID `json:"boardId"`
	Nickname   string    `json:"nickname"`
	IsAdmin    bool      `json:"isAdmin"`
	InviteCode string    `json:"inviteCode"`
}

// AddCommentPayload is the addComment action payload.
type AddCommentPayload struct {
	BoardID  uuid.UUID `json:"boardId"`
	ColumnID uuid.UUID `json:"columnId"`
	Comment  string    `json:"comment"`
}

// VotePayload is shared by likeComment and dislikeComment.
type VotePayload struct {
	BoardID   uuid.UUID `json:"boardId"`
	ColumnID  uuid.UUID `json:"columnId"`
	CommentID uuid.UUID `json:"commentId"`
}

// ChangeNicknamePayload is the changeNickname action payload.
type ChangeNicknamePayload struct {
	BoardID     uuid.UUID `json:"boardId"`
	NewNickname string    `json:"newNickname"`
}

// ToggleLockPayload is the toggleLock action payload.
type ToggleLockPayload struct {
	BoardID  uuid.UUID `json:"boardId"`
	IsLocked bool      `json:"isLocked"`
}

// ToggleShowNamesPayload is the toggleShowNames action payload.
type ToggleShowNamesPayload struct {
	BoardID   uuid.UUID `json:"boardId"`
	ShowNames bool      `json:"showNames"`
}

// ChangeSortOrderPayload is the changeCommentSortOrder action payload.
type ChangeSortOrderPayload struct {
	BoardID   uuid.UUID `json:"boardId"`
	SortOrder string    `json:"sortOrder"`
}

// StartTimerPayload is the startTimer action payload. Duration is in
// minutes.
type StartTimerPayload struct {
	BoardID  uuid.UUID `json:"boardId"`
	Duration int       `json:"duration"`
}

// BoardOnlyPayload is shared by stopTimer and endBoard.
type BoardOnlyPayload struct {
	BoardID uuid.UUID `json:"boardId"`
}

// DeleteCommentPayload is the deleteComment action payload.
type DeleteCommentPayload struct {
	BoardID   uuid.UUID `json:"boardId"`
	ColumnID  uuid.UUID `json:"columnId"`
	CommentID uuid.UUID `json:"commentId"`
}

// RemoveUserPayload is the removeUser action payload.
type RemoveUserPayload struct {
	BoardID        uuid.UUID `json:"boardId"`
	TargetNickname string    `json:"targetNickname"`
}

// ErrorPayload carries a human-readable failure message to one caller.
type ErrorPayload struct {
	Message string `json:"message"`
}

// ParticipantCountPayload announces the new participant count.
type ParticipantCountPayload struct {
	ParticipantCount int64 `json:"participantCount"`
}

// CommentAddedPayload announces a created comment.
type CommentAddedPayload struct {
	ColumnID uuid.UUID   `json:"columnId"`
	Comment  interface{} `json:"comment"`
}

// CommentDeletedPayload announces a deleted comment.
type CommentDeletedPayload struct {
	ColumnID  uuid.UUID `json:"columnId"`
	CommentID uuid.UUID `json:"commentId"`
}

// NicknameChangedPayload announces a rename to the room.
type NicknameChangedPayload struct {
	OldNickname string    `json:"oldNickname"`
	NewNickname string    `json:"newNickname"`
	UserID      uuid.UUID `json:"userId"`
}

// NicknameChangeSuccessPayload confirms a rename to the caller.
type NicknameChangeSuccessPayload struct {
	NewNickname string `json:"newNickname"`
}

// BoardLockedPayload announces the lock flag.
type BoardLockedPayload struct {
	IsLocked bool `json:"isLocked"`
}

// ShowNamesToggledPayload announces the show-names flag.
type ShowNamesToggledPayload struct {
	ShowNames bool `json:"showNames"`
}

// SortOrderChangedPayload announces the new comment sort order.
type SortOrderChangedPayload struct {
	SortOrder string `json:"sortOrder"`
}

// TimerStartedPayload announces a running timer.
type TimerStartedPayload struct {
	EndTime  time.Time `json:"endTime"`
	Duration int       `json:"duration"`
}

// UserRemovedPayload announces an admin removal to the room.
type UserRemovedPayload struct {
	RemovedNickname  string `json:"removedNickname"`
	ParticipantCount int64  `json:"participantCount"`
	RemovedBy        string `json:"removedBy"`
}

// UserLeftPayload announces a departure.
type UserLeftPayload struct {
	Nickname         string `json:"nickname"`
	ParticipantCount int64  `json:"participantCount"`
}

// KickedPayload is sent directly to a removed user's connection.
type KickedPayload struct {
	Message   string `json:"message"`
	RemovedBy string `json:"removedBy"`
}
