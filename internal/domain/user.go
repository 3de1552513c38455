package domain

import "github.com/google/uuid"

// User is a live session on a board: a nickname bound to at most one
// websocket connection. The admin row created together with the board
// starts without a bound connection.
type User struct {
	BaseModel
	BoardID  uuid.UUID  `gorm:"type:uuid;not null;index:idx_users_board_id;uniqueIndex:uq_users_board_nickname" json:"board_id"`
	Nickname string     `gorm:"type:varchar(255);not null;uniqueIndex:uq_users_board_nickname" json:"nickname"`
	IsAdmin  bool       `gorm:"not null;default:false" json:"isAdmin"`
	SocketID *uuid.UUID `gorm:"type:uuid;index:idx_users_socket_id" json:"-"`
	Board    Board      `gorm:"foreignKey:BoardID;constraint:OnDelete:CASCADE" json:"board,omitempty"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return "board_users"
}
