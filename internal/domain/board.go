package domain

import "time"

// SortOrder controls how comments are ordered inside a column snapshot.
type SortOrder string

const (
	SortChronological        SortOrder = "chronological"
	SortReverseChronological SortOrder = "reverse-chronological"
	SortByAuthor             SortOrder = "by-author"
)

// Valid reports whether s is one of the recognized sort orders.
func (s SortOrder) Valid() bool {
	switch s {
	case SortChronological, SortReverseChronological, SortByAuthor:
		return true
	}
	return false
}

// Board represents one retrospective session.
type Board struct {
	BaseModel
	Name             string     `gorm:"type:varchar(255);not null" json:"name"`
	Description      string     `gorm:"type:text" json:"description"`
	InviteCode       string     `gorm:"type:varchar(64)" json:"inviteCode"`
	IsLocked         bool       `gorm:"not null;default:true" json:"isLocked"`
	ShowNames        bool       `gorm:"not null;default:false" json:"showNames"`
	CommentSortOrder SortOrder  `gorm:"type:varchar(32);not null;default:'chronological'" json:"commentSortOrder"`
	TimerActive      bool       `gorm:"not null;default:false" json:"timerActive"`
	TimerEndsAt      *time.Time `gorm:"type:timestamp" json:"timerEndsAt"`
	TimerDuration    int        `gorm:"not null;default:0" json:"timerDuration"`
	Columns          []Column   `gorm:"foreignKey:BoardID;constraint:OnDelete:CASCADE" json:"columns,omitempty"`
	Users            []User     `gorm:"foreignKey:BoardID;constraint:OnDelete:CASCADE" json:"users,omitempty"`
	Comments         []Comment  `gorm:"foreignKey:BoardID;constraint:OnDelete:CASCADE" json:"comments,omitempty"`
}

// TableName specifies the table name for Board
func (Board) TableName() string {
	return "boards"
}
