package domain

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Comment belongs to one column and, redundantly for query convenience,
// to one board. Author is a denormalized nickname copy that is bulk
// rewritten when the author renames. Likes and Dislikes hold nicknames
// and are kept mutually exclusive by the vote toggle.
type Comment struct {
	BaseModel
	BoardID  uuid.UUID                   `gorm:"type:uuid;not null;index:idx_comments_board_id" json:"board_id"`
	ColumnID uuid.UUID                   `gorm:"type:uuid;not null;index:idx_comments_column_id" json:"column_id"`
	Text     string                      `gorm:"type:text;not null" json:"text"`
	Author   string                      `gorm:"type:varchar(255);not null;index:idx_comments_author" json:"author"`
	Likes    datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"likes"`
	Dislikes datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"dislikes"`
	Board    Board                       `gorm:"foreignKey:BoardID;constraint:OnDelete:CASCADE" json:"board,omitempty"`
	Column   Column                      `gorm:"foreignKey:ColumnID;constraint:OnDelete:CASCADE" json:"column,omitempty"`
}

// TableName specifies the table name for Comment
func (Comment) TableName() string {
	return "comments"
}

// LikedBy reports whether nickname is in the like set.
func (c *Comment) LikedBy(nickname string) bool {
	return containsNickname(c.Likes, nickname)
}

// DislikedBy reports whether nickname is in the dislike set.
func (c *Comment) DislikedBy(nickname string) bool {
	return containsNickname(c.Dislikes, nickname)
}

func containsNickname(set []string, nickname string) bool {
	for _, n := range set {
		if n == nickname {
			return true
		}
	}
	return false
}
