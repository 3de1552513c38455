package domain

import "github.com/google/uuid"

// Column is a named category comments are filed into.
// Columns are immutable after board creation.
type Column struct {
	BaseModel
	BoardID   uuid.UUID `gorm:"type:uuid;not null;index:idx_columns_board_id;uniqueIndex:uq_columns_board_position" json:"board_id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	AdminOnly bool      `gorm:"not null;default:false" json:"adminOnly"`
	Position  int       `gorm:"not null;uniqueIndex:uq_columns_board_position" json:"position"`
	Board     Board     `gorm:"foreignKey:BoardID;constraint:OnDelete:CASCADE" json:"board,omitempty"`
}

// TableName specifies the table name for Column
func (Column) TableName() string {
	return "board_columns"
}
