package domain

import (
	"time"

	"github.com/google/uuid"
)

// BaseModel holds the common columns shared by all entities. IDs are
// assigned by the generate_uuid create callback rather than a column
// default, so the schema migrates the same on every driver.
// Deletes in this service are hard deletes: participant counts and
// nickname reclamation rely on rows actually disappearing.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"type:timestamp;not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamp;not null" json:"updated_at"`
}
