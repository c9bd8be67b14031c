package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Subject is the curriculum entity a syllabus submission targets. Board,
// grade and subject name get denormalized into job payloads at submission
// time so workers never join back to this table.
type Subject struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Board     string         `gorm:"column:board;not null;index" json:"board"`
	Grade     int            `gorm:"column:grade;not null;index" json:"grade"`
	Name      string         `gorm:"column:name;not null" json:"name"`
	Language  string         `gorm:"column:language;not null;default:'en'" json:"language"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Subject) TableName() string { return "subject" }
