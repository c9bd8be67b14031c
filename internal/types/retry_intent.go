package types

import (
	"time"

	"github.com/google/uuid"
)

// RetryIntent is the admin approval gate in front of re-executing a failed
// RegenerationJob. Consumed at most once.
type RetryIntent struct {
	ID          uuid.UUID         `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SourceJobID uuid.UUID         `gorm:"type:uuid;column:source_job_id;not null;index" json:"source_job_id"`
	ReasonCode  string            `gorm:"column:reason_code;not null" json:"reason_code"`
	ReasonText  string            `gorm:"column:reason_text" json:"reason_text,omitempty"`
	ApprovedBy  uuid.UUID         `gorm:"type:uuid;column:approved_by;not null" json:"approved_by"`
	Status      RetryIntentStatus `gorm:"column:status;not null;index" json:"status"`
	CreatedAt   time.Time         `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"not null;default:now()" json:"updated_at"`
}

func (RetryIntent) TableName() string { return "retry_intent" }
