package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ExecutionJob is the product-facing unit of work. One row per submission,
// never deleted; the linked hydration tree does the actual generation.
type ExecutionJob struct {
	ID          uuid.UUID          `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	JobType     HydrationJobType   `gorm:"column:job_type;not null;index" json:"job_type"`
	EntityType  string             `gorm:"column:entity_type;not null;index" json:"entity_type"`
	EntityID    uuid.UUID          `gorm:"type:uuid;column:entity_id;not null;index" json:"entity_id"`
	Payload     datatypes.JSON     `gorm:"type:jsonb;column:payload" json:"payload"`
	Status      ExecutionJobStatus `gorm:"column:status;not null;index" json:"status"`
	Attempts    int                `gorm:"column:attempts;not null;default:0" json:"attempts"`
	MaxAttempts int                `gorm:"column:max_attempts;not null;default:3" json:"max_attempts"`
	LastError   string             `gorm:"column:last_error" json:"last_error,omitempty"`
	CreatedAt   time.Time          `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt   time.Time          `gorm:"not null;default:now()" json:"updated_at"`
}

func (ExecutionJob) TableName() string { return "execution_job" }
