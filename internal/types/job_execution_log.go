package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// JobExecutionLog is the append-only audit stream. Every state transition in
// the orchestration core emits one row; writes are best-effort and never fail
// the primary operation.
type JobExecutionLog struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Action     string         `gorm:"column:action;not null;index" json:"action"`
	EntityType string         `gorm:"column:entity_type;index" json:"entity_type,omitempty"`
	EntityID   *uuid.UUID     `gorm:"type:uuid;column:entity_id;index" json:"entity_id,omitempty"`
	ActorID    *uuid.UUID     `gorm:"type:uuid;column:actor_id" json:"actor_id,omitempty"`
	Metadata   datatypes.JSON `gorm:"type:jsonb;column:metadata" json:"metadata,omitempty"`
	CreatedAt  time.Time      `gorm:"not null;default:now();index" json:"created_at"`
}

func (JobExecutionLog) TableName() string { return "job_execution_log" }

// Audit actions emitted by the orchestration core.
const (
	AuditEnqueued          = "ENQUEUED"
	AuditCompleted         = "COMPLETED"
	AuditFailed            = "FAILED"
	AuditLocked            = "LOCKED"
	AuditStarted           = "STARTED"
	AuditRetryIntentCreate = "RETRY_INTENT_CREATED"
	AuditRetryIntentReject = "RETRY_INTENT_REJECTED"
	AuditRetryJobCreated   = "RETRY_JOB_CREATED"
	AuditPromotionApproved = "PROMOTION_APPROVED"
	AuditPromotionRejected = "PROMOTION_REJECTED"
)
