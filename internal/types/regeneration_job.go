package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// RegenerationJob is an ad-hoc single-entity regeneration triggered from
// moderation. Immutable once terminal except audit metadata.
type RegenerationJob struct {
	ID              uuid.UUID             `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SuggestionID    uuid.UUID             `gorm:"type:uuid;column:suggestion_id;not null;index" json:"suggestion_id"`
	TargetType      string                `gorm:"column:target_type;not null;index" json:"target_type"`
	TargetID        uuid.UUID             `gorm:"type:uuid;column:target_id;not null;index" json:"target_id"`
	InstructionJSON datatypes.JSON        `gorm:"type:jsonb;column:instruction_json" json:"instruction_json"`
	Status          RegenerationJobStatus `gorm:"column:status;not null;index" json:"status"`
	LastError       string                `gorm:"column:last_error" json:"last_error,omitempty"`
	LockedAt        *time.Time            `gorm:"column:locked_at" json:"locked_at,omitempty"`
	CompletedAt     *time.Time            `gorm:"column:completed_at" json:"completed_at,omitempty"`
	RetryOfJobID    *uuid.UUID            `gorm:"type:uuid;column:retry_of_job_id;index" json:"retry_of_job_id,omitempty"`
	RetryIntentID   *uuid.UUID            `gorm:"type:uuid;column:retry_intent_id;index" json:"retry_intent_id,omitempty"`
	CreatedBy       uuid.UUID             `gorm:"type:uuid;column:created_by;not null" json:"created_by"`
	CreatedAt       time.Time             `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt       time.Time             `gorm:"not null;default:now()" json:"updated_at"`
}

func (RegenerationJob) TableName() string { return "regeneration_job" }

// RegenerationOutput rows are append-only: a new regeneration of the same
// target creates a new row, preserving the full history.
type RegenerationOutput struct {
	ID                uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	RegenerationJobID uuid.UUID      `gorm:"type:uuid;column:regeneration_job_id;not null;index" json:"regeneration_job_id"`
	TargetType        string         `gorm:"column:target_type;not null" json:"target_type"`
	TargetID          uuid.UUID      `gorm:"type:uuid;column:target_id;not null;index" json:"target_id"`
	Content           datatypes.JSON `gorm:"type:jsonb;column:content;not null" json:"content"`
	InputTokens       int            `gorm:"column:input_tokens;not null;default:0" json:"input_tokens"`
	OutputTokens      int            `gorm:"column:output_tokens;not null;default:0" json:"output_tokens"`
	CreatedAt         time.Time      `gorm:"not null;default:now();index" json:"created_at"`
}

func (RegenerationOutput) TableName() string { return "regeneration_output" }
