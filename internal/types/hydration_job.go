package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// HydrationJob is one node of a generation tree. The root carries the fan-out
// counters; every descendant shares the root's id as root_job_id so a whole
// subtree is queryable without recursive joins.
//
// Invariant: completed counters never exceed expected counters, and
// root_job_id is stable once set.
type HydrationJob struct {
	ID             uuid.UUID          `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	JobType        HydrationJobType   `gorm:"column:job_type;not null;index" json:"job_type"`
	ParentJobID    *uuid.UUID         `gorm:"type:uuid;column:parent_job_id;index" json:"parent_job_id,omitempty"`
	RootJobID      uuid.UUID          `gorm:"type:uuid;column:root_job_id;not null;index" json:"root_job_id"`
	HierarchyLevel int                `gorm:"column:hierarchy_level;not null;default:0" json:"hierarchy_level"`
	EntityType     string             `gorm:"column:entity_type;not null" json:"entity_type"`
	EntityID       uuid.UUID          `gorm:"type:uuid;column:entity_id;not null;index" json:"entity_id"`
	Payload        datatypes.JSON     `gorm:"type:jsonb;column:payload" json:"payload"`
	Status         HydrationJobStatus `gorm:"column:status;not null;index" json:"status"`
	Attempts       int                `gorm:"column:attempts;not null;default:0" json:"attempts"`
	MaxAttempts    int                `gorm:"column:max_attempts;not null;default:3" json:"max_attempts"`
	LockedAt       *time.Time         `gorm:"column:locked_at" json:"locked_at,omitempty"`
	CompletedAt    *time.Time         `gorm:"column:completed_at" json:"completed_at,omitempty"`
	ContentReady   bool               `gorm:"column:content_ready;not null;default:false;index" json:"content_ready"`

	ExpectedChildren   int `gorm:"column:expected_children;not null;default:0" json:"expected_children"`
	CompletedChildren  int `gorm:"column:completed_children;not null;default:0" json:"completed_children"`
	ExpectedNotes      int `gorm:"column:expected_notes;not null;default:0" json:"expected_notes"`
	CompletedNotes     int `gorm:"column:completed_notes;not null;default:0" json:"completed_notes"`
	ExpectedQuestions  int `gorm:"column:expected_questions;not null;default:0" json:"expected_questions"`
	CompletedQuestions int `gorm:"column:completed_questions;not null;default:0" json:"completed_questions"`

	LastError    string `gorm:"column:last_error" json:"last_error,omitempty"`
	InputTokens  int    `gorm:"column:input_tokens;not null;default:0" json:"input_tokens"`
	OutputTokens int    `gorm:"column:output_tokens;not null;default:0" json:"output_tokens"`
	CostCents    int    `gorm:"column:cost_cents;not null;default:0" json:"cost_cents"`

	CreatedAt time.Time `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (HydrationJob) TableName() string { return "hydration_job" }

func (j *HydrationJob) IsRoot() bool { return j.ParentJobID == nil }
