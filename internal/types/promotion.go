package types

import (
	"time"

	"github.com/google/uuid"
)

// PromotionCandidate is a regenerated output waiting for an admin to make it
// the live version for its scope.
type PromotionCandidate struct {
	ID                uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Scope             string          `gorm:"column:scope;not null;index:idx_promotion_scope" json:"scope"`
	ScopeRefID        uuid.UUID       `gorm:"type:uuid;column:scope_ref_id;not null;index:idx_promotion_scope" json:"scope_ref_id"`
	RegenerationJobID uuid.UUID       `gorm:"type:uuid;column:regeneration_job_id;not null;index" json:"regeneration_job_id"`
	OutputRef         uuid.UUID       `gorm:"type:uuid;column:output_ref;not null" json:"output_ref"`
	Status            PromotionStatus `gorm:"column:status;not null;index" json:"status"`
	ApprovedBy        *uuid.UUID      `gorm:"type:uuid;column:approved_by" json:"approved_by,omitempty"`
	ApprovedAt        *time.Time      `gorm:"column:approved_at" json:"approved_at,omitempty"`
	CreatedAt         time.Time       `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"not null;default:now()" json:"updated_at"`
}

func (PromotionCandidate) TableName() string { return "promotion_candidate" }

// PublishedOutput is the single live output for a (scope, scope_ref_id) pair.
// Approving a later candidate deletes the prior row and creates a new one.
type PublishedOutput struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Scope      string    `gorm:"column:scope;not null;uniqueIndex:uq_published_scope" json:"scope"`
	ScopeRefID uuid.UUID `gorm:"type:uuid;column:scope_ref_id;not null;uniqueIndex:uq_published_scope" json:"scope_ref_id"`
	OutputRef  uuid.UUID `gorm:"type:uuid;column:output_ref;not null" json:"output_ref"`
	CreatedAt  time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (PublishedOutput) TableName() string { return "published_output" }
