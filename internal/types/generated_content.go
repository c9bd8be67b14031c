package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// GeneratedContent is the persistence target for hydration output. The core
// treats content as opaque JSON; downstream product tables project from it.
type GeneratedContent struct {
	ID             uuid.UUID        `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	HydrationJobID uuid.UUID        `gorm:"type:uuid;column:hydration_job_id;not null;index" json:"hydration_job_id"`
	Kind           HydrationJobType `gorm:"column:kind;not null;index" json:"kind"`
	EntityType     string           `gorm:"column:entity_type;not null" json:"entity_type"`
	EntityID       uuid.UUID        `gorm:"type:uuid;column:entity_id;not null;index" json:"entity_id"`
	Content        datatypes.JSON   `gorm:"type:jsonb;column:content;not null" json:"content"`
	CreatedAt      time.Time        `gorm:"not null;default:now();index" json:"created_at"`
}

func (GeneratedContent) TableName() string { return "generated_content" }
