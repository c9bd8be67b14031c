package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// OutboxMessage is written in the same transaction as the business write that
// needs a downstream queue message. sent_at is null until a dispatcher pushes
// the payload to its queue.
type OutboxMessage struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Queue     string         `gorm:"column:queue;not null;index" json:"queue"`
	Payload   datatypes.JSON `gorm:"type:jsonb;column:payload;not null" json:"payload"`
	Attempts  int            `gorm:"column:attempts;not null;default:0" json:"attempts"`
	SentAt    *time.Time     `gorm:"column:sent_at;index" json:"sent_at,omitempty"`
	CreatedAt time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (OutboxMessage) TableName() string { return "outbox_message" }
