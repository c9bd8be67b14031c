package types

import (
	"time"
)

// JobLock is an ephemeral TTL mutex row for periodic singleton jobs.
// Absence or an expired locked_until means the lock is available.
type JobLock struct {
	JobName     string    `gorm:"column:job_name;primaryKey" json:"job_name"`
	LockedUntil time.Time `gorm:"column:locked_until;not null" json:"locked_until"`
	CreatedAt   time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (JobLock) TableName() string { return "job_lock" }
