package repos

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/brightboard/contentforge-backend/internal/logger"
	"github.com/brightboard/contentforge-backend/internal/types"
)

// LockResult reports whether a periodic job may run. Acquire never returns an
// error: callers are ticker loops and must degrade to "did not run" instead
// of crashing.
type LockResult struct {
	Acquired bool   `json:"acquired"`
	Skipped  bool   `json:"skipped"`
	Reason   string `json:"reason,omitempty"` // "locked" | "error"
}

type JobLockRepo interface {
	Acquire(ctx context.Context, jobName string, ttl time.Duration) LockResult
	Release(ctx context.Context, jobName string)
}

type jobLockRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobLockRepo(db *gorm.DB, baseLog *logger.Logger) JobLockRepo {
	return &jobLockRepo{
		db:  db,
		log: baseLog.With("repo", "JobLockRepo"),
	}
}

func (r *jobLockRepo) Acquire(ctx context.Context, jobName string, ttl time.Duration) LockResult {
	now := time.Now()
	lock := &types.JobLock{
		JobName:     jobName,
		LockedUntil: now.Add(ttl),
	}
	// Fresh insert first; a conflict means some holder's row exists.
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(lock)
	if res.Error != nil {
		r.log.Warn("Job lock insert failed", "job_name", jobName, "error", res.Error)
		return LockResult{Skipped: true, Reason: "error"}
	}
	if res.RowsAffected == 1 {
		return LockResult{Acquired: true}
	}
	// Expired-lock takeover: only succeeds if the holder's TTL has passed.
	upd := r.db.WithContext(ctx).
		Model(&types.JobLock{}).
		Where("job_name = ? AND locked_until < ?", jobName, now).
		Updates(map[string]interface{}{
			"locked_until": now.Add(ttl),
			"updated_at":   now,
		})
	if upd.Error != nil {
		r.log.Warn("Job lock takeover failed", "job_name", jobName, "error", upd.Error)
		return LockResult{Skipped: true, Reason: "error"}
	}
	if upd.RowsAffected == 1 {
		return LockResult{Acquired: true}
	}
	return LockResult{Skipped: true, Reason: "locked"}
}

func (r *jobLockRepo) Release(ctx context.Context, jobName string) {
	if err := r.db.WithContext(ctx).
		Where("job_name = ?", jobName).
		Delete(&types.JobLock{}).Error; err != nil {
		r.log.Warn("Job lock release failed", "job_name", jobName, "error", err)
	}
}
