package services

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/brightboard/contentforge-backend/internal/logger"
	"github.com/brightboard/contentforge-backend/internal/repos"
	"github.com/brightboard/contentforge-backend/internal/types"
)

// AuditService appends JobExecutionLog rows. Writes are best-effort: a
// failed audit write is logged and swallowed so it can never fail the
// primary operation it describes.
type AuditService interface {
	Record(ctx context.Context, tx *gorm.DB, action string, entityType string, entityID *uuid.UUID, actorID *uuid.UUID, metadata map[string]any)
}

type auditService struct {
	db   *gorm.DB
	log  *logger.Logger
	repo repos.JobExecutionLogRepo
}

func NewAuditService(db *gorm.DB, baseLog *logger.Logger, repo repos.JobExecutionLogRepo) AuditService {
	return &auditService{
		db:   db,
		log:  baseLog.With("service", "AuditService"),
		repo: repo,
	}
}

func (s *auditService) Record(ctx context.Context, tx *gorm.DB, action string, entityType string, entityID *uuid.UUID, actorID *uuid.UUID, metadata map[string]any) {
	entry := &types.JobExecutionLog{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		ActorID:    actorID,
	}
	if metadata != nil {
		if b, err := json.Marshal(metadata); err == nil {
			entry.Metadata = datatypes.JSON(b)
		}
	}
	if err := s.repo.Append(ctx, tx, entry); err != nil {
		s.log.Warn("Audit write failed", "action", action, "entity_type", entityType, "error", err)
	}
}
