package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightboard/contentforge-backend/internal/logger"
	"github.com/brightboard/contentforge-backend/internal/normalization"
	"github.com/brightboard/contentforge-backend/internal/types"
)

type SubjectRepo interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Subject, error)
	Create(ctx context.Context, tx *gorm.DB, subject *types.Subject) (*types.Subject, error)
}

type subjectRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSubjectRepo(db *gorm.DB, baseLog *logger.Logger) SubjectRepo {
	return &subjectRepo{
		db:  db,
		log: baseLog.With("repo", "SubjectRepo"),
	}
}

func (r *subjectRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Subject, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var subject types.Subject
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&subject).Error
	if err != nil {
		return nil, err
	}
	if subject.ID == uuid.Nil {
		return nil, nil
	}
	return &subject, nil
}

func (r *subjectRepo) Create(ctx context.Context, tx *gorm.DB, subject *types.Subject) (*types.Subject, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if subject.ID == uuid.Nil {
		subject.ID = uuid.New()
	}
	subject.Board = normalization.Normalize(subject.Board)
	subject.Name = normalization.Normalize(subject.Name)
	subject.Language = normalization.NormalizeLanguage(subject.Language)
	if err := transaction.WithContext(ctx).Create(subject).Error; err != nil {
		return nil, err
	}
	return subject, nil
}
