package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/prepdeck/prepdeck/internal/models"
)

type TranscriptRepo interface {
	InsertBatch(ctx context.Context, rows []models.TranscriptEntry) error
	ListByCall(ctx context.Context, userID, callID string) ([]models.TranscriptEntry, error)
}

type transcriptRepo struct {
	db *gorm.DB
}

func NewTranscriptRepo(db *gorm.DB) TranscriptRepo {
	return &transcriptRepo{db: db}
}

func (r *transcriptRepo) InsertBatch(ctx context.Context, rows []models.TranscriptEntry) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

func (r *transcriptRepo) ListByCall(ctx context.Context, userID, callID string) ([]models.TranscriptEntry, error) {
	var rows []models.TranscriptEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND call_id = ?", userID, callID).
		Order("position ASC").
		Find(&rows).Error
	return rows, err
}
