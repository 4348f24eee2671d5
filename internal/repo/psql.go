package repo

import (
	"context"

	"github.com/codeclash-dev/DuelWssManagerService/internal/model"
	"gorm.io/gorm"
)

// PSQLRepository persists the append-only match history.
type PSQLRepository struct {
	db *gorm.DB
}

func NewPSQLRepository(db *gorm.DB) *PSQLRepository {
	return &PSQLRepository{db: db}
}

func (r *PSQLRepository) SaveMatch(ctx context.Context, record *model.MatchRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *PSQLRepository) MatchesByUser(ctx context.Context, userID string, limit int) ([]model.MatchRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var records []model.MatchRecord
	err := r.db.WithContext(ctx).
		Where("p1_user_id = ? OR p2_user_id = ?", userID, userID).
		Order("played_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}
