package repository

import (
	"context"

	"github.com/s-hit/mshd-backend/internal/datastore/entities"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type starRepository struct {
	db *gorm.DB
}

// NewStarRepository creates a new StarRepository.
func NewStarRepository(db *gorm.DB) StarRepository {
	return &starRepository{db: db}
}

func (r *starRepository) Exists(ctx context.Context, userID, reportID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Star{}).
		Where("user_id = ? AND report_id = ?", userID, reportID).
		Count(&count).Error
	return count > 0, dbError(err)
}

// Ensure relies on the (user_id, report_id) unique index; a concurrent
// duplicate is absorbed by ON CONFLICT DO NOTHING (INSERT IGNORE on MySQL).
func (r *starRepository) Ensure(ctx context.Context, userID, reportID uint) error {
	star := entities.Star{UserID: userID, ReportID: reportID}
	err := r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&star).Error
	return dbError(err)
}

func (r *starRepository) Remove(ctx context.Context, userID, reportID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND report_id = ?", userID, reportID).
		Delete(&entities.Star{})
	if result.Error != nil {
		return false, dbError(result.Error)
	}
	return result.RowsAffected > 0, nil
}
