package repository

import (
	"context"

	"github.com/s-hit/mshd-backend/internal/datastore/entities"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type datumRepository struct {
	db *gorm.DB
}

// NewDatumRepository creates a new DatumRepository.
func NewDatumRepository(db *gorm.DB) DatumRepository {
	return &datumRepository{db: db}
}

// keyCondition uses a map so that category 0 is not dropped as a zero value.
func keyCondition(key DatumKey) map[string]any {
	return map[string]any{
		"area":     key.Area,
		"date":     key.Date,
		"category": key.Category,
	}
}

func (r *datumRepository) GetByID(ctx context.Context, id uint) (*entities.Datum, error) {
	var datum entities.Datum
	if err := r.db.WithContext(ctx).Table(tableData).First(&datum, id).Error; err != nil {
		return nil, notFound(err, ErrDatumNotFound)
	}
	return &datum, nil
}

func (r *datumRepository) LockByID(ctx context.Context, id uint) (*entities.Datum, error) {
	var datum entities.Datum
	err := r.db.WithContext(ctx).Table(tableData).
		Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		First(&datum, id).Error
	if err != nil {
		return nil, notFound(err, ErrDatumNotFound)
	}
	return &datum, nil
}

func (r *datumRepository) GetByKey(ctx context.Context, key DatumKey) (*entities.Datum, error) {
	var datum entities.Datum
	err := r.db.WithContext(ctx).Table(tableData).
		Where(keyCondition(key)).
		First(&datum).Error
	if err != nil {
		return nil, notFound(err, ErrDatumNotFound)
	}
	return &datum, nil
}

func (r *datumRepository) GetByKeyShared(ctx context.Context, key DatumKey) (*entities.Datum, error) {
	var datum entities.Datum
	err := r.db.WithContext(ctx).Table(tableData).
		Clauses(clause.Locking{Strength: clause.LockingStrengthShare}).
		Where(keyCondition(key)).
		First(&datum).Error
	if err != nil {
		return nil, notFound(err, ErrDatumNotFound)
	}
	return &datum, nil
}

func (r *datumRepository) Create(ctx context.Context, datum *entities.Datum) error {
	return dbError(r.db.WithContext(ctx).Omit(clause.Associations).Create(datum).Error)
}

func (r *datumRepository) SetEvent(ctx context.Context, datumID, eventID uint) error {
	result := r.db.WithContext(ctx).Model(&entities.Datum{}).
		Where("id = ?", datumID).
		Update("event_id", eventID)
	if result.Error != nil {
		return dbError(result.Error)
	}
	if result.RowsAffected == 0 {
		// MySQL reports zero affected rows when event_id is unchanged
		if _, err := r.GetByID(ctx, datumID); err != nil {
			return err
		}
	}
	return nil
}

func (r *datumRepository) HasMembers(ctx context.Context, eventID uint) (bool, error) {
	return r.probeMembers(r.db.WithContext(ctx).Where("event_id = ?", eventID))
}

func (r *datumRepository) HasOtherMembers(ctx context.Context, eventID, exclude uint) (bool, error) {
	return r.probeMembers(r.db.WithContext(ctx).Where("event_id = ? AND id <> ?", eventID, exclude))
}

// probeMembers reads at most one matching row under a share lock.
// PostgreSQL rejects FOR SHARE on aggregates, so no COUNT here.
func (r *datumRepository) probeMembers(query *gorm.DB) (bool, error) {
	var ids []uint
	err := query.Model(&entities.Datum{}).
		Clauses(clause.Locking{Strength: clause.LockingStrengthShare}).
		Limit(1).
		Pluck("id", &ids).Error
	if err != nil {
		return false, dbError(err)
	}
	return len(ids) > 0, nil
}

func (r *datumRepository) ListByEvent(ctx context.Context, eventID uint) ([]*entities.Datum, error) {
	var data []*entities.Datum
	err := r.db.WithContext(ctx).Table(tableData).
		Where("event_id = ?", eventID).
		Order("created_at DESC").Order("id DESC").
		Find(&data).Error
	return data, dbError(err)
}
