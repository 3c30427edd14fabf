package repository

import (
	"context"

	"github.com/s-hit/mshd-backend/internal/datastore/entities"
	"github.com/s-hit/mshd-backend/internal/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) Create(ctx context.Context, event *entities.Event) error {
	return dbError(r.db.WithContext(ctx).Create(event).Error)
}

func (r *eventRepository) GetByID(ctx context.Context, id uint) (*entities.Event, error) {
	var event entities.Event
	if err := r.db.WithContext(ctx).Table(tableEvents).First(&event, id).Error; err != nil {
		return nil, notFound(err, ErrEventNotFound)
	}
	return &event, nil
}

func (r *eventRepository) LockByID(ctx context.Context, id uint) (*entities.Event, error) {
	var event entities.Event
	err := r.db.WithContext(ctx).Table(tableEvents).
		Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		First(&event, id).Error
	if err != nil {
		return nil, notFound(err, ErrEventNotFound)
	}
	return &event, nil
}

func (r *eventRepository) Rename(ctx context.Context, id uint, name string) error {
	result := r.db.WithContext(ctx).Model(&entities.Event{}).
		Where("id = ?", id).
		Update("name", name)
	if result.Error != nil {
		return dbError(result.Error)
	}
	if result.RowsAffected == 0 {
		// MySQL reports zero affected rows when the name is unchanged
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (r *eventRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&entities.Event{}, id)
	if result.Error != nil {
		return dbError(result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.NotFound(ErrEventNotFound)
	}
	return nil
}

func (r *eventRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Event{}).Count(&count).Error
	return count, dbError(err)
}

func (r *eventRepository) List(ctx context.Context, offset, limit int) ([]*entities.Event, error) {
	var events []*entities.Event
	err := r.db.WithContext(ctx).Table(tableEvents).
		Order("created_at DESC").Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&events).Error
	return events, dbError(err)
}
