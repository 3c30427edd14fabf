package repository

import (
	"context"

	"github.com/s-hit/mshd-backend/internal/datastore/entities"
	"gorm.io/gorm"
)

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByName(ctx context.Context, name string) (*entities.User, error) {
	var user entities.User
	err := r.db.WithContext(ctx).Table(tableUsers).Where("name = ?", name).First(&user).Error
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *entities.User) error {
	return dbError(r.db.WithContext(ctx).Create(user).Error)
}
