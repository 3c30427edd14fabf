package repository

import (
	"context"

	"github.com/s-hit/mshd-backend/internal/datastore/entities"
)

// UserRepository provides access to the users table.
type UserRepository interface {
	// GetByName returns ErrUserNotFound if no user has the name.
	GetByName(ctx context.Context, name string) (*entities.User, error)

	// Create inserts the user. A concurrent insert of the same name
	// returns ErrDuplicateKey.
	Create(ctx context.Context, user *entities.User) error
}
