package repository

import (
	"context"

	"github.com/s-hit/mshd-backend/internal/datastore/entities"
)

// EventRepository provides access to the events table.
type EventRepository interface {
	// Create inserts a new event and fills in its ID.
	Create(ctx context.Context, event *entities.Event) error

	// GetByID returns ErrEventNotFound if the event does not exist.
	GetByID(ctx context.Context, id uint) (*entities.Event, error)

	// LockByID reads the event with an exclusive row lock held until the
	// enclosing transaction ends. SQLite ignores the lock clause; its
	// writers are already serialized by BEGIN IMMEDIATE.
	LockByID(ctx context.Context, id uint) (*entities.Event, error)

	// Rename updates the name only. Returns ErrEventNotFound if no row matched.
	Rename(ctx context.Context, id uint, name string) error

	// Delete removes the event. Returns ErrEventNotFound if no row matched.
	Delete(ctx context.Context, id uint) error

	// Count returns the total number of events.
	Count(ctx context.Context) (int64, error)

	// List returns events newest first.
	List(ctx context.Context, offset, limit int) ([]*entities.Event, error)
}
