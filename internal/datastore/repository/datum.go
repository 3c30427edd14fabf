package repository

import (
	"context"

	"github.com/s-hit/mshd-backend/internal/datastore/entities"
)

// DatumKey is the grouping key of a Datum. Date uses entities.DateLayout.
type DatumKey struct {
	Area     string
	Date     string
	Category int
}

// DatumRepository provides access to the data table.
type DatumRepository interface {
	// GetByID returns ErrDatumNotFound if the datum does not exist.
	GetByID(ctx context.Context, id uint) (*entities.Datum, error)

	// LockByID reads the datum with FOR UPDATE so that its event cannot
	// change until the transaction ends.
	LockByID(ctx context.Context, id uint) (*entities.Datum, error)

	// GetByKey returns ErrDatumNotFound if no datum has the key.
	GetByKey(ctx context.Context, key DatumKey) (*entities.Datum, error)

	// GetByKeyShared is GetByKey as a locking read. Under REPEATABLE READ
	// it sees rows committed after the transaction's snapshot, which is
	// what a loser of a duplicate-key race needs to find the winner.
	GetByKeyShared(ctx context.Context, key DatumKey) (*entities.Datum, error)

	// Create inserts the datum. A row with the same key returns ErrDuplicateKey.
	Create(ctx context.Context, datum *entities.Datum) error

	// SetEvent points the datum at another event.
	SetEvent(ctx context.Context, datumID, eventID uint) error

	// HasMembers reports whether any datum references the event, as a
	// locking read so that rows committed after the snapshot are seen.
	HasMembers(ctx context.Context, eventID uint) (bool, error)

	// HasOtherMembers is HasMembers ignoring the datum with id exclude.
	HasOtherMembers(ctx context.Context, eventID, exclude uint) (bool, error)

	// ListByEvent returns the event's data newest first.
	ListByEvent(ctx context.Context, eventID uint) ([]*entities.Datum, error)
}
