package incident

import (
	"context"
	"time"

	"github.com/s-hit/mshd-backend/internal/datastore/entities"
	"github.com/s-hit/mshd-backend/internal/datastore/repository"
	"github.com/s-hit/mshd-backend/internal/errors"
	"github.com/s-hit/mshd-backend/internal/logger"
)

// Key builds the datum key for a report observed at observed.
func (s *Service) Key(area string, observed time.Time, category Category) repository.DatumKey {
	return repository.DatumKey{Area: area, Date: DayOf(observed, s.loc), Category: int(category)}
}

// Resolve finds the datum for (area, day of observed, category), creating
// it together with a new auto-named event when absent. created reports
// whether this call inserted the datum.
func (s *Service) Resolve(ctx context.Context, area string, observed time.Time, category Category) (*entities.Datum, bool, error) {
	key := s.Key(area, observed, category)

	var (
		datum   *entities.Datum
		created bool
		fx      effects
	)
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		fx = effects{}
		var err error
		datum, created, err = s.resolve(ctx, tx, key, &fx)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	if created {
		s.publish(fx)
	}
	return datum, created, nil
}

// resolve is the find-or-create step inside tx. The insert runs in a
// savepoint: when a concurrent transaction committed the same key first,
// the unique index rejects ours, the savepoint drops our event too and the
// winner's row is read back.
func (s *Service) resolve(ctx context.Context, tx *repository.Store, key repository.DatumKey, fx *effects) (*entities.Datum, bool, error) {
	datum, err := tx.Data().GetByKey(ctx, key)
	if err == nil {
		return datum, false, nil
	}
	if !errors.Is(err, repository.ErrDatumNotFound) {
		return nil, false, err
	}

	err = tx.Transaction(ctx, func(sp *repository.Store) error {
		event, err := s.createAutoEvent(ctx, sp, key)
		if err != nil {
			return err
		}
		datum = &entities.Datum{Area: key.Area, Date: key.Date, Category: key.Category, EventID: event.ID}
		return sp.Data().Create(ctx, datum)
	})
	if err == nil {
		fx.dataCreated++
		s.log.Debug("datum created",
			logger.Uint("datum_id", datum.ID),
			logger.Uint("event_id", datum.EventID),
			logger.String("area", key.Area),
			logger.String("date", key.Date),
			logger.Int("category", key.Category))
		return datum, true, nil
	}
	if !errors.Is(err, repository.ErrDuplicateKey) {
		return nil, false, err
	}

	s.log.Debug("lost datum creation race, using existing row",
		logger.String("area", key.Area),
		logger.String("date", key.Date),
		logger.Int("category", key.Category))
	datum, err = tx.Data().GetByKeyShared(ctx, key)
	if err != nil {
		return nil, false, err
	}
	return datum, false, nil
}
