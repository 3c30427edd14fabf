package incident

import (
	"context"
	"time"

	"github.com/s-hit/mshd-backend/internal/datastore/entities"
	"github.com/s-hit/mshd-backend/internal/datastore/repository"
	"github.com/s-hit/mshd-backend/internal/errors"
	"github.com/s-hit/mshd-backend/internal/logger"
)

// maxLockAttempts bounds how often reassign chases a datum that concurrent
// transactions keep moving.
const maxLockAttempts = 3

// Reassign moves a datum to another event.
//
// With a target, the datum joins that event, which must exist. Without one,
// the datum is split into a new auto-named event, unless it is already the
// only member of its event, in which case nothing changes. Either way the
// previous event is deleted in the same transaction if it was left empty.
func (s *Service) Reassign(ctx context.Context, datumID uint, target *uint) error {
	var fx effects
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		fx = effects{}
		return s.reassign(ctx, tx, datumID, target, &fx)
	})
	if err != nil {
		return err
	}
	s.publish(fx)
	return nil
}

// ReassignByKey addresses the datum by its key, creating it (with its own
// event) first when no report has used the key yet.
func (s *Service) ReassignByKey(ctx context.Context, area string, date time.Time, category Category, target *uint) error {
	key := s.Key(area, date, category)

	var fx effects
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		fx = effects{}
		datum, _, err := s.resolve(ctx, tx, key, &fx)
		if err != nil {
			return err
		}
		return s.reassign(ctx, tx, datum.ID, target, &fx)
	})
	if err != nil {
		return err
	}
	s.publish(fx)
	return nil
}

func (s *Service) reassign(ctx context.Context, tx *repository.Store, datumID uint, target *uint, fx *effects) error {
	datum, err := s.lockDatum(ctx, tx, datumID, target)
	if err != nil {
		return err
	}
	previous := datum.EventID
	if target != nil && *target == previous {
		return nil
	}

	var next uint
	if target != nil {
		next = *target
	} else {
		others, err := tx.Data().HasOtherMembers(ctx, previous, datum.ID)
		if err != nil {
			return err
		}
		if !others {
			return nil
		}
		event, err := s.createAutoEvent(ctx, tx, repository.DatumKey{Area: datum.Area, Date: datum.Date, Category: datum.Category})
		if err != nil {
			return err
		}
		next = event.ID
	}

	if err := tx.Data().SetEvent(ctx, datum.ID, next); err != nil {
		return err
	}

	reclaimed, err := s.ReclaimIfEmpty(ctx, tx, previous)
	if err != nil {
		return err
	}
	if reclaimed {
		fx.eventsReclaimed++
	}

	s.log.WithContext(ctx).Info("datum reassigned",
		logger.Uint("datum_id", datum.ID),
		logger.Uint("from_event_id", previous),
		logger.Uint("to_event_id", next),
		logger.Bool("split", target == nil),
		logger.Bool("previous_reclaimed", reclaimed))
	return nil
}

// lockDatum locks the datum's current event, the target and then the datum
// row. Events are always locked before data, as in ReclaimIfEmpty. When the
// datum moved while the event locks were awaited, the locks are taken again
// for its new event. A datum already in the target is returned unlocked.
func (s *Service) lockDatum(ctx context.Context, tx *repository.Store, datumID uint, target *uint) (*entities.Datum, error) {
	datum, err := tx.Data().GetByID(ctx, datumID)
	if err != nil {
		return nil, err
	}

	for range maxLockAttempts {
		previous := datum.EventID
		if target != nil && *target == previous {
			return datum, nil
		}

		ids := []uint{previous}
		if target != nil {
			// id order so that opposite moves cannot deadlock
			ids = lockOrder(previous, *target)
		}
		for _, id := range ids {
			if _, err := tx.Events().LockByID(ctx, id); err != nil {
				if id == previous && errors.IsNotFound(err) {
					continue
				}
				return nil, err
			}
		}

		datum, err = tx.Data().LockByID(ctx, datumID)
		if err != nil {
			return nil, err
		}
		if datum.EventID == previous {
			return datum, nil
		}
		s.log.WithContext(ctx).Debug("datum moved while locking, retrying",
			logger.Uint("datum_id", datumID),
			logger.Uint("expected_event_id", previous),
			logger.Uint("event_id", datum.EventID))
	}

	return nil, errors.Newf("datum %d kept moving between events", datumID).
		Component("incident").
		Category(errors.CategoryConflict).
		Context("datum_id", datumID).
		Build()
}

func lockOrder(a, b uint) []uint {
	if a < b {
		return []uint{a, b}
	}
	return []uint{b, a}
}
