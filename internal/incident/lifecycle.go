package incident

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/s-hit/mshd-backend/internal/datastore/entities"
	"github.com/s-hit/mshd-backend/internal/datastore/repository"
	"github.com/s-hit/mshd-backend/internal/errors"
	"github.com/s-hit/mshd-backend/internal/logger"
)

// MsgEventNameRequired is returned when a rename has a blank name.
const MsgEventNameRequired = "请输入灾情名称。"

// maxEventNameLength matches the events.name column.
const maxEventNameLength = 255

// effects collects what one transaction did. They are reported to the
// Recorder only after commit, so retried attempts are not double counted.
type effects struct {
	dataCreated     int
	eventsReclaimed int
}

func (s *Service) publish(fx effects) {
	for range fx.dataCreated {
		s.recorder.DatumCreated()
	}
	for range fx.eventsReclaimed {
		s.recorder.EventReclaimed()
	}
	s.invalidateStats()
}

// EventName builds the auto-generated name "{date} {area}{label}".
func EventName(date, area string, category Category) string {
	return fmt.Sprintf("%s %s%s", date, area, category.Label())
}

// CreateAutoEvent creates an empty event named after the key. The caller
// is expected to point a datum at it in the same transaction; an event
// created on its own is reclaimed by the next ReclaimIfEmpty.
func (s *Service) CreateAutoEvent(ctx context.Context, date time.Time, area string, category Category) (*entities.Event, error) {
	key := repository.DatumKey{Area: area, Date: DayOf(date, s.loc), Category: int(category)}
	return s.createAutoEvent(ctx, s.store, key)
}

func (s *Service) createAutoEvent(ctx context.Context, tx *repository.Store, key repository.DatumKey) (*entities.Event, error) {
	event := &entities.Event{Name: EventName(key.Date, key.Area, Category(key.Category))}
	if err := tx.Events().Create(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

// RenameEvent changes an event's name. Membership is untouched.
func (s *Service) RenameEvent(ctx context.Context, id uint, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.ValidationError(MsgEventNameRequired)
	}
	if len([]rune(name)) > maxEventNameLength {
		return errors.ValidationError(fmt.Sprintf("灾情名称不能超过 %d 个字符。", maxEventNameLength))
	}

	if err := s.store.Events().Rename(ctx, id, name); err != nil {
		return err
	}
	s.log.Info("event renamed", logger.Uint("event_id", id), logger.String("name", name))
	return nil
}

// ReclaimIfEmpty deletes the event when no datum references it. It must run
// in the transaction that removed the last reference: the event row is
// locked first, which blocks concurrent inserts pointing at it until commit.
// An event that is already gone counts as not reclaimed.
func (s *Service) ReclaimIfEmpty(ctx context.Context, tx *repository.Store, id uint) (bool, error) {
	if _, err := tx.Events().LockByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return false, nil
		}
		return false, err
	}

	has, err := tx.Data().HasMembers(ctx, id)
	if err != nil || has {
		return false, err
	}

	if err := tx.Events().Delete(ctx, id); err != nil {
		return false, err
	}
	s.log.Debug("empty event reclaimed", logger.Uint("event_id", id))
	return true, nil
}
