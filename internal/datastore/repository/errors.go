package repository

import (
	"github.com/s-hit/mshd-backend/internal/errors"
	"gorm.io/gorm"
)

// Sentinel errors for repository operations.
var (
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = errors.NewStd("user not found")

	// ErrEventNotFound indicates the requested event does not exist.
	ErrEventNotFound = errors.NewStd("event not found")

	// ErrDatumNotFound indicates no datum exists for the id or key.
	ErrDatumNotFound = errors.NewStd("datum not found")

	// ErrReportNotFound indicates the requested report does not exist.
	ErrReportNotFound = errors.NewStd("report not found")

	// ErrDuplicateKey indicates a unique constraint violation.
	ErrDuplicateKey = errors.NewStd("duplicate key")
)

// notFound maps gorm.ErrRecordNotFound to the given sentinel.
func notFound(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errors.NotFound(sentinel)
	}
	return dbError(err)
}

// dbError tags storage failures. Duplicate keys keep a matchable sentinel.
func dbError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errors.New(errors.Join(ErrDuplicateKey, err)).
			Component("datastore").
			Category(errors.CategoryConflict).
			Build()
	}
	return errors.New(err).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Build()
}
