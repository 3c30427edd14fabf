package repository

import (
	"context"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/s-hit/mshd-backend/internal/errors"
	"github.com/s-hit/mshd-backend/internal/logger"
	"gorm.io/gorm"
)

const (
	defaultMaxRetries = 5
	defaultRetryDelay = 50 * time.Millisecond
	maxRetryDelay     = 2 * time.Second
)

// Store bundles the repositories bound to one database handle.
type Store struct {
	db         *gorm.DB
	maxRetries int
	retryDelay time.Duration
	log        logger.Logger
	inTx       bool
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithRetry sets how often a top-level transaction is retried after a lock
// conflict, and the base delay of the exponential backoff.
func WithRetry(maxRetries int, baseDelay time.Duration) StoreOption {
	return func(s *Store) {
		s.maxRetries = maxRetries
		s.retryDelay = baseDelay
	}
}

// WithLogger sets the logger used to report retries.
func WithLogger(log logger.Logger) StoreOption {
	return func(s *Store) {
		s.log = log
	}
}

// NewStore creates a Store on db.
func NewStore(db *gorm.DB, opts ...StoreOption) *Store {
	s := &Store{
		db:         db,
		maxRetries: defaultMaxRetries,
		retryDelay: defaultRetryDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB returns the underlying handle.
func (s *Store) DB() *gorm.DB { return s.db }

func (s *Store) Users() UserRepository     { return NewUserRepository(s.db) }
func (s *Store) Events() EventRepository   { return NewEventRepository(s.db) }
func (s *Store) Data() DatumRepository     { return NewDatumRepository(s.db) }
func (s *Store) Reports() ReportRepository { return NewReportRepository(s.db) }
func (s *Store) Stars() StarRepository     { return NewStarRepository(s.db) }

// Transaction runs fn in a transaction. Called on a Store that is already
// inside a transaction it opens a savepoint instead. Top-level transactions
// that fail with a lock conflict are rolled back and run again, so fn must
// not have side effects outside the database that it cannot repeat.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	if s.inTx {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(s.bind(tx))
		})
	}

	var err error
	for attempt := 0; ; attempt++ {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(s.bind(tx))
		})
		if err == nil || !IsRetryable(err) || attempt >= s.maxRetries {
			break
		}

		backoff := s.backoff(attempt)
		if s.log != nil {
			s.log.Warn("transaction conflict, retrying after backoff",
				logger.Int("attempt", attempt+1),
				logger.Int("max_retries", s.maxRetries),
				logger.Int64("backoff_ms", backoff.Milliseconds()),
				logger.Error(err))
		}

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return errors.New(ctx.Err()).
				Component("datastore").
				Context("operation", "transaction_retry").
				Build()
		}
	}

	if err != nil && IsRetryable(err) {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryRetry).
			Context("retries", s.maxRetries).
			Build()
	}
	return err
}

func (s *Store) bind(tx *gorm.DB) *Store {
	return &Store{db: tx, maxRetries: s.maxRetries, retryDelay: s.retryDelay, log: s.log, inTx: true}
}

// backoff doubles the base delay per attempt with up to 50% jitter.
func (s *Store) backoff(attempt int) time.Duration {
	d := s.retryDelay << min(attempt, 10)
	d = min(d, maxRetryDelay)
	return d + rand.N(d/2+1) //nolint:gosec // jitter does not need a CSPRNG
}

// IsRetryable reports whether err is a transient lock conflict that a fresh
// transaction can resolve: SQLITE_BUSY, MySQL deadlock or lock wait timeout,
// PostgreSQL serialization failure or deadlock.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "Deadlock found") ||
		strings.Contains(msg, "Lock wait timeout exceeded") ||
		strings.Contains(msg, "SQLSTATE 40001") ||
		strings.Contains(msg, "SQLSTATE 40P01")
}
