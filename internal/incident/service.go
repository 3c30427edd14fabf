// Package incident groups disaster reports into data and events.
//
// A report resolves to exactly one Datum, the (area, day, category) bucket
// it was observed in. Each Datum belongs to one Event, a named and
// user-editable aggregate. New data get an auto-named Event of their own;
// users may later merge data into other events or split them out, and an
// Event left without data is deleted in the same transaction.
//
// Consistency relies on the database alone: a unique index on the datum
// key, row locks on events and transactions that the repository Store
// retries on lock conflicts. The Service keeps no state between calls
// apart from a short-lived statistics cache.
package incident

import (
	"io"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/s-hit/mshd-backend/internal/datastore/repository"
	"github.com/s-hit/mshd-backend/internal/geocoder"
	"github.com/s-hit/mshd-backend/internal/logger"
	"github.com/s-hit/mshd-backend/internal/media"
)

const (
	// ReportPageSize is the number of reports per listing page.
	ReportPageSize = 10
	// EventPageSize is the number of events per listing page.
	EventPageSize = 20
	// TodayCoordsLimit caps the coordinates returned with home statistics.
	TodayCoordsLimit = 20

	// DefaultMaxAttachments is the per-report attachment limit.
	DefaultMaxAttachments = 9
	defaultStatsTTL       = 10 * time.Second
	defaultTimezone       = "Asia/Shanghai"
)

// Ingestion results passed to Recorder.ReportIngested.
const (
	ResultSuccess  = "success"
	ResultRejected = "rejected"
	ResultError    = "error"
)

// Recorder observes engine activity. Calls happen after commit.
type Recorder interface {
	ReportIngested(result string, elapsed time.Duration)
	DatumCreated()
	EventReclaimed()
}

type nopRecorder struct{}

func (nopRecorder) ReportIngested(string, time.Duration) {}
func (nopRecorder) DatumCreated()                        {}
func (nopRecorder) EventReclaimed()                      {}

// Service implements report ingestion, grouping and the read side.
// It is safe for concurrent use.
type Service struct {
	store          *repository.Store
	geocoder       geocoder.Geocoder
	media          *media.Store
	loc            *time.Location
	log            logger.Logger
	recorder       Recorder
	now            func() time.Time
	stats          *cache.Cache
	maxAttachments int
}

// Option configures a Service.
type Option func(*Service)

// WithGeocoder sets the area resolver. Without one every report lands in
// geocoder.UnknownArea.
func WithGeocoder(g geocoder.Geocoder) Option {
	return func(s *Service) {
		if g != nil {
			s.geocoder = g
		}
	}
}

// WithAttachments enables image attachments. Without a media store any
// report carrying files is rejected.
func WithAttachments(m *media.Store) Option {
	return func(s *Service) { s.media = m }
}

// WithLocation sets the timezone whose calendar days bucket reports.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithStatsTTL sets how long home statistics are cached. Zero disables caching.
func WithStatsTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl <= 0 {
			s.stats = nil
			return
		}
		s.stats = cache.New(ttl, 2*ttl)
	}
}

// WithMaxAttachments sets how many files one report may carry.
func WithMaxAttachments(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAttachments = n
		}
	}
}

// New creates a Service on store.
func New(store *repository.Store, opts ...Option) *Service {
	loc, err := time.LoadLocation(defaultTimezone)
	if err != nil {
		loc = time.FixedZone("CST", 8*60*60)
	}

	s := &Service{
		store:          store,
		geocoder:       geocoder.None{},
		loc:            loc,
		log:            logger.NewSlogLogger(io.Discard, logger.LogLevelError, nil),
		recorder:       nopRecorder{},
		now:            time.Now,
		stats:          cache.New(defaultStatsTTL, 2*defaultStatsTTL),
		maxAttachments: DefaultMaxAttachments,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location returns the grouping timezone.
func (s *Service) Location() *time.Location {
	return s.loc
}

// invalidateStats drops cached home statistics after a mutation.
func (s *Service) invalidateStats() {
	if s.stats != nil {
		s.stats.Flush()
	}
}

// pageOffset clamps negative pages to the first page.
func pageOffset(page, size int) int {
	return max(page, 0) * size
}

// maxPage is ceil(total/size).
func maxPage(total int64, size int) int {
	return int((total + int64(size) - 1) / int64(size))
}
