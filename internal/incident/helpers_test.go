package incident

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/s-hit/mshd-backend/internal/conf"
	"github.com/s-hit/mshd-backend/internal/datastore"
	"github.com/s-hit/mshd-backend/internal/datastore/entities"
	"github.com/s-hit/mshd-backend/internal/datastore/repository"
	"github.com/s-hit/mshd-backend/internal/geocoder"
	"github.com/s-hit/mshd-backend/internal/logger"
	"github.com/s-hit/mshd-backend/internal/media"
)

// fixedGeocoder answers every located lookup with one area.
type fixedGeocoder struct {
	area string
}

func (g fixedGeocoder) ReverseGeocode(_ context.Context, lng, lat *float64) string {
	if lng == nil || lat == nil {
		return geocoder.UnknownArea
	}
	return g.area
}

type countingRecorder struct {
	mu        sync.Mutex
	results   map[string]int
	created   int
	reclaimed int
}

func (r *countingRecorder) ReportIngested(result string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.results == nil {
		r.results = map[string]int{}
	}
	r.results[result]++
}

func (r *countingRecorder) DatumCreated() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created++
}

func (r *countingRecorder) EventReclaimed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reclaimed++
}

type testEnv struct {
	svc      *Service
	store    *repository.Store
	media    *media.Store
	recorder *countingRecorder
	now      time.Time
	loc      *time.Location
	mediaDir string
}

// newTestEnv builds a Service on a fresh SQLite database. The clock is
// fixed at 2024-05-01 12:00 Shanghai time and the geocoder answers 上海市.
func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()

	log := logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)
	dir := t.TempDir()
	mgr, err := datastore.Open(&conf.DatabaseSettings{
		Type:   conf.DatabaseSQLite,
		SQLite: conf.SQLiteSettings{Path: filepath.Join(dir, "incident.db")},
	}, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Close() })
	require.NoError(t, mgr.Initialize(t.Context()))

	store := repository.NewStore(mgr.DB(), repository.WithRetry(5, time.Millisecond), repository.WithLogger(log))

	mediaDir := filepath.Join(dir, "public")
	ms, err := media.NewStore(media.Config{
		ImagesDir:     filepath.Join(mediaDir, "images"),
		ThumbnailsDir: filepath.Join(mediaDir, "thumbnails"),
	}, log)
	require.NoError(t, err)

	loc, err := time.LoadLocation("Asia/Shanghai")
	require.NoError(t, err)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, loc)
	rec := &countingRecorder{}

	base := []Option{
		WithGeocoder(fixedGeocoder{area: "上海市"}),
		WithAttachments(ms),
		WithLocation(loc),
		WithLogger(log),
		WithRecorder(rec),
		WithClock(func() time.Time { return now }),
	}
	svc := New(store, append(base, opts...)...)

	return &testEnv{svc: svc, store: store, media: ms, recorder: rec, now: now, loc: loc, mediaDir: mediaDir}
}

// ingest submits a located report and fails the test on error.
func (e *testEnv) ingest(t *testing.T, category, observed string, uploads ...media.Upload) *entities.Report {
	t.Helper()
	report, err := e.svc.Ingest(t.Context(), IngestRequest{
		Description: "道路受损",
		Lng:         "121.47",
		Lat:         "31.23",
		ObservedAt:  observed,
		Category:    category,
		Attachments: uploads,
	})
	require.NoError(t, err)
	return report
}

func (e *testEnv) eventCount(t *testing.T) int64 {
	t.Helper()
	n, err := e.store.Events().Count(t.Context())
	require.NoError(t, err)
	return n
}

// requireNoEmptyEvents fails when an event is left without data.
func (e *testEnv) requireNoEmptyEvents(t *testing.T) {
	t.Helper()
	events, err := e.store.Events().List(t.Context(), 0, 1000)
	require.NoError(t, err)
	for _, event := range events {
		has, err := e.store.Data().HasMembers(t.Context(), event.ID)
		require.NoError(t, err)
		require.True(t, has, "event %d (%s) has no data", event.ID, event.Name)
	}
}

func (e *testEnv) reportCount(t *testing.T) int64 {
	t.Helper()
	n, err := e.store.Reports().Count(t.Context())
	require.NoError(t, err)
	return n
}

func (e *testEnv) datum(t *testing.T, id uint) *entities.Datum {
	t.Helper()
	d, err := e.store.Data().GetByID(t.Context(), id)
	require.NoError(t, err)
	return d
}

// storedFiles lists the names under the images and thumbnails directories.
func (e *testEnv) storedFiles(t *testing.T) []string {
	t.Helper()
	var files []string
	for _, sub := range []string{"images", "thumbnails"} {
		entries, err := os.ReadDir(filepath.Join(e.mediaDir, sub))
		require.NoError(t, err)
		for _, entry := range entries {
			files = append(files, filepath.Join(sub, entry.Name()))
		}
	}
	return files
}

func pngUpload(t *testing.T, name string) media.Upload {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 24))
	for x := range 32 {
		for y := range 24 {
			img.Set(x, y, color.RGBA{R: uint8(x * 8), G: uint8(y * 10), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return media.FromBytes(name, "image/png", buf.Bytes())
}

func uintPtr(v uint) *uint { return &v }
