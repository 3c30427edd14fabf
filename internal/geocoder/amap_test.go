package geocoder

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/s-hit/mshd-backend/internal/conf"
	"github.com/s-hit/mshd-backend/internal/httpclient"
)

const regeoURL = DefaultBaseURL + regeoPath

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// go-cache janitor lives until the cache is garbage collected
		goleak.IgnoreAnyFunction("github.com/patrickmn/go-cache.(*janitor).Run"),
	)
}

type countingRecorder struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (r *countingRecorder) GeocodeOutcome(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcomes == nil {
		r.outcomes = map[string]int{}
	}
	r.outcomes[outcome]++
}

func (r *countingRecorder) count(outcome string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outcomes[outcome]
}

func newTestAMap(t *testing.T, cfg AMapConfig) (*AMap, *httpmock.MockTransport, *countingRecorder) {
	t.Helper()

	mt := httpmock.NewMockTransport()
	client := httpclient.New(httpclient.Config{Timeout: time.Second, Transport: mt})
	t.Cleanup(client.Close)

	if cfg.Key == "" {
		cfg.Key = "test-key"
	}
	rec := &countingRecorder{}
	return NewAMap(cfg, client, WithRecorder(rec)), mt, rec
}

func ptr(v float64) *float64 { return &v }

func TestReverseGeocodeResponses(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantArea    string
		wantOutcome string
	}{
		{
			name:        "province resolved",
			status:      http.StatusOK,
			body:        `{"status":"1","info":"OK","regeocode":{"addressComponent":{"province":"四川省","city":[]}}}`,
			wantArea:    "四川省",
			wantOutcome: OutcomeResolved,
		},
		{
			name:        "ocean point",
			status:      http.StatusOK,
			body:        `{"status":"1","info":"OK","regeocode":{"addressComponent":{"province":[]}}}`,
			wantArea:    UnknownArea,
			wantOutcome: OutcomeNoRegion,
		},
		{
			name:        "blank province",
			status:      http.StatusOK,
			body:        `{"status":"1","regeocode":{"addressComponent":{"province":"  "}}}`,
			wantArea:    UnknownArea,
			wantOutcome: OutcomeNoRegion,
		},
		{
			name:        "invalid key",
			status:      http.StatusOK,
			body:        `{"status":"0","info":"INVALID_USER_KEY","infocode":"10001"}`,
			wantArea:    UnknownArea,
			wantOutcome: OutcomeRejected,
		},
		{
			name:        "server error",
			status:      http.StatusBadGateway,
			body:        `bad gateway`,
			wantArea:    UnknownArea,
			wantOutcome: OutcomeRejected,
		},
		{
			name:        "malformed json",
			status:      http.StatusOK,
			body:        `{"status":`,
			wantArea:    UnknownArea,
			wantOutcome: OutcomeFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, mt, rec := newTestAMap(t, AMapConfig{})
			mt.RegisterResponder(http.MethodGet, regeoURL, httpmock.NewStringResponder(tt.status, tt.body))

			area := g.ReverseGeocode(t.Context(), ptr(104.065735), ptr(30.659462))

			assert.Equal(t, tt.wantArea, area)
			assert.Equal(t, 1, mt.GetTotalCallCount())
			assert.Equal(t, 1, rec.count(tt.wantOutcome))
		})
	}
}

func TestReverseGeocodeRequestParameters(t *testing.T) {
	g, mt, _ := newTestAMap(t, AMapConfig{Key: "secret-key"})

	var gotKey, gotLocation string
	mt.RegisterResponder(http.MethodGet, regeoURL, func(req *http.Request) (*http.Response, error) {
		gotKey = req.URL.Query().Get("key")
		gotLocation = req.URL.Query().Get("location")
		return httpmock.NewStringResponse(http.StatusOK,
			`{"status":"1","regeocode":{"addressComponent":{"province":"北京市"}}}`), nil
	})

	area := g.ReverseGeocode(t.Context(), ptr(116.4), ptr(39.9))

	assert.Equal(t, "北京市", area)
	assert.Equal(t, "secret-key", gotKey)
	assert.Equal(t, "116.400000,39.900000", gotLocation)
}

func TestReverseGeocodeMissingCoordinates(t *testing.T) {
	tests := []struct {
		name     string
		lng, lat *float64
	}{
		{"nil longitude", nil, ptr(30)},
		{"nil latitude", ptr(104), nil},
		{"zero longitude", ptr(0), ptr(30)},
		{"zero latitude", ptr(104), ptr(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, mt, rec := newTestAMap(t, AMapConfig{})
			mt.RegisterResponder(http.MethodGet, regeoURL, httpmock.NewStringResponder(http.StatusOK, `{}`))

			assert.Equal(t, UnknownArea, g.ReverseGeocode(t.Context(), tt.lng, tt.lat))
			assert.Zero(t, mt.GetTotalCallCount())
			assert.Equal(t, 1, rec.count(OutcomeSkipped))
		})
	}
}

func TestReverseGeocodeTransportFailure(t *testing.T) {
	g, mt, rec := newTestAMap(t, AMapConfig{})
	mt.RegisterResponder(http.MethodGet, regeoURL, httpmock.NewErrorResponder(context.DeadlineExceeded))

	assert.Equal(t, UnknownArea, g.ReverseGeocode(t.Context(), ptr(104), ptr(30)))
	assert.Equal(t, 1, rec.count(OutcomeFailed))

	// Failures are not cached
	mt.RegisterResponder(http.MethodGet, regeoURL, httpmock.NewStringResponder(http.StatusOK,
		`{"status":"1","regeocode":{"addressComponent":{"province":"四川省"}}}`))
	assert.Equal(t, "四川省", g.ReverseGeocode(t.Context(), ptr(104), ptr(30)))
	assert.Equal(t, 2, mt.GetTotalCallCount())
}

func TestReverseGeocodeCachesByRoundedCoordinates(t *testing.T) {
	g, mt, rec := newTestAMap(t, AMapConfig{})
	mt.RegisterResponder(http.MethodGet, regeoURL, httpmock.NewStringResponder(http.StatusOK,
		`{"status":"1","regeocode":{"addressComponent":{"province":"云南省"}}}`))

	require.Equal(t, "云南省", g.ReverseGeocode(t.Context(), ptr(102.712251), ptr(25.040609)))
	// Differs only beyond the sixth decimal
	require.Equal(t, "云南省", g.ReverseGeocode(t.Context(), ptr(102.7122511), ptr(25.0406091)))

	assert.Equal(t, 1, mt.GetTotalCallCount())
	assert.Equal(t, 1, rec.count(OutcomeCached))
}

func TestReverseGeocodeDeduplicatesConcurrentLookups(t *testing.T) {
	g, mt, _ := newTestAMap(t, AMapConfig{})

	var calls atomic.Int32
	mt.RegisterResponder(http.MethodGet, regeoURL, func(*http.Request) (*http.Response, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return httpmock.NewStringResponse(http.StatusOK,
			`{"status":"1","regeocode":{"addressComponent":{"province":"西藏自治区"}}}`), nil
	})

	const workers = 8
	results := make([]string, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Go(func() {
			results[i] = g.ReverseGeocode(context.Background(), ptr(91.1), ptr(29.6))
		})
	}
	wg.Wait()

	for _, area := range results {
		assert.Equal(t, "西藏自治区", area)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestReverseGeocodeSharedLookupOutlivesCancelledCaller(t *testing.T) {
	g, mt, rec := newTestAMap(t, AMapConfig{})

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	mt.RegisterResponder(http.MethodGet, regeoURL, func(*http.Request) (*http.Response, error) {
		once.Do(func() { close(entered) })
		<-release
		return httpmock.NewStringResponse(http.StatusOK,
			`{"status":"1","regeocode":{"addressComponent":{"province":"广东省"}}}`), nil
	})

	ctx, cancel := context.WithCancel(t.Context())
	first := make(chan string, 1)
	go func() { first <- g.ReverseGeocode(ctx, ptr(113.26), ptr(23.13)) }()
	<-entered

	second := make(chan string, 1)
	go func() { second <- g.ReverseGeocode(t.Context(), ptr(113.26), ptr(23.13)) }()
	// give the second caller time to join the flight
	time.Sleep(20 * time.Millisecond)

	cancel()
	assert.Equal(t, UnknownArea, <-first)

	close(release)
	assert.Equal(t, "广东省", <-second)
	assert.Equal(t, 1, mt.GetTotalCallCount())
	assert.Equal(t, 1, rec.count(OutcomeResolved))
	assert.Zero(t, rec.count(OutcomeFailed))

	// the answer was cached even though its first caller left
	assert.Equal(t, "广东省", g.ReverseGeocode(t.Context(), ptr(113.26), ptr(23.13)))
	assert.Equal(t, 1, mt.GetTotalCallCount())
}

func TestReverseGeocodeRateLimited(t *testing.T) {
	g, mt, rec := newTestAMap(t, AMapConfig{RateLimit: 0.001, Burst: 1})
	mt.RegisterResponder(http.MethodGet, regeoURL, httpmock.NewStringResponder(http.StatusOK,
		`{"status":"1","regeocode":{"addressComponent":{"province":"四川省"}}}`))

	ctx, cancel := context.WithTimeout(t.Context(), 100*time.Millisecond)
	defer cancel()

	assert.Equal(t, "四川省", g.ReverseGeocode(ctx, ptr(104), ptr(30)))
	// The next token is ~1000s away, beyond the context deadline
	assert.Equal(t, UnknownArea, g.ReverseGeocode(ctx, ptr(105), ptr(31)))

	assert.Equal(t, 1, mt.GetTotalCallCount())
	assert.Equal(t, 1, rec.count(OutcomeFailed))
}

func TestReverseGeocodeNormalizesArea(t *testing.T) {
	g, mt, _ := newTestAMap(t, AMapConfig{})
	// e followed by a combining acute accent
	mt.RegisterResponder(http.MethodGet, regeoURL, httpmock.NewStringResponder(http.StatusOK,
		`{"status":"1","regeocode":{"addressComponent":{"province":"Que\u0301bec"}}}`))

	assert.Equal(t, "Qu\u00e9bec", g.ReverseGeocode(t.Context(), ptr(-71.2), ptr(46.8)))
}

func TestNewSelectsProvider(t *testing.T) {
	client := httpclient.New(httpclient.Config{Transport: httpmock.NewMockTransport()})
	t.Cleanup(client.Close)

	tests := []struct {
		name     string
		settings conf.GeocoderSettings
		wantAMap bool
	}{
		{"none provider", conf.GeocoderSettings{Provider: conf.GeocoderNone, AMapKey: "k"}, false},
		{"amap without key", conf.GeocoderSettings{Provider: conf.GeocoderAMap}, false},
		{"amap with key", conf.GeocoderSettings{Provider: conf.GeocoderAMap, AMapKey: "k", BaseURL: DefaultBaseURL}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(&tt.settings, client)
			_, isAMap := g.(*AMap)
			assert.Equal(t, tt.wantAMap, isAMap)
			if !tt.wantAMap {
				assert.Equal(t, UnknownArea, g.ReverseGeocode(t.Context(), ptr(104), ptr(30)))
			}
		})
	}
}
