package geocoder

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/antonholmquist/jason"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/time/rate"

	"github.com/s-hit/mshd-backend/internal/errors"
	"github.com/s-hit/mshd-backend/internal/httpclient"
	"github.com/s-hit/mshd-backend/internal/logger"
)

const (
	// DefaultBaseURL is the AMap web service endpoint.
	DefaultBaseURL = "https://restapi.amap.com"

	regeoPath       = "/v3/geocode/regeo"
	defaultCacheTTL = 24 * time.Hour
	defaultTimeout  = 5 * time.Second
	maxResponseSize = 1 << 20
)

// AMapConfig configures the AMap reverse geocoder.
type AMapConfig struct {
	Key       string
	BaseURL   string
	RateLimit float64 // requests per second, <= 0 disables limiting
	Burst     int
	CacheTTL  time.Duration
	Timeout   time.Duration // bounds one shared lookup, rate limit wait included
}

// AMap resolves coordinates with the AMap regeo API. It is safe for
// concurrent use. Identical in-flight lookups share one request and
// answers are cached by coordinate rounded to six decimals.
type AMap struct {
	cfg      AMapConfig
	client   *httpclient.Client
	limiter  *rate.Limiter
	cache    *cache.Cache
	group    singleflight.Group
	log      logger.Logger
	recorder Recorder
}

// NewAMap creates the geocoder.
func NewAMap(cfg AMapConfig, client *httpclient.Client, opts ...Option) *AMap {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	a := &AMap{
		cfg:      cfg,
		client:   client,
		limiter:  rate.NewLimiter(limit, cfg.Burst),
		cache:    cache.New(cfg.CacheTTL, cfg.CacheTTL*2),
		log:      logger.NewSlogLogger(io.Discard, logger.LogLevelError, nil),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ReverseGeocode implements Geocoder.
func (a *AMap) ReverseGeocode(ctx context.Context, lng, lat *float64) string {
	if missing(lng, lat) {
		a.recorder.GeocodeOutcome(OutcomeSkipped)
		return UnknownArea
	}

	location := fmt.Sprintf("%.6f,%.6f", *lng, *lat)
	if area, ok := a.cached(location); ok {
		a.recorder.GeocodeOutcome(OutcomeCached)
		return area
	}

	// The flight outlives any single caller: a cancelled request must not
	// hand UnknownArea to the others waiting on the same location.
	ch := a.group.DoChan(location, func() (any, error) {
		return a.flight(context.WithoutCancel(ctx), location), nil
	})
	select {
	case res := <-ch:
		return res.Val.(string)
	case <-ctx.Done():
		a.log.WithContext(ctx).Debug("caller left shared geocode lookup",
			logger.String("location", location),
			logger.Error(ctx.Err()))
		return UnknownArea
	}
}

// flight runs one deduplicated lookup under its own timeout.
func (a *AMap) flight(ctx context.Context, location string) string {
	// A flight that started after the previous one finished finds its answer here
	if area, ok := a.cached(location); ok {
		a.recorder.GeocodeOutcome(OutcomeCached)
		return area
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	area, outcome, err := a.lookup(ctx, location)
	a.recorder.GeocodeOutcome(outcome)
	if err != nil {
		a.log.WithContext(ctx).Warn("reverse geocoding failed",
			logger.String("location", location),
			logger.String("outcome", outcome),
			logger.Error(err))
		return UnknownArea
	}
	a.cache.Set(location, area, cache.DefaultExpiration)
	return area
}

func (a *AMap) cached(location string) (string, bool) {
	v, ok := a.cache.Get(location)
	if !ok {
		return "", false
	}
	area, ok := v.(string)
	return area, ok
}

// lookup performs one rate-limited regeo request. A response without a
// province (AMap returns [] for points at sea) is a successful UnknownArea.
func (a *AMap) lookup(ctx context.Context, location string) (string, string, error) {
	reqID := uuid.New().String()[:8]
	start := time.Now()

	if err := a.limiter.Wait(ctx); err != nil {
		return "", OutcomeFailed, errors.New(fmt.Errorf("rate limiter: %w", err)).
			Component("geocoder").
			Category(errors.CategoryGeocoding).
			Context("request_id", reqID).
			Build()
	}

	query := url.Values{}
	query.Set("key", a.cfg.Key)
	query.Set("location", location)
	endpoint := a.cfg.BaseURL + regeoPath + "?" + query.Encode()

	resp, cancel, err := a.client.Get(ctx, endpoint)
	if err != nil {
		return "", OutcomeFailed, err
	}
	defer cancel()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", OutcomeRejected, errors.Newf("amap returned HTTP %d", resp.StatusCode).
			Component("geocoder").
			Category(errors.CategoryGeocoding).
			Context("request_id", reqID).
			Context("status_code", resp.StatusCode).
			Build()
	}

	body, err := jason.NewObjectFromReader(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", OutcomeFailed, errors.New(fmt.Errorf("decode regeo response: %w", err)).
			Component("geocoder").
			Category(errors.CategoryGeocoding).
			Context("request_id", reqID).
			Build()
	}

	if status, _ := body.GetString("status"); status != "1" {
		info, _ := body.GetString("info")
		return "", OutcomeRejected, errors.Newf("amap rejected request: %s", info).
			Component("geocoder").
			Category(errors.CategoryGeocoding).
			Context("request_id", reqID).
			Context("info", info).
			Build()
	}

	a.log.Debug("regeo response received",
		logger.String("request_id", reqID),
		logger.String("location", location),
		logger.Duration("elapsed", time.Since(start)))

	// province is an empty array rather than a string outside China
	province, err := body.GetString("regeocode", "addressComponent", "province")
	if err != nil {
		return UnknownArea, OutcomeNoRegion, nil
	}
	province = norm.NFC.String(strings.TrimSpace(province))
	if province == "" {
		return UnknownArea, OutcomeNoRegion, nil
	}
	return province, OutcomeResolved, nil
}
