// Package geocoder turns report coordinates into the administrative area
// used to group reports. Lookups never fail: any problem yields UnknownArea.
package geocoder

import (
	"context"
	"io"

	"github.com/s-hit/mshd-backend/internal/conf"
	"github.com/s-hit/mshd-backend/internal/httpclient"
	"github.com/s-hit/mshd-backend/internal/logger"
)

// UnknownArea is the area assigned when no province can be determined.
const UnknownArea = "未知区域"

// Lookup outcomes passed to a Recorder.
const (
	OutcomeResolved = "resolved" // province returned by the provider
	OutcomeCached   = "cached"   // served from the result cache
	OutcomeSkipped  = "skipped"  // missing or zero coordinates, no request made
	OutcomeNoRegion = "no_region"
	OutcomeRejected = "rejected" // non-200 or status != "1"
	OutcomeFailed   = "failed"   // transport, parse or rate-limit failure
)

// Geocoder resolves coordinates to an area name.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lng, lat *float64) string
}

// Recorder observes lookup outcomes.
type Recorder interface {
	GeocodeOutcome(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) GeocodeOutcome(string) {}

// None answers UnknownArea for every lookup.
type None struct{}

// ReverseGeocode implements Geocoder.
func (None) ReverseGeocode(context.Context, *float64, *float64) string {
	return UnknownArea
}

// Option configures an AMap geocoder.
type Option func(*AMap)

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(a *AMap) {
		if log != nil {
			a.log = log
		}
	}
}

// WithRecorder sets the outcome recorder.
func WithRecorder(r Recorder) Option {
	return func(a *AMap) {
		if r != nil {
			a.recorder = r
		}
	}
}

// New builds the configured provider. A missing AMap key falls back to None
// so the service still accepts reports.
func New(settings *conf.GeocoderSettings, client *httpclient.Client, opts ...Option) Geocoder {
	if settings.Provider == conf.GeocoderNone {
		return None{}
	}
	if settings.AMapKey == "" {
		probe := &AMap{log: logger.NewSlogLogger(io.Discard, logger.LogLevelError, nil)}
		for _, opt := range opts {
			opt(probe)
		}
		probe.log.Warn("amap key not configured, all reports will use the unknown area")
		return None{}
	}
	return NewAMap(AMapConfig{
		Key:       settings.AMapKey,
		BaseURL:   settings.BaseURL,
		RateLimit: settings.RateLimit,
		Burst:     settings.Burst,
		CacheTTL:  settings.CacheTTL,
		Timeout:   settings.Timeout,
	}, client, opts...)
}

func missing(lng, lat *float64) bool {
	return lng == nil || lat == nil || *lng == 0 || *lat == 0
}
