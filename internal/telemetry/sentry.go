// Package telemetry sends server-side errors to Sentry. Reports leave the
// process only when sentry.enabled is set and a DSN is configured.
package telemetry

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/s-hit/mshd-backend/internal/conf"
	"github.com/s-hit/mshd-backend/internal/errors"
	"github.com/s-hit/mshd-backend/internal/logger"
	"github.com/s-hit/mshd-backend/internal/privacy"
)

// flushTimeout bounds how long Close waits for queued events.
const flushTimeout = 2 * time.Second

// allowedExtras are the only extra fields kept on outgoing events.
var allowedExtras = map[string]bool{
	"error_type": true,
	"component":  true,
}

// Init configures the Sentry SDK and routes EnhancedErrors to it. The
// returned function flushes pending events and is safe to call when
// telemetry is disabled.
func Init(settings *conf.Settings, log logger.Logger) (func(), error) {
	noop := func() {}
	if !settings.Sentry.Enabled {
		return noop, nil
	}
	if settings.Sentry.DSN == "" {
		if log != nil {
			log.Warn("sentry enabled without a dsn, error reporting stays off")
		}
		return noop, nil
	}

	sampleRate := settings.Sentry.SampleRate
	if sampleRate <= 0 || sampleRate > 1 {
		sampleRate = 1.0
	}
	environment := settings.Sentry.Environment
	if environment == "" {
		environment = "production"
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              settings.Sentry.DSN,
		SampleRate:       sampleRate,
		AttachStacktrace: false,
		Environment:      environment,
		ServerName:       "",
		Release:          fmt.Sprintf("mshd-backend@%s", settings.Version),
		BeforeSend:       beforeSend,
	})
	if err != nil {
		return noop, errors.New(fmt.Errorf("sentry initialization failed: %w", err)).
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}

	errors.SetPrivacyScrubber(privacy.ScrubMessage)
	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	if log != nil {
		log.Info("sentry error reporting enabled",
			logger.String("environment", environment),
			logger.Float64("sample_rate", sampleRate))
	}

	return func() {
		errors.SetTelemetryReporter(nil)
		sentry.Flush(flushTimeout)
	}, nil
}

func beforeSend(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	return applyPrivacyFilters(event)
}

// applyPrivacyFilters strips host, user and request identifiers.
func applyPrivacyFilters(event *sentry.Event) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""
	event.Request = nil

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
		delete(event.Contexts, "runtime")
	}
	for k := range event.Extra {
		if !allowedExtras[k] {
			delete(event.Extra, k)
		}
	}
	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}
	return event
}
