// Package app assembles the service from settings: logging, telemetry,
// the database, attachment storage, the geocoder, the incident engine,
// authentication and the HTTP server.
package app

import (
	"context"
	"time"

	"github.com/s-hit/mshd-backend/internal/api"
	"github.com/s-hit/mshd-backend/internal/api/v2/auth"
	"github.com/s-hit/mshd-backend/internal/conf"
	"github.com/s-hit/mshd-backend/internal/datastore"
	"github.com/s-hit/mshd-backend/internal/datastore/repository"
	"github.com/s-hit/mshd-backend/internal/errors"
	"github.com/s-hit/mshd-backend/internal/geocoder"
	"github.com/s-hit/mshd-backend/internal/httpclient"
	"github.com/s-hit/mshd-backend/internal/incident"
	"github.com/s-hit/mshd-backend/internal/logger"
	"github.com/s-hit/mshd-backend/internal/media"
	"github.com/s-hit/mshd-backend/internal/observability"
	"github.com/s-hit/mshd-backend/internal/telemetry"
)

// App holds every long-lived component of a running server.
type App struct {
	settings *conf.Settings
	central  *logger.CentralLogger
	log      logger.Logger

	db         datastore.Manager
	metrics    *observability.Metrics
	httpClient *httpclient.Client
	server     *api.Server

	closeTelemetry func()
}

// New builds the application. On error every component opened so far is
// closed again.
func New(ctx context.Context, settings *conf.Settings) (a *App, err error) {
	a = &App{settings: settings, closeTelemetry: func() {}}
	defer func() {
		if err != nil {
			_ = a.Close()
			a = nil
		}
	}()

	if err = a.initLogging(); err != nil {
		return nil, err
	}
	if a.closeTelemetry, err = telemetry.Init(settings, a.central.Module("telemetry")); err != nil {
		return nil, err
	}
	if err = a.openDatabase(ctx); err != nil {
		return nil, err
	}
	if settings.Metrics.Enabled {
		if a.metrics, err = observability.NewMetrics(); err != nil {
			return nil, errors.New(err).
				Component("app").
				Category(errors.CategoryConfiguration).
				Context("operation", "init_metrics").
				Build()
		}
	}

	store := repository.NewStore(a.db.DB(),
		repository.WithRetry(settings.Database.MaxRetries, settings.Database.RetryDelay),
		repository.WithLogger(a.central.Module("repository")))

	attachments, err := media.NewStore(media.Config{
		ImagesDir:       settings.Media.ImagesDir,
		ThumbnailsDir:   settings.Media.ThumbnailsDir,
		MaxBytes:        settings.Media.MaxUploadBytes,
		ThumbnailWidth:  settings.Media.ThumbnailWidth,
		ThumbnailHeight: settings.Media.ThumbnailHeight,
	}, a.central.Module("media"))
	if err != nil {
		return nil, err
	}

	incidents, err := a.newIncidentService(store, attachments)
	if err != nil {
		return nil, err
	}

	authService, err := a.newAuthService(store)
	if err != nil {
		return nil, err
	}

	opts := []api.ServerOption{
		api.WithLogger(a.central.Module("api")),
		api.WithIncidents(incidents),
		api.WithAuthService(authService),
		api.WithMedia(attachments),
		api.WithDatabase(a.db),
	}
	if a.metrics != nil {
		opts = append(opts, api.WithMetrics(a.metrics))
	}
	if a.server, err = api.New(settings, opts...); err != nil {
		return nil, err
	}

	a.log.Info("application initialized",
		logger.String("version", settings.Version),
		logger.String("database", a.db.Dialect()),
		logger.String("database_path", a.db.Path()),
		logger.String("address", a.server.Config().Address()))
	return a, nil
}

func (a *App) initLogging() error {
	if a.settings.Debug {
		a.settings.Logging.DefaultLevel = string(logger.LogLevelDebug)
		if a.settings.Logging.Console != nil {
			a.settings.Logging.Console.Level = string(logger.LogLevelDebug)
		}
	}
	central, err := logger.NewCentralLogger(&a.settings.Logging)
	if err != nil {
		return errors.New(err).
			Component("app").
			Category(errors.CategoryConfiguration).
			Context("operation", "init_logging").
			Build()
	}
	logger.SetGlobal(central)
	a.central = central
	a.log = central.Module("app")
	return nil
}

func (a *App) openDatabase(ctx context.Context) error {
	db, err := Migrate(ctx, a.settings, a.central.Module("datastore"))
	if err != nil {
		return err
	}
	a.db = db
	return nil
}

func (a *App) newIncidentService(store *repository.Store, attachments *media.Store) (*incident.Service, error) {
	loc, err := a.settings.Grouping.Location()
	if err != nil {
		return nil, errors.New(err).
			Component("app").
			Category(errors.CategoryConfiguration).
			Context("timezone", a.settings.Grouping.Timezone).
			Build()
	}

	clientCfg := httpclient.Config{Timeout: a.settings.Geocoder.Timeout}
	geoOpts := []geocoder.Option{geocoder.WithLogger(a.central.Module("geocoder"))}
	opts := []incident.Option{
		incident.WithAttachments(attachments),
		incident.WithLocation(loc),
		incident.WithLogger(a.central.Module("incident")),
		incident.WithStatsTTL(a.settings.Grouping.StatsCacheTTL),
		incident.WithMaxAttachments(a.settings.Media.MaxFiles),
	}
	if a.metrics != nil {
		clientCfg.Observer = a.metrics.Geocoder
		geoOpts = append(geoOpts, geocoder.WithRecorder(a.metrics.Geocoder))
		opts = append(opts, incident.WithRecorder(a.metrics.Incident))
	}

	a.httpClient = httpclient.New(clientCfg)
	opts = append(opts, incident.WithGeocoder(geocoder.New(&a.settings.Geocoder, a.httpClient, geoOpts...)))

	return incident.New(store, opts...), nil
}

func (a *App) newAuthService(store *repository.Store) (*auth.Service, error) {
	secret := a.settings.Auth.JWTSecret
	if secret == "" {
		generated, err := conf.GenerateRandomSecret()
		if err != nil {
			return nil, err
		}
		secret = generated
		a.log.Warn("auth.jwt_secret is not set, using a random secret; tokens will not survive a restart")
	}

	return auth.NewService(store, auth.Config{
		Secret:       []byte(secret),
		TokenTTL:     a.settings.Auth.TokenTTL,
		AutoRegister: a.settings.Auth.AutoRegister,
		BcryptCost:   a.settings.Auth.BcryptCost,
	}, a.central.Module("auth"))
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	start := time.Now()
	err := a.server.Run(ctx)
	a.log.Info("server stopped", logger.Duration("uptime", time.Since(start)))
	return err
}

// Server returns the HTTP server.
func (a *App) Server() *api.Server {
	return a.server
}

// Close releases every component. It is safe to call on a partly built App.
func (a *App) Close() error {
	var errs []error
	if a.httpClient != nil {
		a.httpClient.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.closeTelemetry != nil {
		a.closeTelemetry()
	}
	if a.central != nil {
		if err := a.central.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Migrate opens the configured database and brings its schema up to date.
// The caller owns the returned manager.
func Migrate(ctx context.Context, settings *conf.Settings, log logger.Logger) (datastore.Manager, error) {
	db, err := datastore.Open(&settings.Database, log)
	if err != nil {
		return nil, err
	}
	if err := db.Initialize(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Info("database ready",
		logger.String("dialect", db.Dialect()),
		logger.String("path", db.Path()))
	return db, nil
}
