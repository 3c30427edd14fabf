package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/errgroup"

	mw "github.com/s-hit/mshd-backend/internal/api/middleware"
	v2 "github.com/s-hit/mshd-backend/internal/api/v2"
	"github.com/s-hit/mshd-backend/internal/api/v2/auth"
	"github.com/s-hit/mshd-backend/internal/conf"
	"github.com/s-hit/mshd-backend/internal/errors"
	"github.com/s-hit/mshd-backend/internal/incident"
	"github.com/s-hit/mshd-backend/internal/logger"
	"github.com/s-hit/mshd-backend/internal/media"
	"github.com/s-hit/mshd-backend/internal/observability"
)

// Server is the HTTP server. It owns the Echo instance, the middleware
// stack and the routes.
type Server struct {
	echo     *echo.Echo
	config   *Config
	settings *conf.Settings
	log      logger.Logger

	// Dependencies
	incidents   *incident.Service
	authService *auth.Service
	media       *media.Store
	metrics     *observability.Metrics
	db          v2.Pinger

	apiController *v2.Controller
}

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*Server)

// WithLogger sets the server logger.
func WithLogger(log logger.Logger) ServerOption {
	return func(s *Server) {
		s.log = log
	}
}

// WithIncidents sets the incident service. Required.
func WithIncidents(svc *incident.Service) ServerOption {
	return func(s *Server) {
		s.incidents = svc
	}
}

// WithAuthService sets the login service. Required.
func WithAuthService(svc *auth.Service) ServerOption {
	return func(s *Server) {
		s.authService = svc
	}
}

// WithMedia sets the attachment store.
func WithMedia(m *media.Store) ServerOption {
	return func(s *Server) {
		s.media = m
	}
}

// WithMetrics enables request metrics and the metrics endpoint.
func WithMetrics(m *observability.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithDatabase enables the database check of the health endpoint.
func WithDatabase(db v2.Pinger) ServerOption {
	return func(s *Server) {
		s.db = db
	}
}

// New creates a new HTTP server with the given settings and options.
func New(settings *conf.Settings, opts ...ServerOption) (*Server, error) {
	config := ConfigFromSettings(settings)
	if err := config.Validate(); err != nil {
		return nil, err
	}

	s := &Server{
		config:   config,
		settings: settings,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Global().Module("api")
	}

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Debug = config.Debug

	s.echo.Server.ReadTimeout = config.ReadTimeout
	s.echo.Server.WriteTimeout = config.WriteTimeout
	s.echo.Server.IdleTimeout = config.IdleTimeout

	s.setupMiddleware()

	if err := s.setupRoutes(); err != nil {
		return nil, err
	}

	s.log.Info("HTTP server initialized",
		logger.String("address", config.Address()),
		logger.Bool("metrics", s.metricsEnabled()),
		logger.Bool("debug", config.Debug))

	return s, nil
}

// setupMiddleware configures the Echo middleware stack.
func (s *Server) setupMiddleware() {
	// Recovery middleware - should be first
	s.echo.Use(echomw.Recover())
	s.echo.Use(mw.NewRequestID())

	var recorder mw.HTTPRecorder
	if s.metrics != nil {
		recorder = s.metrics.HTTP
	}
	s.echo.Use(mw.NewRequestLoggerWithSkipper(s.log.Module("http"), recorder, s.skipRequestLog))

	securityConfig := mw.DefaultSecurityConfig()
	securityConfig.AllowedOrigins = s.config.AllowedOrigins
	s.echo.Use(mw.NewCORS(securityConfig))
	s.echo.Use(mw.NewSecureHeaders(securityConfig))
}

// skipRequestLog keeps scrapes of the metrics endpoint out of the log.
func (s *Server) skipRequestLog(c echo.Context) bool {
	return s.metricsEnabled() && c.Request().URL.Path == s.config.MetricsPath
}

func (s *Server) metricsEnabled() bool {
	return s.config.MetricsEnabled && s.metrics != nil
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() error {
	if s.config.PublicDir != "" {
		s.echo.Static("/public", s.config.PublicDir)
	}

	if s.metricsEnabled() {
		s.echo.GET(s.config.MetricsPath, echo.WrapHandler(s.metrics.Handler()))
	}

	opts := []v2.Option{v2.WithLogger(s.log.Module("v2"))}
	if s.media != nil {
		opts = append(opts, v2.WithMedia(s.media))
	}
	if s.db != nil {
		opts = append(opts, v2.WithDatabase(s.db))
	}

	controller, err := v2.New(s.echo, s.incidents, s.authService, s.settings, opts...)
	if err != nil {
		return err
	}
	s.apiController = controller
	return nil
}

// Run serves until ctx is cancelled, then shuts down gracefully within the
// configured timeout. A listener failure ends Run with that error.
func (s *Server) Run(ctx context.Context) error {
	addr := s.config.Address()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.Info("starting HTTP server", logger.String("address", addr))
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.New(err).
				Component("api").
				Category(errors.CategoryNetwork).
				Context("address", addr).
				Build()
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return s.Shutdown()
	})

	return g.Wait()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	start := time.Now()
	if err := s.echo.Shutdown(ctx); err != nil {
		s.log.Error("error during server shutdown", logger.Error(err))
		return errors.New(err).
			Component("api").
			Category(errors.CategoryNetwork).
			Context("operation", "shutdown").
			Build()
	}

	s.log.Info("server shutdown complete", logger.Duration("elapsed", time.Since(start)))
	return nil
}

// Echo returns the underlying Echo instance.
// This is useful for testing or advanced configuration.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// APIController returns the v2 controller.
func (s *Server) APIController() *v2.Controller {
	return s.apiController
}

// Config returns the effective server configuration.
func (s *Server) Config() *Config {
	return s.config
}
