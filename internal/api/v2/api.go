// Package api serves the JSON API used by the web client. Every route is
// mounted at the root, where the client expects it, and again under /api/v2.
package api

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/s-hit/mshd-backend/internal/api/v2/auth"
	"github.com/s-hit/mshd-backend/internal/conf"
	"github.com/s-hit/mshd-backend/internal/errors"
	"github.com/s-hit/mshd-backend/internal/incident"
	"github.com/s-hit/mshd-backend/internal/logger"
	"github.com/s-hit/mshd-backend/internal/media"
)

// Prefix is the versioned mount point. Routes are also served at the root.
const Prefix = "/api/v2"

// jsonBodyLimit bounds every request except report submission.
const jsonBodyLimit = "1M"

// formOverhead is the allowance for non-file fields of a report submission.
const formOverhead = 1 << 20

// Pinger checks database connectivity for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Controller manages the API routes and handlers.
type Controller struct {
	Echo     *echo.Echo
	Settings *conf.Settings

	incidents      *incident.Service
	authService    *auth.Service
	authMiddleware echo.MiddlewareFunc
	media          *media.Store
	db             Pinger
	log            logger.Logger
	startTime      time.Time
}

// Option is a functional option for configuring the Controller.
type Option func(*Controller)

// WithLogger sets the API logger.
func WithLogger(log logger.Logger) Option {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}

// WithDatabase enables the database check of the health endpoint.
func WithDatabase(db Pinger) Option {
	return func(c *Controller) {
		c.db = db
	}
}

// WithMedia sets the attachment store. Its limits size the upload body.
func WithMedia(m *media.Store) Option {
	return func(c *Controller) {
		c.media = m
	}
}

// New creates the controller and registers its routes on e.
func New(e *echo.Echo, incidents *incident.Service, authService *auth.Service, settings *conf.Settings, opts ...Option) (*Controller, error) {
	if incidents == nil || authService == nil || settings == nil {
		return nil, errors.Newf("api controller requires the incident service, the auth service and settings").
			Component("api").
			Category(errors.CategoryConfiguration).
			Build()
	}

	c := &Controller{
		Echo:        e,
		Settings:    settings,
		incidents:   incidents,
		authService: authService,
		log:         logger.NewSlogLogger(io.Discard, logger.LogLevelError, nil),
		startTime:   time.Now(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.authMiddleware = auth.NewMiddleware(authService, c.log.Module("auth"),
		auth.WithErrorHandler(c.HandleError)).Authenticate

	for _, prefix := range []string{"", Prefix} {
		c.initRoutes(e.Group(prefix))
	}
	c.log.Info("API routes registered",
		logger.String("prefix", Prefix),
		logger.String("upload_limit", c.uploadBodyLimit()))
	return c, nil
}

// initRoutes registers all API endpoints on g. Middleware is attached per
// route so the root group does not shadow static files.
func (c *Controller) initRoutes(g *echo.Group) {
	jsonLimit := middleware.BodyLimit(jsonBodyLimit)
	uploadLimit := middleware.BodyLimit(c.uploadBodyLimit())

	g.GET("/health", c.HealthCheck)
	g.POST("/login", c.Login, jsonLimit)

	g.GET("/page/home", c.GetHome, c.authMiddleware)
	g.GET("/page/messages", c.GetMessages, c.authMiddleware)
	g.GET("/page/events", c.GetEvents, c.authMiddleware)

	g.POST("/message", c.PostMessage, uploadLimit, c.authMiddleware)
	g.POST("/star", c.PostStar, jsonLimit, c.authMiddleware)
	g.POST("/messageData", c.PostMessageData, jsonLimit, c.authMiddleware)
	g.POST("/event", c.PostEvent, jsonLimit, c.authMiddleware)
}

// uploadBodyLimit allows the maximum number of files at the maximum size
// plus the text fields.
func (c *Controller) uploadBodyLimit() string {
	maxBytes := int64(media.DefaultMaxBytes)
	if c.media != nil {
		maxBytes = c.media.MaxBytes()
	}
	files := int64(c.Settings.Media.MaxFiles)
	if files <= 0 {
		files = incident.DefaultMaxAttachments
	}
	return fmt.Sprintf("%dB", files*maxBytes+formOverhead)
}
