package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/s-hit/mshd-backend/internal/datastore/entities"
	"github.com/s-hit/mshd-backend/internal/errors"
	"github.com/s-hit/mshd-backend/internal/logger"
)

// userKey is the echo context key holding the authenticated *entities.User.
const userKey = "auth.user"

// Middleware guards routes that need a logged-in user.
type Middleware struct {
	service      *Service
	log          logger.Logger
	errorHandler func(echo.Context, error) error
}

// MiddlewareOption configures a Middleware.
type MiddlewareOption func(*Middleware)

// WithErrorHandler answers lookup failures other than a bad token or an
// unknown user, such as an unreachable database. Without one the error is
// returned to echo.
func WithErrorHandler(h func(echo.Context, error) error) MiddlewareOption {
	return func(m *Middleware) {
		m.errorHandler = h
	}
}

// NewMiddleware creates the middleware for service.
func NewMiddleware(service *Service, log logger.Logger, opts ...MiddlewareOption) *Middleware {
	if log == nil {
		log = service.log
	}
	m := &Middleware{service: service, log: log}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Authenticate reads the token from the Authorization header, either as
// "Bearer <token>" or bare, and stores the user in the context.
func (m *Middleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := tokenFromHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if token == "" {
			c.Response().Header().Set("WWW-Authenticate", `Bearer realm="api"`)
			return unauthorized(c, MsgLoginRequired)
		}

		user, err := m.service.Authenticate(c.Request().Context(), token)
		switch {
		case errors.Is(err, ErrUnknownUser):
			m.log.Info("token for unknown user",
				logger.String("path", c.Path()),
				logger.String("ip", c.RealIP()))
			return unauthorized(c, MsgUnknownUser)
		case errors.Is(err, ErrInvalidToken):
			m.log.Debug("token validation failed",
				logger.String("path", c.Path()),
				logger.String("ip", c.RealIP()))
			c.Response().Header().Set("WWW-Authenticate",
				`Bearer realm="api", error="invalid_token", error_description="Invalid or expired token"`)
			return unauthorized(c, MsgLoginRequired)
		case err != nil:
			if m.errorHandler != nil {
				return m.errorHandler(c, err)
			}
			return err
		}

		c.Set(userKey, user)
		return next(c)
	}
}

// UserFrom returns the user stored by Authenticate.
func UserFrom(c echo.Context) (*entities.User, bool) {
	user, ok := c.Get(userKey).(*entities.User)
	return user, ok && user != nil
}

func tokenFromHeader(header string) string {
	header = strings.TrimSpace(header)
	if scheme, rest, found := strings.Cut(header, " "); found && strings.EqualFold(scheme, "bearer") {
		return strings.TrimSpace(rest)
	}
	return header
}

func unauthorized(c echo.Context, message string) error {
	return c.JSON(http.StatusUnauthorized, map[string]string{
		"status":  "failed",
		"message": message,
	})
}
