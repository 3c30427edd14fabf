// Package auth issues and verifies login tokens.
package auth

import (
	"context"
	"io"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/s-hit/mshd-backend/internal/datastore/entities"
	"github.com/s-hit/mshd-backend/internal/datastore/repository"
	"github.com/s-hit/mshd-backend/internal/errors"
	"github.com/s-hit/mshd-backend/internal/logger"
)

// Sentinel errors for authentication failures.
var (
	ErrInvalidToken = errors.NewStd("invalid or expired token")
	ErrUnknownUser  = errors.NewStd("token names an unknown user")
)

// Messages shown to the client.
const (
	MsgCredentialsRequired = "请输入用户名与密码。"
	MsgWrongPassword       = "密码错误。"
	MsgUnknownUser         = "用户不存在。"
	MsgLoginRequired       = "请先登录。"
)

// MaxNameLength matches the users.name column.
const MaxNameLength = 64

// maxPasswordBytes is the bcrypt input limit.
const maxPasswordBytes = 72

// Claims is the token payload. Name identifies the user.
type Claims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// Config configures a Service.
type Config struct {
	Secret       []byte
	TokenTTL     time.Duration // 0 issues tokens without expiry
	AutoRegister bool
	BcryptCost   int
}

// Service logs users in and resolves tokens back to users.
type Service struct {
	store *repository.Store
	cfg   Config
	log   logger.Logger
	now   func() time.Time
}

// NewService creates a Service. The secret must not be empty.
func NewService(store *repository.Store, cfg Config, log logger.Logger) (*Service, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.Newf("jwt secret must not be empty").
			Component("auth").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if log == nil {
		log = logger.NewSlogLogger(io.Discard, logger.LogLevelError, nil)
	}
	return &Service{store: store, cfg: cfg, log: log, now: time.Now}, nil
}

// Login checks the password and returns a signed token. Unknown names are
// registered with the given password when AutoRegister is set.
func (s *Service) Login(ctx context.Context, name, password string) (string, error) {
	if name == "" || password == "" {
		return "", errors.ValidationError(MsgCredentialsRequired)
	}
	if utf8.RuneCountInString(name) > MaxNameLength || len(password) > maxPasswordBytes {
		return "", errors.ValidationError(MsgWrongPassword)
	}

	user, err := s.store.Users().GetByName(ctx, name)
	switch {
	case errors.IsNotFound(err):
		if !s.cfg.AutoRegister {
			return "", errors.ValidationError(MsgUnknownUser)
		}
		user, err = s.register(ctx, name, password)
		if err != nil {
			return "", err
		}
	case err != nil:
		return "", err
	default:
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
			s.log.Info("login rejected", logger.String("user", name))
			return "", errors.ValidationError(MsgWrongPassword)
		}
	}

	return s.Issue(user.Name)
}

// register creates the user. When a concurrent login created it first,
// the password is checked against that row instead.
func (s *Service) register(ctx context.Context, name, password string) (*entities.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return nil, errors.New(err).
			Component("auth").
			Category(errors.CategoryAuthentication).
			Build()
	}

	user := &entities.User{Name: name, PasswordHash: string(hash)}
	err = s.store.Users().Create(ctx, user)
	if errors.Is(err, repository.ErrDuplicateKey) {
		existing, getErr := s.store.Users().GetByName(ctx, name)
		if getErr != nil {
			return nil, getErr
		}
		if bcrypt.CompareHashAndPassword([]byte(existing.PasswordHash), []byte(password)) != nil {
			return nil, errors.ValidationError(MsgWrongPassword)
		}
		return existing, nil
	}
	if err != nil {
		return nil, err
	}

	s.log.Info("user registered", logger.Uint("user_id", user.ID), logger.String("user", name))
	return user, nil
}

// Issue signs an HS256 token for name.
func (s *Service) Issue(name string) (string, error) {
	now := s.now()
	claims := Claims{
		Name:             name,
		RegisteredClaims: jwt.RegisteredClaims{IssuedAt: jwt.NewNumericDate(now)},
	}
	if s.cfg.TokenTTL > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.cfg.TokenTTL))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
	if err != nil {
		return "", errors.New(err).
			Component("auth").
			Category(errors.CategoryAuthentication).
			Build()
	}
	return signed, nil
}

// ParseToken verifies the signature and expiry and returns the user name.
func (s *Service) ParseToken(token string) (string, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.cfg.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid || claims.Name == "" {
		return "", errors.New(ErrInvalidToken).
			Component("auth").
			Category(errors.CategoryAuthentication).
			Build()
	}
	return claims.Name, nil
}

// Authenticate resolves a token to its user.
func (s *Service) Authenticate(ctx context.Context, token string) (*entities.User, error) {
	name, err := s.ParseToken(token)
	if err != nil {
		return nil, err
	}
	user, err := s.store.Users().GetByName(ctx, name)
	if errors.IsNotFound(err) {
		return nil, errors.New(ErrUnknownUser).
			Component("auth").
			Category(errors.CategoryAuthentication).
			Context("user", name).
			Build()
	}
	return user, err
}
