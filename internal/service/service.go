// Package service holds the command handlers: every operation that
// validates input and mutates zones, territories, publishers, assignments
// or settings.
//
// Handlers read the clock only through the injected now function and
// return apperr values.
package service

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/territorydesk/internal/repository"
	"go.uber.org/zap"
)

type Service struct {
	store    repository.Store
	logger   *zap.Logger
	now      func() time.Time
	newToken func() string
}

type Option func(*Service)

// WithClock replaces time.Now. Tests use it to move time forward.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithTokenGenerator replaces the public token generator.
func WithTokenGenerator(gen func() string) Option {
	return func(s *Service) { s.newToken = gen }
}

func New(store repository.Store, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		store:    store,
		logger:   logger,
		now:      time.Now,
		newToken: NewToken,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewToken returns a fresh opaque public access token: 32 hex characters
// from a random (v4) UUID.
func NewToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
