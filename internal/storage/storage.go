// Package storage is the typed view of the knowledge base over a key-value
// backend: one JSON document per fixed key, plus the version-stamped reset
// that runs at startup.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"sopdesk/api/internal/store"
)

const (
	KeyTeams         = "kb_teams"
	KeyArticles      = "kb_articles"
	KeySettings      = "kb_settings"
	KeyAISettings    = "kb_ai_settings"
	KeyAIStats       = "kb_ai_stats"
	KeyTheme         = "kb_theme"
	KeyAdminHash     = "kb_admin_hash"
	KeyAdminEmail    = "kb_admin_email"
	KeyResetToken    = "kb_reset_token"
	KeyVersion       = "kb_version"
	CurrentVersion   = "kb_version_1_3"
	DefaultPassword  = "0000"
	resetTokenTTL    = 10 * time.Minute
	resetTokenLength = 6
)

// AllKeys lists every key the service owns, in snapshot order.
var AllKeys = []string{
	KeyVersion, KeyTeams, KeyArticles, KeySettings, KeyAISettings,
	KeyAIStats, KeyTheme, KeyAdminHash, KeyAdminEmail, KeyResetToken,
}

var (
	ErrNotFound = errors.New("storage: not found")
	// ErrMalformed marks a stored collection that is not a JSON array.
	// Writes refuse to replace it.
	ErrMalformed = errors.New("storage: stored document is malformed")
)

// ResetHook is called with the current contents of the store right before a
// version reset overwrites them.
type ResetHook func(ctx context.Context, fromVersion string, entries map[string][]byte) error

type Option func(*Service)

func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.bcryptCost = cost
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithResetHook(hook ResetHook) Option {
	return func(s *Service) { s.resetHook = hook }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Service) { s.log = log }
}

type Service struct {
	backend    store.Backend
	bcryptCost int
	now        func() time.Time
	resetHook  ResetHook
	log        logrus.FieldLogger

	// statsMu serialises the read-modify-write of the usage counter.
	statsMu sync.Mutex
}

func New(backend store.Backend, opts ...Option) *Service {
	s := &Service{
		backend:    backend,
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
		log:        logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}

// readJSON decodes the document at key into target. A missing key reports
// false. A document that fails to decode is logged and also reports false,
// so callers fall back to their defaults.
func (s *Service) readJSON(ctx context.Context, key string, target any) (bool, error) {
	raw, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, target); err != nil {
		s.warnMalformed(key, err)
		return false, nil
	}
	return true, nil
}

func (s *Service) warnMalformed(key string, err error) {
	s.log.WithError(err).WithField("key", key).Warn("stored document is malformed, using defaults")
}

func (s *Service) writeJSON(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.backend.Set(ctx, key, raw)
}

func (s *Service) exists(ctx context.Context, key string) (bool, error) {
	_, ok, err := s.backend.Get(ctx, key)
	return ok, err
}

// Snapshot returns the raw documents currently stored, keyed by name.
func (s *Service) Snapshot(ctx context.Context) (map[string][]byte, error) {
	entries := make(map[string][]byte, len(AllKeys))
	for _, key := range AllKeys {
		raw, ok, err := s.backend.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if ok {
			entries[key] = raw
		}
	}
	return entries, nil
}
