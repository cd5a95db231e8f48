package sessions

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/clock"
	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/google/uuid"
)

// Cache is a write-time-TTL key/value cache. A Put replaces the previous
// value for the key and restarts its TTL.
type Cache interface {
	Put(ctx context.Context, key, value string, now time.Time) error
	Get(ctx context.Context, key string, now time.Time) (string, bool, error)
	Ping(ctx context.Context) error
}

// CacheStore keeps the most recently issued token for each user. Logging in
// again replaces the previous token, so each user has at most one live
// session; concurrent logins are last-write-wins.
type CacheStore struct {
	cache  Cache
	clock  clock.Clock
	logger logging.Logger
}

func NewCacheStore(cache Cache, c clock.Clock, l logging.Logger) *CacheStore {
	return &CacheStore{
		cache:  cache,
		clock:  c,
		logger: logging.OrNop(l).With("module", "cache_sessions"),
	}
}

func (s *CacheStore) Create(ctx context.Context, username string) (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	token := id.String()

	if err := s.cache.Put(ctx, username, token, s.clock.Now()); err != nil {
		return "", fmt.Errorf("store session token: %w", err)
	}
	return token, nil
}

func (s *CacheStore) Validate(ctx context.Context, username, token string) bool {
	if username == "" || token == "" {
		return false
	}

	current, ok, err := s.cache.Get(ctx, username, s.clock.Now())
	if err != nil {
		s.logger.Error(ctx, "session cache lookup failed", "username", username, "error", err)
		return false
	}
	if !ok {
		return false
	}
	return cryptox.Equal([]byte(current), []byte(token))
}

// Ping checks that the backing cache is reachable.
func (s *CacheStore) Ping(ctx context.Context) error {
	return s.cache.Ping(ctx)
}
