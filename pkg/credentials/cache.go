package credentials

import (
	"context"
	"time"

	c "github.com/patrickmn/go-cache"
)

// DefaultCacheTTL bounds how long a token is served without asking the store.
const DefaultCacheTTL = 5 * time.Minute

// CachedStore memoizes tokens of another store. Misses are not cached.
type CachedStore struct {
	next  TokenStore
	cache *c.Cache
}

func NewCachedStore(next TokenStore, ttl time.Duration) *CachedStore {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	return &CachedStore{
		next:  next,
		cache: c.New(ttl, 2*ttl),
	}
}

func (s *CachedStore) AccessToken(ctx context.Context, integration string) (string, error) {
	key := normalize(integration)

	if token, found := s.cache.Get(key); found {
		if str, ok := token.(string); ok {
			return str, nil
		}
	}

	token, err := s.next.AccessToken(ctx, integration)
	if err != nil {
		return "", err
	}

	s.cache.SetDefault(key, token)

	return token, nil
}

// Invalidate drops a cached token, e.g. after the platform rejected it.
func (s *CachedStore) Invalidate(integration string) {
	s.cache.Delete(normalize(integration))
}
