package apikey

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// CachedStore wraps a Store with a local TTL cache so the hot auth path does
// not hit the backing key store on every request. Only successful
// resolutions are cached; revocations take effect once the entry expires or
// Revoke is called through this wrapper.
type CachedStore struct {
	store Store
	cache *ttlcache.Cache[string, int64]
}

// NewCachedStore wraps the store with a TTL cache of the given size.
func NewCachedStore(store Store, ttl time.Duration, capacity int) *CachedStore {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, int64](ttl),
		ttlcache.WithCapacity[string, int64](uint64(capacity)),
	)
	go cache.Start()

	return &CachedStore{
		store: store,
		cache: cache,
	}
}

// Resolve serves from the TTL cache when possible, falling back to the
// backing store.
func (s *CachedStore) Resolve(ctx context.Context, key string) (int64, error) {
	if item := s.cache.Get(key); item != nil {
		return item.Value(), nil
	}

	tenantID, err := s.store.Resolve(ctx, key)
	if err != nil {
		return 0, err
	}

	s.cache.Set(key, tenantID, ttlcache.DefaultTTL)
	return tenantID, nil
}

// Put writes through to the backing store and primes the cache.
func (s *CachedStore) Put(ctx context.Context, key string, tenantID int64) error {
	if err := s.store.Put(ctx, key, tenantID); err != nil {
		return err
	}
	s.cache.Set(key, tenantID, ttlcache.DefaultTTL)
	return nil
}

// Revoke removes the key from the backing store and drops the cached entry.
func (s *CachedStore) Revoke(ctx context.Context, key string) error {
	if err := s.store.Revoke(ctx, key); err != nil {
		return err
	}
	s.cache.Delete(key)
	return nil
}

// Ping checks the backing store.
func (s *CachedStore) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Close stops the cache janitor and closes the backing store.
func (s *CachedStore) Close() error {
	s.cache.Stop()
	return s.store.Close()
}
