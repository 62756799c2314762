package access

import (
	"context"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/ishiev/rtiles/pkg/config"
	"github.com/ishiev/rtiles/pkg/logger"
	"github.com/ishiev/rtiles/pkg/metrics"
)

// entry is one memoized decision. sessionExp mirrors the session's own
// expiry: an entry for an expired session reads as absent.
type entry struct {
	decision   Decision
	createdAt  time.Time
	sessionExp time.Time
}

func (e entry) valid(now time.Time) bool {
	return e.sessionExp.IsZero() || now.Before(e.sessionExp)
}

// shard owns a slice of the key space. The generation counter is bumped
// on every invalidation touching the shard: an in-flight resolution
// begun under an older generation must not store its result.
type shard struct {
	mu       sync.Mutex
	lru      *expirable.LRU[string, entry]
	gen      uint64
	inflight map[string]int
	group    singleflight.Group
}

// Cache memoizes (session, model) permission decisions with a bounded
// LRU per shard, entry TTL and explicit invalidation. Concurrent misses
// on the same key collapse into a single resolver call.
type Cache struct {
	shards   []*shard
	resolver Resolver
	logger   logger.Logger
}

func NewCache(resolver Resolver, cfg config.Access, l logger.Logger) *Cache {
	n := cfg.CacheShards
	if n <= 0 {
		n = 1
	}
	perShard := cfg.CacheSize / n
	if perShard <= 0 {
		perShard = 1
	}

	shards := make([]*shard, n)
	for i := range shards {
		shards[i] = &shard{
			lru:      expirable.NewLRU[string, entry](perShard, nil, cfg.CacheTTL),
			inflight: make(map[string]int),
		}
	}

	return &Cache{
		shards:   shards,
		resolver: resolver,
		logger:   l,
	}
}

func (c *Cache) shardFor(key string) *shard {
	return c.shards[xxhash.Sum64String(key)%uint64(len(c.shards))]
}

// GetOrResolve returns the cached decision for (session, model) or
// resolves it against the authority, memoizing the result. An expired
// session is denied without touching the resolver.
func (c *Cache) GetOrResolve(ctx context.Context, session Session, model string) (Decision, error) {
	now := time.Now()
	if session.Expired(now) {
		return Denied, nil
	}

	key := Key{SessionID: session.ID, Model: model}.encode()
	sh := c.shardFor(key)

	sh.mu.Lock()
	if e, ok := sh.lru.Get(key); ok {
		if e.valid(now) {
			sh.mu.Unlock()
			metrics.AccessCacheHits.Inc()
			return e.decision, nil
		}
		sh.lru.Remove(key)
	}
	sh.inflight[key]++
	sh.mu.Unlock()

	metrics.AccessCacheMisses.Inc()

	v, err, _ := sh.group.Do(key, func() (any, error) {
		sh.mu.Lock()
		gen := sh.gen
		sh.mu.Unlock()

		decision, err := c.resolver.Resolve(ctx, session, model)
		if err != nil {
			return Unknown, err
		}

		sh.mu.Lock()
		if sh.gen == gen {
			sh.lru.Add(key, entry{
				decision:   decision,
				createdAt:  time.Now(),
				sessionExp: session.ExpiresAt,
			})
		}
		sh.mu.Unlock()
		return decision, nil
	})

	sh.mu.Lock()
	if sh.inflight[key]--; sh.inflight[key] <= 0 {
		delete(sh.inflight, key)
	}
	sh.mu.Unlock()

	if err != nil {
		return Unknown, err
	}

	decision := v.(Decision)
	c.logger.Debug("access resolved", "session", session.ID, "model", model, "decision", decision.String())
	return decision, nil
}

// InvalidateModel evicts every entry for the given model. Once it
// returns, no later lookup observes a removed entry, and resolutions
// still in flight will not repopulate the cache.
func (c *Cache) InvalidateModel(model string) {
	c.invalidate(func(k Key) bool { return k.Model == model })
}

// InvalidateSession evicts every entry belonging to the given session
// identity.
func (c *Cache) InvalidateSession(sessionID string) {
	c.invalidate(func(k Key) bool { return k.SessionID == sessionID })
}

func (c *Cache) invalidate(match func(Key) bool) {
	for _, sh := range c.shards {
		sh.mu.Lock()
		sh.gen++
		for _, ks := range sh.lru.Keys() {
			if k, ok := decodeKey(ks); ok && match(k) {
				sh.lru.Remove(ks)
			}
		}
		for ks := range sh.inflight {
			if k, ok := decodeKey(ks); ok && match(k) {
				sh.group.Forget(ks)
			}
		}
		sh.mu.Unlock()
	}
}

// Len reports the total number of live entries across shards.
func (c *Cache) Len() int {
	total := 0
	for _, sh := range c.shards {
		sh.mu.Lock()
		total += sh.lru.Len()
		sh.mu.Unlock()
	}
	return total
}
