package cache

import (
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/ishiev/rtiles/pkg/config"
)

// MemoryCache keeps tile bodies in process memory, bounded by entry count
// and per-object size, with TTL eviction.
type MemoryCache struct {
	lru      *expirable.LRU[Key, Value]
	maxBytes int64
}

func NewMemoryCache(cfg config.Cache) *MemoryCache {
	return &MemoryCache{
		lru:      expirable.NewLRU[Key, Value](cfg.MaxEntries, nil, cfg.TTL),
		maxBytes: cfg.MaxObjectBytes,
	}
}

var _ TileCache = (*MemoryCache)(nil)

func (c *MemoryCache) Get(k Key) (Value, bool, error) {
	v, ok := c.lru.Get(k)
	return v, ok, nil
}

func (c *MemoryCache) Set(k Key, v Value) error {
	if int64(len(v)) > c.maxBytes {
		return nil
	}
	c.lru.Add(k, v)
	return nil
}
