// Package memory is a sharded in-process cache with per-item TTL. It backs
// the source cache when no Redis address is configured.
package memory

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"duunihaku/common/cache"
)

type item struct {
	value     []byte
	expiresAt time.Time
}

type shard struct {
	mu    sync.RWMutex
	items map[string]item
}

type Cache struct {
	shards     []*shard
	defaultTTL time.Duration
	now        func() time.Time

	closeOnce sync.Once
	stop      chan struct{}
	mu        sync.RWMutex
	closed    bool
}

func New(opts cache.Options) *Cache {
	defaults := cache.DefaultOptions()
	if opts.NumShards <= 0 {
		opts.NumShards = defaults.NumShards
	}
	if opts.DefaultTTL == 0 {
		opts.DefaultTTL = defaults.DefaultTTL
	}
	if opts.CleanupInterval == 0 {
		opts.CleanupInterval = defaults.CleanupInterval
	}

	c := &Cache{
		shards:     make([]*shard, opts.NumShards),
		defaultTTL: opts.DefaultTTL,
		now:        time.Now,
		stop:       make(chan struct{}),
	}
	for i := range c.shards {
		c.shards[i] = &shard{items: make(map[string]item)}
	}

	go c.cleanUp(opts.CleanupInterval)

	return c
}

func (c *Cache) shardFor(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return c.shards[h.Sum32()%uint32(len(c.shards))]
}

func (c *Cache) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

func (c *Cache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.isClosed() {
		return cache.ErrClosed
	}
	if key == "" {
		return cache.ErrInvalidKey
	}
	data, err := cache.Encode(value)
	if err != nil {
		return err
	}
	if ttl == 0 {
		ttl = c.defaultTTL
	}

	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = item{
		value:     append([]byte(nil), data...),
		expiresAt: c.now().Add(ttl),
	}
	return nil
}

func (c *Cache) Get(_ context.Context, key string, value interface{}) error {
	if c.isClosed() {
		return cache.ErrClosed
	}

	s := c.shardFor(key)
	s.mu.RLock()
	it, ok := s.items[key]
	s.mu.RUnlock()

	if !ok || c.now().After(it.expiresAt) {
		return cache.ErrNotFound
	}
	return cache.Decode(it.value, value)
}

func (c *Cache) Delete(_ context.Context, key string) error {
	if c.isClosed() {
		return cache.ErrClosed
	}
	s := c.shardFor(key)
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
	return nil
}

func (c *Cache) Clear(_ context.Context) error {
	if c.isClosed() {
		return cache.ErrClosed
	}
	for _, s := range c.shards {
		s.mu.Lock()
		s.items = make(map[string]item)
		s.mu.Unlock()
	}
	return nil
}

func (c *Cache) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.stop)
	})
	return nil
}

func (c *Cache) cleanUp(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.evictExpired()
		}
	}
}

func (c *Cache) evictExpired() {
	now := c.now()
	for _, s := range c.shards {
		s.mu.Lock()
		for key, it := range s.items {
			if now.After(it.expiresAt) {
				delete(s.items, key)
			}
		}
		s.mu.Unlock()
	}
}
