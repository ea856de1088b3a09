package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Store é o cache usado pelos handlers (contador de não lidas, métricas do dashboard).
// Valores são []byte (normalmente JSON). Get retorna nil quando ausente ou expirado.
type Store interface {
	Get(ctx context.Context, key string) []byte
	Set(ctx context.Context, key string, value []byte)
	Delete(ctx context.Context, key string)
	DeletePrefix(ctx context.Context, prefix string)
}

// TTL is a simple in-memory cache with TTL, used when no Redis is configured.
type TTL struct {
	mu    sync.RWMutex
	items map[string]item
	ttl   time.Duration
	stop  chan struct{}
}

type item struct {
	data []byte
	exp  time.Time
}

// New returns a new TTL cache with the given duration. After duration, entries expire.
func New(ttl time.Duration) *TTL {
	c := &TTL{items: make(map[string]item), ttl: ttl, stop: make(chan struct{})}
	go c.cleanup()
	return c
}

func (c *TTL) cleanup() {
	tick := time.NewTicker(c.ttl / 2)
	defer tick.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-tick.C:
		}
		c.mu.Lock()
		now := time.Now()
		for k, v := range c.items {
			if v.exp.Before(now) {
				delete(c.items, k)
			}
		}
		c.mu.Unlock()
	}
}

// Close stops the cleanup goroutine.
func (c *TTL) Close() { close(c.stop) }

func (c *TTL) Get(_ context.Context, key string) []byte {
	c.mu.RLock()
	it, ok := c.items[key]
	c.mu.RUnlock()
	if !ok || it.exp.Before(time.Now()) {
		return nil
	}
	return it.data
}

func (c *TTL) Set(_ context.Context, key string, value []byte) {
	exp := time.Now().Add(c.ttl)
	c.mu.Lock()
	c.items[key] = item{data: value, exp: exp}
	c.mu.Unlock()
}

func (c *TTL) Delete(_ context.Context, key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// DeletePrefix removes all keys that start with prefix (e.g. "metrics:<user>:").
func (c *TTL) DeletePrefix(_ context.Context, prefix string) {
	c.mu.Lock()
	for k := range c.items {
		if strings.HasPrefix(k, prefix) {
			delete(c.items, k)
		}
	}
	c.mu.Unlock()
}
