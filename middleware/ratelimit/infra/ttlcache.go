package infra

import (
	"sync"
	"time"

	"keyfade/middleware/ratelimit/domain"
)

// TTLCache guarda chaves com prazo de validade.
//
// A expiração é preguiçosa (checada no acesso) e o janitor remove o que sobrou,
// então nenhuma entrada depende de um timer próprio.
type TTLCache struct {
	mu           sync.Mutex
	entries      map[string]time.Time
	now          func() time.Time
	cleanupEvery time.Duration
}

type TTLCacheOption func(*TTLCache)

func WithCacheClock(now func() time.Time) TTLCacheOption {
	return func(c *TTLCache) {
		if now != nil {
			c.now = now
		}
	}
}

func WithCacheCleanupEvery(d time.Duration) TTLCacheOption {
	return func(c *TTLCache) { c.cleanupEvery = d }
}

func NewTTLCache(opts ...TTLCacheOption) *TTLCache {
	c := &TTLCache{
		entries:      make(map[string]time.Time),
		now:          time.Now,
		cleanupEvery: time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ domain.SuppressionCache = (*TTLCache)(nil)

func (c *TTLCache) MarkIfAbsent(key string, ttl time.Duration) bool {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if exp, ok := c.entries[key]; ok && now.Before(exp) {
		return false
	}
	c.entries[key] = now.Add(ttl)
	return true
}

func (c *TTLCache) Forget(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *TTLCache) Cleanup() {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for k, exp := range c.entries {
		if !now.Before(exp) {
			delete(c.entries, k)
		}
	}
}

// StartJanitor inicia a limpeza periódica. Pare cancelando o contexto.
func (c *TTLCache) StartJanitor(ctx DoneContext) {
	startJanitor(ctx, c.cleanupEvery, c.Cleanup)
}
