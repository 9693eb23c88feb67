package infra

import (
	"context"
	"strings"
	"time"

	"keyfade/middleware/ratelimit/domain"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisWindowStore implementa a janela fixa no Redis, compartilhada entre instâncias.
//
// Cada chave vira {prefix}:{key} com INCR; a expiração (PEXPIRE window) é
// aplicada quando a chave ainda não tem TTL, o que abre a janela.
type RedisWindowStore struct {
	rdb    *redis.Client
	prefix string
	now    func() time.Time
}

type RedisWindowOption func(*RedisWindowStore)

func WithRedisWindowPrefix(prefix string) RedisWindowOption {
	return func(s *RedisWindowStore) {
		if p := strings.Trim(prefix, ":"); p != "" {
			s.prefix = p
		}
	}
}

func WithRedisWindowClock(now func() time.Time) RedisWindowOption {
	return func(s *RedisWindowStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewRedisWindowStore(rdb *redis.Client, opts ...RedisWindowOption) *RedisWindowStore {
	s := &RedisWindowStore{
		rdb:    rdb,
		prefix: "keyfade:ratelimit",
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ domain.WindowStore = (*RedisWindowStore)(nil)

func (s *RedisWindowStore) Incr(ctx context.Context, key domain.Key, window time.Duration) (domain.WindowHit, error) {
	k := s.prefix + ":" + string(key)

	pipe := s.rdb.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pttl := pipe.PTTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return domain.WindowHit{}, errors.Wrap(err, "redis window: incr")
	}

	ttl := pttl.Val()
	if ttl <= 0 {
		if err := s.rdb.PExpire(ctx, k, window).Err(); err != nil {
			return domain.WindowHit{}, errors.Wrap(err, "redis window: pexpire")
		}
		ttl = window
	}

	return domain.WindowHit{Count: incr.Val(), ResetAt: s.now().Add(ttl)}, nil
}
