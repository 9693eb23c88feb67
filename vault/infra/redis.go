package infra

import (
	"context"
	"strings"
	"time"

	"keyfade/vault/domain"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisStore guarda cada item como uma string Redis com TTL nativo.
// Itens vencidos somem sozinhos; Walk nunca vê itens expirados.
type RedisStore struct {
	rdb       *redis.Client
	prefix    string
	scanCount int64
	now       func() time.Time
}

type RedisOption func(*RedisStore)

func WithRedisPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		if p := strings.Trim(prefix, ":"); p != "" {
			s.prefix = p
		}
	}
}

func WithRedisScanCount(n int64) RedisOption {
	return func(s *RedisStore) {
		if n > 0 {
			s.scanCount = n
		}
	}
}

func WithRedisClock(now func() time.Time) RedisOption {
	return func(s *RedisStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewRedisStore(rdb *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		rdb:       rdb,
		prefix:    "keyfade:vault",
		scanCount: 100,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ domain.Store = (*RedisStore)(nil)

func (s *RedisStore) key(name string) string { return s.prefix + ":" + name }

func (s *RedisStore) Put(ctx context.Context, name, value string, expiresOn time.Time) error {
	var ttl time.Duration
	if !expiresOn.IsZero() {
		ttl = expiresOn.Sub(s.now())
		if ttl < time.Millisecond {
			ttl = time.Millisecond
		}
	}
	if err := s.rdb.Set(ctx, s.key(name), value, ttl).Err(); err != nil {
		return errors.Wrapf(err, "redis vault: set %s", name)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, name string) (domain.Secret, bool, error) {
	pipe := s.rdb.Pipeline()
	get := pipe.Get(ctx, s.key(name))
	pttl := pipe.PTTL(ctx, s.key(name))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return domain.Secret{}, false, errors.Wrapf(err, "redis vault: get %s", name)
	}

	value, err := get.Result()
	if errors.Is(err, redis.Nil) {
		return domain.Secret{}, false, nil
	}
	if err != nil {
		return domain.Secret{}, false, errors.Wrapf(err, "redis vault: get %s", name)
	}

	return domain.Secret{
		Name:      name,
		Value:     value,
		ExpiresOn: s.expiry(pttl.Val()),
	}, true, nil
}

func (s *RedisStore) Delete(ctx context.Context, name string) error {
	if err := s.rdb.Del(ctx, s.key(name)).Err(); err != nil {
		return errors.Wrapf(err, "redis vault: delete %s", name)
	}
	return nil
}

// Walk usa SCAN em lotes; para cada lote, um pipeline de PTTL.
// SCAN pode repetir chaves, então nomes já vistos são ignorados.
func (s *RedisStore) Walk(ctx context.Context, fn func(domain.Item) error) error {
	match := s.prefix + ":*"
	seen := make(map[string]struct{})
	var cursor uint64

	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, match, s.scanCount).Result()
		if err != nil {
			return errors.Wrap(err, "redis vault: scan")
		}

		if len(keys) > 0 {
			pipe := s.rdb.Pipeline()
			ttls := make([]*redis.DurationCmd, len(keys))
			for i, k := range keys {
				ttls[i] = pipe.PTTL(ctx, k)
			}
			if _, err := pipe.Exec(ctx); err != nil {
				return errors.Wrap(err, "redis vault: pttl")
			}

			for i, k := range keys {
				name := strings.TrimPrefix(k, s.prefix+":")
				if _, dup := seen[name]; dup {
					continue
				}
				seen[name] = struct{}{}

				d := ttls[i].Val()
				if d == -2 {
					// chave sumiu entre o SCAN e o PTTL
					continue
				}
				if err := fn(domain.Item{Name: name, ExpiresOn: s.expiry(d), Enabled: true}); err != nil {
					if errors.Is(err, domain.ErrStopWalk) {
						return nil
					}
					return err
				}
			}
		}

		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// expiry converte o PTTL em instante absoluto. Valores negativos = sem expiração.
func (s *RedisStore) expiry(d time.Duration) *time.Time {
	if d <= 0 {
		return nil
	}
	t := s.now().Add(d)
	return &t
}
