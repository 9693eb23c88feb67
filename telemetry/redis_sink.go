package telemetry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSink espelha os eventos de abuso em contadores no Redis, para que
// várias instâncias possam ser observadas de um lugar só.
//
// Layout (prefix padrão "keyfade:abuse"):
//
//	{prefix}:total               hash type -> count (cumulativo, sem TTL)
//	{prefix}:minute:YYYYMMDDhhmm hash type -> count (TTL)
//	{prefix}:target              hash target -> count
//	{prefix}:ip:{ip}             hash type -> count (TTL, só com trackIPs)
type RedisSink struct {
	rdb *redis.Client

	prefix string
	// ttl aplica apenas nas chaves por minuto / por IP.
	ttl      time.Duration
	trackIPs bool
}

type RedisSinkOption func(*RedisSink)

func WithSinkPrefix(prefix string) RedisSinkOption {
	return func(s *RedisSink) {
		if p := strings.Trim(prefix, ":"); p != "" {
			s.prefix = p
		}
	}
}

func WithSinkTTL(d time.Duration) RedisSinkOption {
	return func(s *RedisSink) { s.ttl = d }
}

func WithSinkTrackIPs(track bool) RedisSinkOption {
	return func(s *RedisSink) { s.trackIPs = track }
}

func NewRedisSink(rdb *redis.Client, opts ...RedisSinkOption) *RedisSink {
	s := &RedisSink{
		rdb:    rdb,
		prefix: "keyfade:abuse",
		ttl:    24 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisSink) Record(ctx context.Context, ev AbuseEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	at := ev.Timestamp
	if at.IsZero() {
		at = time.Now()
	}
	field := string(ev.Type)

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, s.prefix+":total", field, 1)

	bucketKey := fmt.Sprintf("%s:minute:%s", s.prefix, at.UTC().Format("200601021504"))
	pipe.HIncrBy(ctx, bucketKey, field, 1)
	if s.ttl > 0 {
		pipe.Expire(ctx, bucketKey, s.ttl)
	}

	target := ev.Path
	if target == "" {
		target = ev.Origin
	}
	if target != "" {
		pipe.HIncrBy(ctx, s.prefix+":target", target, 1)
	}

	if s.trackIPs && ev.IP != "" && ev.IP != unknownIP {
		ipKey := s.prefix + ":ip:" + ev.IP
		pipe.HIncrBy(ctx, ipKey, field, 1)
		if s.ttl > 0 {
			pipe.Expire(ctx, ipKey, s.ttl)
		}
	}

	_, err := pipe.Exec(ctx)
	return err
}
