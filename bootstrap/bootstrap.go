// Package bootstrap constrói as dependências externas (Redis, vault) a partir do Config.
// Compartilhado pelos binários em cmd/.
package bootstrap

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"keyfade/config"
	"keyfade/vault/domain"
	"keyfade/vault/infra"
)

// NewRedisClient abre o cliente e valida a conexão com um PING.
func NewRedisClient(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, "redis ping")
	}
	return rdb, nil
}

// NewVaultStore escolhe o backend pelo VAULT_BACKEND. rdb só é usado com backend redis.
func NewVaultStore(cfg config.Config, rdb *redis.Client) (domain.Store, error) {
	switch cfg.VaultBackend {
	case config.BackendRedis:
		if rdb == nil {
			return nil, errors.New("redis vault backend needs a redis client")
		}
		return infra.NewRedisStore(rdb, infra.WithRedisPrefix(cfg.VaultPrefix+":vault")), nil
	case config.BackendHashiCorp:
		client, err := infra.NewHashiCorpClient(infra.HashiCorpConfig{
			Address: cfg.VaultAddr,
			Token:   cfg.VaultToken,
			Timeout: cfg.VaultTimeout,
		})
		if err != nil {
			return nil, err
		}
		return infra.NewHashiCorpStore(client,
			infra.WithHashiCorpMount(cfg.VaultMount),
			infra.WithHashiCorpPrefix(cfg.VaultPrefix),
		), nil
	case config.BackendMemory, "":
		return infra.NewMemoryStore(), nil
	default:
		return nil, errors.Errorf("unknown vault backend %q", cfg.VaultBackend)
	}
}
