// vault-sweep roda uma única varredura de limpeza do vault e sai.
// Útil para cron externo quando o servidor roda com CLEANUP_ENABLED=false.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"keyfade/bootstrap"
	"keyfade/cleanup"
	"keyfade/config"
	"keyfade/logging"
)

func main() {
	timeout := flag.Duration("timeout", 5*time.Minute, "maximum sweep duration")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		boot := logging.New("info", "json", os.Stderr)
		boot.Fatal().Err(err).Msg("config error")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, *timeout)
	defer cancelTimeout()

	var rdb *redis.Client
	if cfg.VaultBackend == config.BackendRedis {
		rdb, err = bootstrap.NewRedisClient(ctx, cfg)
		if err != nil {
			log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable")
		}
		defer func() { _ = rdb.Close() }()
	}

	store, err := bootstrap.NewVaultStore(cfg, rdb)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.VaultBackend).Msg("vault backend error")
	}

	res, err := cleanup.NewSweeper(store, cleanup.WithLogger(log)).Sweep(ctx)
	if err != nil {
		log.Error().Err(err).Msg("sweep failed")
		os.Exit(1)
	}
	if res.Errors > 0 {
		os.Exit(2)
	}
}
