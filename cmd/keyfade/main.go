package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"keyfade/bootstrap"
	"keyfade/cleanup"
	"keyfade/config"
	"keyfade/logging"
	"keyfade/middleware/ratelimit"
	"keyfade/middleware/ratelimit/application"
	"keyfade/middleware/ratelimit/domain"
	"keyfade/middleware/ratelimit/infra"
	"keyfade/notify"
	"keyfade/secrets"
	"keyfade/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logging.New("info", "json", os.Stderr)
		boot.Fatal().Err(err).Msg("config error")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var rdb *redis.Client
	if cfg.NeedsRedis() {
		rdb, err = bootstrap.NewRedisClient(ctx, cfg)
		if err != nil {
			log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable")
		}
		defer func() { _ = rdb.Close() }()
	}

	reg := prometheus.NewRegistry()
	var metrics *telemetry.Metrics
	if cfg.MetricsEnabled {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics = telemetry.NewMetrics(reg)
	}

	recOpts := []telemetry.Option{
		telemetry.WithMaxEvents(cfg.TelemetryMaxEvents),
		telemetry.WithMetrics(metrics),
		telemetry.WithLogger(log),
	}
	if cfg.TelemetryRedisMirror {
		recOpts = append(recOpts, telemetry.WithSink(telemetry.NewRedisSink(
			rdb,
			telemetry.WithSinkPrefix(cfg.TelemetryRedisPrefix),
			telemetry.WithSinkTTL(cfg.TelemetryRedisTTL),
			telemetry.WithSinkTrackIPs(true),
		)))
	}
	recorder := telemetry.NewRecorder(recOpts...)
	inventory := telemetry.NewInventory(telemetry.WithInventoryMetrics(metrics))

	store, err := bootstrap.NewVaultStore(cfg, rdb)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.VaultBackend).Msg("vault backend error")
	}

	webhook := notify.NewWebhook(notify.Config{
		URL:        cfg.WebhookURL,
		BackendURL: cfg.BackendURL,
		RPS:        cfg.WebhookRPS,
		Burst:      cfg.WebhookBurst,
	}, notify.WithLogger(log))

	var limit limitFor
	if cfg.RateLimitEnabled {
		limit = rateLimiter(ctx, cfg, rdb, recorder, webhook, metrics, log)
	}
	svc := secrets.NewService(store, cfg.FrontendURL,
		secrets.WithInventory(inventory),
		secrets.WithLogger(log),
	)

	var metricsReg *prometheus.Registry
	if cfg.MetricsEnabled {
		metricsReg = reg
	}
	h := newRouter(cfg, routerDeps{
		Service:   svc,
		Recorder:  recorder,
		Inventory: inventory,
		Notifier:  webhook,
		Limit:     limit,
		Metrics:   metricsReg,
		Telemetry: metrics,
		Logger:    log,
	})

	if cfg.CleanupEnabled {
		sched := cleanup.Scheduler{
			Sweeper: cleanup.NewSweeper(store,
				cleanup.WithInventory(inventory),
				cleanup.WithObserver(metrics),
				cleanup.WithLogger(log),
			),
			Hour:   cfg.CleanupHour,
			Minute: cfg.CleanupMinute,
			Logger: log,
		}
		go sched.Run(ctx)
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().
		Str("addr", cfg.ListenAddr).
		Str("frontend", cfg.FrontendURL).
		Str("vault", cfg.VaultBackend).
		Msg("keyfade listening")
	log.Info().
		Bool("enabled", cfg.RateLimitEnabled).
		Int("max", cfg.RateLimitMax).
		Dur("window", cfg.RateLimitWindow).
		Str("backend", cfg.RateLimitBackend).
		Bool("trustXFF", cfg.TrustXFF).
		Msg("rate limit")
	log.Info().
		Bool("hmac", cfg.HMACRequired).
		Bool("telemetryKey", cfg.TelemetryAPIKey != "").
		Bool("cleanup", cfg.CleanupEnabled).
		Int("concurrencyMax", cfg.ConcurrencyMax).
		Msg("features")

	webhook.Notify(notify.TitleServerStart, notify.Payload{})

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server error")
	}
	webhook.Wait()
}

// rateLimiter devolve o limitador de cada rota de segredo. As rotas dividem o
// backend de janelas, mas cada uma tem o seu orçamento por IP (Scope). O cache
// de supressão de alertas é um só.
func rateLimiter(
	ctx context.Context,
	cfg config.Config,
	rdb *redis.Client,
	recorder *telemetry.Recorder,
	notifier notify.Notifier,
	metrics *telemetry.Metrics,
	log zerolog.Logger,
) limitFor {
	var windows domain.WindowStore
	if cfg.RateLimitBackend == config.BackendRedis {
		windows = infra.NewRedisWindowStore(rdb, infra.WithRedisWindowPrefix(cfg.RateLimitPrefix))
	} else {
		mem := infra.NewMemoryWindowStore()
		mem.StartJanitor(ctx)
		windows = mem
	}

	suppress := infra.NewTTLCache()
	suppress.StartJanitor(ctx)

	hook := ratelimit.AbuseHook{
		Recorder:   recorder,
		Notifier:   notifier,
		Gate:       application.NotifyGate{Cache: suppress, SuppressFor: cfg.RateLimitSuppress},
		TrustProxy: cfg.TrustXFF,
	}

	return func(route string) func(http.Handler) http.Handler {
		return ratelimit.Middleware(ratelimit.Options{
			Store:               windows,
			Scope:               route,
			Limit:               cfg.RateLimitMax,
			Window:              cfg.RateLimitWindow,
			TrustXForwardedFor:  cfg.TrustXFF,
			AddRateLimitHeaders: cfg.RateLimitHeaders,
			OnLimit:             hook.OnLimit,
			Observer:            metrics,
			Logger:              log,
		})
	}
}
