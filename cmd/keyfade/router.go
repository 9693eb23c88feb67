package main

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"keyfade/config"
	"keyfade/middleware/apikey"
	"keyfade/middleware/cors"
	"keyfade/middleware/hmacauth"
	"keyfade/middleware/jsonresp"
	"keyfade/middleware/ratelimit"
	"keyfade/notify"
	"keyfade/secrets"
	"keyfade/telemetry"
)

// limitFor devolve o rate limit da rota nomeada.
type limitFor func(route string) func(http.Handler) http.Handler

// Nomes das rotas de segredo, usados como Scope das janelas de rate limit.
const (
	routeCreate   = "create"
	routeRetrieve = "retrieve"
	routeDelete   = "delete"
)

type routerDeps struct {
	Service   *secrets.Service
	Recorder  *telemetry.Recorder
	Inventory *telemetry.Inventory
	Notifier  notify.Notifier
	// Limit dá o rate limit de cada rota de segredo; nil desliga o rate limit.
	Limit limitFor
	// Metrics nil desliga /metrics.
	Metrics *prometheus.Registry
	// Telemetry recebe as recusas do limite de concorrência; pode ser nil.
	Telemetry *telemetry.Metrics
	Now       func() time.Time
	Logger    zerolog.Logger
}

// newRouter monta a cadeia: CORS -> concorrência -> mux -> (HMAC -> rate limit) -> handler.
func newRouter(cfg config.Config, d routerDeps) http.Handler {
	if d.Limit == nil {
		d.Limit = func(string) func(http.Handler) http.Handler { return passthrough }
	}
	if d.Now == nil {
		d.Now = time.Now
	}

	signed := hmacauth.Middleware(hmacauth.Options{
		Secret:     []byte(cfg.HMACSecret),
		Required:   cfg.HMACRequired,
		TrustProxy: cfg.TrustXFF,
		Recorder:   d.Recorder,
		Logger:     d.Logger,
	})

	mux := http.NewServeMux()
	secrets.Handler{
		Service:    d.Service,
		Recorder:   d.Recorder,
		TrustProxy: cfg.TrustXFF,
		Logger:     d.Logger,
	}.Register(mux, secrets.Routes{
		Create:   d.Limit(routeCreate),
		Retrieve: chain(signed, d.Limit(routeRetrieve)),
		Delete:   chain(signed, d.Limit(routeDelete)),
	})

	mux.Handle("GET /telemetry/abuse", apikey.Middleware(cfg.TelemetryAPIKey, d.Logger)(telemetry.Handler(d.Recorder, d.Inventory)))
	if d.Metrics != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(d.Metrics, promhttp.HandlerOpts{}))
	}
	mux.HandleFunc("GET /status", func(w http.ResponseWriter, r *http.Request) {
		jsonresp.Write(w, http.StatusOK, map[string]string{
			"status":    "ok",
			"timestamp": d.Now().UTC().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		jsonresp.Error(w, http.StatusNotFound, "API endpoint not found")
	})

	h := http.Handler(mux)
	h = ratelimit.ConcurrencyMiddleware(ratelimit.ConcurrencyOptions{
		Max:            cfg.ConcurrencyMax,
		RejectStatus:   http.StatusServiceUnavailable,
		AcquireTimeout: cfg.ConcurrencyTimeout,
		RetryAfter:     time.Second,
		TrustProxy:     cfg.TrustXFF,
		Observer:       d.Telemetry,
		Logger:         d.Logger,
	})(h)
	h = cors.Middleware(cors.Options{
		AllowedOrigins: cors.ParseOrigins(cfg.FrontendURL, cfg.AllowedOrigins),
		TrustProxy:     cfg.TrustXFF,
		Recorder:       d.Recorder,
		Notifier:       d.Notifier,
		Logger:         d.Logger,
	})(h)
	return h
}

func passthrough(next http.Handler) http.Handler { return next }

// chain aplica outer por fora de inner.
func chain(outer, inner func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler { return outer(inner(h)) }
}
