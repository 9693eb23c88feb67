package ratelimit

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"keyfade/middleware/jsonresp"
	"keyfade/middleware/ratelimit/application"
	"keyfade/middleware/ratelimit/domain"
	"keyfade/middleware/requestmeta"
)

const DefaultRejectMessage = "Too many requests for this secret. Please try again later."

type KeyFunc func(r *http.Request) string

// LimitHook é chamado (de forma síncrona) a cada requisição bloqueada, antes da resposta.
// key é a chave do KeyFn, sem o Scope.
type LimitHook func(r *http.Request, key string)

// Observer recebe cada decisão (ex.: contadores Prometheus).
type Observer interface {
	ObserveRateLimit(allowed bool)
}

type Options struct {
	// Store guarda as janelas. Rotas que dividem o Store têm orçamentos separados
	// quando cada uma usa um Scope diferente.
	Store               domain.WindowStore
	Scope               string
	Limit               int
	Window              time.Duration
	KeyFn               KeyFunc
	TrustXForwardedFor  bool
	RejectStatus        int
	RejectMessage       string
	AddRateLimitHeaders bool
	OnLimit             LimitHook
	Observer            Observer
	Logger              zerolog.Logger
}

// DefaultKeyFunc chaveia pelo IP do cliente.
func DefaultKeyFunc(trustXFF bool) KeyFunc {
	return func(r *http.Request) string {
		return requestmeta.ClientIP(r, trustXFF)
	}
}

func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusTooManyRequests
	}
	if opts.RejectMessage == "" {
		opts.RejectMessage = DefaultRejectMessage
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.TrustXForwardedFor)
	}

	svc := application.Service{
		Store:  opts.Store,
		Limit:  opts.Limit,
		Window: opts.Window,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := opts.KeyFn(r)
			windowKey := key
			if opts.Scope != "" {
				windowKey = opts.Scope + "|" + key
			}

			dec, err := svc.Decide(r.Context(), domain.Key(windowKey))
			if err != nil {
				// falha aberta: o limite não pode derrubar o serviço
				opts.Logger.Warn().Err(err).Str("key", windowKey).Msg("rate limit store unavailable; allowing request")
			}
			if opts.Observer != nil {
				opts.Observer.ObserveRateLimit(dec.Allowed)
			}

			if opts.AddRateLimitHeaders {
				w.Header().Set("X-RateLimit-Limit", formatInt(dec.Limit))
				w.Header().Set("X-RateLimit-Remaining", formatInt(dec.Remaining))
				if !dec.ResetAt.IsZero() {
					w.Header().Set("X-RateLimit-Reset", formatInt(int(dec.ResetAt.Unix())))
				}
			}

			if !dec.Allowed {
				if opts.OnLimit != nil {
					opts.OnLimit(r, key)
				}
				w.Header().Set("Retry-After", formatSeconds(dec.RetryAfter))
				jsonresp.Error(w, opts.RejectStatus, opts.RejectMessage)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
