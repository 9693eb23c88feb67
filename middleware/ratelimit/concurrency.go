package ratelimit

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"keyfade/middleware/jsonresp"
	"keyfade/middleware/ratelimit/application"
	"keyfade/middleware/ratelimit/infra"
	"keyfade/middleware/requestmeta"
)

const DefaultBusyMessage = "Server is busy. Please try again later."

// BusyObserver conta as requisições recusadas por falta de vaga.
type BusyObserver interface {
	ObserveBusy()
}

type ConcurrencyOptions struct {
	// Max <= 0 desliga o limite.
	Max            int
	RejectStatus   int
	AcquireTimeout time.Duration
	// RetryAfter > 0 vira o header Retry-After da recusa.
	RetryAfter time.Duration
	TrustProxy bool
	Observer   BusyObserver
	Logger     zerolog.Logger
}

// ConcurrencyMiddleware limita quantas requisições são atendidas ao mesmo tempo
// e responde RejectStatus (503 por padrão) em JSON quando não há vaga.
func ConcurrencyMiddleware(opts ConcurrencyOptions) func(next http.Handler) http.Handler {
	if opts.Max <= 0 {
		return passthrough
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusServiceUnavailable
	}
	pool := infra.NewChanPool(opts.Max)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			svc := application.ConcurrencyService{
				Pool:           pool,
				AcquireTimeout: opts.AcquireTimeout,
				OnBusy:         func() { rejectBusy(r, opts) },
			}
			release, ok := svc.Acquire(r.Context())
			if !ok {
				if opts.RetryAfter > 0 {
					w.Header().Set("Retry-After", formatSeconds(opts.RetryAfter))
				}
				jsonresp.Error(w, opts.RejectStatus, DefaultBusyMessage)
				return
			}
			defer release()

			next.ServeHTTP(w, r)
		})
	}
}

func rejectBusy(r *http.Request, opts ConcurrencyOptions) {
	if opts.Observer != nil {
		opts.Observer.ObserveBusy()
	}
	opts.Logger.Warn().
		Int("max", opts.Max).
		Str("ip", requestmeta.ClientIP(r, opts.TrustProxy)).
		Str("method", r.Method).
		Str("path", requestmeta.RedactPath(r.URL.Path)).
		Msg("concurrency limit reached")
}

func passthrough(next http.Handler) http.Handler { return next }
