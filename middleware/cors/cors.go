// Package cors aplica a allow-list de origens do frontend.
//
// Requisições sem Origin (server-to-server, curl) passam. Origens fora da lista
// viram 403; a negação é registrada na telemetria e notificada.
package cors

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"keyfade/middleware/jsonresp"
	"keyfade/middleware/requestmeta"
	"keyfade/notify"
	"keyfade/telemetry"
)

const (
	DeniedMessage = "CORS access denied"

	defaultAllowMethods = "GET,HEAD,PUT,PATCH,POST,DELETE"
	defaultAllowHeaders = "Content-Type,Authorization,x-signature,x-api-key,x-telemetry-api-key"
)

// Recorder é o pedaço do telemetry.Recorder usado aqui.
type Recorder interface {
	Record(t telemetry.EventType, d telemetry.Details)
}

type Options struct {
	AllowedOrigins []string
	AllowMethods   string
	AllowHeaders   string
	TrustProxy     bool
	Recorder       Recorder
	Notifier       notify.Notifier
	Logger         zerolog.Logger
}

// ParseOrigins junta o FRONTEND_URL com uma lista separada por vírgulas, sem duplicatas
// e sem barra final.
func ParseOrigins(frontendURL, extra string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(o string) {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "" || seen[o] {
			return
		}
		seen[o] = true
		out = append(out, o)
	}
	add(frontendURL)
	for _, o := range strings.Split(extra, ",") {
		add(o)
	}
	return out
}

func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.AllowMethods == "" {
		opts.AllowMethods = defaultAllowMethods
	}
	if opts.AllowHeaders == "" {
		opts.AllowHeaders = defaultAllowHeaders
	}
	allowed := make(map[string]bool, len(opts.AllowedOrigins))
	for _, o := range opts.AllowedOrigins {
		allowed[o] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			if !allowed[origin] {
				deny(w, r, origin, opts)
				return
			}

			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Set("Access-Control-Allow-Methods", opts.AllowMethods)
				if req := r.Header.Get("Access-Control-Request-Headers"); req != "" {
					h.Set("Access-Control-Allow-Headers", req)
				} else {
					h.Set("Access-Control-Allow-Headers", opts.AllowHeaders)
				}
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func deny(w http.ResponseWriter, r *http.Request, origin string, opts Options) {
	msg := "CORS access denied for origin: " + origin
	ip := requestmeta.ClientIP(r, opts.TrustProxy)
	path := requestmeta.RedactPath(r.URL.Path)

	opts.Logger.Warn().
		Str("origin", origin).
		Str("ip", ip).
		Str("method", r.Method).
		Str("path", path).
		Msg(msg)

	if opts.Recorder != nil {
		opts.Recorder.Record(telemetry.CorsDenial, telemetry.Details{
			IP:     ip,
			Method: r.Method,
			Path:   path,
			Origin: origin,
			Reason: msg,
		})
	}
	if opts.Notifier != nil {
		_ = opts.Notifier.Notify(notify.TitleCORS, notify.Payload{
			ErrorMessage: msg,
			Origin:       origin,
			IP:           ip,
		})
	}

	jsonresp.Error(w, http.StatusForbidden, DeniedMessage)
}
