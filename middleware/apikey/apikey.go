// Package apikey protege rotas internas (telemetria) com uma chave estática.
package apikey

import (
	"crypto/subtle"
	"net/http"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"keyfade/middleware/jsonresp"
)

const UnauthorizedMessage = "Unauthorized telemetry access"

var bearerPrefix = regexp.MustCompile(`(?i)^Bearer\s+`)

// Provided devolve a chave enviada: x-api-key, x-telemetry-api-key ou Authorization: Bearer.
func Provided(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get("x-api-key")); v != "" {
		return v
	}
	if v := strings.TrimSpace(r.Header.Get("x-telemetry-api-key")); v != "" {
		return v
	}
	return strings.TrimSpace(bearerPrefix.ReplaceAllString(r.Header.Get("Authorization"), ""))
}

// Middleware exige a chave. Com key vazia a rota fica aberta.
func Middleware(key string, log zerolog.Logger) func(next http.Handler) http.Handler {
	if key == "" {
		return func(next http.Handler) http.Handler { return next }
	}
	want := []byte(key)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if subtle.ConstantTimeCompare([]byte(Provided(r)), want) != 1 {
				log.Warn().Str("path", r.URL.Path).Msg("unauthorized telemetry access attempt")
				jsonresp.Error(w, http.StatusUnauthorized, UnauthorizedMessage)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
