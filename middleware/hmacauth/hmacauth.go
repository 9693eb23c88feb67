// Package hmacauth valida a assinatura HMAC-SHA256 enviada no header x-signature.
//
// A string assinada é METHOD + host + request URI, seguida do corpo bruto em POST.
package hmacauth

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"keyfade/middleware/jsonresp"
	"keyfade/middleware/requestmeta"
	"keyfade/telemetry"
)

const (
	Header = "x-signature"

	MissingMessage = "Missing signature"
	InvalidMessage = "Invalid signature"

	DefaultMaxBody int64 = 1 << 20
)

type Recorder interface {
	Record(t telemetry.EventType, d telemetry.Details)
}

type Options struct {
	Secret []byte
	// Required=false (ou Secret vazio) desliga a verificação.
	Required   bool
	MaxBody    int64
	TrustProxy bool
	Recorder   Recorder
	Logger     zerolog.Logger
}

// Sign calcula a assinatura hex esperada.
func Sign(secret []byte, method, host, requestURI string, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(method + host + requestURI))
	if method == http.MethodPost {
		mac.Write(body)
	}
	return hex.EncodeToString(mac.Sum(nil))
}

func Middleware(opts Options) func(next http.Handler) http.Handler {
	if !opts.Required || len(opts.Secret) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.MaxBody <= 0 {
		opts.MaxBody = DefaultMaxBody
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sig := strings.TrimSpace(r.Header.Get(Header))
			if sig == "" {
				reject(w, r, opts, MissingMessage)
				return
			}

			var body []byte
			if r.Method == http.MethodPost && r.Body != nil {
				b, err := io.ReadAll(io.LimitReader(r.Body, opts.MaxBody))
				if err != nil {
					reject(w, r, opts, InvalidMessage)
					return
				}
				body = b
				r.Body = io.NopCloser(bytes.NewReader(body))
			}

			want := Sign(opts.Secret, r.Method, r.Host, r.URL.RequestURI(), body)
			if !hmac.Equal([]byte(strings.ToLower(sig)), []byte(want)) {
				reject(w, r, opts, InvalidMessage)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func reject(w http.ResponseWriter, r *http.Request, opts Options, reason string) {
	ip := requestmeta.ClientIP(r, opts.TrustProxy)
	path := requestmeta.SanitizedPath(r)

	opts.Logger.Warn().Str("ip", ip).Str("method", r.Method).Str("path", path).Msg(reason)

	if opts.Recorder != nil {
		opts.Recorder.Record(telemetry.FailedAttempt, telemetry.Details{
			IP:       ip,
			Method:   r.Method,
			Path:     path,
			SecretID: r.PathValue("id"),
			Reason:   reason,
		})
	}
	jsonresp.Error(w, http.StatusUnauthorized, reason)
}
