// Package requestmeta extrai metadados canônicos de uma requisição HTTP:
// IP do cliente (respeitando headers de proxy) e o path sanitizado, com os
// segmentos de id/chave de segredo trocados por placeholders.
//
// Os valores são usados como chaves de agregação na telemetria e no rate limit,
// por isso nunca devem carregar o id ou a chave de um segredo real.
package requestmeta

import (
	"net"
	"net/http"
	"strings"
)

// Unknown é o sentinela usado quando não é possível resolver o IP.
const Unknown = "unknown"

const (
	headerCloudflareIP = "CF-Connecting-IP"
	headerForwardedFor = "X-Forwarded-For"
)

// ClientIP resolve o IP do cliente.
//
// Ordem: CF-Connecting-IP, primeiro IP do X-Forwarded-For (cliente original),
// host do RemoteAddr. Os headers de proxy só são lidos com trustProxy=true.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if v := strings.TrimSpace(r.Header.Get(headerCloudflareIP)); v != "" {
			return v
		}
		if xff := r.Header.Get(headerForwardedFor); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}

	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil && host != "" {
		addr = host
	}
	addr = strings.TrimPrefix(addr, "::ffff:")
	if addr == "" {
		return Unknown
	}
	return addr
}

// SecretID devolve o segmento {id} da rota ou "undefined" quando a rota não tem id.
func SecretID(r *http.Request) string {
	if id := r.PathValue("id"); id != "" {
		return id
	}
	return "undefined"
}

// SanitizedPath devolve a URI da requisição com {id} e {key} trocados por ":id" e ":key".
func SanitizedPath(r *http.Request) string {
	path := r.URL.RequestURI()
	if id := r.PathValue("id"); id != "" {
		path = strings.Replace(path, id, ":id", 1)
	}
	if key := r.PathValue("key"); key != "" {
		path = strings.Replace(path, key, ":key", 1)
	}
	return path
}

const secretsPrefix = "/api/secrets/"

// RedactPath troca os segmentos {id} e {key} de um path /api/secrets/{id}/{key}
// por ":id" e ":key" sem depender do roteamento (ex.: antes do mux, no CORS).
// Qualquer outro path volta igual.
func RedactPath(p string) string {
	rest, ok := strings.CutPrefix(p, secretsPrefix)
	if !ok {
		return p
	}
	segs := strings.Split(rest, "/")
	placeholders := [...]string{":id", ":key"}
	for i := 0; i < len(segs) && i < len(placeholders); i++ {
		if segs[i] != "" {
			segs[i] = placeholders[i]
		}
	}
	return secretsPrefix + strings.Join(segs, "/")
}
