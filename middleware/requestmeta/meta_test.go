package requestmeta

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientIP_PrefersCloudflareHeader(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://example/", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	r.Header.Set("CF-Connecting-IP", " 9.9.9.9 ")
	r.Header.Set("X-Forwarded-For", "1.2.3.4")

	if got := ClientIP(r, true); got != "9.9.9.9" {
		t.Fatalf("expected cloudflare ip, got %q", got)
	}
}

func TestClientIP_UsesFirstForwardedFor(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://example/", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	r.Header.Set("X-Forwarded-For", "1.2.3.4, 5.6.7.8")

	if got := ClientIP(r, true); got != "1.2.3.4" {
		t.Fatalf("expected first XFF ip, got %q", got)
	}
}

func TestClientIP_IgnoresProxyHeadersWhenUntrusted(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://example/", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	r.Header.Set("X-Forwarded-For", "1.2.3.4")

	if got := ClientIP(r, false); got != "10.0.0.1" {
		t.Fatalf("expected remote host, got %q", got)
	}
}

func TestClientIP_StripsMappedIPv4Prefix(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://example/", nil)
	r.RemoteAddr = "[::ffff:10.1.2.3]:443"

	if got := ClientIP(r, false); got != "10.1.2.3" {
		t.Fatalf("expected mapped prefix stripped, got %q", got)
	}
}

func TestClientIP_UnknownWhenEmpty(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://example/", nil)
	r.RemoteAddr = ""

	if got := ClientIP(r, false); got != Unknown {
		t.Fatalf("expected %q, got %q", Unknown, got)
	}
}

func TestSanitizedPath_RedactsIDAndKey(t *testing.T) {
	var got, gotID string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/secrets/{id}/{key}", func(w http.ResponseWriter, r *http.Request) {
		got = SanitizedPath(r)
		gotID = SecretID(r)
	})

	r := httptest.NewRequest(http.MethodGet, "http://example/api/secrets/abc-123/deadbeef?x=1", nil)
	mux.ServeHTTP(httptest.NewRecorder(), r)

	if got != "/api/secrets/:id/:key?x=1" {
		t.Fatalf("unexpected sanitized path %q", got)
	}
	if gotID != "abc-123" {
		t.Fatalf("unexpected secret id %q", gotID)
	}
}

func TestSecretID_UndefinedWithoutRouteParam(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "http://example/api/create", nil)
	if got := SecretID(r); got != "undefined" {
		t.Fatalf("expected undefined, got %q", got)
	}
}

func TestRedactPath(t *testing.T) {
	cases := map[string]string{
		"/api/secrets/3f2c-secret-id/deadbeefcafebabe": "/api/secrets/:id/:key",
		"/api/secrets/only-id":                         "/api/secrets/:id",
		"/api/secrets/a/b/extra":                       "/api/secrets/:id/:key/extra",
		"/api/secrets/":                                "/api/secrets/",
		"/api/create":                                  "/api/create",
		"/status":                                      "/status",
	}
	for in, want := range cases {
		if got := RedactPath(in); got != want {
			t.Fatalf("RedactPath(%q) = %q, want %q", in, got, want)
		}
	}
}
