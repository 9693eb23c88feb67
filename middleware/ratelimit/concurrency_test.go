package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

type busyCounter struct{ n atomic.Int32 }

func (b *busyCounter) ObserveBusy() { b.n.Add(1) }

// holdingHandler segura cada requisição até hold fechar e avisa em entered.
func holdingHandler(entered chan<- struct{}, hold <-chan struct{}) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entered <- struct{}{}
		<-hold
		w.WriteHeader(http.StatusOK)
	})
}

func TestConcurrencyMiddleware_RejectsWhenFull(t *testing.T) {
	entered := make(chan struct{}, 1)
	hold := make(chan struct{})
	busy := &busyCounter{}

	h := ConcurrencyMiddleware(ConcurrencyOptions{
		Max:            1,
		AcquireTimeout: 20 * time.Millisecond,
		RetryAfter:     2 * time.Second,
		Observer:       busy,
	})(holdingHandler(entered, hold))

	firstDone := make(chan int, 1)
	go func() {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://example/api/secrets/a/k", nil))
		firstDone <- w.Code
	}()

	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatalf("first request never reached the handler")
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://example/api/secrets/a/k", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), DefaultBusyMessage) {
		t.Fatalf("expected busy message, got %q", w.Body.String())
	}
	if got := w.Header().Get("Retry-After"); got != "2" {
		t.Fatalf("expected Retry-After 2, got %q", got)
	}
	if busy.n.Load() != 1 {
		t.Fatalf("expected one busy rejection, got %d", busy.n.Load())
	}

	close(hold)
	if code := <-firstDone; code != http.StatusOK {
		t.Fatalf("expected first request 200, got %d", code)
	}
}

func TestConcurrencyMiddleware_SlotIsReturned(t *testing.T) {
	calls := 0
	h := ConcurrencyMiddleware(ConcurrencyOptions{Max: 1, AcquireTimeout: 10 * time.Millisecond})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusNoContent)
		}),
	)

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://example/status", nil))
		if w.Code != http.StatusNoContent {
			t.Fatalf("request %d: expected 204, got %d", i+1, w.Code)
		}
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestConcurrencyMiddleware_DisabledPassesThrough(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := ConcurrencyMiddleware(ConcurrencyOptions{})(next)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://example/", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
}
