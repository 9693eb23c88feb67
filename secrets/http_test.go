package secrets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keyfade/telemetry"
)

func newServer(t *testing.T) (*fixture, *telemetry.Recorder, http.Handler) {
	t.Helper()
	f := newFixture(t)
	rec := telemetry.NewRecorder(telemetry.WithClock(func() time.Time { return f.now }))
	mux := http.NewServeMux()
	Handler{Service: f.svc, Recorder: rec}.Register(mux, Routes{})
	return f, rec, mux
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	r.RemoteAddr = "1.2.3.4:5000"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	return m
}

func TestHTTP_CreateClampsExpiry(t *testing.T) {
	_, _, h := newServer(t)

	w := do(h, http.MethodPost, "http://example/api/create", `{"value":"hi","expiryDays":9999}`)
	require.Equal(t, http.StatusCreated, w.Code)

	body := decode(t, w)
	assert.Equal(t, msgStored, body["message"])
	assert.Equal(t, "abc", body["secretId"])
	assert.Equal(t, "0123456789abcdef", body["key"])
	assert.Equal(t, "http://localhost:9001/abc/0123456789abcdef", body["fullUrl"])

	exp, err := time.Parse(time.RFC3339Nano, body["expiresOn"].(string))
	require.NoError(t, err)
	assert.True(t, exp.Equal(baseTime.AddDate(0, 0, 90)))
}

func TestHTTP_CreateZeroExpiryIsOneDay(t *testing.T) {
	_, _, h := newServer(t)

	w := do(h, http.MethodPost, "http://example/api/create", `{"value":"hi","expiryDays":0}`)
	require.Equal(t, http.StatusCreated, w.Code)

	exp, err := time.Parse(time.RFC3339Nano, decode(t, w)["expiresOn"].(string))
	require.NoError(t, err)
	assert.True(t, exp.Equal(baseTime.AddDate(0, 0, 1)))
}

func TestHTTP_CreateRejectsBadValue(t *testing.T) {
	_, _, h := newServer(t)

	for _, body := range []string{`{}`, `{"value":42}`, `{"value":""}`, `not json`} {
		w := do(h, http.MethodPost, "http://example/api/create", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, msgInvalidInput, decode(t, w)["error"], body)
	}
}

func TestHTTP_RetrieveAndDelete(t *testing.T) {
	f, rec, h := newServer(t)
	_, err := f.svc.Create(context.Background(), CreateInput{Value: "hi", ExpiryDays: 2})
	require.NoError(t, err)

	w := do(h, http.MethodGet, "http://example/api/secrets/abc/0123456789abcdef", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "abc", body["name"])
	assert.Equal(t, "hi", body["value"])
	assert.Equal(t, float64(2), body["daysLeft"])

	w = do(h, http.MethodDelete, "http://example/api/secrets/abc/0123456789abcdef", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, msgDeleted, decode(t, w)["message"])

	assert.Equal(t, int64(0), rec.Snapshot(telemetry.Limits{}).Totals.TotalEvents)
}

func TestHTTP_WrongKeyRecordsFailedAttempt(t *testing.T) {
	f, rec, h := newServer(t)
	_, err := f.svc.Create(context.Background(), CreateInput{Value: "hi"})
	require.NoError(t, err)

	w := do(h, http.MethodGet, "http://example/api/secrets/abc/bad", "")
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, msgInvalidKey, decode(t, w)["error"])

	snap := rec.Snapshot(telemetry.Limits{})
	assert.Equal(t, int64(1), snap.Totals.FailedAttempts)
	require.Len(t, snap.RecentEvents, 1)
	ev := snap.RecentEvents[0]
	assert.Equal(t, "1.2.3.4", ev.IP)
	assert.Equal(t, "abc", ev.SecretID)
	assert.Equal(t, "/api/secrets/:id/:key", ev.Path)
}

func TestHTTP_MissingValueIs404(t *testing.T) {
	f, rec, h := newServer(t)
	_, err := f.svc.Create(context.Background(), CreateInput{Value: "hi"})
	require.NoError(t, err)
	require.NoError(t, f.store.Delete(context.Background(), "abc"))

	w := do(h, http.MethodGet, "http://example/api/secrets/abc/0123456789abcdef", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, msgNotFound, decode(t, w)["error"])
	assert.Equal(t, int64(1), rec.Snapshot(telemetry.Limits{}).Totals.FailedAttempts)
}

func TestExpiryDays(t *testing.T) {
	assert.Equal(t, 5, expiryDays(float64(5)))
	assert.Equal(t, 7, expiryDays("7"))
	assert.Equal(t, MaxExpiryDays, expiryDays(float64(1e12)))
	assert.Equal(t, 0, expiryDays(float64(-3)))
	assert.Equal(t, 0, expiryDays(nil))
	assert.Equal(t, 0, expiryDays(true))
}
