package infra

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keyfade/vault/domain"
)

type kvEntry struct {
	value       string
	custom      map[string]interface{}
	deleteAfter string
}

// fakeKV imita o suficiente do KV v2 montado em secret/ para o HashiCorpStore.
type fakeKV struct {
	mu           sync.Mutex
	entries      map[string]*kvEntry
	extraKeys    []string
	failMetadata map[string]bool
}

func newFakeKV() *fakeKV {
	return &fakeKV{entries: map[string]*kvEntry{}, failMetadata: map[string]bool{}}
}

func (f *fakeKV) entry(name string) *kvEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entries[name]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeKV) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	const (
		dataPrefix = "/v1/secret/data/keyfade/"
		metaRoot   = "/v1/secret/metadata/keyfade"
	)
	notFound := func() { writeJSON(w, http.StatusNotFound, map[string]any{"errors": []string{}}) }

	switch {
	case strings.HasPrefix(r.URL.Path, dataPrefix):
		name := strings.TrimPrefix(r.URL.Path, dataPrefix)
		switch r.Method {
		case http.MethodPut, http.MethodPost:
			var body struct {
				Data map[string]interface{} `json:"data"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			v, _ := body.Data["value"].(string)
			e := f.entries[name]
			if e == nil {
				e = &kvEntry{}
				f.entries[name] = e
			}
			e.value = v
			writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"version": 1, "deletion_time": ""}})
		case http.MethodGet:
			e := f.entries[name]
			if e == nil {
				notFound()
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
				"data":     map[string]any{"value": e.value},
				"metadata": map[string]any{"version": 1, "deletion_time": "", "custom_metadata": e.custom},
			}})
		}

	case r.URL.Path == metaRoot && r.URL.Query().Get("list") == "true":
		keys := append([]string{}, f.extraKeys...)
		for name := range f.entries {
			keys = append(keys, name)
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"keys": keys}})

	case strings.HasPrefix(r.URL.Path, metaRoot+"/"):
		name := strings.TrimPrefix(r.URL.Path, metaRoot+"/")
		switch r.Method {
		case http.MethodPut, http.MethodPost:
			var body struct {
				DeleteVersionAfter string                 `json:"delete_version_after"`
				CustomMetadata     map[string]interface{} `json:"custom_metadata"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			e := f.entries[name]
			if e == nil {
				e = &kvEntry{}
				f.entries[name] = e
			}
			e.custom = body.CustomMetadata
			e.deleteAfter = body.DeleteVersionAfter
			w.WriteHeader(http.StatusNoContent)
		case http.MethodGet:
			if f.failMetadata[name] {
				writeJSON(w, http.StatusInternalServerError, map[string]any{"errors": []string{"metadata backend down"}})
				return
			}
			e := f.entries[name]
			if e == nil {
				notFound()
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
				"custom_metadata": e.custom,
				"current_version": 1,
			}})
		case http.MethodDelete:
			delete(f.entries, name)
			w.WriteHeader(http.StatusNoContent)
		}

	default:
		notFound()
	}
}

var kvNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newKVStore(t *testing.T) (*HashiCorpStore, *fakeKV) {
	t.Helper()
	kv := newFakeKV()
	srv := httptest.NewServer(kv)
	t.Cleanup(srv.Close)

	client, err := NewHashiCorpClient(HashiCorpConfig{Address: srv.URL, Token: "root", Timeout: 5 * time.Second})
	require.NoError(t, err)
	client.SetMaxRetries(0)

	return NewHashiCorpStore(client, WithHashiCorpClock(func() time.Time { return kvNow })), kv
}

func TestHashiCorpStore_PutWritesValueAndMetadata(t *testing.T) {
	store, kv := newKVStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "abc", "s3cr3t", kvNow.Add(24*time.Hour)))

	e := kv.entry("abc")
	require.NotNil(t, e)
	assert.Equal(t, "s3cr3t", e.value)
	assert.Equal(t, "24h0m0s", e.deleteAfter)
	assert.Equal(t, "true", e.custom["enabled"])
	assert.Equal(t, "2026-03-11T12:00:00Z", e.custom["expires_on"])
}

func TestHashiCorpStore_GetHonoursMetadata(t *testing.T) {
	store, kv := newKVStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "live", "v1", kvNow.Add(time.Hour)))
	require.NoError(t, store.Put(ctx, "old", "v2", kvNow.Add(-time.Hour)))
	require.NoError(t, store.Put(ctx, "off", "v3", kvNow.Add(time.Hour)))
	kv.entry("off").custom["enabled"] = "false"

	sec, found, err := store.Get(ctx, "live")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "v1", sec.Value)
	require.NotNil(t, sec.ExpiresOn)
	assert.True(t, sec.ExpiresOn.Equal(kvNow.Add(time.Hour)))

	for _, name := range []string{"old", "off", "missing"} {
		_, found, err := store.Get(ctx, name)
		require.NoError(t, err, name)
		assert.False(t, found, name)
	}
}

func TestHashiCorpStore_DeleteRemovesItem(t *testing.T) {
	store, kv := newKVStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "abc", "v", kvNow.Add(time.Hour)))
	require.NoError(t, store.Delete(ctx, "abc"))

	assert.Nil(t, kv.entry("abc"))
	_, found, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestHashiCorpStore_WalkReportsUnreadableItemsAndContinues(t *testing.T) {
	store, kv := newKVStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "a", "v", kvNow.Add(time.Hour)))
	require.NoError(t, store.Put(ctx, "b", "v", kvNow.Add(-time.Hour)))
	kv.extraKeys = []string{"folder/"}
	kv.failMetadata["a"] = true

	items := map[string]domain.Item{}
	require.NoError(t, store.Walk(ctx, func(it domain.Item) error {
		items[it.Name] = it
		return nil
	}))

	require.Len(t, items, 2)
	assert.Error(t, items["a"].Err)
	assert.Contains(t, items["a"].Err.Error(), "metadata a")

	b := items["b"]
	require.NoError(t, b.Err)
	assert.True(t, b.Enabled)
	assert.True(t, b.Expired(kvNow))
}

func TestHashiCorpStore_WalkFailsWhenListingFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"errors": []string{"sealed"}})
	}))
	defer srv.Close()

	client, err := NewHashiCorpClient(HashiCorpConfig{Address: srv.URL, Token: "root"})
	require.NoError(t, err)
	client.SetMaxRetries(0)

	err = NewHashiCorpStore(client).Walk(context.Background(), func(domain.Item) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hashicorp vault: list")
}
