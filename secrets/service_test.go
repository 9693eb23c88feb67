package secrets

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keyfade/telemetry"
	"keyfade/vault/domain"
	"keyfade/vault/infra"
)

var baseTime = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	now   time.Time
	store *infra.MemoryStore
	inv   *telemetry.Inventory
	svc   *Service
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{now: baseTime}
	clock := func() time.Time { return f.now }
	f.store = infra.NewMemoryStore(infra.WithMemoryClock(clock))
	f.inv = telemetry.NewInventory(telemetry.WithInventoryClock(clock))

	all := append([]Option{
		WithClock(clock),
		WithInventory(f.inv),
		WithIDGenerator(func() string { return "abc" }),
		WithKeyGenerator(func() (string, error) { return "0123456789abcdef", nil }),
	}, opts...)
	f.svc = NewService(f.store, "http://localhost:9001/", all...)
	return f
}

func TestClampExpiryDays(t *testing.T) {
	cases := map[int]int{-5: 1, 0: 1, 1: 1, 30: 30, 90: 90, 9999: 90}
	for in, want := range cases {
		assert.Equal(t, want, ClampExpiryDays(in), "input %d", in)
	}
}

func TestCreate_StoresValueAndKeyWithSameExpiry(t *testing.T) {
	f := newFixture(t)

	got, err := f.svc.Create(context.Background(), CreateInput{Value: "hello", ExpiryDays: 9999})
	require.NoError(t, err)

	assert.Equal(t, "abc", got.SecretID)
	assert.Equal(t, "0123456789abcdef", got.Key)
	assert.Equal(t, baseTime.AddDate(0, 0, 90), got.ExpiresOn)
	assert.Equal(t, "http://localhost:9001/abc/0123456789abcdef", got.FullURL)

	val, found, err := f.store.Get(context.Background(), "abc")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "hello", val.Value)

	key, found, err := f.store.Get(context.Background(), "abc-key")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "0123456789abcdef", key.Value)
	assert.Equal(t, *val.ExpiresOn, *key.ExpiresOn)

	assert.Equal(t, 1, f.inv.Snapshot().ActiveSecrets)
}

func TestCreate_ZeroExpiryMeansOneDay(t *testing.T) {
	f := newFixture(t)

	got, err := f.svc.Create(context.Background(), CreateInput{Value: "x"})
	require.NoError(t, err)
	assert.Equal(t, baseTime.AddDate(0, 0, 1), got.ExpiresOn)
}

func TestCreate_RejectsEmptyValue(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), CreateInput{})
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.Equal(t, 0, f.store.Len())
}

func TestCreate_RandomKeyIsSixteenHexChars(t *testing.T) {
	key, err := randomKey()
	require.NoError(t, err)
	assert.Regexp(t, `^[0-9a-f]{16}$`, key)
}

func TestRetrieve_DaysLeftRoundsUp(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), CreateInput{Value: "hello", ExpiryDays: 3})
	require.NoError(t, err)

	f.now = f.now.Add(36 * time.Hour)
	got, err := f.svc.Retrieve(context.Background(), "abc", "0123456789abcdef")
	require.NoError(t, err)
	assert.Equal(t, "abc", got.Name)
	assert.Equal(t, "hello", got.Value)
	require.NotNil(t, got.DaysLeft)
	assert.Equal(t, 2, *got.DaysLeft)
}

func TestRetrieve_WrongKey(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), CreateInput{Value: "hello"})
	require.NoError(t, err)

	_, err = f.svc.Retrieve(context.Background(), "abc", "ffffffffffffffff")
	assert.True(t, errors.Is(err, ErrInvalidKey))
}

func TestRetrieve_UnknownIDIsInvalidKey(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Retrieve(context.Background(), "nope", "k")
	assert.True(t, errors.Is(err, ErrInvalidKey))
}

func TestRetrieve_ValueGoneIsNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), CreateInput{Value: "hello"})
	require.NoError(t, err)
	require.NoError(t, f.store.Delete(context.Background(), "abc"))

	_, err = f.svc.Retrieve(context.Background(), "abc", "0123456789abcdef")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRetrieve_ExpiredIsInvalidKey(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), CreateInput{Value: "hello"})
	require.NoError(t, err)

	f.now = f.now.Add(25 * time.Hour)
	_, err = f.svc.Retrieve(context.Background(), "abc", "0123456789abcdef")
	assert.True(t, errors.Is(err, ErrInvalidKey))
}

func TestDelete_RemovesBothItemsAndUpdatesInventory(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), CreateInput{Value: "hello"})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(context.Background(), "abc", "0123456789abcdef"))
	assert.Equal(t, 0, f.store.Len())
	assert.Equal(t, 0, f.inv.Snapshot().ActiveSecrets)

	err = f.svc.Delete(context.Background(), "abc", "0123456789abcdef")
	assert.True(t, errors.Is(err, ErrInvalidKey))
}

type failingStore struct{ domain.Store }

func (failingStore) Put(context.Context, string, string, time.Time) error {
	return errors.New("vault down")
}

func (failingStore) Get(context.Context, string) (domain.Secret, bool, error) {
	return domain.Secret{}, false, errors.New("vault down")
}

func TestVaultErrorsAreWrapped(t *testing.T) {
	svc := NewService(failingStore{}, "http://x")

	_, err := svc.Create(context.Background(), CreateInput{Value: "v"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store secret value")

	_, err = svc.Retrieve(context.Background(), "a", "b")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidKey))
	assert.Contains(t, err.Error(), "read access key")
}
