package database_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yashrajoria/storefront-bff/database"
	"github.com/yashrajoria/storefront-bff/models"
)

// --- Helpers ---

func newRedisStore(t *testing.T, ttl time.Duration) (*database.RedisDeviceStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return database.NewRedisDeviceStore(client, ttl), mr
}

// exerciseStore runs the behaviour every DeviceStore must share.
func exerciseStore(t *testing.T, store database.DeviceStore) {
	ctx := context.Background()

	id, err := store.GetCartID(ctx, "dev-1")
	require.NoError(t, err)
	assert.Nil(t, id, "unknown device has no cart id")

	require.NoError(t, store.SetCartID(ctx, "dev-1", 42))
	id, err = store.GetCartID(ctx, "dev-1")
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, int64(42), *id)

	other, err := store.GetCartID(ctx, "dev-2")
	require.NoError(t, err)
	assert.Nil(t, other, "cart ids are per device")

	require.NoError(t, store.ClearCartID(ctx, "dev-1"))
	id, err = store.GetCartID(ctx, "dev-1")
	require.NoError(t, err)
	assert.Nil(t, id)

	draft, err := store.GetDraft(ctx, "dev-1", "product")
	require.NoError(t, err)
	assert.Nil(t, draft)

	saved := &models.Draft{
		Form:    "product",
		Payload: json.RawMessage(`{"name":"Lamp"}`),
		Media:   []string{"drafts/dev-1/product/a.png"},
		SavedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.SaveDraft(ctx, "dev-1", saved))

	got, err := store.GetDraft(ctx, "dev-1", "product")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "product", got.Form)
	assert.JSONEq(t, `{"name":"Lamp"}`, string(got.Payload))
	assert.Equal(t, []string{"drafts/dev-1/product/a.png"}, got.Media)
	assert.True(t, saved.SavedAt.Equal(got.SavedAt))

	require.NoError(t, store.DeleteDraft(ctx, "dev-1", "product"))
	got, err = store.GetDraft(ctx, "dev-1", "product")
	require.NoError(t, err)
	assert.Nil(t, got)
}

// --- Tests ---

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, database.NewMemoryDeviceStore())
}

func TestRedisStore(t *testing.T) {
	store, _ := newRedisStore(t, 0)
	exerciseStore(t, store)
}

func TestRedisStore_Keys(t *testing.T) {
	store, mr := newRedisStore(t, 0)
	ctx := context.Background()

	require.NoError(t, store.SetCartID(ctx, "abc", 7))
	require.NoError(t, store.SaveDraft(ctx, "abc", &models.Draft{Form: "product", Payload: json.RawMessage(`{}`)}))

	val, err := mr.Get("sf:device:abc:cart")
	require.NoError(t, err)
	assert.Equal(t, "7", val)
	assert.True(t, mr.Exists("sf:device:abc:draft:product"))
}

func TestRedisStore_TTL(t *testing.T) {
	store, mr := newRedisStore(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.SetCartID(ctx, "abc", 7))
	assert.Equal(t, time.Hour, mr.TTL("sf:device:abc:cart"))

	mr.FastForward(2 * time.Hour)
	id, err := store.GetCartID(ctx, "abc")
	require.NoError(t, err)
	assert.Nil(t, id)
}

func TestRedisStore_CorruptCartID(t *testing.T) {
	store, mr := newRedisStore(t, 0)
	require.NoError(t, mr.Set("sf:device:abc:cart", "not-a-number"))

	_, err := store.GetCartID(context.Background(), "abc")
	assert.Error(t, err)
}

func TestRedisStore_Unavailable(t *testing.T) {
	store, mr := newRedisStore(t, 0)
	mr.Close()

	_, err := store.GetCartID(context.Background(), "abc")
	assert.Error(t, err)
}

func TestMemoryStore_DraftIsolation(t *testing.T) {
	store := database.NewMemoryDeviceStore()
	ctx := context.Background()

	draft := &models.Draft{Form: "product", Media: []string{"a"}}
	require.NoError(t, store.SaveDraft(ctx, "dev", draft))
	draft.Media[0] = "mutated"

	got, err := store.GetDraft(ctx, "dev", "product")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got.Media)
}
