package schedule

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client, mr
}

func TestBusinessStoreDefaultsOnMiss(t *testing.T) {
	client, _ := setupTestRedis(t)
	store := NewBusinessStore(client)

	b, err := store.Get(context.Background(), "studio-1")
	require.NoError(t, err)
	assert.Equal(t, "studio-1", b.ID)
	assert.Equal(t, DefaultTimezone, b.Timezone)
	assert.Nil(t, b.Hours.SlotsFor(Monday))
	assert.False(t, b.Notifications.Enabled)
}

func TestBusinessStoreSaveAndGet(t *testing.T) {
	client, _ := setupTestRedis(t)
	store := NewBusinessStore(client)
	ctx := context.Background()

	in := &Business{
		ID:       "studio-1",
		Name:     "Sol Dourado",
		Timezone: "America/Sao_Paulo",
		Hours:    WeeklySlots{ByDay: map[string][]string{Monday: {"09:00", "10:00"}}},
		Notifications: NotificationPrefs{
			Enabled:        true,
			OperatorPhones: []string{"+5561999990000"},
		},
		Asset: AssetCard{ImageURL: "https://cdn.example/card.png"},
	}
	require.NoError(t, store.Save(ctx, in))

	out, err := store.Get(ctx, "studio-1")
	require.NoError(t, err)
	assert.Equal(t, in.Name, out.Name)
	assert.Equal(t, []string{"09:00", "10:00"}, out.Hours.SlotsFor(Monday))
	assert.True(t, out.Notifications.Enabled)
	assert.True(t, out.Asset.Configured())
}

func TestBusinessStoreReadsLegacyHours(t *testing.T) {
	client, mr := setupTestRedis(t)
	store := NewBusinessStore(client)
	require.NoError(t, mr.Set("business:config:old", `{"name":"Old","hours":["09:00","15:00"]}`))

	b, err := store.Get(context.Background(), "old")
	require.NoError(t, err)
	assert.Equal(t, "old", b.ID)
	assert.True(t, b.Hours.IsLegacy())
	assert.Equal(t, []string{"09:00", "15:00"}, b.Hours.SlotsFor(Thursday))
}

func TestBusinessStoreRejectsInvalidHours(t *testing.T) {
	client, _ := setupTestRedis(t)
	store := NewBusinessStore(client)
	err := store.Save(context.Background(), &Business{
		ID:    "studio-1",
		Hours: WeeklySlots{Legacy: []string{"25:00"}},
	})
	assert.ErrorIs(t, err, ErrInvalidSlotLabel)
}

func TestBusinessStoreSurfacesRedisErrors(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	store := NewBusinessStore(client)
	mr.Close()

	_, err = store.Get(context.Background(), "studio-1")
	assert.Error(t, err)
}
