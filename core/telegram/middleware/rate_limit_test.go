package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/DevTeady/EmiliaHikari/core/telegram/teletest"
)

func TestMemoryRateStore(t *testing.T) {
	now := time.Unix(1000, 0)
	store := NewMemoryRateStore()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	ok, err := store.Allow(ctx, 1, time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = store.Allow(ctx, 1, time.Second)
	assert.False(t, ok, "second update inside the window must be limited")

	ok, _ = store.Allow(ctx, 2, time.Second)
	assert.True(t, ok, "windows are per user")

	now = now.Add(2 * time.Second)
	ok, _ = store.Allow(ctx, 1, time.Second)
	assert.True(t, ok)
}

func TestMemoryRateStoreForgetsIdleUsers(t *testing.T) {
	now := time.Unix(1000, 0)
	store := NewMemoryRateStore()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	for id := int64(1); id <= 50; id++ {
		_, _ = store.Allow(ctx, id, time.Second)
	}
	require.Len(t, store.lastSeen, 50)

	now = now.Add(2 * time.Second)
	ok, _ := store.Allow(ctx, 99, time.Second)
	assert.True(t, ok)
	assert.Len(t, store.lastSeen, 1)

	ok, _ = store.Allow(ctx, 99, time.Second)
	assert.False(t, ok, "sweeping keeps live windows")
}

func TestRedisRateStore(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	store := NewRedisRateStore(client, "")
	ctx := context.Background()

	ok, err := store.Allow(ctx, 7, 10*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, mr.Exists("ratelimit:7"))

	ok, err = store.Allow(ctx, 7, 10*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(11 * time.Second)
	ok, err = store.Allow(ctx, 7, 10*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRateLimitMiddleware(t *testing.T) {
	var limited, handled int
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval: time.Minute,
		Exclude:  map[string]struct{}{"callback": {}},
		OnLimited: func(tele.Context) error {
			limited++
			return nil
		},
	})
	h := mw(func(tele.Context) error {
		handled++
		return nil
	})

	chat := &tele.Chat{ID: -1, Type: tele.ChatGroup}
	user := &tele.User{ID: 9}
	require.NoError(t, h(teletest.NewMessage(chat, user, "/warns")))
	require.NoError(t, h(teletest.NewMessage(chat, user, "/warnlimit")))
	require.NoError(t, h(teletest.NewCallback(chat, user, "rm_warn", "1")))
	require.NoError(t, h(teletest.NewMessage(chat, user, "plain chatter is still scanned")))

	assert.Equal(t, 3, handled, "first command, excluded callback and plain text pass")
	assert.Equal(t, 1, limited)
}
