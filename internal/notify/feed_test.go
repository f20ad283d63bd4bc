package notify

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFeed(t *testing.T) *Feed {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewFeed(client)
}

func TestFeedRoundTripNewestFirst(t *testing.T) {
	feed := newTestFeed(t)
	ctx := context.Background()

	first := Notification{ID: "a", Category: CategoryReminder, Title: "待辦提醒", CreatedAt: time.Now().UTC()}
	second := Notification{ID: "b", Category: CategoryUnclaimed, Message: "目前有 2 件任務尚未認領"}
	require.NoError(t, feed.Notify(ctx, 7, []Notification{first}))
	require.NoError(t, feed.Notify(ctx, 7, []Notification{second}))

	got, err := feed.Recent(ctx, 7, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, "a", got[1].ID)
}

func TestFeedIsScopedPerUser(t *testing.T) {
	feed := newTestFeed(t)
	ctx := context.Background()

	require.NoError(t, feed.Notify(ctx, 1, []Notification{{ID: "mine", Category: CategoryReminder}}))

	got, err := feed.Recent(ctx, 2, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFeedTrimsToCapacity(t *testing.T) {
	feed := newTestFeed(t)
	ctx := context.Background()

	batch := make([]Notification, 0, feedMaxLength+20)
	for i := 0; i < feedMaxLength+20; i++ {
		batch = append(batch, Notification{ID: string(rune('A' + i%26)), Category: CategoryReminder})
	}
	require.NoError(t, feed.Notify(ctx, 3, batch))

	got, err := feed.Recent(ctx, 3, 0)
	require.NoError(t, err)
	assert.Len(t, got, feedMaxLength)
}
