package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	feedKeyPrefix = "manpower:notify:feed:"
	feedMaxLength = 100
	feedTTL       = 24 * time.Hour
)

// Feed is a Redis backed per-user notification log. The SSE stream is the
// live channel; the feed lets a freshly loaded page replay what it missed.
type Feed struct {
	client *redis.Client
}

// NewFeed builds a Feed on the shared Redis client.
func NewFeed(client *redis.Client) *Feed {
	return &Feed{client: client}
}

func feedKey(userID int64) string {
	return fmt.Sprintf("%s%d", feedKeyPrefix, userID)
}

// Notify appends the batch to the user's feed, newest first.
func (f *Feed) Notify(ctx context.Context, userID int64, batch []Notification) error {
	if len(batch) == 0 {
		return nil
	}
	key := feedKey(userID)
	pipe := f.client.TxPipeline()
	for _, notification := range batch {
		payload, err := json.Marshal(notification)
		if err != nil {
			return fmt.Errorf("marshal notification: %w", err)
		}
		pipe.LPush(ctx, key, payload)
	}
	pipe.LTrim(ctx, key, 0, feedMaxLength-1)
	pipe.Expire(ctx, key, feedTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// Recent returns up to limit notifications, newest first.
func (f *Feed) Recent(ctx context.Context, userID int64, limit int) ([]Notification, error) {
	if limit <= 0 || limit > feedMaxLength {
		limit = feedMaxLength
	}
	raw, err := f.client.LRange(ctx, feedKey(userID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Notification, 0, len(raw))
	for _, entry := range raw {
		var notification Notification
		if err := json.Unmarshal([]byte(entry), &notification); err != nil {
			continue
		}
		out = append(out, notification)
	}
	return out, nil
}

var _ Sink = (*Feed)(nil)
