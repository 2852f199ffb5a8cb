// Package notifications fans content events out to notification rows and
// delivers them, together with chat messages, over Redis and websockets.
package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"

	"github.com/yogull/yogull-social-platform-sub001/internal/middleware"
	"github.com/yogull/yogull-social-platform-sub001/internal/observability"

	"github.com/redis/go-redis/v9"
)

const (
	userChannelPrefix = "notifications:user:"
	roomChannelPrefix = "chat:room:"
)

// Notifier provides helpers to publish realtime payloads into Redis channels.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
// A nil client turns every call into a no-op.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishUser sends a payload to a user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, payload string) error {
	return n.publish(ctx, UserChannel(userID), payload)
}

// PublishChatMessage sends a chat payload to the room channel.
func (n *Notifier) PublishChatMessage(ctx context.Context, roomID uint, payload string) error {
	return n.publish(ctx, RoomChannel(roomID), payload)
}

func (n *Notifier) publish(ctx context.Context, channel, payload string) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	if err := n.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		observability.RedisErrorRate.WithLabelValues("publish").Inc()
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}

// StartPatternSubscriber subscribes to user and chat room channels and calls
// onMessage for each incoming message until ctx is cancelled.
func (n *Notifier) StartPatternSubscriber(
	ctx context.Context, onMessage func(channel string, payload string),
) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, userChannelPrefix+"*", roomChannelPrefix+"*")
	// Wait for the subscription to be confirmed so publishes that follow are seen.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		observability.RedisErrorRate.WithLabelValues("psubscribe").Inc()
		return fmt.Errorf("psubscribe: %w", err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in pattern subscriber",
								slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID uint) string {
	return userChannelPrefix + strconv.FormatUint(uint64(userID), 10)
}

// RoomChannel derives the Redis channel name for a chat room.
func RoomChannel(roomID uint) string {
	return roomChannelPrefix + strconv.FormatUint(uint64(roomID), 10)
}
