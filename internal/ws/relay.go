package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/internlink/backend/internal/gamification"
	"github.com/internlink/backend/internal/logger"
)

const DefaultChannel = "internlink:notifications"

// RedisRelay publishes notifications on a Redis channel so whichever
// instance holds the user's socket can deliver them. Start forwards
// received notifications to the local notifier.
type RedisRelay struct {
	rdb     goredis.UniversalClient
	channel string
	local   gamification.Notifier
	log     *logger.Logger
}

func NewRedisRelay(rdb goredis.UniversalClient, channel string, local gamification.Notifier, log *logger.Logger) *RedisRelay {
	if channel == "" {
		channel = DefaultChannel
	}
	if log == nil {
		log = logger.Nop()
	}
	return &RedisRelay{rdb: rdb, channel: channel, local: local, log: log.With("component", "ws_relay")}
}

// Notify publishes the notification. If Redis is unreachable it falls back
// to local delivery.
func (r *RedisRelay) Notify(ctx context.Context, userID uuid.UUID, n gamification.Notification) {
	if err := r.Publish(ctx, userID, n); err != nil {
		r.log.Warn("relay publish failed, delivering locally", "user_id", userID, "error", err)
		r.local.Notify(ctx, userID, n)
	}
}

func (r *RedisRelay) Publish(ctx context.Context, userID uuid.UUID, n gamification.Notification) error {
	raw, err := json.Marshal(envelope{UserID: userID, Notification: n})
	if err != nil {
		return err
	}
	return r.rdb.Publish(context.WithoutCancel(ctx), r.channel, raw).Err()
}

// Start subscribes and forwards messages until ctx is done.
func (r *RedisRelay) Start(ctx context.Context) error {
	if r.local == nil {
		return errors.New("relay: local notifier required")
	}
	sub := r.rdb.Subscribe(ctx, r.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				var env envelope
				if err := json.Unmarshal([]byte(m.Payload), &env); err != nil {
					r.log.Warn("bad relay payload", "error", err)
					continue
				}
				r.local.Notify(ctx, env.UserID, env.Notification)
			}
		}
	}()
	return nil
}
