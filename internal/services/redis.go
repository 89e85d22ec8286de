package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const eventsChannel = "tutorlink:events"

// InitRedis connects to Redis and checks the connection.
func InitRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to Redis: %w", err)
	}
	return client, nil
}

type busEnvelope struct {
	UserID  uint             `json:"userId"`
	Message WebSocketMessage `json:"message"`
}

// EventBus fans realtime events out to every API instance over Redis pub/sub.
// Each instance relays the events into its local hub.
type EventBus struct {
	rdb *redis.Client
	log *zap.Logger
}

func NewEventBus(rdb *redis.Client, log *zap.Logger) *EventBus {
	return &EventBus{rdb: rdb, log: log}
}

// Publish sends msg for userID to all instances.
func (b *EventBus) Publish(ctx context.Context, userID uint, msg WebSocketMessage) error {
	data, err := json.Marshal(busEnvelope{UserID: userID, Message: msg})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return b.rdb.Publish(ctx, eventsChannel, data).Err()
}

// Relay forwards published events to hub until ctx is done.
func (b *EventBus) Relay(ctx context.Context, hub *Hub) {
	sub := b.rdb.Subscribe(ctx, eventsChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			var env busEnvelope
			if err := json.Unmarshal([]byte(m.Payload), &env); err != nil {
				b.log.Warn("Discarding malformed event", zap.Error(err))
				continue
			}
			data, err := json.Marshal(env.Message)
			if err != nil {
				continue
			}
			hub.BroadcastToUser(env.UserID, data)
		}
	}
}

// RedisRevoker records logged-out token ids until they would have expired.
type RedisRevoker struct {
	rdb *redis.Client
}

func NewRedisRevoker(rdb *redis.Client) *RedisRevoker {
	return &RedisRevoker{rdb: rdb}
}

func revokedKey(tokenID string) string {
	return "auth:revoked:" + tokenID
}

func (r *RedisRevoker) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return r.rdb.Set(ctx, revokedKey(tokenID), "1", ttl).Err()
}

func (r *RedisRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.rdb.Exists(ctx, revokedKey(tokenID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RedisReminderLedger makes sure each session reminder is sent once.
type RedisReminderLedger struct {
	rdb *redis.Client
}

func NewRedisReminderLedger(rdb *redis.Client) *RedisReminderLedger {
	return &RedisReminderLedger{rdb: rdb}
}

// Claim returns true the first time it is called for a booking slot.
func (l *RedisReminderLedger) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := l.rdb.SetNX(ctx, "ledger:"+key, time.Now().Unix(), ttl).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	return ok, err
}
