package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DeadLetter keeps notifications that could not be delivered.
type DeadLetter interface {
	Store(ctx context.Context, topic string, payload any, cause error, attempts int) error
}

type FailedMessage struct {
	Message  *Message  `json:"message"`
	Error    string    `json:"error"`
	Attempts int       `json:"attempts"`
	FailedAt time.Time `json:"failedAt"`
}

// RedisDeadLetter stores failed messages in a sorted set scored by failure time.
type RedisDeadLetter struct {
	client redis.Cmdable
	key    string
}

func NewRedisDeadLetter(client redis.Cmdable, key string) *RedisDeadLetter {
	return &RedisDeadLetter{client: client, key: key}
}

func (d *RedisDeadLetter) Store(ctx context.Context, topic string, payload any, cause error, attempts int) error {
	msg, err := NewMessage(topic, payload)
	if err != nil {
		return err
	}
	failed := FailedMessage{
		Message:  msg,
		Error:    cause.Error(),
		Attempts: attempts,
		FailedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(failed)
	if err != nil {
		return fmt.Errorf("failed to marshal dead letter: %w", err)
	}

	score := float64(failed.FailedAt.UnixNano()) / 1e9
	return d.client.ZAdd(ctx, d.key, redis.Z{Score: score, Member: data}).Err()
}

// List returns up to limit failed messages, newest first.
func (d *RedisDeadLetter) List(ctx context.Context, limit int) ([]*FailedMessage, error) {
	if limit <= 0 {
		limit = 50
	}

	items, err := d.client.ZRevRange(ctx, d.key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read dead letters: %w", err)
	}

	out := make([]*FailedMessage, 0, len(items))
	for _, item := range items {
		var failed FailedMessage
		if err := json.Unmarshal([]byte(item), &failed); err != nil {
			continue
		}
		out = append(out, &failed)
	}
	return out, nil
}

func (d *RedisDeadLetter) Len(ctx context.Context) (int64, error) {
	return d.client.ZCard(ctx, d.key).Result()
}
