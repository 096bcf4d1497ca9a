package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"reflexion-api/internal/domain"
	"reflexion-api/internal/infra/metrics"
)

// RedisPublisher складывает события в Redis list. Используется, когда брокер не настроен.
type RedisPublisher struct {
	client *redis.Client
	key    string
}

var _ domain.EventPublisher = (*RedisPublisher)(nil)

// NewRedisPublisher создаёт публикатор по указанному ключу.
func NewRedisPublisher(client *redis.Client, key string) *RedisPublisher {
	return &RedisPublisher{client: client, key: key}
}

// Publish добавляет событие в голову списка.
func (p *RedisPublisher) Publish(ctx context.Context, event domain.Event) error {
	if event.Type == "" {
		return errors.New("event type is empty")
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	start := time.Now()
	err = p.client.LPush(ctx, p.key, payload).Err()
	metrics.ObserveNetworkRequest("redis", "lpush", p.key, start, err)
	if err != nil {
		return fmt.Errorf("push event: %w", err)
	}
	return nil
}

// Pop блокирующе читает самое старое событие из списка.
func (p *RedisPublisher) Pop(ctx context.Context) (domain.Event, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.Event{}, err
		}

		res, err := p.client.BRPop(ctx, time.Second, p.key).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				if ctx.Err() != nil {
					return domain.Event{}, ctx.Err()
				}
				continue
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			return domain.Event{}, err
		}
		if len(res) != 2 {
			return domain.Event{}, errors.New("redis events: unexpected response")
		}
		var event domain.Event
		if err := json.Unmarshal([]byte(res[1]), &event); err != nil {
			return domain.Event{}, fmt.Errorf("decode event: %w", err)
		}
		return event, nil
	}
}
