package queue

import (
	"context"
	"fmt"
	"lesson-booking/config"

	"github.com/redis/go-redis/v9"
)

// New 依 EVENT_BROKER 建立事件隊列，回傳的 closer 在關機時呼叫
func New(ctx context.Context, cfg config.EventsConfig, rdb *redis.Client, consumerID string) (EventQueue, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Broker {
	case "", "memory":
		return NewMemoryEventQueue(cfg.BufferSize), noop, nil
	case "redis":
		if rdb == nil {
			return nil, nil, fmt.Errorf("redis broker requires a redis client")
		}
		q, err := NewRedisStreamEventQueue(ctx, rdb, consumerID, &RedisStreamEventQueueConfig{
			ClaimMinIdleTime:   cfg.ClaimMinIdleTime,
			MaxRetryCount:      cfg.MaxRetryCount,
			ReadGroupBlockTime: cfg.ReadGroupBlockTime,
		})
		if err != nil {
			return nil, nil, err
		}
		return q, noop, nil
	case "amqp":
		q, err := NewAMQPEventQueue(cfg.AMQPURL, cfg.AMQPQueue)
		if err != nil {
			return nil, nil, err
		}
		return q, q.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown event broker %q", cfg.Broker)
	}
}
