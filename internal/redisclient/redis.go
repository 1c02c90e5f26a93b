// Package redisclient opens the Redis connection shared by the location store
// and the notification queue.
package redisclient

import (
	"context"
	"fmt"

	"github.com/adjust/rmq/v5"
	"github.com/redis/go-redis/v9"
	"github.com/ukydev/boardcheck/internal/config"
)

const queueTag = "boardcheck"

// Connect creates a client for cfg and verifies it with a ping.
func Connect(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.Database,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Address, err)
	}
	return client, nil
}

// OpenQueue opens the named rmq queue on client. Background errors from rmq
// are delivered on errChan when it is non-nil.
func OpenQueue(client *redis.Client, name string, errChan chan<- error) (rmq.Connection, rmq.Queue, error) {
	conn, err := rmq.OpenConnectionWithRedisClient(queueTag, client, errChan)
	if err != nil {
		return nil, nil, fmt.Errorf("open rmq connection: %w", err)
	}
	queue, err := conn.OpenQueue(name)
	if err != nil {
		return nil, nil, fmt.Errorf("open queue %s: %w", name, err)
	}
	return conn, queue, nil
}
