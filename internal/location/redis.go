package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ukydev/boardcheck/internal/models"
)

const keyPrefix = "vehicle_position:"

// RedisStore keeps positions in Redis so several API replicas share one view.
// Each position is a single JSON value written with SET, which Redis applies
// atomically.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore wraps an existing client. A zero ttl keeps positions until
// they are overwritten.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func positionKey(vehicleID string) string {
	return keyPrefix + vehicleID
}

func (s *RedisStore) Report(ctx context.Context, pos models.VehiclePosition) error {
	data, err := json.Marshal(pos)
	if err != nil {
		return fmt.Errorf("encode position: %w", err)
	}
	if err := s.client.Set(ctx, positionKey(pos.VehicleID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", pos.VehicleID, err)
	}
	return nil
}

func (s *RedisStore) Lookup(ctx context.Context, vehicleID string) (models.VehiclePosition, bool, error) {
	data, err := s.client.Get(ctx, positionKey(vehicleID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.VehiclePosition{}, false, nil
	}
	if err != nil {
		return models.VehiclePosition{}, false, fmt.Errorf("redis get %s: %w", vehicleID, err)
	}

	var pos models.VehiclePosition
	if err := json.Unmarshal(data, &pos); err != nil {
		return models.VehiclePosition{}, false, fmt.Errorf("decode position %s: %w", vehicleID, err)
	}
	return pos, true, nil
}

func (s *RedisStore) All(ctx context.Context) ([]models.VehiclePosition, error) {
	var out []models.VehiclePosition

	iter := s.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		data, err := s.client.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			// expired between SCAN and GET
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("redis get %s: %w", iter.Val(), err)
		}
		var pos models.VehiclePosition
		if err := json.Unmarshal(data, &pos); err != nil {
			return nil, fmt.Errorf("decode position %s: %w", iter.Val(), err)
		}
		out = append(out, pos)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].VehicleID < out[j].VehicleID })
	return out, nil
}
