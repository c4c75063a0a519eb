package feed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/krobus00/fix-md-service/internal/entity"
	"github.com/redis/go-redis/v9"
)

const lastValueKey = "fix_md:last_values"

// LastValueStore persists the latest-value view so a restarted gateway can
// serve snapshots before the first live ticks arrive.
type LastValueStore interface {
	Load(ctx context.Context) ([]entity.MarketData, bool, error)
	Save(ctx context.Context, view []entity.MarketData) error
}

type RedisLastValueStore struct {
	client *redis.Client
}

func NewRedisLastValueStore(cacheDSN string) (*RedisLastValueStore, error) {
	if cacheDSN == "" {
		return nil, fmt.Errorf("redis cache_dsn is required")
	}

	options, err := redis.ParseURL(cacheDSN)
	if err != nil {
		return nil, fmt.Errorf("parse redis cache_dsn: %w", err)
	}

	return &RedisLastValueStore{client: redis.NewClient(options)}, nil
}

func (s *RedisLastValueStore) Load(ctx context.Context) ([]entity.MarketData, bool, error) {
	rawView, err := s.client.Get(ctx, lastValueKey).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, err
	}

	var view []entity.MarketData
	if err := json.Unmarshal([]byte(rawView), &view); err != nil {
		return nil, false, err
	}

	return view, true, nil
}

func (s *RedisLastValueStore) Save(ctx context.Context, view []entity.MarketData) error {
	payload, err := json.Marshal(view)
	if err != nil {
		return err
	}

	return s.client.Set(ctx, lastValueKey, payload, 0).Err()
}

func (s *RedisLastValueStore) Close() error {
	return s.client.Close()
}
