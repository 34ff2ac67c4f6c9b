package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/hostguard/internal/model"
	"github.com/mcoot/hostguard/internal/storage"
)

// Storage keeps the ban blob as a plain string and settings as JSON, one
// key each
type Storage struct {
	client *redis.Client
	keys   keyspace
}

// New connects and pings Redis
func New(cfg Config) (*Storage, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return NewWithClient(client, cfg), nil
}

// NewWithClient wraps an existing client. Only cfg.KeyPrefix is used.
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{client: client, keys: newKeyspace(cfg.KeyPrefix)}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

var _ storage.Storage = (*Storage)(nil)

func (s *Storage) GetBanList(ctx context.Context) (string, error) {
	blob, err := s.client.Get(ctx, s.keys.banList).Result()
	if errors.Is(err, redis.Nil) {
		return "", model.ErrBanListNotFound
	}
	return blob, err
}

func (s *Storage) SaveBanList(ctx context.Context, blob string) error {
	return s.client.Set(ctx, s.keys.banList, blob, 0).Err()
}

func (s *Storage) GetSettings(ctx context.Context) (*model.Settings, error) {
	data, err := s.client.Get(ctx, s.keys.settings).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, model.ErrSettingsNotFound
	}
	if err != nil {
		return nil, err
	}

	var settings model.Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return &settings, nil
}

func (s *Storage) SaveSettings(ctx context.Context, settings *model.Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	return s.client.Set(ctx, s.keys.settings, data, 0).Err()
}
