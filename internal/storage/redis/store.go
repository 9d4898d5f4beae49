// Package redis provides a Redis-backed snapshot store.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pfitan-web/aijobscraper/internal/jobs"
)

const (
	boardKey    = "jobscraper:board"
	settingsKey = "jobscraper:settings"
)

// StoreConfig controls the Redis connection.
type StoreConfig struct {
	Addr     string
	Password string
	DB       int
}

// Store persists full snapshots as JSON values under fixed keys. Every save
// overwrites the previous snapshot.
type Store struct {
	client *redis.Client
}

// NewStore connects to Redis and verifies the connection.
func NewStore(ctx context.Context, cfg StoreConfig) (*Store, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("storage.redis.addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}
	return &Store{client: client}, nil
}

// Close releases the client.
func (s *Store) Close() error {
	return s.client.Close()
}

// SaveBoard implements jobs.SnapshotStore.
func (s *Store) SaveBoard(ctx context.Context, snap jobs.BoardSnapshot) error {
	return s.save(ctx, boardKey, snap)
}

// LoadBoard implements jobs.SnapshotStore. A missing key yields an empty
// snapshot.
func (s *Store) LoadBoard(ctx context.Context) (jobs.BoardSnapshot, error) {
	var snap jobs.BoardSnapshot
	found, err := s.load(ctx, boardKey, &snap)
	if err != nil {
		return nil, err
	}
	if !found {
		return jobs.BoardSnapshot{}, nil
	}
	return snap, nil
}

// SaveSettings implements jobs.SnapshotStore.
func (s *Store) SaveSettings(ctx context.Context, settings jobs.Settings) error {
	return s.save(ctx, settingsKey, settings)
}

// LoadSettings implements jobs.SnapshotStore.
func (s *Store) LoadSettings(ctx context.Context) (jobs.Settings, error) {
	var settings jobs.Settings
	if _, err := s.load(ctx, settingsKey, &settings); err != nil {
		return jobs.Settings{}, err
	}
	return settings, nil
}

func (s *Store) save(ctx context.Context, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := s.client.Set(ctx, key, payload, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *Store) load(ctx context.Context, key string, out any) (bool, error) {
	payload, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return true, nil
}
