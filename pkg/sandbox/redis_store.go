package sandbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisActionKeyPrefix = "pipeline:action:"

// RedisActionStore is an ActionStore backed by Redis, so approval state
// survives process restarts.
type RedisActionStore struct {
	client *redis.Client
}

// NewRedisActionStore creates a Redis-backed action store.
func NewRedisActionStore(client *redis.Client) (*RedisActionStore, error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil")
	}
	return &RedisActionStore{client: client}, nil
}

// CreateAction implements ActionStore.
func (s *RedisActionStore) CreateAction(ctx context.Context, action *SimulatedAction) error {
	if action == nil {
		return errors.New("action cannot be nil")
	}
	return s.save(ctx, action)
}

// GetAction implements ActionStore.
func (s *RedisActionStore) GetAction(ctx context.Context, id uuid.UUID) (*SimulatedAction, error) {
	data, err := s.client.Get(ctx, redisActionKeyPrefix+id.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrActionNotFound
		}
		return nil, fmt.Errorf("failed to load action %s: %w", id, err)
	}

	var action SimulatedAction
	if err := json.Unmarshal(data, &action); err != nil {
		return nil, fmt.Errorf("failed to unmarshal action %s: %w", id, err)
	}
	return &action, nil
}

// UpdateAction implements ActionStore.
func (s *RedisActionStore) UpdateAction(ctx context.Context, action *SimulatedAction) error {
	if action == nil {
		return errors.New("action cannot be nil")
	}
	if _, err := s.GetAction(ctx, action.ID); err != nil {
		return err
	}
	return s.save(ctx, action)
}

// ListActions implements ActionStore. The scan walks all action keys;
// this surface serves operator views, not hot paths.
func (s *RedisActionStore) ListActions(ctx context.Context, filter ActionFilter) ([]*SimulatedAction, error) {
	var out []*SimulatedAction
	iter := s.client.Scan(ctx, 0, redisActionKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		data, err := s.client.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("failed to load action %s: %w", iter.Val(), err)
		}

		var action SimulatedAction
		if err := json.Unmarshal(data, &action); err != nil {
			continue
		}
		if filter.Status != "" && action.Status != filter.Status {
			continue
		}
		if filter.Platform != "" && action.Platform != filter.Platform {
			continue
		}
		out = append(out, &action)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan actions: %w", err)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *RedisActionStore) save(ctx context.Context, action *SimulatedAction) error {
	data, err := json.Marshal(action)
	if err != nil {
		return fmt.Errorf("failed to marshal action %s: %w", action.ID, err)
	}
	if err := s.client.Set(ctx, redisActionKeyPrefix+action.ID.String(), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store action %s: %w", action.ID, err)
	}
	return nil
}
