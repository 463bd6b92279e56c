package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// BusinessStore persists business configuration as JSON in Redis.
type BusinessStore struct {
	redis *redis.Client
}

// NewBusinessStore creates a new business config store.
func NewBusinessStore(redisClient *redis.Client) *BusinessStore {
	return &BusinessStore{redis: redisClient}
}

func (s *BusinessStore) key(businessID string) string {
	return fmt.Sprintf("business:config:%s", businessID)
}

// Get retrieves business config, returning the default if none was saved.
func (s *BusinessStore) Get(ctx context.Context, businessID string) (*Business, error) {
	data, err := s.redis.Get(ctx, s.key(businessID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return DefaultBusiness(businessID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("schedule: get business: %w", err)
	}

	var b Business
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("schedule: unmarshal business: %w", err)
	}
	if b.ID == "" {
		b.ID = businessID
	}
	return &b, nil
}

// Save validates and stores the business config.
func (s *BusinessStore) Save(ctx context.Context, b *Business) error {
	if b == nil || b.ID == "" {
		return fmt.Errorf("schedule: business id required")
	}
	if err := b.Hours.Validate(); err != nil {
		return fmt.Errorf("schedule: invalid hours: %w", err)
	}
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("schedule: marshal business: %w", err)
	}
	if err := s.redis.Set(ctx, s.key(b.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("schedule: save business: %w", err)
	}
	return nil
}
