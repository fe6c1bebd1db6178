package pending

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"moa/internal/account/models"
	"moa/pkg/domain"
	"moa/pkg/platform/sentinel"
)

const keyPrefix = "moa:verification:"

// RedisStore keeps pending verifications until they are confirmed or the
// key expires.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedis(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func key(userID domain.UserID) string {
	return keyPrefix + userID.String()
}

// Save replaces any earlier pending verification for the user.
func (s *RedisStore) Save(ctx context.Context, p *models.PendingVerification, ttl time.Duration) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal pending verification: %w", err)
	}
	if err := s.client.Set(ctx, key(p.UserID), data, ttl).Err(); err != nil {
		return fmt.Errorf("save pending verification: %w", err)
	}
	return nil
}

func (s *RedisStore) Find(ctx context.Context, userID domain.UserID) (*models.PendingVerification, error) {
	data, err := s.client.Get(ctx, key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find pending verification: %w", err)
	}
	var p models.PendingVerification
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode pending verification: %w", err)
	}
	return &p, nil
}

func (s *RedisStore) Delete(ctx context.Context, userID domain.UserID) error {
	if err := s.client.Del(ctx, key(userID)).Err(); err != nil {
		return fmt.Errorf("delete pending verification: %w", err)
	}
	return nil
}
