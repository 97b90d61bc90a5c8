package dict

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/mzemr/record-api/pkg/circuitbreaker"
)

const (
	maxRecents = 20
	usageTTL   = 30 * 24 * time.Hour
)

// UsageStore tracks which codes an operator picks, per code-set, so the
// UI can surface recents and pinned favorites ahead of a full search.
type UsageStore interface {
	Touch(ctx context.Context, loginName, setCode, code string) error
	Recents(ctx context.Context, loginName, setCode string, limit int) ([]string, error)
	AddFavorite(ctx context.Context, loginName, setCode, code string) error
	RemoveFavorite(ctx context.Context, loginName, setCode, code string) error
	Favorites(ctx context.Context, loginName, setCode string) ([]string, error)
}

type redisUsageStore struct {
	client *redis.Client
	cb     *circuitbreaker.CircuitBreaker
	logger zerolog.Logger
}

// NewRedisUsageStore wraps a Redis client with a circuit breaker so a
// Redis outage degrades dictionary lookups instead of failing them.
func NewRedisUsageStore(client *redis.Client, logger zerolog.Logger) UsageStore {
	return &redisUsageStore{
		client: client,
		cb: circuitbreaker.New(circuitbreaker.Settings{
			Name:        "dict-usage-redis",
			MaxFailures: 5,
			Timeout:     15 * time.Second,
		}),
		logger: logger.With().Str("component", "dict_usage").Logger(),
	}
}

func recentKey(loginName, setCode string) string {
	return fmt.Sprintf("dict:recent:%s:%s", loginName, setCode)
}

func favoriteKey(loginName, setCode string) string {
	return fmt.Sprintf("dict:fav:%s:%s", loginName, setCode)
}

func (s *redisUsageStore) Touch(ctx context.Context, loginName, setCode, code string) error {
	key := recentKey(loginName, setCode)
	return s.cb.Execute(func() error {
		pipe := s.client.TxPipeline()
		pipe.ZAdd(ctx, key, redis.Z{Score: float64(time.Now().UnixMilli()), Member: code})
		pipe.ZRemRangeByRank(ctx, key, 0, int64(-(maxRecents + 1)))
		pipe.Expire(ctx, key, usageTTL)
		_, err := pipe.Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to record dict usage: %w", err)
		}
		return nil
	})
}

func (s *redisUsageStore) Recents(ctx context.Context, loginName, setCode string, limit int) ([]string, error) {
	if limit <= 0 || limit > maxRecents {
		limit = maxRecents
	}
	var codes []string
	err := s.cb.Execute(func() error {
		var err error
		codes, err = s.client.ZRevRange(ctx, recentKey(loginName, setCode), 0, int64(limit-1)).Result()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read dict recents: %w", err)
	}
	return codes, nil
}

func (s *redisUsageStore) AddFavorite(ctx context.Context, loginName, setCode, code string) error {
	err := s.cb.Execute(func() error {
		return s.client.ZAddNX(ctx, favoriteKey(loginName, setCode),
			redis.Z{Score: float64(time.Now().UnixMilli()), Member: code}).Err()
	})
	if err != nil {
		return fmt.Errorf("failed to add dict favorite: %w", err)
	}
	return nil
}

func (s *redisUsageStore) RemoveFavorite(ctx context.Context, loginName, setCode, code string) error {
	err := s.cb.Execute(func() error {
		return s.client.ZRem(ctx, favoriteKey(loginName, setCode), code).Err()
	})
	if err != nil {
		return fmt.Errorf("failed to remove dict favorite: %w", err)
	}
	return nil
}

func (s *redisUsageStore) Favorites(ctx context.Context, loginName, setCode string) ([]string, error) {
	var codes []string
	err := s.cb.Execute(func() error {
		var err error
		codes, err = s.client.ZRevRange(ctx, favoriteKey(loginName, setCode), 0, -1).Result()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read dict favorites: %w", err)
	}
	return codes, nil
}
