package credentials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "autoflow:integrations"

// RedisStore reads tokens written by the integration connect flow.
type RedisStore struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisStore connects to the Redis server at url, e.g. redis://localhost:6379/0.
func NewRedisStore(ctx context.Context, url string, logger *slog.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.InfoContext(ctx, "Connected to Redis", "addr", opts.Addr, "db", opts.DB)

	return &RedisStore{client: client, logger: logger}, nil
}

// TokenKey is the Redis key holding the access token of an integration.
func TokenKey(integration string) string {
	return fmt.Sprintf("%s:%s:access_token", keyPrefix, normalize(integration))
}

func (s *RedisStore) AccessToken(ctx context.Context, integration string) (string, error) {
	token, err := s.client.Get(ctx, TokenKey(integration)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", fmt.Errorf("%w for %s", ErrNoAccessToken, normalize(integration))
		}

		return "", fmt.Errorf("failed to read access token: %w", err)
	}

	if token == "" {
		return "", fmt.Errorf("%w for %s", ErrNoAccessToken, normalize(integration))
	}

	return token, nil
}

// SetAccessToken stores a token, replacing any previous one.
func (s *RedisStore) SetAccessToken(ctx context.Context, integration, token string) error {
	if err := s.client.Set(ctx, TokenKey(integration), token, 0).Err(); err != nil {
		return fmt.Errorf("failed to store access token: %w", err)
	}

	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
