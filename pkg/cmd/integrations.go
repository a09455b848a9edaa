package cmd

import (
	"context"
	"log/slog"

	"github.com/autoflowhq/autoflow/pkg/credentials"
	"github.com/autoflowhq/autoflow/pkg/instagram"
	"github.com/autoflowhq/autoflow/pkg/otelhelper"
	"github.com/autoflowhq/autoflow/pkg/protocol"
	"go.opentelemetry.io/otel/trace"
)

// TokenStoreConfig selects where integration access tokens come from.
type TokenStoreConfig struct {
	// InstagramAccessToken is a fixed token, usually INSTAGRAM_ACCESS_TOKEN.
	InstagramAccessToken string
	// RedisURL points at the store written by the integration connect flow.
	RedisURL string
}

// NewTokenStore chains the static token in front of Redis. Redis lookups are
// cached for credentials.DefaultCacheTTL.
//
// nolint:ireturn
func NewTokenStore(ctx context.Context, cfg TokenStoreConfig, logger *slog.Logger) (credentials.TokenStore, error) {
	chain := credentials.ChainStore{
		credentials.NewStaticStore(map[string]string{
			credentials.IntegrationInstagram: cfg.InstagramAccessToken,
		}),
	}

	if cfg.RedisURL != "" {
		redisStore, err := credentials.NewRedisStore(ctx, cfg.RedisURL, logger)
		if err != nil {
			return nil, err
		}

		chain = append(chain, credentials.NewCachedStore(redisStore, credentials.DefaultCacheTTL))
	}

	return chain, nil
}

// NewMessenger returns nil when no Instagram account is configured.
//
// nolint:ireturn
func NewMessenger(accountID string, tokens credentials.TokenStore, logger *slog.Logger) protocol.Messenger {
	if accountID == "" {
		return nil
	}

	return instagram.NewMessenger(accountID, tokens, logger)
}

// NewTracer exports spans over OTLP when enabled and falls back to a no-op
// tracer otherwise.
//
// nolint:ireturn
func NewTracer(ctx context.Context, enabled bool, serviceName string, logger *slog.Logger) trace.Tracer {
	if !enabled {
		return otelhelper.NoopTracer()
	}

	tracer, err := otelhelper.NewTracer(ctx, serviceName)
	if err != nil {
		logger.WarnContext(ctx, "Failed to initialize tracer, tracing disabled", "error", err)

		return otelhelper.NoopTracer()
	}

	return tracer
}
