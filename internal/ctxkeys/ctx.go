package ctxkeys

import (
	"context"

	"github.com/nzoschke/studyvault/internal/config"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const (
	IdentityKey contextKey = "identity"
	TokenKey    contextKey = "token"
	ConfigKey   contextKey = "config"
)

// Identity returns the authenticated username, or "" for anonymous requests
func Identity(ctx context.Context) string {
	identity, _ := ctx.Value(IdentityKey).(string)
	return identity
}

func WithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}

// Token returns the bearer token the identity was derived from
func Token(ctx context.Context) string {
	token, _ := ctx.Value(TokenKey).(string)
	return token
}

func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, TokenKey, token)
}

// Config returns the sanitized configuration added by the config middleware
func Config(ctx context.Context) *config.Config {
	cfg, _ := ctx.Value(ConfigKey).(*config.Config)
	return cfg
}

func WithConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, ConfigKey, cfg)
}
