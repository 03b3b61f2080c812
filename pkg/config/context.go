package config

import "context"

type contextKey string

const configCtxKey contextKey = "miniflow:config"

// ContextWithConfig attaches cfg to ctx.
func ContextWithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configCtxKey, cfg)
}

// FromContext returns the Config stored in ctx, or Default() if ctx carries
// none.
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configCtxKey).(*Config); ok && cfg != nil {
		return cfg
	}
	return Default()
}
