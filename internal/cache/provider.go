// Package cache stores generated explanations keyed by prompt hash.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/miradorstack/churn-explainer/internal/config"
)

// Backend names accepted in cache.backend.
const (
	BackendValkey = "valkey"
	BackendMemory = "memory"
)

// ErrCacheMiss is returned by Get for absent or expired keys.
var ErrCacheMiss = errors.New("cache miss")

// Provider is the byte store behind the explanation cache.
type Provider interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// Open builds the configured provider. An unreachable Valkey server degrades
// to NoopProvider with a warning so predictions keep working.
func Open(cfg config.CacheConfig, logger *slog.Logger) Provider {
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.Enabled {
		return NoopProvider{}
	}
	if cfg.Backend == BackendMemory {
		logger.Info("explanation cache enabled", slog.String("backend", BackendMemory))
		return NewMemoryProvider()
	}
	provider, err := NewValkeyProvider(ValkeyConfig{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		MaxRetries:   cfg.MaxRetries,
		TLS:          cfg.TLS,
	})
	if err != nil {
		logger.Warn("valkey cache unavailable", slog.String("addr", cfg.Addr), slog.Any("error", err))
		return NoopProvider{}
	}
	logger.Info("explanation cache enabled", slog.String("backend", BackendValkey), slog.String("addr", cfg.Addr))
	return provider
}

// NoopProvider misses on every read and drops every write.
type NoopProvider struct{}

func (NoopProvider) Get(context.Context, string) ([]byte, error) { return nil, ErrCacheMiss }

func (NoopProvider) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (NoopProvider) Close() error { return nil }
