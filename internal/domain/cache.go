package domain

import (
	"context"
	"time"
)

// Cache defines the interface for caching analysis results across calls.
// The engine itself holds no state between runs; any caching is explicit and
// keyed by the caller-supplied batch identity, never by hidden module state.
// All methods require tenantID for strict multi-tenancy isolation.
type Cache interface {
	// Get retrieves a value from cache.
	// Returns nil, nil if key not found.
	Get(ctx context.Context, tenantID string, key string) ([]byte, error)

	// Set stores a value in cache with expiration.
	Set(ctx context.Context, tenantID string, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache.
	Delete(ctx context.Context, tenantID string, key string) error

	// GetAnalysis retrieves a cached analysis by batch identity.
	GetAnalysis(ctx context.Context, tenantID string, batchID string) (*Analysis, error)

	// SetAnalysis caches an analysis under its batch identity.
	SetAnalysis(ctx context.Context, tenantID string, batchID string, analysis *Analysis, ttl time.Duration) error

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory" or "redis"
	Type string

	// Local LRU cache settings (Community tier)
	LocalMaxSize int
	LocalTTL     time.Duration

	// Redis settings (Pro tier)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Two-phase settings
	EnableTwoPhase bool // If true, check local first, then Redis
}
