package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence.
// All methods require tenantID for strict multi-tenancy isolation.
type Repository interface {
	// Batch operations: raw record batches kept for async reprocessing.
	SaveBatch(ctx context.Context, tenantID string, batch *Batch) error
	GetBatch(ctx context.Context, tenantID string, batchID string) (*Batch, error)

	// Analysis results.
	SaveAnalysis(ctx context.Context, tenantID string, analysis *Analysis) error
	GetAnalysis(ctx context.Context, tenantID string, analysisID string) (*Analysis, error)
	GetAnalysisByBatch(ctx context.Context, tenantID string, batchID string) (*Analysis, error)

	// Classifier lexicon versions.
	SaveLexicon(ctx context.Context, tenantID string, lexicon *Lexicon) error
	GetLexicon(ctx context.Context, tenantID string, version string) (*Lexicon, error)
	ListLexicons(ctx context.Context, tenantID string) ([]*Lexicon, error)

	// Custom conflict rule operations.
	SaveConflictRule(ctx context.Context, tenantID string, rule *ConflictRule) error
	GetConflictRule(ctx context.Context, tenantID string, ruleID string) (*ConflictRule, error)
	ListConflictRules(ctx context.Context, tenantID string) ([]*ConflictRule, error)
	DeleteConflictRule(ctx context.Context, tenantID string, ruleID string) error

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
