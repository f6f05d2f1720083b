// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/disputegrid/kestrel/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveBatch stores a raw record batch with tenant isolation.
func (r *SQLRepository) SaveBatch(ctx context.Context, tenantID string, batch *domain.Batch) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	accounts, err := json.Marshal(batch.Accounts)
	if err != nil {
		return fmt.Errorf("failed to encode batch accounts: %w", err)
	}

	query := `
		INSERT INTO batches (id, tenant_id, accounts, created_at)
		VALUES (?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		batch.ID, tenantID, string(accounts), batch.CreatedAt,
	)
	return err
}

// GetBatch retrieves a batch by ID with tenant isolation.
func (r *SQLRepository) GetBatch(ctx context.Context, tenantID string, batchID string) (*domain.Batch, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, accounts, created_at
		FROM batches
		WHERE tenant_id = ? AND id = ?
	`

	var batch domain.Batch
	var accounts string

	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, batchID).Scan(
		&batch.ID, &batch.TenantID, &accounts, &batch.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(accounts), &batch.Accounts); err != nil {
		return nil, fmt.Errorf("failed to parse batch accounts: %w", err)
	}

	return &batch, nil
}

// SaveAnalysis stores an analysis result with tenant isolation.
func (r *SQLRepository) SaveAnalysis(ctx context.Context, tenantID string, analysis *domain.Analysis) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	accounts, _ := json.Marshal(analysis.Accounts)
	categories, _ := json.Marshal(analysis.CategoryBreakdown)
	severities, _ := json.Marshal(analysis.SeverityBreakdown)
	previews, _ := json.Marshal(analysis.Previews)
	targets, _ := json.Marshal(analysis.RoundOneTargets)
	metadata, _ := json.Marshal(analysis.Metadata)

	query := `
		INSERT INTO analyses (
			id, tenant_id, batch_id, timestamp,
			total_negatives, total_debt, disputable_items,
			accounts, category_breakdown, severity_breakdown,
			previews, round_one_targets, metadata
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		analysis.ID, tenantID, analysis.BatchID, analysis.Timestamp,
		analysis.TotalNegatives, analysis.TotalDebt, analysis.DisputableItems,
		string(accounts), string(categories), string(severities),
		string(previews), string(targets), string(metadata),
	)
	return err
}

// GetAnalysis retrieves an analysis by ID with tenant isolation.
func (r *SQLRepository) GetAnalysis(ctx context.Context, tenantID string, analysisID string) (*domain.Analysis, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, batch_id, timestamp,
			   total_negatives, total_debt, disputable_items,
			   accounts, category_breakdown, severity_breakdown,
			   previews, round_one_targets, metadata
		FROM analyses
		WHERE tenant_id = ? AND id = ?
	`

	return r.scanAnalysis(r.db.QueryRowContext(ctx, r.rebind(query), tenantID, analysisID))
}

// GetAnalysisByBatch retrieves the most recent analysis for a batch with
// tenant isolation.
func (r *SQLRepository) GetAnalysisByBatch(ctx context.Context, tenantID string, batchID string) (*domain.Analysis, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, batch_id, timestamp,
			   total_negatives, total_debt, disputable_items,
			   accounts, category_breakdown, severity_breakdown,
			   previews, round_one_targets, metadata
		FROM analyses
		WHERE tenant_id = ? AND batch_id = ?
		ORDER BY timestamp DESC
		LIMIT 1
	`

	return r.scanAnalysis(r.db.QueryRowContext(ctx, r.rebind(query), tenantID, batchID))
}

func (r *SQLRepository) scanAnalysis(row *sql.Row) (*domain.Analysis, error) {
	var analysis domain.Analysis
	var accounts, categories, severities, previews, targets, metadata string

	err := row.Scan(
		&analysis.ID, &analysis.TenantID, &analysis.BatchID, &analysis.Timestamp,
		&analysis.TotalNegatives, &analysis.TotalDebt, &analysis.DisputableItems,
		&accounts, &categories, &severities,
		&previews, &targets, &metadata,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	json.Unmarshal([]byte(accounts), &analysis.Accounts)
	json.Unmarshal([]byte(categories), &analysis.CategoryBreakdown)
	json.Unmarshal([]byte(severities), &analysis.SeverityBreakdown)
	json.Unmarshal([]byte(previews), &analysis.Previews)
	json.Unmarshal([]byte(targets), &analysis.RoundOneTargets)
	json.Unmarshal([]byte(metadata), &analysis.Metadata)

	return &analysis, nil
}

// SaveLexicon stores a lexicon version with tenant isolation. Saving an
// existing version overwrites it.
func (r *SQLRepository) SaveLexicon(ctx context.Context, tenantID string, lexicon *domain.Lexicon) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if lexicon.Version == "" {
		return fmt.Errorf("%w: lexicon version is required", ErrInvalidInput)
	}

	keywords, err := json.Marshal(lexicon)
	if err != nil {
		return fmt.Errorf("failed to encode lexicon: %w", err)
	}

	enabled := 0
	if lexicon.Enabled {
		enabled = 1
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO lexicons (version, tenant_id, keywords, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(version, tenant_id) DO UPDATE SET
			keywords = excluded.keywords,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		lexicon.Version, tenantID, string(keywords), enabled, now, now,
	)
	return err
}

// GetLexicon retrieves a lexicon version with tenant isolation.
func (r *SQLRepository) GetLexicon(ctx context.Context, tenantID string, version string) (*domain.Lexicon, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT version, tenant_id, keywords, enabled, created_at, updated_at
		FROM lexicons
		WHERE tenant_id = ? AND version = ?
	`

	return r.scanLexicon(r.db.QueryRowContext(ctx, r.rebind(query), tenantID, version))
}

// ListLexicons retrieves all lexicon versions for a tenant, newest first.
func (r *SQLRepository) ListLexicons(ctx context.Context, tenantID string) ([]*domain.Lexicon, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT version, tenant_id, keywords, enabled, created_at, updated_at
		FROM lexicons
		WHERE tenant_id = ?
		ORDER BY updated_at DESC
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lexicons []*domain.Lexicon
	for rows.Next() {
		lex, err := decodeLexiconRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		lexicons = append(lexicons, lex)
	}

	return lexicons, rows.Err()
}

func (r *SQLRepository) scanLexicon(row *sql.Row) (*domain.Lexicon, error) {
	lex, err := decodeLexiconRow(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return lex, err
}

// decodeLexiconRow reads one lexicon row. The keyword lists live in a single
// JSON column; the scalar columns are authoritative for version, tenant,
// enabled, and timestamps.
func decodeLexiconRow(scan func(...any) error) (*domain.Lexicon, error) {
	var (
		version, tenantID, keywords string
		enabled                     int
		createdAt, updatedAt        time.Time
	)

	if err := scan(&version, &tenantID, &keywords, &enabled, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var lex domain.Lexicon
	if err := json.Unmarshal([]byte(keywords), &lex); err != nil {
		return nil, fmt.Errorf("failed to parse lexicon %s: %w", version, err)
	}

	lex.Version = version
	lex.TenantID = tenantID
	lex.Enabled = enabled == 1
	lex.CreatedAt = createdAt
	lex.UpdatedAt = updatedAt

	return &lex, nil
}

// SaveConflictRule stores a custom conflict rule with tenant isolation.
func (r *SQLRepository) SaveConflictRule(ctx context.Context, tenantID string, rule *domain.ConflictRule) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if rule.ID == "" {
		return fmt.Errorf("%w: rule ID is required", ErrInvalidInput)
	}

	enabled := 0
	if rule.Enabled {
		enabled = 1
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO conflict_rules (
			id, tenant_id, name, description, version, expression, severity, enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, tenant_id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			version = excluded.version,
			expression = excluded.expression,
			severity = excluded.severity,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rule.ID, tenantID, rule.Name, rule.Description,
		rule.Version, rule.Expression, rule.Severity, enabled,
		now, now,
	)
	return err
}

// GetConflictRule retrieves an active custom conflict rule with tenant
// isolation.
func (r *SQLRepository) GetConflictRule(ctx context.Context, tenantID string, ruleID string) (*domain.ConflictRule, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, name, description, version, expression, severity, enabled
		FROM conflict_rules
		WHERE tenant_id = ? AND id = ? AND enabled = 1
	`

	var rule domain.ConflictRule
	var enabled int

	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, ruleID).Scan(
		&rule.ID, &rule.TenantID, &rule.Name, &rule.Description,
		&rule.Version, &rule.Expression, &rule.Severity, &enabled,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rule.Enabled = enabled == 1

	return &rule, nil
}

// ListConflictRules retrieves all active custom conflict rules for a tenant.
func (r *SQLRepository) ListConflictRules(ctx context.Context, tenantID string) ([]*domain.ConflictRule, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, name, description, version, expression, severity, enabled
		FROM conflict_rules
		WHERE tenant_id = ? AND enabled = 1
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*domain.ConflictRule
	for rows.Next() {
		var rule domain.ConflictRule
		var enabled int

		if err := rows.Scan(
			&rule.ID, &rule.TenantID, &rule.Name, &rule.Description,
			&rule.Version, &rule.Expression, &rule.Severity, &enabled,
		); err != nil {
			return nil, err
		}

		rule.Enabled = enabled == 1
		rules = append(rules, &rule)
	}

	return rules, rows.Err()
}

// DeleteConflictRule soft-deletes a rule by setting enabled = 0.
func (r *SQLRepository) DeleteConflictRule(ctx context.Context, tenantID string, ruleID string) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		UPDATE conflict_rules
		SET enabled = 0, updated_at = ?
		WHERE tenant_id = ? AND id = ?
	`

	result, err := r.db.ExecContext(ctx, r.rebind(query), time.Now().UTC(), tenantID, ruleID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
