package repository

// Schema definitions for the Kestrel database.
// Compatible with both SQLite and PostgreSQL.

const schemaBatches = `
CREATE TABLE IF NOT EXISTS batches (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    accounts TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_batches_tenant ON batches(tenant_id);
CREATE INDEX IF NOT EXISTS idx_batches_created ON batches(tenant_id, created_at);
`

const schemaAnalyses = `
CREATE TABLE IF NOT EXISTS analyses (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    batch_id TEXT NOT NULL,
    timestamp TIMESTAMP NOT NULL,
    total_negatives INTEGER NOT NULL,
    total_debt REAL NOT NULL,
    disputable_items INTEGER NOT NULL,
    accounts TEXT NOT NULL,
    category_breakdown TEXT NOT NULL,
    severity_breakdown TEXT NOT NULL,
    previews TEXT,
    round_one_targets TEXT,
    metadata TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_analyses_tenant ON analyses(tenant_id);
CREATE INDEX IF NOT EXISTS idx_analyses_batch ON analyses(tenant_id, batch_id);
CREATE INDEX IF NOT EXISTS idx_analyses_timestamp ON analyses(tenant_id, timestamp);
`

// schemaLexicons stores the versioned classifier keyword tables. A row per
// version keeps old versions addressable after a reload.
const schemaLexicons = `
CREATE TABLE IF NOT EXISTS lexicons (
    version TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    keywords TEXT NOT NULL,
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (version, tenant_id)
);

CREATE INDEX IF NOT EXISTS idx_lexicons_tenant ON lexicons(tenant_id);
CREATE INDEX IF NOT EXISTS idx_lexicons_enabled ON lexicons(tenant_id, enabled);
`

const schemaConflictRules = `
CREATE TABLE IF NOT EXISTS conflict_rules (
    id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT,
    version TEXT NOT NULL,
    expression TEXT NOT NULL,
    severity INTEGER NOT NULL DEFAULT 5,
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (id, tenant_id)
);

CREATE INDEX IF NOT EXISTS idx_conflict_rules_tenant ON conflict_rules(tenant_id);
CREATE INDEX IF NOT EXISTS idx_conflict_rules_enabled ON conflict_rules(tenant_id, enabled);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaBatches,
		schemaAnalyses,
		schemaLexicons,
		schemaConflictRules,
	}
}
