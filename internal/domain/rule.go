package domain

// ConflictRule is an operator-defined cluster check expressed in CEL. It
// extends the five built-in conflict detectors without touching them: a rule
// that evaluates true emits a custom conflict with the configured weight.
type ConflictRule struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenantId,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`

	// Expression is a CEL expression over cluster facts (coverage, balances,
	// statuses, late_counts, creditor, max_balance, min_balance). It must
	// return bool.
	Expression string `json:"expression"`

	// Severity is the conflict weight counted toward the capped score term.
	Severity int `json:"severity"`

	Enabled bool `json:"enabled"`
}
