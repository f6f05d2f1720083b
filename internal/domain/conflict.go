package domain

// ConflictType tags a detected cross-bureau inconsistency.
type ConflictType string

const (
	ConflictStatus             ConflictType = "status"
	ConflictBalance            ConflictType = "balance"
	ConflictLatePayment        ConflictType = "late_payment"
	ConflictImpossibleTimeline ConflictType = "impossible_timeline"
	ConflictPaymentPolarity    ConflictType = "payment_status_polarity"

	// ConflictCustom marks findings from operator-defined CEL rules. Custom
	// conflicts contribute to the score but never to success probability.
	ConflictCustom ConflictType = "custom"
)

// Severity weights for the built-in conflict types. An impossible timeline is
// always the most severe finding.
const (
	WeightStatus             = 8
	WeightBalance            = 9
	WeightLatePayment        = 7
	WeightImpossibleTimeline = 10
	WeightPaymentPolarity    = 8
)

// Conflict is one typed inconsistency within a cluster. Details preserves
// each populated slot's raw value for the conflicting dimension so downstream
// letter drafting can cite evidence without recomputing it.
type Conflict struct {
	Type        ConflictType      `json:"type"`
	Severity    int               `json:"severity"`
	Description string            `json:"description"`
	Bureaus     []Bureau          `json:"bureaus"`
	Details     map[Bureau]string `json:"details"`

	// RuleID is set for custom conflicts only.
	RuleID string `json:"ruleId,omitempty"`
}
