package domain

import "time"

// Lexicon is the versioned keyword table driving negative classification.
// Keeping the keyword lists as data rather than code means new bureau
// phrasing ships as a config change, not a logic change.
type Lexicon struct {
	Version  string `json:"version"`
	TenantID string `json:"tenantId,omitempty"`

	// NegativeStatuses are derogatory status/payment-status keywords.
	NegativeStatuses []string `json:"negativeStatuses"`

	// PositiveStatuses exempt an account from the collection-type negativity
	// rule and feed the payment-polarity conflict check.
	PositiveStatuses []string `json:"positiveStatuses"`

	// DerogatoryRemarks are keywords searched in free-text remarks.
	DerogatoryRemarks []string `json:"derogatoryRemarks"`

	// CollectionAgencies are name fragments of known collection agencies,
	// catching agency tradelines that never literally say "collection".
	CollectionAgencies []string `json:"collectionAgencies"`

	// Category keyword lists, searched in priority order:
	// collections, charge-offs, late payments, judgments.
	CollectionKeywords  []string `json:"collectionKeywords"`
	ChargeOffKeywords   []string `json:"chargeOffKeywords"`
	LatePaymentKeywords []string `json:"latePaymentKeywords"`
	JudgmentKeywords    []string `json:"judgmentKeywords"`

	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}
