// Package classify decides whether a bureau record is a derogatory item and
// assigns its severity and category. All decisions are driven by a versioned
// keyword lexicon so new bureau phrasing is a data change, not a code change.
package classify

import (
	"strings"
	"sync"

	"github.com/disputegrid/kestrel/internal/domain"
	"github.com/disputegrid/kestrel/internal/normalize"
)

// Classifier evaluates records against a lexicon. The lexicon can be
// hot-swapped at runtime; evaluation itself is read-only and safe for
// concurrent use.
type Classifier struct {
	mu  sync.RWMutex
	lex *domain.Lexicon
}

// New creates a classifier. A nil lexicon falls back to the built-in default.
func New(lex *domain.Lexicon) *Classifier {
	if lex == nil {
		lex = DefaultLexicon()
	}
	return &Classifier{lex: lex}
}

// Reload swaps in a new lexicon version.
func (c *Classifier) Reload(lex *domain.Lexicon) {
	if lex == nil {
		return
	}
	c.mu.Lock()
	c.lex = lex
	c.mu.Unlock()
}

// Lexicon returns the active lexicon.
func (c *Classifier) Lexicon() *domain.Lexicon {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lex
}

// IsNegative reports whether a record describes a derogatory item: a
// derogatory status keyword, any non-zero late-count bucket, a derogatory
// remark, or a carried balance on a collection-type account that is not in
// good standing.
func (c *Classifier) IsNegative(r *domain.AccountRecord) bool {
	lex := c.Lexicon()

	status := strings.ToLower(r.StatusText())
	if containsAny(status, lex.NegativeStatuses) {
		return true
	}

	if normalize.ParseLateCounts(r.LatePayments).Any() {
		return true
	}

	if containsAny(strings.ToLower(r.Remarks), lex.DerogatoryRemarks) {
		return true
	}

	balance := normalize.ParseBalance(r.Balance.String())
	if balance > 0 && strings.Contains(strings.ToLower(r.AccountType), "collection") &&
		!containsAny(status, lex.PositiveStatuses) {
		return true
	}

	return false
}

// Severity grades a negative record. Rules are evaluated in order; the first
// match wins.
func (c *Classifier) Severity(r *domain.AccountRecord) domain.Severity {
	status := strings.ToLower(r.StatusText())
	balance := normalize.ParseBalance(r.Balance.String())

	if (strings.Contains(status, "repo") || strings.Contains(status, "foreclosure")) && balance > 5000 {
		return domain.SeverityCritical
	}
	if (strings.Contains(status, "charge") || strings.Contains(status, "collection")) && balance > 2000 {
		return domain.SeverityHigh
	}
	if normalize.ParseLateCounts(r.LatePayments).Day90 >= 3 {
		return domain.SeverityHigh
	}
	if balance > 500 {
		return domain.SeverityMedium
	}
	return domain.SeverityLow
}

// Category assigns a negative record to a dispute category. The keyword
// search runs over the concatenation of status, type, remarks, and creditor
// name; categories are checked in priority order and the first match wins.
func (c *Classifier) Category(r *domain.AccountRecord) domain.Category {
	lex := c.Lexicon()

	haystack := strings.ToLower(strings.Join([]string{
		r.Status, r.PaymentStatus, r.AccountType, r.Remarks, r.Name,
	}, " "))

	switch {
	case containsAny(haystack, lex.CollectionKeywords) || containsAny(haystack, lex.CollectionAgencies):
		return domain.CategoryCollections
	case containsAny(haystack, lex.ChargeOffKeywords):
		return domain.CategoryChargeOffs
	case containsAny(haystack, lex.LatePaymentKeywords):
		return domain.CategoryLatePayments
	case containsAny(haystack, lex.JudgmentKeywords):
		return domain.CategoryJudgments
	default:
		return domain.CategoryOther
	}
}

// containsAny reports whether s contains any of the lowercase keywords.
func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
