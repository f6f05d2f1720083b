// Package conflict detects legally meaningful inconsistencies between the
// bureau records inside one cluster.
package conflict

import (
	"fmt"
	"strings"

	"github.com/disputegrid/kestrel/internal/domain"
	"github.com/disputegrid/kestrel/internal/normalize"
)

// Default polarity lexicons for the payment-status polarity check.
var (
	defaultPositivePolarity = []string{"as agreed", "good standing", "paid"}
	defaultNegativePolarity = []string{"charge", "collection", "late", "past due"}
)

// Detector runs the built-in conflict rules over a cluster. Rules are
// evaluated independently; a cluster can surface several conflict types at
// once.
type Detector struct {
	positivePolarity []string
	negativePolarity []string
}

// NewDetector creates a detector with the default polarity lexicons.
func NewDetector() *Detector {
	return &Detector{
		positivePolarity: defaultPositivePolarity,
		negativePolarity: defaultNegativePolarity,
	}
}

// Detect returns all conflicts present in a cluster, in fixed rule order.
// A cluster with fewer than two populated slots yields no conflicts:
// cross-bureau comparison is undefined with a single source, and that is not
// an error condition.
func (d *Detector) Detect(cluster *domain.Cluster) []domain.Conflict {
	if cluster == nil || cluster.Coverage() < 2 {
		return nil
	}

	var conflicts []domain.Conflict
	if c := d.statusConflict(cluster); c != nil {
		conflicts = append(conflicts, *c)
	}
	if c := d.balanceConflict(cluster); c != nil {
		conflicts = append(conflicts, *c)
	}
	if c := d.latePaymentConflict(cluster); c != nil {
		conflicts = append(conflicts, *c)
	}
	if c := d.impossibleTimeline(cluster); c != nil {
		conflicts = append(conflicts, *c)
	}
	if c := d.polarityConflict(cluster); c != nil {
		conflicts = append(conflicts, *c)
	}
	return conflicts
}

// statusConflict fires when bureaus disagree on the account status.
func (d *Detector) statusConflict(cluster *domain.Cluster) *domain.Conflict {
	details := make(map[domain.Bureau]string, 3)
	distinct := make(map[string]struct{}, 3)

	for _, b := range cluster.Bureaus() {
		raw := cluster.Slot(b).StatusText()
		details[b] = raw
		distinct[strings.ToLower(strings.TrimSpace(raw))] = struct{}{}
	}

	if len(distinct) <= 1 {
		return nil
	}
	return &domain.Conflict{
		Type:        domain.ConflictStatus,
		Severity:    domain.WeightStatus,
		Description: fmt.Sprintf("Bureaus report %d different account statuses", len(distinct)),
		Bureaus:     cluster.Bureaus(),
		Details:     details,
	}
}

// balanceConflict fires when the reported balance spread exceeds $1000.
// A spread of exactly $1000 does not fire.
func (d *Detector) balanceConflict(cluster *domain.Cluster) *domain.Conflict {
	details := make(map[domain.Bureau]string, 3)
	var minBal, maxBal float64
	first := true

	for _, b := range cluster.Bureaus() {
		raw := cluster.Slot(b).Balance.String()
		details[b] = raw

		bal := normalize.ParseBalance(raw)
		if first {
			minBal, maxBal = bal, bal
			first = false
			continue
		}
		if bal < minBal {
			minBal = bal
		}
		if bal > maxBal {
			maxBal = bal
		}
	}

	spread := maxBal - minBal
	if spread <= 1000 {
		return nil
	}
	return &domain.Conflict{
		Type:        domain.ConflictBalance,
		Severity:    domain.WeightBalance,
		Description: fmt.Sprintf("Reported balances differ by $%.2f", spread),
		Bureaus:     cluster.Bureaus(),
		Details:     details,
	}
}

// latePaymentConflict fires when bureaus disagree on the raw late-payment
// history string.
func (d *Detector) latePaymentConflict(cluster *domain.Cluster) *domain.Conflict {
	details := make(map[domain.Bureau]string, 3)
	distinct := make(map[string]struct{}, 3)

	for _, b := range cluster.Bureaus() {
		raw := cluster.Slot(b).LatePayments
		details[b] = raw
		distinct[strings.TrimSpace(raw)] = struct{}{}
	}

	if len(distinct) <= 1 {
		return nil
	}
	return &domain.Conflict{
		Type:        domain.ConflictLatePayment,
		Severity:    domain.WeightLatePayment,
		Description: "Bureaus report different late-payment histories",
		Bureaus:     cluster.Bureaus(),
		Details:     details,
	}
}

// impossibleTimeline fires when any single slot reports activity before the
// account was opened. This is the most severe finding type: it cannot be a
// reporting nuance, only an error.
func (d *Detector) impossibleTimeline(cluster *domain.Cluster) *domain.Conflict {
	var affected []domain.Bureau
	details := make(map[domain.Bureau]string, 3)

	for _, b := range cluster.Bureaus() {
		r := cluster.Slot(b)
		opened := normalize.ParseDate(r.DateOpened)
		activity := normalize.ParseDate(r.LastActivity)
		if opened == nil || activity == nil {
			continue
		}
		if activity.Before(*opened) {
			affected = append(affected, b)
			details[b] = fmt.Sprintf("opened %s, last activity %s", r.DateOpened, r.LastActivity)
		}
	}

	if len(affected) == 0 {
		return nil
	}
	return &domain.Conflict{
		Type:        domain.ConflictImpossibleTimeline,
		Severity:    domain.WeightImpossibleTimeline,
		Description: "Last activity predates the account open date",
		Bureaus:     affected,
		Details:     details,
	}
}

// polarityConflict fires when one bureau reports the account in good standing
// while another reports it derogatory.
func (d *Detector) polarityConflict(cluster *domain.Cluster) *domain.Conflict {
	details := make(map[domain.Bureau]string, 3)
	var positive, negative []domain.Bureau

	for _, b := range cluster.Bureaus() {
		raw := cluster.Slot(b).StatusText()
		details[b] = raw

		status := strings.ToLower(raw)
		if matchesAny(status, d.positivePolarity) {
			positive = append(positive, b)
		}
		if matchesAny(status, d.negativePolarity) {
			negative = append(negative, b)
		}
	}

	if !crossSlot(positive, negative) {
		return nil
	}
	return &domain.Conflict{
		Type:        domain.ConflictPaymentPolarity,
		Severity:    domain.WeightPaymentPolarity,
		Description: "One bureau reports good standing while another reports a derogatory status",
		Bureaus:     cluster.Bureaus(),
		Details:     details,
	}
}

// crossSlot reports whether the positive and negative sets contain at least
// one pair of distinct bureaus.
func crossSlot(positive, negative []domain.Bureau) bool {
	for _, p := range positive {
		for _, n := range negative {
			if p != n {
				return true
			}
		}
	}
	return false
}

func matchesAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
