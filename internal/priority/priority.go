// Package priority scores clusters by dispute-worthiness and estimates the
// chance a dispute succeeds. Score and probability are deliberately
// independent: the score ranks return on effort, the probability reflects
// how strong the legal argument is.
package priority

import (
	"sort"
	"strings"
	"time"

	"github.com/disputegrid/kestrel/internal/domain"
	"github.com/disputegrid/kestrel/internal/normalize"
)

// Input pairs a cluster with its detected conflicts.
type Input struct {
	Cluster   *domain.Cluster
	Conflicts []domain.Conflict
}

// conflictTermCap bounds the summed conflict severities so a pile of small
// findings cannot drown out the balance and recency terms.
const conflictTermCap = 50

// Prioritizer converts cluster inputs into ranked candidates.
type Prioritizer struct{}

// New creates a prioritizer.
func New() *Prioritizer {
	return &Prioritizer{}
}

// Rank scores every input and returns candidates sorted by total score,
// highest first. The sort is stable: ties keep input order. Recency is
// computed against asOf so a pipeline run is reproducible for audit.
func (p *Prioritizer) Rank(inputs []Input, asOf time.Time) []domain.Candidate {
	candidates := make([]domain.Candidate, 0, len(inputs))
	for _, in := range inputs {
		candidates = append(candidates, p.score(in, asOf))
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].TotalScore > candidates[j].TotalScore
	})

	return candidates
}

func (p *Prioritizer) score(in Input, asOf time.Time) domain.Candidate {
	rep := in.Cluster.Representative()

	cand := domain.Candidate{
		Cluster:   in.Cluster,
		Conflicts: in.Conflicts,
		Bureaus:   in.Cluster.Bureaus(),
	}
	if rep != nil {
		cand.Creditor = rep.Name
		cand.Balance = normalize.ParseBalance(rep.Balance.String())
		cand.Status = rep.StatusText()
	}

	score := conflictTerm(in.Conflicts)
	score += balanceTerm(cand.Balance)
	score += statusTerm(cand.Status)
	if rep != nil {
		score += recencyTerm(normalize.ParseDate(rep.LastActivity), asOf)
	}
	score += 3 * in.Cluster.Coverage()

	cand.TotalScore = score
	cand.SuccessProbability = successProbability(in.Conflicts)
	return cand
}

// conflictTerm sums conflict severity weights, capped.
func conflictTerm(conflicts []domain.Conflict) int {
	sum := 0
	for _, c := range conflicts {
		sum += c.Severity
	}
	if sum > conflictTermCap {
		return conflictTermCap
	}
	return sum
}

func balanceTerm(balance float64) int {
	switch {
	case balance > 5000:
		return 20
	case balance > 2000:
		return 15
	case balance > 500:
		return 10
	case balance > 0:
		return 5
	default:
		return 0
	}
}

// statusTerm awards at most one term; the first substring match in this
// order wins.
func statusTerm(status string) int {
	s := strings.ToLower(status)
	switch {
	case strings.Contains(s, "open") || strings.Contains(s, "past due"):
		return 20
	case strings.Contains(s, "charge") || strings.Contains(s, "collection"):
		return 15
	case strings.Contains(s, "repo") || strings.Contains(s, "foreclosure"):
		return 18
	default:
		return 0
	}
}

func recencyTerm(lastActivity *time.Time, asOf time.Time) int {
	if lastActivity == nil {
		return 0
	}
	days := int(asOf.Sub(*lastActivity).Hours() / 24)
	switch {
	case days < 365:
		return 15
	case days < 730:
		return 10
	case days < 1095:
		return 5
	default:
		return 0
	}
}

// successProbability is a categorical function of the most legally
// significant built-in conflict type present. Custom conflicts never move it.
func successProbability(conflicts []domain.Conflict) float64 {
	var hasBalance, hasStatus, hasPolarity, hasLate bool
	for _, c := range conflicts {
		switch c.Type {
		case domain.ConflictImpossibleTimeline:
			return 0.95
		case domain.ConflictBalance:
			hasBalance = true
		case domain.ConflictStatus:
			hasStatus = true
		case domain.ConflictPaymentPolarity:
			hasPolarity = true
		case domain.ConflictLatePayment:
			hasLate = true
		}
	}

	switch {
	case hasBalance:
		return 0.75
	case hasStatus, hasPolarity:
		return 0.75
	case hasLate:
		return 0.6
	default:
		return 0.5
	}
}
