// Package linker clusters per-bureau account records into cross-bureau
// groups, each group representing one real-world tradeline.
package linker

import (
	"math"
	"time"

	"github.com/disputegrid/kestrel/internal/domain"
	"github.com/disputegrid/kestrel/internal/normalize"
)

// Matcher links records into clusters. The default implementation is a
// greedy first-fit heuristic; a stronger strategy (e.g. an optimal-assignment
// solver) can be substituted without touching callers.
type Matcher interface {
	// Matches reports whether two records from different bureaus describe the
	// same account. It is symmetric, and always false for records tagged with
	// the same bureau.
	Matches(a, b *domain.AccountRecord) bool

	// Link partitions the input into clusters: every record lands in exactly
	// one cluster, and no cluster holds two records from the same bureau.
	Link(records []domain.AccountRecord) []*domain.Cluster
}

// Matching thresholds. The exact-number rule tolerates looser names because
// the account number already anchors identity; the fallback rule requires a
// closer name plus agreeing balances and open dates.
const (
	exactNameThreshold = 70
	fuzzyNameThreshold = 75
	balanceTolerance   = 100.0
	openedWindowDays   = 60
)

// Greedy is the first-fit reference linker. It scans records in fixed
// bureau-major order and accepts the first match per bureau, which makes the
// output order-dependent but exactly reproducible for a given input order.
// It is deliberately not a globally optimal matching.
type Greedy struct{}

// NewGreedy returns the default greedy linker.
func NewGreedy() *Greedy {
	return &Greedy{}
}

// Link partitions records into clusters with a bureau-major greedy scan.
func (g *Greedy) Link(records []domain.AccountRecord) []*domain.Cluster {
	// Work on a private copy with normalized bureau tags so clusters hold
	// stable pointers and callers' slices stay untouched.
	recs := make([]domain.AccountRecord, len(records))
	copy(recs, records)

	buckets := make(map[domain.Bureau][]*domain.AccountRecord, 3)
	for i := range recs {
		recs[i].Bureau = domain.ParseBureau(string(recs[i].Bureau))
		buckets[recs[i].Bureau] = append(buckets[recs[i].Bureau], &recs[i])
	}

	assigned := make(map[*domain.AccountRecord]bool, len(recs))
	var clusters []*domain.Cluster

	for _, seedBureau := range domain.AllBureaus {
		for _, seed := range buckets[seedBureau] {
			if assigned[seed] {
				continue
			}
			assigned[seed] = true

			cluster := &domain.Cluster{}
			cluster.SetSlot(seedBureau, seed)

			for _, other := range domain.AllBureaus {
				if other == seedBureau {
					continue
				}
				for _, candidate := range buckets[other] {
					if assigned[candidate] {
						continue
					}
					if g.Matches(seed, candidate) {
						assigned[candidate] = true
						cluster.SetSlot(other, candidate)
						break
					}
				}
			}

			clusters = append(clusters, cluster)
		}
	}

	return clusters
}

// Matches decides whether two records describe the same account. When both
// records carry account-number digits the number rule alone decides;
// otherwise a fuzzy name match backed by agreeing balances and open dates is
// required.
func (g *Greedy) Matches(a, b *domain.AccountRecord) bool {
	if domain.ParseBureau(string(a.Bureau)) == domain.ParseBureau(string(b.Bureau)) {
		return false
	}

	nameSim := normalize.FuzzyMatch(
		normalize.NormalizeCreditorName(a.Name),
		normalize.NormalizeCreditorName(b.Name),
	)

	aLast4 := normalize.LastFour(a.AccountNumber)
	bLast4 := normalize.LastFour(b.AccountNumber)
	if aLast4 != "" && bLast4 != "" {
		return aLast4 == bLast4 && nameSim >= exactNameThreshold
	}

	if nameSim < fuzzyNameThreshold {
		return false
	}

	balA := normalize.ParseBalance(a.Balance.String())
	balB := normalize.ParseBalance(b.Balance.String())
	if math.Abs(balA-balB) > balanceTolerance {
		return false
	}

	openedA := normalize.ParseDate(a.DateOpened)
	openedB := normalize.ParseDate(b.DateOpened)
	if openedA != nil && openedB != nil {
		diff := openedA.Sub(*openedB)
		if diff < 0 {
			diff = -diff
		}
		if diff > openedWindowDays*24*time.Hour {
			return false
		}
	}

	return true
}
