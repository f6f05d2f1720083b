// Package pipeline composes the reconciliation engine into one deterministic
// pass: link per-bureau records into clusters, detect conflicts, classify
// negatives, rank dispute candidates, and aggregate the result. The pipeline
// holds no state between runs and is safe to invoke concurrently for
// independent inputs.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/disputegrid/kestrel/internal/classify"
	"github.com/disputegrid/kestrel/internal/conflict"
	"github.com/disputegrid/kestrel/internal/domain"
	"github.com/disputegrid/kestrel/internal/linker"
	"github.com/disputegrid/kestrel/internal/normalize"
	"github.com/disputegrid/kestrel/internal/priority"
)

// EngineVersion is stamped into every analysis for audit trails.
const EngineVersion = "kestrel-1.0"

// Round-1 shortlist bounds.
const (
	shortlistLimit          = 5
	shortlistMinProbability = 0.65
)

// Pipeline wires the engine components together.
type Pipeline struct {
	linker      linker.Matcher
	classifier  *classify.Classifier
	detector    *conflict.Detector
	customRules *conflict.RuleEngine
	prioritizer *priority.Prioritizer
}

// New creates a pipeline. Nil components fall back to defaults; customRules
// may stay nil to run the five built-in conflict rules only.
func New(m linker.Matcher, c *classify.Classifier, d *conflict.Detector, customRules *conflict.RuleEngine, p *priority.Prioritizer) *Pipeline {
	if m == nil {
		m = linker.NewGreedy()
	}
	if c == nil {
		c = classify.New(nil)
	}
	if d == nil {
		d = conflict.NewDetector()
	}
	if p == nil {
		p = priority.New()
	}
	return &Pipeline{
		linker:      m,
		classifier:  c,
		detector:    d,
		customRules: customRules,
		prioritizer: p,
	}
}

// Classifier returns the pipeline's classifier, exposed for lexicon reloads.
func (p *Pipeline) Classifier() *classify.Classifier {
	return p.classifier
}

// CustomRules returns the custom rule engine, or nil when none is wired.
func (p *Pipeline) CustomRules() *conflict.RuleEngine {
	return p.customRules
}

// Analyze runs the full pipeline against a batch of records, timestamped now.
func (p *Pipeline) Analyze(ctx context.Context, records []domain.AccountRecord) *domain.Analysis {
	return p.AnalyzeAt(ctx, records, time.Now().UTC())
}

// AnalyzeAt runs the pipeline with an explicit as-of time. Recency scoring
// keys off asOf, so a run is exactly reproducible for a fixed input and time.
func (p *Pipeline) AnalyzeAt(ctx context.Context, records []domain.AccountRecord, asOf time.Time) *domain.Analysis {
	start := time.Now()

	clusters := p.linker.Link(records)
	linkMs := time.Since(start).Milliseconds()

	detectStart := time.Now()
	conflictCount := 0
	inputs := make([]priority.Input, 0, len(clusters))
	for _, cluster := range clusters {
		conflicts := p.detector.Detect(cluster)
		if p.customRules != nil {
			conflicts = append(conflicts, p.customRules.Evaluate(cluster)...)
		}
		conflictCount += len(conflicts)

		if p.isNegative(cluster) {
			inputs = append(inputs, priority.Input{Cluster: cluster, Conflicts: conflicts})
		}
	}
	detectMs := time.Since(detectStart).Milliseconds()

	candidates := p.prioritizer.Rank(inputs, asOf)

	analysis := &domain.Analysis{
		ID:                uuid.New().String(),
		Timestamp:         asOf,
		TotalNegatives:    len(candidates),
		Accounts:          make([]domain.NegativeAccount, 0, len(candidates)),
		CategoryBreakdown: make(map[domain.Category]int),
		SeverityBreakdown: make(map[domain.Severity]int),
		Previews:          make([]domain.AccountPreview, 0, len(candidates)),
	}

	for _, cand := range candidates {
		severity, category := p.classifyCluster(cand.Cluster)

		analysis.TotalDebt += cand.Balance
		analysis.DisputableItems += cand.Cluster.Coverage()
		analysis.CategoryBreakdown[category]++
		analysis.SeverityBreakdown[severity]++

		analysis.Accounts = append(analysis.Accounts, domain.NegativeAccount{
			Creditor:   cand.Creditor,
			Balance:    cand.Balance,
			Status:     cand.Status,
			Bureaus:    cand.Bureaus,
			Severity:   severity,
			Category:   category,
			Disputable: true,
			Conflicts:  cand.Conflicts,
		})

		analysis.Previews = append(analysis.Previews, domain.AccountPreview{
			Creditor:      cand.Creditor,
			AccountNumber: maskAccountNumber(cand.Cluster),
			Balance:       cand.Balance,
			Status:        cand.Status,
			Bureaus:       cand.Bureaus,
		})

		if len(analysis.RoundOneTargets) < shortlistLimit &&
			cand.SuccessProbability >= shortlistMinProbability {
			analysis.RoundOneTargets = append(analysis.RoundOneTargets, cand)
		}
	}

	customRuleCount := 0
	if p.customRules != nil {
		customRuleCount = p.customRules.RuleCount()
	}

	analysis.Metadata = domain.AnalysisMetadata{
		RecordCount:     len(records),
		ClusterCount:    len(clusters),
		ConflictCount:   conflictCount,
		LinkMs:          linkMs,
		DetectMs:        detectMs,
		TotalMs:         time.Since(start).Milliseconds(),
		LexiconVersion:  p.classifier.Lexicon().Version,
		CustomRuleCount: customRuleCount,
		EngineVersion:   EngineVersion,
	}

	return analysis
}

// isNegative reports whether any populated slot is a derogatory item.
func (p *Pipeline) isNegative(cluster *domain.Cluster) bool {
	for _, r := range cluster.Records() {
		if p.classifier.IsNegative(r) {
			return true
		}
	}
	return false
}

// classifyCluster derives cluster-level severity and category from the first
// negative slot in bureau priority order, so the classification matches the
// record that makes the tradeline derogatory even when the representative
// bureau reports it clean.
func (p *Pipeline) classifyCluster(cluster *domain.Cluster) (domain.Severity, domain.Category) {
	for _, r := range cluster.Records() {
		if p.classifier.IsNegative(r) {
			return p.classifier.Severity(r), p.classifier.Category(r)
		}
	}
	rep := cluster.Representative()
	return p.classifier.Severity(rep), p.classifier.Category(rep)
}

// maskAccountNumber reduces the representative account number to its
// trailing digits for UI display.
func maskAccountNumber(cluster *domain.Cluster) string {
	for _, r := range cluster.Records() {
		if last4 := normalize.LastFour(r.AccountNumber); last4 != "" {
			return "****" + last4
		}
	}
	return ""
}
