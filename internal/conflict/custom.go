package conflict

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/disputegrid/kestrel/internal/domain"
	"github.com/disputegrid/kestrel/internal/normalize"
)

// RuleEngine evaluates operator-defined CEL conflict rules against clusters.
// Rules extend the five built-in detectors; they feed the capped score term
// but never the success-probability table. Rules are compiled once at load
// and evaluated in rule-ID order so pipeline output stays deterministic.
type RuleEngine struct {
	mu       sync.RWMutex
	env      *cel.Env
	compiled map[string]*compiledRule
}

type compiledRule struct {
	config  *domain.ConflictRule
	program cel.Program
}

// NewRuleEngine creates an empty rule engine with the cluster-fact
// environment.
func NewRuleEngine() (*RuleEngine, error) {
	env, err := cel.NewEnv(
		cel.Variable("coverage", cel.IntType),
		cel.Variable("balances", cel.ListType(cel.DoubleType)),
		cel.Variable("max_balance", cel.DoubleType),
		cel.Variable("min_balance", cel.DoubleType),
		cel.Variable("statuses", cel.ListType(cel.StringType)),
		cel.Variable("late_counts", cel.ListType(cel.StringType)),
		cel.Variable("creditor", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &RuleEngine{
		env:      env,
		compiled: make(map[string]*compiledRule),
	}, nil
}

// ValidateRule compiles a rule without loading it.
func (e *RuleEngine) ValidateRule(cfg *domain.ConflictRule) error {
	if cfg == nil {
		return fmt.Errorf("rule config is required")
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	_, err := e.compileRule(cfg)
	return err
}

// LoadRule compiles and loads a rule into the engine.
func (e *RuleEngine) LoadRule(cfg *domain.ConflictRule) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	compiled, err := e.compileRule(cfg)
	if err != nil {
		return err
	}

	e.compiled[cfg.ID] = compiled
	return nil
}

// LoadRules compiles and loads all enabled rules.
func (e *RuleEngine) LoadRules(configs []*domain.ConflictRule) error {
	for _, cfg := range configs {
		if cfg.Enabled {
			if err := e.LoadRule(cfg); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReloadRules replaces all loaded rules, enabling hot reload from the
// repository.
func (e *RuleEngine) ReloadRules(configs []*domain.ConflictRule) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := make(map[string]*compiledRule)
	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}
		compiled, err := e.compileRule(cfg)
		if err != nil {
			return err
		}
		next[cfg.ID] = compiled
	}

	e.compiled = next
	return nil
}

// RuleCount returns the number of loaded rules.
func (e *RuleEngine) RuleCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.compiled)
}

// Rules returns the loaded rule configurations.
func (e *RuleEngine) Rules() []*domain.ConflictRule {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]*domain.ConflictRule, 0, len(e.compiled))
	for _, c := range e.compiled {
		out = append(out, c.config)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Close clears all loaded rules.
func (e *RuleEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.compiled = make(map[string]*compiledRule)
	return nil
}

// Evaluate runs all loaded rules against a cluster and returns the custom
// conflicts for rules that fire. Evaluation errors skip the rule rather than
// failing the cluster.
func (e *RuleEngine) Evaluate(cluster *domain.Cluster) []domain.Conflict {
	e.mu.RLock()
	ids := make([]string, 0, len(e.compiled))
	for id := range e.compiled {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	rules := make([]*compiledRule, 0, len(ids))
	for _, id := range ids {
		rules = append(rules, e.compiled[id])
	}
	e.mu.RUnlock()

	if len(rules) == 0 || cluster == nil || cluster.Coverage() == 0 {
		return nil
	}

	activation := clusterActivation(cluster)

	var conflicts []domain.Conflict
	for _, rule := range rules {
		out, _, err := rule.program.Eval(activation)
		if err != nil {
			slog.Warn("custom conflict rule evaluation failed",
				"rule_id", rule.config.ID,
				"error", err,
			)
			continue
		}

		fired, ok := out.(types.Bool)
		if !ok || !bool(fired) {
			continue
		}

		severity := rule.config.Severity
		if severity <= 0 {
			severity = 5
		}
		description := rule.config.Description
		if description == "" {
			description = rule.config.Name
		}

		details := make(map[domain.Bureau]string, 3)
		for _, b := range cluster.Bureaus() {
			r := cluster.Slot(b)
			details[b] = fmt.Sprintf("balance=%s status=%s", r.Balance, r.StatusText())
		}

		conflicts = append(conflicts, domain.Conflict{
			Type:        domain.ConflictCustom,
			Severity:    severity,
			Description: description,
			Bureaus:     cluster.Bureaus(),
			Details:     details,
			RuleID:      rule.config.ID,
		})
	}

	return conflicts
}

// clusterActivation exposes read-only cluster facts to CEL, in bureau
// priority order.
func clusterActivation(cluster *domain.Cluster) map[string]any {
	var (
		balances   []float64
		statuses   []string
		lateCounts []string
	)
	minBal, maxBal := 0.0, 0.0

	for i, r := range cluster.Records() {
		bal := normalize.ParseBalance(r.Balance.String())
		balances = append(balances, bal)
		statuses = append(statuses, r.StatusText())
		lateCounts = append(lateCounts, r.LatePayments)
		if i == 0 {
			minBal, maxBal = bal, bal
			continue
		}
		if bal < minBal {
			minBal = bal
		}
		if bal > maxBal {
			maxBal = bal
		}
	}

	creditor := ""
	if rep := cluster.Representative(); rep != nil {
		creditor = normalize.NormalizeCreditorName(rep.Name)
	}

	return map[string]any{
		"coverage":    cluster.Coverage(),
		"balances":    balances,
		"max_balance": maxBal,
		"min_balance": minBal,
		"statuses":    statuses,
		"late_counts": lateCounts,
		"creditor":    creditor,
	}
}

func (e *RuleEngine) compileRule(cfg *domain.ConflictRule) (*compiledRule, error) {
	ast, issues := e.env.Compile(cfg.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile rule %s: %w", cfg.ID, issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("rule %s: expression must return bool, got %s", cfg.ID, ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for rule %s: %w", cfg.ID, err)
	}

	return &compiledRule{
		config:  cfg,
		program: program,
	}, nil
}
