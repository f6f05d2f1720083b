package main

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/disputegrid/kestrel/internal/domain"
)

// The benchmark declares its own mirror of the analyze response. Decode a
// real server-side Analysis through it to catch tag drift between the two.
func TestAnalyzeResponseMirrorsAnalysis(t *testing.T) {
	analysis := &domain.Analysis{
		ID:             "analysis-001",
		TotalNegatives: 2,
		RoundOneTargets: []domain.Candidate{
			{Creditor: "WELLS FARGO", TotalScore: 42, SuccessProbability: 0.75},
			{Creditor: "MIDLAND CREDIT", TotalScore: 31, SuccessProbability: 0.95},
		},
	}
	analysis.Metadata.ConflictCount = 3
	analysis.Metadata.TotalMs = 7

	body, err := json.Marshal(analysis)
	if err != nil {
		t.Fatalf("failed to marshal analysis: %v", err)
	}

	var resp AnalyzeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.TotalNegatives != 2 {
		t.Errorf("expected 2 negatives, got %d", resp.TotalNegatives)
	}
	if resp.Metadata.ConflictCount != 3 {
		t.Errorf("expected conflictCount 3, got %d", resp.Metadata.ConflictCount)
	}
	if len(resp.RoundOneTargets) != 2 {
		t.Fatalf("expected 2 shortlist targets, got %d", len(resp.RoundOneTargets))
	}
	if resp.RoundOneTargets[0].TotalScore != 42 {
		t.Errorf("expected top score 42, got %d", resp.RoundOneTargets[0].TotalScore)
	}
}

func TestGenerateBatchDeterministic(t *testing.T) {
	a := generateBatch(rand.New(rand.NewSource(7)), 0, 8, true)
	b := generateBatch(rand.New(rand.NewSource(7)), 0, 8, true)

	if a.InjectedConflicts == 0 {
		t.Fatal("expected injected conflicts in a conflicted batch")
	}
	if a.InjectedConflicts != b.InjectedConflicts || len(a.Accounts) != len(b.Accounts) {
		t.Fatalf("same seed produced different batches: %d/%d conflicts, %d/%d records",
			a.InjectedConflicts, b.InjectedConflicts, len(a.Accounts), len(b.Accounts))
	}

	clean := generateBatch(rand.New(rand.NewSource(7)), 1, 8, false)
	if clean.InjectedConflicts != 0 {
		t.Errorf("clean batch carries %d injected conflicts", clean.InjectedConflicts)
	}
}
