package domain

import "testing"

// The type tags are a published contract: clients and the integration suite
// match on the literal strings, so renaming a constant's value is a breaking
// change even when every internal reference still compiles.
func TestConflictTypeWireTags(t *testing.T) {
	tests := []struct {
		typ  ConflictType
		want string
	}{
		{ConflictStatus, "status"},
		{ConflictBalance, "balance"},
		{ConflictLatePayment, "late_payment"},
		{ConflictImpossibleTimeline, "impossible_timeline"},
		{ConflictPaymentPolarity, "payment_status_polarity"},
		{ConflictCustom, "custom"},
	}

	for _, tt := range tests {
		if string(tt.typ) != tt.want {
			t.Errorf("expected wire tag %q, got %q", tt.want, string(tt.typ))
		}
	}
}

func TestConflictWeights(t *testing.T) {
	if WeightImpossibleTimeline != 10 {
		t.Errorf("impossible timeline must carry the maximum weight, got %d", WeightImpossibleTimeline)
	}
	for name, w := range map[string]int{
		"status":   WeightStatus,
		"balance":  WeightBalance,
		"late":     WeightLatePayment,
		"polarity": WeightPaymentPolarity,
	} {
		if w >= WeightImpossibleTimeline {
			t.Errorf("%s weight %d must stay below the timeline weight", name, w)
		}
	}
}
