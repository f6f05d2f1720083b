package classify

import (
	"testing"

	"github.com/disputegrid/kestrel/internal/domain"
)

func TestIsNegative(t *testing.T) {
	c := New(nil)

	tests := []struct {
		name   string
		record domain.AccountRecord
		want   bool
	}{
		{
			"charge-off status",
			domain.AccountRecord{Name: "CAPITAL ONE", Status: "Charge-Off"},
			true,
		},
		{
			"collection payment status",
			domain.AccountRecord{Name: "MIDLAND FUNDING", PaymentStatus: "Placed for collection"},
			true,
		},
		{
			"repossession status",
			domain.AccountRecord{Name: "AUTOMAX", Status: "Voluntary Surrender"},
			true,
		},
		{
			"late counts only",
			domain.AccountRecord{Name: "CHASE", Status: "Open", LatePayments: "2/0/0"},
			true,
		},
		{
			"derogatory remarks",
			domain.AccountRecord{Name: "WELLS FARGO", Status: "Closed", Remarks: "Account information disputed; derogatory"},
			true,
		},
		{
			"collection type with balance",
			domain.AccountRecord{Name: "UNKNOWN AGENCY", AccountType: "Collection", Balance: "450"},
			true,
		},
		{
			"collection type paid off",
			domain.AccountRecord{Name: "UNKNOWN AGENCY", AccountType: "Collection", Balance: "450", Status: "Paid in full"},
			false,
		},
		{
			"collection type zero balance",
			domain.AccountRecord{Name: "UNKNOWN AGENCY", AccountType: "Collection", Balance: "0"},
			false,
		},
		{
			"clean open account",
			domain.AccountRecord{Name: "AMEX", Status: "Open", LatePayments: "0/0/0", Balance: "1200"},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.IsNegative(&tt.record); got != tt.want {
				t.Errorf("IsNegative() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSeverity(t *testing.T) {
	c := New(nil)

	tests := []struct {
		name   string
		record domain.AccountRecord
		want   domain.Severity
	}{
		{
			"repossession over 5000 is critical",
			domain.AccountRecord{Status: "Repossession", Balance: "8200"},
			domain.SeverityCritical,
		},
		{
			"foreclosure over 5000 is critical",
			domain.AccountRecord{Status: "Foreclosure started", Balance: "$150,000"},
			domain.SeverityCritical,
		},
		{
			"repossession at exactly 5000 is not critical",
			domain.AccountRecord{Status: "Repossession", Balance: "5000"},
			domain.SeverityMedium,
		},
		{
			"charge-off over 2000 is high",
			domain.AccountRecord{Status: "Charged off as bad debt", Balance: "3500"},
			domain.SeverityHigh,
		},
		{
			"collection over 2000 is high",
			domain.AccountRecord{Status: "In Collection", Balance: "2500"},
			domain.SeverityHigh,
		},
		{
			"three 90-day lates is high",
			domain.AccountRecord{Status: "Open", LatePayments: "0/0/3", Balance: "100"},
			domain.SeverityHigh,
		},
		{
			"balance over 500 is medium",
			domain.AccountRecord{Status: "Past Due", Balance: "900"},
			domain.SeverityMedium,
		},
		{
			"small balance is low",
			domain.AccountRecord{Status: "Past Due", Balance: "120"},
			domain.SeverityLow,
		},
		{
			"empty record is low",
			domain.AccountRecord{},
			domain.SeverityLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Severity(&tt.record); got != tt.want {
				t.Errorf("Severity() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCategory(t *testing.T) {
	c := New(nil)

	tests := []struct {
		name   string
		record domain.AccountRecord
		want   domain.Category
	}{
		{
			"explicit collection",
			domain.AccountRecord{Name: "SOME LENDER", Status: "Placed for collection"},
			domain.CategoryCollections,
		},
		{
			"known agency name without the word collection",
			domain.AccountRecord{Name: "MIDLAND FUNDING LLC", Status: "Open"},
			domain.CategoryCollections,
		},
		{
			"charge off",
			domain.AccountRecord{Name: "CAPITAL ONE", Status: "Charged off as bad debt"},
			domain.CategoryChargeOffs,
		},
		{
			"written off",
			domain.AccountRecord{Name: "SYNCHRONY", Remarks: "Written off"},
			domain.CategoryChargeOffs,
		},
		{
			"late payments",
			domain.AccountRecord{Name: "CHASE", Status: "30 days past due"},
			domain.CategoryLatePayments,
		},
		{
			"repossession is judgments bucket",
			domain.AccountRecord{Name: "AUTOMAX", Remarks: "Repossession"},
			domain.CategoryJudgments,
		},
		{
			"bankruptcy",
			domain.AccountRecord{Name: "DISCOVER", Remarks: "Included in bankruptcy"},
			domain.CategoryJudgments,
		},
		{
			"no keywords",
			domain.AccountRecord{Name: "ACME BANK", Status: "Closed"},
			domain.CategoryOther,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Category(&tt.record); got != tt.want {
				t.Errorf("Category() = %v, want %v", got, tt.want)
			}
		})
	}
}

// Collections outranks charge-offs when both appear: priority order is part
// of the contract.
func TestCategoryPriority(t *testing.T) {
	c := New(nil)
	r := domain.AccountRecord{
		Name:   "PORTFOLIO RECOVERY",
		Status: "Charged off, sold to collection agency",
	}
	if got := c.Category(&r); got != domain.CategoryCollections {
		t.Errorf("expected collections to win priority, got %v", got)
	}
}

func TestReloadSwapsLexicon(t *testing.T) {
	c := New(nil)

	r := domain.AccountRecord{Name: "ACME", Status: "zorched"}
	if c.IsNegative(&r) {
		t.Fatal("unknown status should not be negative under default lexicon")
	}

	custom := DefaultLexicon()
	custom.Version = "test"
	custom.NegativeStatuses = append(custom.NegativeStatuses, "zorched")
	c.Reload(custom)

	if !c.IsNegative(&r) {
		t.Error("reloaded lexicon should flag the custom keyword")
	}
	if c.Lexicon().Version != "test" {
		t.Errorf("expected active version test, got %s", c.Lexicon().Version)
	}
}
