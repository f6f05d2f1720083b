package normalize

import (
	"testing"
)

func TestParseLateCounts(t *testing.T) {
	tests := []struct {
		name string
		text string
		want LateCounts
	}{
		{"slash delimited", "4/1/1", LateCounts{4, 1, 1}},
		{"dash delimited", "6-8-28", LateCounts{6, 8, 28}},
		{"embedded in text", "30:2 60:1 90:0", LateCounts{2, 1, 0}},
		{"more than three numbers takes first three", "1/2/3/4", LateCounts{1, 2, 3}},
		{"single positive number is day30", "4", LateCounts{Day30: 4}},
		{"single zero is all-zero", "0", LateCounts{}},
		{"two numbers is all-zero", "3/2", LateCounts{}},
		{"no numbers", "never late", LateCounts{}},
		{"empty", "", LateCounts{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseLateCounts(tt.text)
			if got != tt.want {
				t.Errorf("ParseLateCounts(%q) = %+v, want %+v", tt.text, got, tt.want)
			}
		})
	}
}

func TestParseLateCountsNeverPanics(t *testing.T) {
	inputs := []string{"", "///", "a/b/c", "99999999999999999999/1/1", "  4 / 1 / 1  "}
	for _, in := range inputs {
		_ = ParseLateCounts(in)
	}
}

func TestParseBalance(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  float64
	}{
		{"plain number", "1234.56", 1234.56},
		{"currency formatted", "$1,234.56", 1234.56},
		{"dollar only", "$500", 500},
		{"whitespace", "  $2,000  ", 2000},
		{"zero", "0", 0},
		{"negative", "-45.10", -45.10},
		{"garbage", "N/A", 0},
		{"empty", "", 0},
		{"infinity", "Inf", 0},
		{"nan", "NaN", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseBalance(tt.value); got != tt.want {
				t.Errorf("ParseBalance(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestFuzzyMatch(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want int
	}{
		{"exact", "capitalone", "capitalone", 100},
		{"empty a", "", "capitalone", 0},
		{"empty b", "capitalone", "", 0},
		{"both empty", "", "", 0},
		{"completely different", "abcd", "wxyz", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FuzzyMatch(tt.a, tt.b); got != tt.want {
				t.Errorf("FuzzyMatch(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestFuzzyMatchNearMiss(t *testing.T) {
	// One edit over ten characters should land at 90.
	if got := FuzzyMatch("capitalone", "capitalons"); got != 90 {
		t.Errorf("expected 90, got %d", got)
	}

	// Truncated bureau spellings of the same creditor should stay above the
	// fallback matching threshold.
	a := NormalizeCreditorName("CAPITAL ONE AUTO FINAN")
	b := NormalizeCreditorName("CAPITAL ONE AUTO FINANCE")
	if got := FuzzyMatch(a, b); got < 75 {
		t.Errorf("expected truncated name to score >= 75, got %d", got)
	}
}

func TestFuzzyMatchSymmetry(t *testing.T) {
	pairs := [][2]string{
		{"automax", "automaxx"},
		{"midlandfunding", "midlandcredit"},
		{"a", "abcdefg"},
	}
	for _, p := range pairs {
		if FuzzyMatch(p[0], p[1]) != FuzzyMatch(p[1], p[0]) {
			t.Errorf("FuzzyMatch not symmetric for %q/%q", p[0], p[1])
		}
	}
}

func TestNormalizeCreditorName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"suffix inc", "ACME INC", "acme"},
		{"suffix llc with punctuation", "Acme Holdings, LLC.", "acmeholdings"},
		{"standalone co stripped", "WIDGET CO", "widget"},
		{"co inside word kept", "CAPITAL ONE COSTCO", "capitalonecostco"},
		{"mixed punctuation", "J.P. Morgan & Co", "jpmorgan"},
		{"already clean", "automax", "automax"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeCreditorName(tt.in); got != tt.want {
				t.Errorf("NormalizeCreditorName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestLastFour(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"full number", "401288881234", "1234"},
		{"masked", "****1234", "1234"},
		{"masked with dashes", "XXXX-XXXX-9876", "9876"},
		{"short partial", "42", "42"},
		{"no digits", "XXXX", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LastFour(tt.in); got != tt.want {
				t.Errorf("LastFour(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	if ParseDate("") != nil {
		t.Error("empty date should parse to nil")
	}
	if ParseDate("not a date") != nil {
		t.Error("garbage date should parse to nil")
	}

	got := ParseDate("2025-02-20")
	if got == nil {
		t.Fatal("ISO date should parse")
	}
	if got.Year() != 2025 || int(got.Month()) != 2 || got.Day() != 20 {
		t.Errorf("unexpected date: %v", got)
	}

	if ParseDate("03/15/2024") == nil {
		t.Error("US-format date should parse")
	}
	if ParseDate("Jan 5, 2023") == nil {
		t.Error("long-form date should parse")
	}
}
