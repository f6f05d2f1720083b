// Package normalize provides the parsing and canonicalization primitives the
// reconciliation pipeline is built on. Every function here is total: garbage
// in produces a safe zero value, never an error, because a single malformed
// field must not fail a record or a batch.
package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
)

// LateCounts is the structured late-payment triple derived from free text
// such as "4/1/1" or "6-8-28".
type LateCounts struct {
	Day30 int `json:"day30"`
	Day60 int `json:"day60"`
	Day90 int `json:"day90"`
}

// Any reports whether any bucket is non-zero.
func (lc LateCounts) Any() bool {
	return lc.Day30 != 0 || lc.Day60 != 0 || lc.Day90 != 0
}

var digitsRe = regexp.MustCompile(`\d+`)

// ParseLateCounts extracts a 30/60/90-day triple from bureau free text.
// Three or more embedded numbers are taken as the triple in order. A single
// positive number counts as 30-day lates only. Anything else is all-zero.
func ParseLateCounts(text string) LateCounts {
	matches := digitsRe.FindAllString(text, -1)
	nums := make([]int, 0, len(matches))
	for _, m := range matches {
		if n, err := strconv.Atoi(m); err == nil {
			nums = append(nums, n)
		}
	}

	switch {
	case len(nums) >= 3:
		return LateCounts{Day30: nums[0], Day60: nums[1], Day90: nums[2]}
	case len(nums) == 1 && nums[0] > 0:
		return LateCounts{Day30: nums[0]}
	default:
		return LateCounts{}
	}
}

// ParseBalance converts a balance value to a number. Currency formatting
// ("$", thousands separators) is stripped; non-finite or unparseable values
// default to 0.
func ParseBalance(value string) float64 {
	s := strings.TrimSpace(value)
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// FuzzyMatch scores string similarity from 0 to 100 using Levenshtein edit
// distance over the longer operand. An exact match scores 100; if either
// side is empty the score is 0.
func FuzzyMatch(a, b string) int {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 100
	}

	dist := levenshtein.ComputeDistance(a, b)
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}

	score := int(math.Round((1 - float64(dist)/float64(maxLen)) * 100))
	if score < 0 {
		return 0
	}
	return score
}

var (
	corpSuffixRe = regexp.MustCompile(`(?i)\b(?:INC|LLC|LTD|CORP|CO)\b`)
	nonAlnumRe   = regexp.MustCompile(`[^a-z0-9]+`)
)

// NormalizeCreditorName canonicalizes a creditor name for matching: corporate
// suffix tokens are dropped, everything non-alphanumeric is stripped, and the
// result is lower-cased.
func NormalizeCreditorName(name string) string {
	s := corpSuffixRe.ReplaceAllString(name, " ")
	s = strings.ToLower(s)
	s = nonAlnumRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// LastFour returns the trailing digits of an account number, up to four.
// Masked numbers like "****1234" reduce to their visible digits; a number
// with no digits at all yields "".
func LastFour(accountNumber string) string {
	var b strings.Builder
	for _, r := range accountNumber {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) > 4 {
		return digits[len(digits)-4:]
	}
	return digits
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"01/02/2006",
	"1/2/2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2006-01",
}

// ParseDate parses a bureau-reported date in any of the formats extraction
// produces. Unparseable or empty input yields nil.
func ParseDate(value string) *time.Time {
	s := strings.TrimSpace(value)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
