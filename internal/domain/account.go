// Package domain defines the core interfaces and types for Kestrel.
package domain

import (
	"bytes"
	"strings"
)

// Bureau identifies one of the three national credit-reporting agencies.
type Bureau string

const (
	BureauExperian   Bureau = "experian"
	BureauEquifax    Bureau = "equifax"
	BureauTransUnion Bureau = "transunion"
)

// AllBureaus lists the bureaus in representative-priority order.
// This order is load-bearing: slot iteration, representative selection,
// and linker scan order all follow it.
var AllBureaus = [3]Bureau{BureauExperian, BureauEquifax, BureauTransUnion}

// ParseBureau maps a free-form bureau string to one of the three recognized
// values. Unrecognized strings fall back to Experian; upstream extraction is
// expected to have coerced the identifier already, so this is a last resort.
func ParseBureau(s string) Bureau {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "experian", "exp":
		return BureauExperian
	case "equifax", "eqf", "efx":
		return BureauEquifax
	case "transunion", "trans union", "tu":
		return BureauTransUnion
	default:
		return BureauExperian
	}
}

// FlexString accepts either a JSON string or a JSON number and preserves the
// raw text. Upstream extraction emits balances both ways ("$1,234.56" and
// 1234.56), and the engine must not reject a batch over it.
type FlexString string

// UnmarshalJSON never returns an error: unusable values decode to "".
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		if len(data) >= 2 && data[len(data)-1] == '"' {
			*f = FlexString(data[1 : len(data)-1])
		} else {
			*f = ""
		}
		return nil
	}
	// Bare number, bool, or structured value: numbers keep their text form,
	// anything else is unusable.
	switch data[0] {
	case '{', '[', 't', 'f':
		*f = ""
	default:
		*f = FlexString(data)
	}
	return nil
}

func (f FlexString) String() string { return string(f) }

// AccountRecord is a single tradeline as reported by one bureau. Every field
// except Bureau may be partial, masked, or missing; normalization happens
// downstream and never fails a record.
type AccountRecord struct {
	Name             string     `json:"name"`
	AccountNumber    string     `json:"accountNumber,omitempty"`
	Balance          FlexString `json:"balance,omitempty"`
	Status           string     `json:"status,omitempty"`
	PaymentStatus    string     `json:"paymentStatus,omitempty"`
	LatePayments     string     `json:"latePayments,omitempty"`
	Remarks          string     `json:"remarks,omitempty"`
	AccountType      string     `json:"accountType,omitempty"`
	Bureau           Bureau     `json:"bureau"`
	DateOpened       string     `json:"dateOpened,omitempty"`
	LastActivity     string     `json:"lastActivity,omitempty"`
	NegativeReason   string     `json:"negativeReason,omitempty"`
	OriginalCreditor string     `json:"originalCreditor,omitempty"`
}

// StatusText returns the status field, falling back to payment status when
// the bureau reported only one of the two.
func (r *AccountRecord) StatusText() string {
	if r.Status != "" {
		return r.Status
	}
	return r.PaymentStatus
}

// Severity classifies how damaging a negative tradeline is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Category groups negative tradelines by derogatory kind.
type Category string

const (
	CategoryCollections  Category = "collections"
	CategoryChargeOffs   Category = "charge_offs"
	CategoryLatePayments Category = "late_payments"
	CategoryJudgments    Category = "judgments"
	CategoryOther        Category = "other"
)
