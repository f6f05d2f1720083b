package domain

import "time"

// Analysis is the complete result of one pipeline run over a batch of
// per-bureau records. It is consumed verbatim by the UI, the letter-drafting
// module, and reporting surfaces.
type Analysis struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId"`
	BatchID   string    `json:"batchId"`
	Timestamp time.Time `json:"timestamp"`

	// Aggregate totals over negative clusters.
	TotalNegatives  int     `json:"totalNegatives"`
	TotalDebt       float64 `json:"totalDebt"`
	DisputableItems int     `json:"disputableItems"`

	// Full list of negative tradelines.
	Accounts []NegativeAccount `json:"accounts"`

	// Breakdown counts.
	CategoryBreakdown map[Category]int `json:"categoryBreakdown"`
	SeverityBreakdown map[Severity]int `json:"severityBreakdown"`

	// Flattened preview cards for UI display.
	Previews []AccountPreview `json:"previews"`

	// RoundOneTargets is the first-dispute shortlist: at most five candidates
	// with success probability >= 0.65, highest score first.
	RoundOneTargets []Candidate `json:"roundOneTargets"`

	Metadata AnalysisMetadata `json:"metadata"`
}

// NegativeAccount is one negative tradeline in the analysis output.
type NegativeAccount struct {
	Creditor   string     `json:"creditor"`
	Balance    float64    `json:"balance"`
	Status     string     `json:"status"`
	Bureaus    []Bureau   `json:"bureaus"`
	Severity   Severity   `json:"severity"`
	Category   Category   `json:"category"`
	Disputable bool       `json:"disputable"`
	Conflicts  []Conflict `json:"conflicts"`
}

// AccountPreview is a flattened card for UI display. The account number is
// masked down to its trailing digits.
type AccountPreview struct {
	Creditor      string   `json:"creditor"`
	AccountNumber string   `json:"accountNumber"`
	Balance       float64  `json:"balance"`
	Status        string   `json:"status"`
	Bureaus       []Bureau `json:"bureaus"`
}

// AnalysisMetadata carries processing information for audit trails.
type AnalysisMetadata struct {
	TraceID         string `json:"traceId"`
	RecordCount     int    `json:"recordCount"`
	ClusterCount    int    `json:"clusterCount"`
	ConflictCount   int    `json:"conflictCount"`
	LinkMs          int64  `json:"linkMs"`
	DetectMs        int64  `json:"detectMs"`
	TotalMs         int64  `json:"totalMs"`
	LexiconVersion  string `json:"lexiconVersion"`
	CustomRuleCount int    `json:"customRuleCount"`
	EngineVersion   string `json:"engineVersion"`
}

// Batch is a caller-supplied set of raw records identified for caching and
// async reprocessing. The engine itself never keys anything on it; batch
// identity lives entirely in the service layer.
type Batch struct {
	ID        string          `json:"id"`
	TenantID  string          `json:"tenantId"`
	Accounts  []AccountRecord `json:"accounts"`
	CreatedAt time.Time       `json:"createdAt"`
}
