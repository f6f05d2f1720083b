package domain

// Candidate is a scored dispute target: one cluster, its conflicts, and the
// derived ranking fields. Candidates are produced once per cluster per run
// and never mutated.
type Candidate struct {
	Cluster   *Cluster   `json:"cluster"`
	Conflicts []Conflict `json:"conflicts"`

	// TotalScore ranks dispute-worthiness (ROI); SuccessProbability reflects
	// argument strength. The two are deliberately independent.
	TotalScore         int     `json:"totalScore"`
	SuccessProbability float64 `json:"successProbability"`

	// Representative display fields, fixed bureau priority.
	Creditor string   `json:"creditor"`
	Balance  float64  `json:"balance"`
	Status   string   `json:"status"`
	Bureaus  []Bureau `json:"bureaus"`
}
