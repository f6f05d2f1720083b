package classify

import "github.com/disputegrid/kestrel/internal/domain"

// DefaultLexiconVersion is the built-in lexicon shipped with the engine.
// Operator-supplied versions load from the repository and swap in at runtime.
const DefaultLexiconVersion = "2025.1"

// DefaultLexicon returns the built-in keyword table. Keywords are stored
// lower-case; matching is substring over lower-cased record text.
func DefaultLexicon() *domain.Lexicon {
	return &domain.Lexicon{
		Version: DefaultLexiconVersion,
		Enabled: true,

		NegativeStatuses: []string{
			"charge-off",
			"charge off",
			"charged off",
			"collection",
			"repossession",
			"repossessed",
			"voluntary surrender",
			"foreclosure",
			"past due",
			"past-due",
			"delinquent",
			"written off",
			"settled for less",
			"default",
			"late",
		},

		PositiveStatuses: []string{
			"current",
			"paid as agreed",
			"pays as agreed",
			"never late",
			"good standing",
			"paid, closed",
			"paid in full",
			"open/current",
		},

		DerogatoryRemarks: []string{
			"repossession",
			"foreclosure",
			"derogatory",
			"adverse",
			"charge off",
			"charged off",
			"collection",
			"profit and loss",
			"settlement",
			"surrender",
		},

		CollectionAgencies: []string{
			"midland",
			"portfolio recovery",
			"lvnv",
			"jefferson capital",
			"enhanced recovery",
			"convergent",
			"ic system",
			"cbe group",
			"afni",
			"transworld",
			"radius global",
			"caine & weiner",
			"credence",
			"nationwide recovery",
		},

		CollectionKeywords: []string{
			"collection",
			"placed for collection",
		},

		ChargeOffKeywords: []string{
			"charge off",
			"charge-off",
			"charged off",
			"written off",
			"profit and loss",
			"profit & loss",
		},

		LatePaymentKeywords: []string{
			"late",
			"past due",
			"past-due",
			"delinquent",
		},

		JudgmentKeywords: []string{
			"judgment",
			"judgement",
			"lien",
			"bankruptcy",
			"foreclosure",
			"repossession",
		},
	}
}
