// Package reasoning is the sole channel to the language model. It exposes
// typed operations for the research loop and enforces a fallback contract
// when the model's structured output is malformed.
package reasoning

// SearchStrategy is the model's plan for the next research round.
type SearchStrategy struct {
	SearchQueries     []string `json:"search_queries"`
	ResearchRationale string   `json:"research_rationale"`
	ExpectedFindings  string   `json:"expected_findings"`
}

// ConceptExtraction holds concepts pulled from new research content.
type ConceptExtraction struct {
	KeyConcepts []string `json:"key_concepts"`
}

// ComprehensiveSummary is the structured shape requested for summary
// updates. It is rendered back to text before storage.
type ComprehensiveSummary struct {
	MainAnswer         string   `json:"main_answer"`
	KeyFindings        []string `json:"key_findings"`
	SupportingEvidence []string `json:"supporting_evidence"`
	RelatedConcepts    []string `json:"related_concepts"`
	KnowledgeGaps      []string `json:"knowledge_gaps"`
	ConfidenceLevel    string   `json:"confidence_level"`
}

// ResearchCompleteness is the model's judgment on whether to keep going.
type ResearchCompleteness struct {
	ShouldContinue          bool     `json:"should_continue"`
	CompletenessScore       float64  `json:"completeness_score"`
	Reasoning               string   `json:"reasoning"`
	MissingAspects          []string `json:"missing_aspects"`
	RecommendedNextSearches []string `json:"recommended_next_searches"`
}

// SourceValidation rates the credibility and relevance of one source.
type SourceValidation struct {
	CredibilityScore int    `json:"credibility_score"`
	RelevanceScore   int    `json:"relevance_score"`
	OverallQuality   int    `json:"overall_quality"`
	SourceType       string `json:"source_type"`
	Recommendation   string `json:"recommendation"`
	Reasoning        string `json:"reasoning"`
}

// Source validation recommendations.
const (
	RecommendInclude = "include"
	RecommendExclude = "exclude"
	RecommendReview  = "review"
)

// QueryRefinement holds rewritten queries from the refinement operation.
type QueryRefinement struct {
	RefinedQueries []string `json:"refined_queries"`
}

// RecoveryAlternative is one suggested workaround strategy.
type RecoveryAlternative struct {
	Strategy string   `json:"strategy"`
	Queries  []string `json:"queries"`
}

// ErrorRecovery holds alternative approaches when a round fails.
type ErrorRecovery struct {
	Alternatives []RecoveryAlternative `json:"alternatives"`
	Explanation  string                `json:"explanation"`
}
