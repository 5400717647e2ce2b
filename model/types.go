// Package model provides domain types shared across packages.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle state of a research run.
// Terminal states (Completed, Failed) are absorbing.
type Status int

const (
	StatusInitialized Status = iota
	StatusInProgress
	StatusCompleted
	StatusFailed
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusInitialized:
		return "initialized"
	case StatusInProgress:
		return "in_progress"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ParseStatus parses a status from its string form.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "initialized":
		return StatusInitialized, nil
	case "in_progress":
		return StatusInProgress, nil
	case "completed":
		return StatusCompleted, nil
	case "failed":
		return StatusFailed, nil
	default:
		return 0, fmt.Errorf("unknown status: %q", s)
	}
}

// IsTerminal reports whether the status is one of the absorbing end states.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ConfidenceLevel classifies how much a completeness assessment can be trusted.
type ConfidenceLevel int

const (
	ConfidenceLow ConfidenceLevel = iota
	ConfidenceMedium
	ConfidenceHigh
)

// String returns the string representation of the confidence level.
func (c ConfidenceLevel) String() string {
	switch c {
	case ConfidenceLow:
		return "low"
	case ConfidenceMedium:
		return "medium"
	case ConfidenceHigh:
		return "high"
	default:
		return "unknown"
	}
}

// ConfidenceForScore derives a confidence level from a completeness score.
// The level is always computed from the score, never taken from the model's
// own confidence claim.
func ConfidenceForScore(score float64) ConfidenceLevel {
	switch {
	case score >= 80:
		return ConfidenceHigh
	case score >= 60:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// SearchQuery is a single planned query with the model's rationale.
type SearchQuery struct {
	Text             string    `json:"text"`
	Rationale        string    `json:"rationale"`
	ExpectedFindings string    `json:"expected_findings"`
	Iteration        int       `json:"iteration"`
	Timestamp        time.Time `json:"timestamp"`
}

// SearchResult is one normalized web search hit. Identity is the URL alone:
// two results with the same URL are the same source regardless of content
// drift. Immutable after creation.
type SearchResult struct {
	URL            string    `json:"url"`
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	Snippet        string    `json:"snippet"`
	RelevanceScore float64   `json:"relevance_score"`
	Timestamp      time.Time `json:"timestamp"`
}

// IterationRecord captures one completed loop round. Append-only; never
// mutated after creation.
type IterationRecord struct {
	Index                int            `json:"index"`
	QueriesIssued        []SearchQuery  `json:"queries_issued"`
	NewResults           []SearchResult `json:"new_results"`
	NewResultCount       int            `json:"new_result_count"`
	SummaryLengthAtStart int            `json:"summary_length_at_start"`
	NewConceptsFound     []string       `json:"new_concepts_found"`
	Timestamp            time.Time      `json:"timestamp"`
}

// Assessment is the gateway's judgment of research completeness.
// ConfidenceLevel is derived from CompletenessScore via ConfidenceForScore.
type Assessment struct {
	ShouldContinue      bool            `json:"should_continue"`
	CompletenessScore   float64         `json:"completeness_score"`
	Reasoning           string          `json:"reasoning"`
	MissingAspects      []string        `json:"missing_aspects"`
	RecommendedSearches []string        `json:"recommended_searches"`
	ConfidenceLevel     ConfidenceLevel `json:"confidence_level"`
}

// Config holds the knobs for a single research run. Immutable for the
// lifetime of the run.
type Config struct {
	MaxIterations           int
	MaxResultsPerQuery      int
	MinCompletenessScore    float64
	SearchTimeout           time.Duration
	EnableConceptExtraction bool
	EnableSourceValidation  bool
}

// DefaultConfig returns the standard research configuration.
// Source validation is off by default: it adds a model call per admitted
// result for marginal filtering value.
func DefaultConfig() Config {
	return Config{
		MaxIterations:           7,
		MaxResultsPerQuery:      8,
		MinCompletenessScore:    80.0,
		SearchTimeout:           30 * time.Second,
		EnableConceptExtraction: true,
		EnableSourceValidation:  false,
	}
}

// Validate checks the configuration for usable values.
func (c Config) Validate() error {
	if c.MaxIterations < 1 {
		return fmt.Errorf("config: MaxIterations must be at least 1, got %d", c.MaxIterations)
	}
	if c.MaxResultsPerQuery < 1 {
		return fmt.Errorf("config: MaxResultsPerQuery must be at least 1, got %d", c.MaxResultsPerQuery)
	}
	if c.MinCompletenessScore < 0 || c.MinCompletenessScore > 100 {
		return fmt.Errorf("config: MinCompletenessScore must be within [0,100], got %v", c.MinCompletenessScore)
	}
	if c.SearchTimeout <= 0 {
		return fmt.Errorf("config: SearchTimeout must be positive, got %v", c.SearchTimeout)
	}
	return nil
}

// Result is the read-only snapshot built from a terminal research context.
type Result struct {
	RunID           string            `json:"run_id"`
	Question        string            `json:"question"`
	FinalSummary    string            `json:"final_summary"`
	SourcesUsed     []string          `json:"sources_used"`
	TotalSources    int               `json:"total_sources"`
	Iterations      int               `json:"iterations"`
	KeyConcepts     []string          `json:"key_concepts"`
	History         []IterationRecord `json:"history"`
	FinalAssessment *Assessment       `json:"final_assessment,omitempty"`
	Duration        time.Duration     `json:"duration"`
	Status          Status            `json:"status"`
	ErrorMessage    string            `json:"error_message,omitempty"`
	CompletedAt     time.Time         `json:"completed_at"`
}

// Failed reports whether the run ended in the failed state.
func (r Result) Failed() bool {
	return r.Status == StatusFailed
}

// FormatDuration renders a duration for human-readable reports.
func FormatDuration(d time.Duration) string {
	secs := d.Seconds()
	switch {
	case secs < 60:
		return fmt.Sprintf("%.1f seconds", secs)
	case secs < 3600:
		return fmt.Sprintf("%.1f minutes", secs/60)
	default:
		return fmt.Sprintf("%.1f hours", secs/3600)
	}
}

// MergeConcepts appends concepts to existing, dropping duplicates by
// case-insensitive equality and preserving first-seen casing and order.
func MergeConcepts(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, c := range existing {
		seen[strings.ToLower(c)] = true
	}
	merged := existing
	for _, c := range incoming {
		key := strings.ToLower(strings.TrimSpace(c))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		merged = append(merged, strings.TrimSpace(c))
	}
	return merged
}
