package research

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/richinex/delver/model"
	"github.com/richinex/delver/search"
)

// MarkdownReport renders a run result as a human-readable markdown report.
func MarkdownReport(result model.Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Research Report\n\n")
	fmt.Fprintf(&b, "**Question:** %s\n\n", result.Question)
	fmt.Fprintf(&b, "**Status:** %s\n\n", result.Status)
	fmt.Fprintf(&b, "**Duration:** %s | **Iterations:** %d | **Sources:** %d\n\n",
		model.FormatDuration(result.Duration), result.Iterations, result.TotalSources)

	if result.ErrorMessage != "" {
		fmt.Fprintf(&b, "> Run ended with an error: %s\n\n", result.ErrorMessage)
	}

	b.WriteString("## Answer\n\n")
	if result.FinalSummary != "" {
		b.WriteString(result.FinalSummary)
	} else {
		b.WriteString("_No summary was produced._")
	}
	b.WriteString("\n\n")

	if result.FinalAssessment != nil {
		a := result.FinalAssessment
		b.WriteString("## Assessment\n\n")
		fmt.Fprintf(&b, "- Completeness: %.0f/100 (confidence: %s)\n", a.CompletenessScore, a.ConfidenceLevel)
		if a.Reasoning != "" {
			fmt.Fprintf(&b, "- Reasoning: %s\n", a.Reasoning)
		}
		for _, aspect := range a.MissingAspects {
			fmt.Fprintf(&b, "- Missing: %s\n", aspect)
		}
		b.WriteString("\n")
	}

	if len(result.KeyConcepts) > 0 {
		b.WriteString("## Key Concepts\n\n")
		for _, concept := range result.KeyConcepts {
			fmt.Fprintf(&b, "- %s\n", concept)
		}
		b.WriteString("\n")
	}

	if len(result.SourcesUsed) > 0 {
		b.WriteString("## Sources\n\n")
		for i, url := range result.SourcesUsed {
			fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, url, search.CategorizeSource(url))
		}
		b.WriteString("\n")
	}

	if len(result.History) > 0 {
		b.WriteString("## Research Trail\n\n")
		for _, record := range result.History {
			fmt.Fprintf(&b, "### Round %d\n\n", record.Index)
			for _, q := range record.QueriesIssued {
				fmt.Fprintf(&b, "- Query: %q\n", q.Text)
			}
			fmt.Fprintf(&b, "- New sources: %d\n", record.NewResultCount)
			if len(record.NewConceptsFound) > 0 {
				fmt.Fprintf(&b, "- New concepts: %s\n", strings.Join(record.NewConceptsFound, ", "))
			}
			b.WriteString("\n")
		}
	}

	return b.String()
}

// JSONReport serializes a run result as indented JSON.
func JSONReport(result model.Result) ([]byte, error) {
	return json.MarshalIndent(result, "", "  ")
}

// RunStatistics summarizes a run for reporting.
type RunStatistics struct {
	TotalIterations  int                       `json:"total_iterations"`
	TotalSources     int                       `json:"total_sources"`
	TotalResults     int                       `json:"total_results"`
	AverageRelevance float64                   `json:"average_relevance"`
	SourcesByKind    map[search.SourceKind]int `json:"sources_by_kind"`
	FinalScore       *float64                  `json:"final_score,omitempty"`
}

// Statistics aggregates per-run numbers from the result history.
func Statistics(result model.Result) RunStatistics {
	var all []model.SearchResult
	for _, record := range result.History {
		all = append(all, record.NewResults...)
	}
	searchStats := search.ComputeStatistics(all)

	stats := RunStatistics{
		TotalIterations:  result.Iterations,
		TotalSources:     result.TotalSources,
		TotalResults:     searchStats.TotalResults,
		AverageRelevance: searchStats.AverageRelevance,
		SourcesByKind:    searchStats.ByKind,
	}
	if result.FinalAssessment != nil {
		score := result.FinalAssessment.CompletenessScore
		stats.FinalScore = &score
	}
	return stats
}
