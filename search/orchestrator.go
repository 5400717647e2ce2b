package search

import (
	"context"
	"log/slog"
	"time"

	"github.com/richinex/delver/model"
)

// QueryResult pairs a query with its normalized, scored results.
// Slice form preserves query order across the round.
type QueryResult struct {
	Query   string
	Results []model.SearchResult
}

// Orchestrator executes queries against a backend, applying a per-query
// timeout and normalizing raw hits into canonical results. Individual
// query failures are isolated: a failed or timed-out query yields an
// empty result set, never an error.
type Orchestrator struct {
	backend    Capability
	timeout    time.Duration
	maxResults int
	logger     *slog.Logger
}

// NewOrchestrator creates an orchestrator over the given backend.
func NewOrchestrator(backend Capability, timeout time.Duration, maxResults int, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxResults <= 0 {
		maxResults = 8
	}
	return &Orchestrator{
		backend:    backend,
		timeout:    timeout,
		maxResults: maxResults,
		logger:     logger,
	}
}

// ExecuteMany runs each query in order and returns per-query results.
// Queries are dispatched sequentially; each is bounded by the configured
// timeout so no query can stall the round indefinitely.
func (o *Orchestrator) ExecuteMany(ctx context.Context, queries []string) []QueryResult {
	results := make([]QueryResult, 0, len(queries))
	for _, query := range queries {
		results = append(results, QueryResult{
			Query:   query,
			Results: o.executeOne(ctx, query),
		})
	}
	return results
}

// executeOne runs a single query. All provider errors and timeouts are
// absorbed into an empty result set.
func (o *Orchestrator) executeOne(ctx context.Context, query string) []model.SearchResult {
	queryCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	hits, err := o.backend.Search(queryCtx, query, o.maxResults)
	if err != nil {
		o.logger.Warn("search query failed",
			"backend", o.backend.Name(),
			"query", query,
			"error", err)
		return nil
	}

	now := time.Now()
	results := make([]model.SearchResult, 0, len(hits))
	for _, hit := range hits {
		result, ok := normalizeHit(hit, now)
		if !ok {
			continue
		}
		result.RelevanceScore = RelevanceScore(query, result.Title+" "+result.Content+" "+result.Snippet)
		results = append(results, result)
		if len(results) >= o.maxResults {
			break
		}
	}

	o.logger.Debug("search query completed",
		"backend", o.backend.Name(),
		"query", query,
		"results", len(results))
	return results
}

// FilterByScore returns results whose relevance meets the minimum score.
// Order is preserved.
func FilterByScore(results []model.SearchResult, minScore float64) []model.SearchResult {
	filtered := make([]model.SearchResult, 0, len(results))
	for _, r := range results {
		if r.RelevanceScore >= minScore {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// DeduplicateByURL removes duplicate URLs, keeping the first occurrence.
func DeduplicateByURL(results []model.SearchResult) []model.SearchResult {
	seen := make(map[string]struct{}, len(results))
	deduped := make([]model.SearchResult, 0, len(results))
	for _, r := range results {
		if _, ok := seen[r.URL]; ok {
			continue
		}
		seen[r.URL] = struct{}{}
		deduped = append(deduped, r)
	}
	return deduped
}

// Statistics summarizes a result set for reporting.
type Statistics struct {
	TotalResults     int
	UniqueSources    int
	AverageRelevance float64
	ByKind           map[SourceKind]int
}

// ComputeStatistics aggregates totals, average relevance, and
// per-category counts over a result set.
func ComputeStatistics(results []model.SearchResult) Statistics {
	stats := Statistics{
		TotalResults: len(results),
		ByKind:       make(map[SourceKind]int),
	}

	seen := make(map[string]struct{})
	var scoreSum float64
	for _, r := range results {
		scoreSum += r.RelevanceScore
		stats.ByKind[CategorizeSource(r.URL)]++
		seen[r.URL] = struct{}{}
	}
	stats.UniqueSources = len(seen)
	if len(results) > 0 {
		stats.AverageRelevance = scoreSum / float64(len(results))
	}
	return stats
}
