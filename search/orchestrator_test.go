package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/richinex/delver/model"
)

// fakeBackend returns canned hits per query, or an error.
type fakeBackend struct {
	hits map[string][]Hit
	err  error
	// delay simulates a slow provider for timeout tests.
	delay time.Duration
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Search(ctx context.Context, query string, maxResults int) ([]Hit, error) {
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.hits[query], nil
}

func TestExecuteManyPreservesQueryOrder(t *testing.T) {
	backend := &fakeBackend{hits: map[string][]Hit{
		"alpha": {{"url": "http://a.test", "content": "alpha content"}},
		"beta":  {{"url": "http://b.test", "content": "beta content"}},
	}}
	orch := NewOrchestrator(backend, time.Second, 8, nil)

	results := orch.ExecuteMany(context.Background(), []string{"alpha", "beta"})
	if len(results) != 2 {
		t.Fatalf("expected 2 query results, got %d", len(results))
	}
	if results[0].Query != "alpha" || results[1].Query != "beta" {
		t.Errorf("query order not preserved: %q, %q", results[0].Query, results[1].Query)
	}
	if len(results[0].Results) != 1 || results[0].Results[0].URL != "http://a.test" {
		t.Errorf("unexpected results for alpha: %+v", results[0].Results)
	}
}

func TestExecuteManyIsolatesProviderError(t *testing.T) {
	backend := &fakeBackend{err: errors.New("provider down")}
	orch := NewOrchestrator(backend, time.Second, 8, nil)

	results := orch.ExecuteMany(context.Background(), []string{"anything"})
	if len(results) != 1 {
		t.Fatalf("expected 1 query result, got %d", len(results))
	}
	if len(results[0].Results) != 0 {
		t.Errorf("expected empty results on provider error, got %d", len(results[0].Results))
	}
}

func TestExecuteManyTimeoutYieldsEmpty(t *testing.T) {
	backend := &fakeBackend{
		delay: 200 * time.Millisecond,
		hits:  map[string][]Hit{"slow": {{"url": "http://s.test", "content": "x"}}},
	}
	orch := NewOrchestrator(backend, 20*time.Millisecond, 8, nil)

	results := orch.ExecuteMany(context.Background(), []string{"slow"})
	if len(results[0].Results) != 0 {
		t.Errorf("expected empty results on timeout, got %d", len(results[0].Results))
	}
}

func TestExecuteManyCapsResults(t *testing.T) {
	hits := make([]Hit, 10)
	for i := range hits {
		hits[i] = Hit{"url": "http://x.test/" + string(rune('a'+i)), "content": "content"}
	}
	backend := &fakeBackend{hits: map[string][]Hit{"q": hits}}
	orch := NewOrchestrator(backend, time.Second, 3, nil)

	results := orch.ExecuteMany(context.Background(), []string{"q"})
	if len(results[0].Results) != 3 {
		t.Errorf("expected 3 results after cap, got %d", len(results[0].Results))
	}
}

func TestNormalizeHitAliases(t *testing.T) {
	now := time.Now()

	// link/name/body aliases resolve into canonical fields
	result, ok := normalizeHit(Hit{"link": "http://a.test", "name": "A", "body": "body text"}, now)
	if !ok {
		t.Fatal("expected hit to be admitted")
	}
	if result.URL != "http://a.test" || result.Title != "A" || result.Content != "body text" {
		t.Errorf("alias resolution failed: %+v", result)
	}

	// description alias resolves snippet
	result, ok = normalizeHit(Hit{"href": "http://b.test", "description": "a description"}, now)
	if !ok {
		t.Fatal("expected hit to be admitted")
	}
	if result.Snippet != "a description" {
		t.Errorf("expected snippet from description alias, got %q", result.Snippet)
	}
}

func TestNormalizeHitDiscards(t *testing.T) {
	now := time.Now()

	if _, ok := normalizeHit(Hit{"title": "no url", "content": "text"}, now); ok {
		t.Error("expected hit without url to be discarded")
	}
	if _, ok := normalizeHit(Hit{"url": "http://x.test", "title": "empty"}, now); ok {
		t.Error("expected hit without content and snippet to be discarded")
	}
}

func TestNormalizeHitSynthesizesSnippet(t *testing.T) {
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'x'
	}
	result, ok := normalizeHit(Hit{"url": "http://x.test", "content": string(long)}, time.Now())
	if !ok {
		t.Fatal("expected hit to be admitted")
	}
	if len(result.Snippet) != 203 {
		t.Errorf("expected 200 chars plus ellipsis, got %d chars", len(result.Snippet))
	}
	if result.Snippet[200:] != "..." {
		t.Errorf("expected snippet to end with ellipsis, got %q", result.Snippet[200:])
	}
}

func TestRelevanceScoreBoundaries(t *testing.T) {
	if got := RelevanceScore("a b", "a"); got != 50.0 {
		t.Errorf("partial overlap: expected 50.0, got %f", got)
	}
	if got := RelevanceScore("", "anything"); got != 0.0 {
		t.Errorf("empty query: expected 0.0, got %f", got)
	}
	if got := RelevanceScore("a b", "a b a b extra"); got != 100.0 {
		t.Errorf("full containment: expected 100.0, got %f", got)
	}
	if got := RelevanceScore("quantum computing", "QUANTUM Computing basics"); got != 100.0 {
		t.Errorf("case-insensitive match: expected 100.0, got %f", got)
	}
}

func TestFilterByScore(t *testing.T) {
	results := []model.SearchResult{
		{URL: "a", RelevanceScore: 20},
		{URL: "b", RelevanceScore: 60},
		{URL: "c", RelevanceScore: 90},
	}
	filtered := FilterByScore(results, 60)
	if len(filtered) != 2 {
		t.Fatalf("expected 2 results, got %d", len(filtered))
	}
	if filtered[0].URL != "b" || filtered[1].URL != "c" {
		t.Errorf("filter did not preserve order: %+v", filtered)
	}
}

func TestDeduplicateByURL(t *testing.T) {
	results := []model.SearchResult{
		{URL: "a", Title: "first"},
		{URL: "b"},
		{URL: "a", Title: "second"},
	}
	deduped := DeduplicateByURL(results)
	if len(deduped) != 2 {
		t.Fatalf("expected 2 results, got %d", len(deduped))
	}
	if deduped[0].Title != "first" {
		t.Error("expected first occurrence to win")
	}
}

func TestComputeStatistics(t *testing.T) {
	results := []model.SearchResult{
		{URL: "https://arxiv.org/abs/1", RelevanceScore: 80},
		{URL: "https://example.com/2", RelevanceScore: 40},
		{URL: "https://example.com/2", RelevanceScore: 40},
	}
	stats := ComputeStatistics(results)
	if stats.TotalResults != 3 {
		t.Errorf("expected 3 total, got %d", stats.TotalResults)
	}
	if stats.UniqueSources != 2 {
		t.Errorf("expected 2 unique, got %d", stats.UniqueSources)
	}
	want := (80.0 + 40.0 + 40.0) / 3.0
	if stats.AverageRelevance != want {
		t.Errorf("expected average %f, got %f", want, stats.AverageRelevance)
	}
	if stats.ByKind[SourceAcademic] != 1 {
		t.Errorf("expected 1 academic source, got %d", stats.ByKind[SourceAcademic])
	}
}

func TestCategorizeSource(t *testing.T) {
	cases := []struct {
		url  string
		want SourceKind
	}{
		{"https://www.mit.edu/research", SourceAcademic},
		{"https://pubmed.ncbi.nlm.nih.gov/123", SourceAcademic},
		{"https://www.cdc.gov/info", SourceGovernment},
		{"https://www.who.int/report", SourceGovernment},
		{"https://www.reuters.com/article", SourceNews},
		{"https://someblog.example.com", SourceOther},
	}
	for _, tc := range cases {
		if got := CategorizeSource(tc.url); got != tc.want {
			t.Errorf("CategorizeSource(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}
