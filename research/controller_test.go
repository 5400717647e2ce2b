package research

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/richinex/delver/model"
	"github.com/richinex/delver/reasoning"
	"github.com/richinex/delver/search"
)

// fakeReasoner scripts gateway behavior per round.
type fakeReasoner struct {
	planQueries [][]string
	planErrs    []error
	assessments []model.Assessment
	assessErrs  []error
	concepts    [][]string
	summaries   []string
	finalAnswer string
	validate    func(url, content string) reasoning.SourceValidation
	// panicOnSummaryCall panics on the Nth UpdateSummary call (1-based).
	panicOnSummaryCall int

	planCalls    int
	assessCalls  int
	summaryCalls int
	conceptCalls int
	recoverCalls int
	finalCalls   int
}

func (f *fakeReasoner) PlanSearches(ctx context.Context, view reasoning.ContextView) (reasoning.SearchStrategy, error) {
	i := f.planCalls
	f.planCalls++
	if i < len(f.planErrs) && f.planErrs[i] != nil {
		return reasoning.SearchStrategy{}, f.planErrs[i]
	}
	queries := []string{view.Question}
	if i < len(f.planQueries) {
		queries = f.planQueries[i]
	}
	return reasoning.SearchStrategy{
		SearchQueries:     queries,
		ResearchRationale: "scripted",
		ExpectedFindings:  "scripted",
	}, nil
}

func (f *fakeReasoner) ExtractConcepts(ctx context.Context, content string) []string {
	i := f.conceptCalls
	f.conceptCalls++
	if i < len(f.concepts) {
		return f.concepts[i]
	}
	return nil
}

func (f *fakeReasoner) UpdateSummary(ctx context.Context, view reasoning.ContextView, newInformation string) string {
	f.summaryCalls++
	if f.panicOnSummaryCall > 0 && f.summaryCalls == f.panicOnSummaryCall {
		panic("injected failure")
	}
	if f.summaryCalls-1 < len(f.summaries) {
		return f.summaries[f.summaryCalls-1]
	}
	return view.CurrentSummary
}

func (f *fakeReasoner) AssessCompleteness(ctx context.Context, view reasoning.ContextView) (model.Assessment, error) {
	i := f.assessCalls
	f.assessCalls++
	if i < len(f.assessErrs) && f.assessErrs[i] != nil {
		return model.Assessment{}, f.assessErrs[i]
	}
	if i < len(f.assessments) {
		return f.assessments[i], nil
	}
	return model.Assessment{ShouldContinue: false, CompletenessScore: 90,
		ConfidenceLevel: model.ConfidenceHigh}, nil
}

func (f *fakeReasoner) ValidateSource(ctx context.Context, sourceURL, content string) reasoning.SourceValidation {
	if f.validate != nil {
		return f.validate(sourceURL, content)
	}
	return reasoning.SourceValidation{OverallQuality: 7, Recommendation: reasoning.RecommendInclude}
}

func (f *fakeReasoner) FinalAnswer(ctx context.Context, view reasoning.ContextView) string {
	f.finalCalls++
	if f.finalAnswer != "" {
		return f.finalAnswer
	}
	return view.CurrentSummary
}

func (f *fakeReasoner) RecoverFromError(ctx context.Context, errorContext, question string) reasoning.ErrorRecovery {
	f.recoverCalls++
	return reasoning.ErrorRecovery{
		Alternatives: []reasoning.RecoveryAlternative{
			{Strategy: "Basic keyword search", Queries: []string{question}},
		},
	}
}

// fakeSearcher returns scripted per-round results regardless of queries.
type fakeSearcher struct {
	rounds [][]search.QueryResult
	calls  int
}

func (f *fakeSearcher) ExecuteMany(ctx context.Context, queries []string) []search.QueryResult {
	i := f.calls
	f.calls++
	if i < len(f.rounds) {
		return f.rounds[i]
	}
	// Default: empty results for every query.
	out := make([]search.QueryResult, len(queries))
	for j, q := range queries {
		out[j] = search.QueryResult{Query: q}
	}
	return out
}

func hit(url, content string) model.SearchResult {
	return model.SearchResult{URL: url, Content: content, Snippet: content, Timestamp: time.Now()}
}

func round(query string, results ...model.SearchResult) []search.QueryResult {
	return []search.QueryResult{{Query: query, Results: results}}
}

func newTestController(t *testing.T, r Reasoner, s Searcher, cfg model.Config) *Controller {
	t.Helper()
	c, err := NewController(r, s, cfg, nil)
	if err != nil {
		t.Fatalf("controller construction failed: %v", err)
	}
	return c
}

func TestRunRejectsInvalidInput(t *testing.T) {
	c := newTestController(t, &fakeReasoner{}, &fakeSearcher{}, model.DefaultConfig())

	for _, q := range []string{"", "  ", "ab", "<script>alert(1)</script>", "eval(payload)"} {
		_, err := c.Run(context.Background(), q)
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("question %q: expected ErrInvalidInput, got %v", q, err)
		}
	}
}

func TestRunEndToEndSingleRound(t *testing.T) {
	reasoner := &fakeReasoner{
		planQueries: [][]string{{"test topic"}},
		assessments: []model.Assessment{
			{ShouldContinue: false, CompletenessScore: 85, ConfidenceLevel: model.ConfidenceHigh},
		},
		summaries: []string{"summary after round 1"},
	}
	searcher := &fakeSearcher{rounds: [][]search.QueryResult{
		round("test topic", hit("http://x.test/1", "info about test topic")),
	}}
	c := newTestController(t, reasoner, searcher, model.DefaultConfig())

	result, err := c.Run(context.Background(), "test topic")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != model.StatusCompleted {
		t.Errorf("expected Completed, got %v", result.Status)
	}
	if result.Iterations != 1 {
		t.Errorf("expected exactly 1 iteration, got %d", result.Iterations)
	}
	if len(result.SourcesUsed) != 1 || result.SourcesUsed[0] != "http://x.test/1" {
		t.Errorf("expected sources [http://x.test/1], got %v", result.SourcesUsed)
	}
	if result.FinalSummary != "summary after round 1" {
		t.Errorf("unexpected final summary: %q", result.FinalSummary)
	}
	if reasoner.finalCalls != 1 {
		t.Errorf("expected final answer to be generated once, got %d", reasoner.finalCalls)
	}
}

func TestRunDedupInvariant(t *testing.T) {
	// Same URL appears in both rounds with different content; only the
	// first admission wins.
	reasoner := &fakeReasoner{
		assessments: []model.Assessment{
			{ShouldContinue: true, CompletenessScore: 30},
			{ShouldContinue: false, CompletenessScore: 90},
		},
	}
	searcher := &fakeSearcher{rounds: [][]search.QueryResult{
		round("q", hit("http://dup.test/a", "first version"), hit("http://b.test", "other")),
		round("q", hit("http://dup.test/a", "second version"), hit("http://c.test", "new")),
	}}
	c := newTestController(t, reasoner, searcher, model.DefaultConfig())

	result, err := c.Run(context.Background(), "some question")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TotalSources != 3 {
		t.Errorf("expected 3 unique sources, got %d: %v", result.TotalSources, result.SourcesUsed)
	}
	if len(result.History) != 2 {
		t.Fatalf("expected 2 rounds, got %d", len(result.History))
	}
	if result.History[1].NewResultCount != 1 {
		t.Errorf("expected 1 new result in round 2 (duplicate rejected), got %d",
			result.History[1].NewResultCount)
	}
}

func TestRunAtLeastOneRound(t *testing.T) {
	// Searcher returns nothing at all, so round 1 admits zero results and
	// the loop stops, but history still has the round.
	c := newTestController(t, &fakeReasoner{}, &fakeSearcher{}, model.DefaultConfig())

	result, err := c.Run(context.Background(), "any valid question")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.History) < 1 {
		t.Error("expected at least one round in history")
	}
}

func TestRunBoundedRounds(t *testing.T) {
	// Assessments always say continue; new sources appear every round.
	reasoner := &fakeReasoner{}
	rounds := make([][]search.QueryResult, 10)
	for i := range rounds {
		rounds[i] = round("q", hit("http://x.test/"+string(rune('a'+i)), "content"))
	}
	searcher := &fakeSearcher{rounds: rounds}

	always := make([]model.Assessment, 10)
	for i := range always {
		always[i] = model.Assessment{ShouldContinue: true, CompletenessScore: 10}
	}
	reasoner.assessments = always

	cfg := model.DefaultConfig()
	cfg.MaxIterations = 4
	c := newTestController(t, reasoner, searcher, cfg)

	result, err := c.Run(context.Background(), "endless question")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Iterations > 4 {
		t.Errorf("expected at most 4 iterations, got %d", result.Iterations)
	}
	if result.Iterations != 4 {
		t.Errorf("expected exactly 4 iterations with always-continue, got %d", result.Iterations)
	}
}

func TestRunEarlyExitOnEmptyRound(t *testing.T) {
	reasoner := &fakeReasoner{
		assessments: []model.Assessment{
			{ShouldContinue: true, CompletenessScore: 30},
		},
	}
	searcher := &fakeSearcher{rounds: [][]search.QueryResult{
		round("q", hit("http://a.test", "content")),
		round("q"), // nothing new
	}}
	c := newTestController(t, reasoner, searcher, model.DefaultConfig())

	result, err := c.Run(context.Background(), "some question")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.History) != 2 {
		t.Fatalf("expected history to stop at 2 rounds, got %d", len(result.History))
	}
	// The empty round records no assessment: only round 1 was assessed.
	if reasoner.assessCalls != 1 {
		t.Errorf("expected 1 assessment (empty round skips it), got %d", reasoner.assessCalls)
	}
	if result.Status != model.StatusCompleted {
		t.Errorf("expected Completed on early exit, got %v", result.Status)
	}
}

func TestRunStopsAtMinCompleteness(t *testing.T) {
	// Model says continue but the score already meets the threshold.
	reasoner := &fakeReasoner{
		assessments: []model.Assessment{
			{ShouldContinue: true, CompletenessScore: 85, ConfidenceLevel: model.ConfidenceHigh},
		},
	}
	searcher := &fakeSearcher{rounds: [][]search.QueryResult{
		round("q", hit("http://a.test", "content")),
	}}
	c := newTestController(t, reasoner, searcher, model.DefaultConfig())

	result, err := c.Run(context.Background(), "some question")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Iterations != 1 {
		t.Errorf("expected run to stop after round 1 at score 85, got %d iterations", result.Iterations)
	}
}

func TestRunFailureResilience(t *testing.T) {
	reasoner := &fakeReasoner{
		assessments: []model.Assessment{
			{ShouldContinue: true, CompletenessScore: 30},
			{ShouldContinue: true, CompletenessScore: 50},
			{ShouldContinue: false, CompletenessScore: 90},
		},
		summaries:          []string{"summary after round 1"},
		panicOnSummaryCall: 2,
	}
	searcher := &fakeSearcher{rounds: [][]search.QueryResult{
		round("q", hit("http://a.test", "content a")),
		round("q", hit("http://b.test", "content b")),
		round("q", hit("http://c.test", "content c")),
	}}
	c := newTestController(t, reasoner, searcher, model.DefaultConfig())

	result, err := c.Run(context.Background(), "some question")
	if err != nil {
		t.Fatalf("expected no error even on failure, got %v", err)
	}
	if result.Status != model.StatusFailed {
		t.Errorf("expected Failed, got %v", result.Status)
	}
	if result.ErrorMessage == "" {
		t.Error("expected error annotation on failed run")
	}
	if len(result.History) < 1 || result.History[0].Index != 1 {
		t.Errorf("expected round 1 history preserved, got %d records", len(result.History))
	}
	if result.FinalSummary != "summary after round 1" {
		t.Errorf("expected summary as of end of round 1, got %q", result.FinalSummary)
	}
	if reasoner.finalCalls != 0 {
		t.Error("expected no final answer generation on failed run")
	}
}

func TestRunPlanRecoveryOnce(t *testing.T) {
	reasoner := &fakeReasoner{
		planErrs: []error{errors.New("model unavailable")},
		assessments: []model.Assessment{
			{ShouldContinue: false, CompletenessScore: 90},
		},
	}
	searcher := &fakeSearcher{rounds: [][]search.QueryResult{
		round("some question", hit("http://a.test", "content")),
	}}
	c := newTestController(t, reasoner, searcher, model.DefaultConfig())

	result, err := c.Run(context.Background(), "some question")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != model.StatusCompleted {
		t.Errorf("expected recovery to complete the run, got %v", result.Status)
	}
	if reasoner.recoverCalls != 1 {
		t.Errorf("expected exactly one recovery attempt, got %d", reasoner.recoverCalls)
	}
}

func TestRunSecondPlanFailureFailsRun(t *testing.T) {
	reasoner := &fakeReasoner{
		planErrs: []error{errors.New("down"), errors.New("still down")},
		assessments: []model.Assessment{
			{ShouldContinue: true, CompletenessScore: 30},
		},
	}
	searcher := &fakeSearcher{rounds: [][]search.QueryResult{
		round("q", hit("http://a.test", "content")),
	}}
	c := newTestController(t, reasoner, searcher, model.DefaultConfig())

	result, err := c.Run(context.Background(), "some question")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != model.StatusFailed {
		t.Errorf("expected Failed after second plan failure, got %v", result.Status)
	}
	if len(result.History) != 1 {
		t.Errorf("expected round 1 preserved, got %d records", len(result.History))
	}
}

func TestRunSourceValidationEviction(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.EnableSourceValidation = true

	reasoner := &fakeReasoner{
		assessments: []model.Assessment{
			{ShouldContinue: true, CompletenessScore: 30},
			{ShouldContinue: false, CompletenessScore: 90},
		},
		validate: func(url, content string) reasoning.SourceValidation {
			if url == "http://bad.test" {
				return reasoning.SourceValidation{OverallQuality: 2, Recommendation: reasoning.RecommendExclude}
			}
			return reasoning.SourceValidation{OverallQuality: 8, Recommendation: reasoning.RecommendInclude}
		},
	}
	searcher := &fakeSearcher{rounds: [][]search.QueryResult{
		round("q", hit("http://bad.test", "spam"), hit("http://good.test", "solid")),
		// The excluded URL reappears; it must stay excluded, not re-validated in.
		round("q", hit("http://bad.test", "spam again"), hit("http://other.test", "more")),
	}}
	c := newTestController(t, reasoner, searcher, cfg)

	result, err := c.Run(context.Background(), "some question")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, record := range result.History {
		for _, r := range record.NewResults {
			if r.URL == "http://bad.test" {
				t.Error("excluded source leaked into history")
			}
		}
	}
	// Excluded URL still counts as used so it cannot be re-admitted.
	found := false
	for _, url := range result.SourcesUsed {
		if url == "http://bad.test" {
			found = true
		}
	}
	if !found {
		t.Error("excluded URL should remain in used sources")
	}
}

func TestRunConceptMerging(t *testing.T) {
	reasoner := &fakeReasoner{
		assessments: []model.Assessment{
			{ShouldContinue: true, CompletenessScore: 30},
			{ShouldContinue: false, CompletenessScore: 90},
		},
		concepts: [][]string{
			{"Quantum Entanglement", "Bell Inequality"},
			{"quantum entanglement", "Decoherence"},
		},
	}
	searcher := &fakeSearcher{rounds: [][]search.QueryResult{
		round("q", hit("http://a.test", "content a")),
		round("q", hit("http://b.test", "content b")),
	}}
	c := newTestController(t, reasoner, searcher, model.DefaultConfig())

	result, err := c.Run(context.Background(), "some question")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"Quantum Entanglement", "Bell Inequality", "Decoherence"}
	if len(result.KeyConcepts) != len(want) {
		t.Fatalf("expected concepts %v, got %v", want, result.KeyConcepts)
	}
	for i, concept := range want {
		if result.KeyConcepts[i] != concept {
			t.Errorf("concept[%d] = %q, want %q (first-seen casing and order)", i, result.KeyConcepts[i], concept)
		}
	}
}

func TestRunConceptExtractionDisabled(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.EnableConceptExtraction = false

	reasoner := &fakeReasoner{concepts: [][]string{{"should not appear"}}}
	searcher := &fakeSearcher{rounds: [][]search.QueryResult{
		round("q", hit("http://a.test", "content")),
	}}
	c := newTestController(t, reasoner, searcher, cfg)

	result, err := c.Run(context.Background(), "some question")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.KeyConcepts) != 0 {
		t.Errorf("expected no concepts when extraction disabled, got %v", result.KeyConcepts)
	}
	if reasoner.conceptCalls != 0 {
		t.Errorf("expected no concept extraction calls, got %d", reasoner.conceptCalls)
	}
}

func TestNewControllerRejectsInvalidConfig(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.MaxIterations = 0
	if _, err := NewController(&fakeReasoner{}, &fakeSearcher{}, cfg, nil); err == nil {
		t.Error("expected error for invalid config")
	}
}

func TestMarkdownReportContainsSections(t *testing.T) {
	reasoner := &fakeReasoner{
		assessments: []model.Assessment{
			{ShouldContinue: false, CompletenessScore: 85, Reasoning: "covered", ConfidenceLevel: model.ConfidenceHigh},
		},
		concepts:  [][]string{{"Topic Concept"}},
		summaries: []string{"the final summary"},
	}
	searcher := &fakeSearcher{rounds: [][]search.QueryResult{
		round("q", hit("https://arxiv.org/abs/1", "paper content")),
	}}
	c := newTestController(t, reasoner, searcher, model.DefaultConfig())

	result, err := c.Run(context.Background(), "some question")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	report := MarkdownReport(result)
	for _, want := range []string{
		"# Research Report",
		"some question",
		"the final summary",
		"## Assessment",
		"## Key Concepts",
		"Topic Concept",
		"## Sources",
		"arxiv.org",
		"## Research Trail",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestJSONReportRoundTrips(t *testing.T) {
	searcher := &fakeSearcher{rounds: [][]search.QueryResult{
		round("q", hit("http://a.test", "content")),
	}}
	c := newTestController(t, &fakeReasoner{}, searcher, model.DefaultConfig())

	result, err := c.Run(context.Background(), "some question")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := JSONReport(result)
	if err != nil {
		t.Fatalf("JSON report failed: %v", err)
	}
	if !strings.Contains(string(data), `"sources_used"`) {
		t.Error("expected sources_used field in JSON report")
	}
}

func TestStatisticsAggregation(t *testing.T) {
	result := model.Result{
		Iterations:   2,
		TotalSources: 2,
		History: []model.IterationRecord{
			{NewResults: []model.SearchResult{
				{URL: "https://arxiv.org/abs/1", RelevanceScore: 80},
			}},
			{NewResults: []model.SearchResult{
				{URL: "http://other.test", RelevanceScore: 40},
			}},
		},
		FinalAssessment: &model.Assessment{CompletenessScore: 85},
	}

	stats := Statistics(result)
	if stats.TotalResults != 2 {
		t.Errorf("expected 2 results, got %d", stats.TotalResults)
	}
	if stats.AverageRelevance != 60 {
		t.Errorf("expected average 60, got %f", stats.AverageRelevance)
	}
	if stats.SourcesByKind[search.SourceAcademic] != 1 {
		t.Errorf("expected 1 academic source, got %d", stats.SourcesByKind[search.SourceAcademic])
	}
	if stats.FinalScore == nil || *stats.FinalScore != 85 {
		t.Error("expected final score 85")
	}
}
