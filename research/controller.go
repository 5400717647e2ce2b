package research

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/richinex/delver/model"
	"github.com/richinex/delver/reasoning"
	"github.com/richinex/delver/search"
)

// Reasoner is the language-model capability consumed by the controller.
type Reasoner interface {
	PlanSearches(ctx context.Context, view reasoning.ContextView) (reasoning.SearchStrategy, error)
	ExtractConcepts(ctx context.Context, content string) []string
	UpdateSummary(ctx context.Context, view reasoning.ContextView, newInformation string) string
	AssessCompleteness(ctx context.Context, view reasoning.ContextView) (model.Assessment, error)
	ValidateSource(ctx context.Context, sourceURL, content string) reasoning.SourceValidation
	FinalAnswer(ctx context.Context, view reasoning.ContextView) string
	RecoverFromError(ctx context.Context, errorContext, question string) reasoning.ErrorRecovery
}

// Searcher is the web-search capability consumed by the controller.
type Searcher interface {
	ExecuteMany(ctx context.Context, queries []string) []search.QueryResult
}

// Controller owns the research iteration state machine. Rounds are
// strictly sequential: each round's plan depends on the prior round's
// accumulated summary and assessment.
type Controller struct {
	reasoner Reasoner
	searcher Searcher
	cfg      model.Config
	logger   *slog.Logger
}

// NewController wires a controller from its capabilities. Both are
// injected: no core logic depends on a specific provider.
func NewController(reasoner Reasoner, searcher Searcher, cfg model.Config, logger *slog.Logger) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		reasoner: reasoner,
		searcher: searcher,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// Run executes a full research loop for the question and always returns a
// Result, even on failure: a failed run yields its best partial answer
// with an error annotation. The returned error is non-nil only when the
// question is rejected before any state is created.
func (c *Controller) Run(ctx context.Context, question string) (model.Result, error) {
	if err := validateQuestion(question); err != nil {
		return model.Result{}, err
	}

	runID := uuid.NewString()
	rc := newContext(strings.TrimSpace(question))
	rc.status = model.StatusInProgress

	c.logger.Info("research run started", "run_id", runID, "question", rc.question)

	runErr := c.runLoop(ctx, rc)

	if runErr != nil {
		rc.finish(model.StatusFailed)
		c.logger.Error("research run failed", "run_id", runID, "error", runErr,
			"iterations", rc.iterationCount)
	} else {
		rc.finish(model.StatusCompleted)
		// Polish the accumulated summary into a final answer. Failures
		// here fall back to the summary inside the gateway.
		rc.currentSummary = c.reasoner.FinalAnswer(ctx, rc.View())
		c.logger.Info("research run completed", "run_id", runID,
			"iterations", rc.iterationCount, "sources", len(rc.sourceOrder))
	}

	return c.buildResult(runID, rc, runErr), nil
}

// runLoop drives rounds until a stopping rule fires. Panics from a round
// are converted to errors so accumulated state survives.
func (c *Controller) runLoop(ctx context.Context, rc *Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unhandled failure in round %d: %v", rc.iterationCount, r)
		}
	}()

	recoveryUsed := false
	for c.shouldContinue(rc) {
		rc.iterationCount++

		stop, roundErr := c.runRound(ctx, rc, &recoveryUsed)
		if roundErr != nil {
			return roundErr
		}
		if stop {
			break
		}
	}
	return nil
}

// shouldContinue is checked before each round: at least one round always
// runs, total rounds are bounded by MaxIterations, and before any
// assessment exists the loop caps itself at 3 rounds.
func (c *Controller) shouldContinue(rc *Context) bool {
	if rc.iterationCount >= c.cfg.MaxIterations {
		return false
	}
	if rc.iterationCount == 0 {
		return true
	}
	if rc.lastAssessment != nil {
		return rc.lastAssessment.ShouldContinue
	}
	return rc.iterationCount < 3
}

// runRound executes one plan→search→fold→assess pass. Returns stop=true
// when a stopping rule fired inside the round.
func (c *Controller) runRound(ctx context.Context, rc *Context, recoveryUsed *bool) (stop bool, err error) {
	index := rc.iterationCount
	summaryLengthAtStart := len(rc.currentSummary)

	strategy, err := c.plan(ctx, rc, recoveryUsed)
	if err != nil {
		return false, err
	}

	queries := make([]model.SearchQuery, len(strategy.SearchQueries))
	queryTexts := make([]string, len(strategy.SearchQueries))
	now := time.Now()
	for i, text := range strategy.SearchQueries {
		queries[i] = model.SearchQuery{
			Text:             text,
			Rationale:        strategy.ResearchRationale,
			ExpectedFindings: strategy.ExpectedFindings,
			Iteration:        index,
			Timestamp:        now,
		}
		queryTexts[i] = text
	}

	perQuery := c.searcher.ExecuteMany(ctx, queryTexts)

	newResults := c.admitResults(ctx, rc, perQuery)

	var newConcepts []string
	conceptCount := 0
	if c.cfg.EnableConceptExtraction && len(newResults) > 0 {
		newConcepts = c.reasoner.ExtractConcepts(ctx, concatContents(newResults))
		conceptCount = rc.mergeConcepts(newConcepts)
	}

	rc.history = append(rc.history, model.IterationRecord{
		Index:                index,
		QueriesIssued:        queries,
		NewResults:           newResults,
		NewResultCount:       len(newResults),
		SummaryLengthAtStart: summaryLengthAtStart,
		NewConceptsFound:     newConcepts,
		Timestamp:            time.Now(),
	})

	c.logger.Info("round completed", "iteration", index,
		"queries", len(queries), "new_results", len(newResults),
		"new_concepts", conceptCount)

	// No new sources means the search space is exhausted: end the loop
	// immediately without a further assessment.
	if len(newResults) == 0 {
		c.logger.Info("no new sources admitted, stopping", "iteration", index)
		return true, nil
	}

	rc.currentSummary = c.reasoner.UpdateSummary(ctx, rc.View(), formatResults(newResults))

	assessment, err := c.reasoner.AssessCompleteness(ctx, rc.View())
	if err != nil {
		return false, err
	}
	rc.lastAssessment = &assessment

	if !assessment.ShouldContinue || assessment.CompletenessScore >= c.cfg.MinCompletenessScore {
		c.logger.Info("assessment says stop", "iteration", index,
			"score", assessment.CompletenessScore,
			"should_continue", assessment.ShouldContinue)
		return true, nil
	}
	return false, nil
}

// plan asks the gateway for the round's queries. One plan transport
// failure per run is recovered by asking the model for alternative
// strategies; a second failure ends the run.
func (c *Controller) plan(ctx context.Context, rc *Context, recoveryUsed *bool) (reasoning.SearchStrategy, error) {
	strategy, err := c.reasoner.PlanSearches(ctx, rc.View())
	if err == nil {
		return strategy, nil
	}
	if *recoveryUsed {
		return reasoning.SearchStrategy{}, err
	}
	*recoveryUsed = true

	c.logger.Warn("plan failed, attempting recovery", "error", err)
	recovery := c.reasoner.RecoverFromError(ctx, err.Error(), rc.question)
	if len(recovery.Alternatives) == 0 {
		return reasoning.SearchStrategy{}, err
	}
	alt := recovery.Alternatives[0]
	queries := alt.Queries
	if len(queries) == 0 {
		queries = []string{rc.question}
	}
	return reasoning.SearchStrategy{
		SearchQueries:     queries,
		ResearchRationale: alt.Strategy,
		ExpectedFindings:  recovery.Explanation,
	}, nil
}

// admitResults folds per-query results into context. First-seen URL wins
// across all queries of the round; when source validation is enabled, an
// excluded result is evicted but its URL stays used so it is never
// re-admitted.
func (c *Controller) admitResults(ctx context.Context, rc *Context, perQuery []search.QueryResult) []model.SearchResult {
	var admitted []model.SearchResult
	for _, qr := range perQuery {
		for _, result := range qr.Results {
			if rc.SourceUsed(result.URL) {
				continue
			}

			if c.cfg.EnableSourceValidation {
				validation := c.reasoner.ValidateSource(ctx, result.URL, result.Content)
				if validation.Recommendation == reasoning.RecommendExclude {
					rc.MarkSourceUsed(result.URL)
					c.logger.Debug("source excluded by validation",
						"url", result.URL, "reason", validation.Reasoning)
					continue
				}
			}

			rc.AddSearchResult(result)
			admitted = append(admitted, result)
		}
	}
	return admitted
}

// buildResult snapshots a terminal context into a read-only Result.
func (c *Controller) buildResult(runID string, rc *Context, runErr error) model.Result {
	result := model.Result{
		RunID:           runID,
		Question:        rc.question,
		FinalSummary:    rc.currentSummary,
		SourcesUsed:     rc.Sources(),
		TotalSources:    len(rc.sourceOrder),
		Iterations:      rc.iterationCount,
		KeyConcepts:     append([]string(nil), rc.keyConcepts...),
		History:         rc.history,
		FinalAssessment: rc.lastAssessment,
		Duration:        rc.endTime.Sub(rc.startTime),
		Status:          rc.status,
		CompletedAt:     rc.endTime,
	}
	if runErr != nil {
		result.ErrorMessage = runErr.Error()
	}
	return result
}

// concatContents joins result contents for concept extraction.
func concatContents(results []model.SearchResult) string {
	var parts []string
	for _, r := range results {
		parts = append(parts, r.Content)
	}
	return strings.Join(parts, "\n\n")
}

// formatResults renders new results as evidence text for summary updates.
func formatResults(results []model.SearchResult) string {
	if len(results) == 0 {
		return ""
	}
	var parts []string
	for _, r := range results {
		parts = append(parts, strings.TrimSpace(fmt.Sprintf(
			"**%s**\n%s\n(Source: %s)\nRelevance: %.1f%%",
			r.Title, r.Content, r.URL, r.RelevanceScore)))
	}
	return strings.Join(parts, "\n\n")
}
