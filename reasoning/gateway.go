package reasoning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/richinex/delver/internal/jsonx"
	"github.com/richinex/delver/llm"
	"github.com/richinex/delver/model"
)

// ErrConnectivity indicates the language model was unreachable during the
// construction probe. A gateway that failed its probe is never returned.
var ErrConnectivity = errors.New("language model unreachable")

// Options configures gateway behavior.
type Options struct {
	// MaxIterations is surfaced to the model in planning prompts.
	MaxIterations int
	// EnableConceptExtraction gates the concept extraction operation.
	// When disabled, ExtractConcepts returns nil without a model call.
	EnableConceptExtraction bool
	// EnableSourceValidation gates the source validation operation.
	// When disabled, ValidateSource returns the default acceptance.
	EnableSourceValidation bool
}

// Gateway wraps one chat-capable model with typed research operations.
//
// Every operation follows the same contract: build a prompt, request a
// structured shape, and on malformed output return a deterministic
// documented fallback instead of propagating the parse failure. Transport
// errors propagate only from PlanSearches and AssessCompleteness, where
// fabricating a result would mislead the control loop; everywhere else
// they are absorbed into the operation's neutral fallback.
type Gateway struct {
	client *llm.Client
	opts   Options
	logger *slog.Logger
}

// New constructs a gateway over the provider and probes connectivity with a
// trivial prompt. Fails fast with ErrConnectivity if the model is
// unreachable or misconfigured.
func New(ctx context.Context, provider llm.Provider, opts Options, logger *slog.Logger) (*Gateway, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 7
	}

	client := llm.NewClient(provider)
	_, err := client.Chat(ctx, []llm.ChatMessage{
		llm.UserMessage("Reply with the single word: ok"),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConnectivity, provider.Name(), err)
	}

	logger.Debug("gateway connectivity probe succeeded",
		"provider", provider.Name(),
		"model", provider.Model())

	return &Gateway{client: client, opts: opts, logger: logger}, nil
}

// maxPlannedQueries caps how many queries one plan may issue.
const maxPlannedQueries = 3

// PlanSearches asks the model for the next round's search queries.
// Malformed output falls back to a single query equal to the original
// question. Transport errors propagate: the caller decides whether to
// attempt recovery.
func (g *Gateway) PlanSearches(ctx context.Context, view ContextView) (SearchStrategy, error) {
	prompt := searchStrategyPrompt(view, g.opts.MaxIterations)
	response, err := g.client.ChatWithFormat(ctx, userOnly(prompt), llm.NewJSONObjectFormat())
	if err != nil {
		return SearchStrategy{}, fmt.Errorf("plan searches: %w", err)
	}

	strategy, err := jsonx.Unmarshal[SearchStrategy](response)
	if err != nil || len(strategy.SearchQueries) == 0 {
		g.logger.Warn("search strategy unparseable, using fallback", "error", err)
		return fallbackStrategy(view.Question), nil
	}

	if len(strategy.SearchQueries) > maxPlannedQueries {
		strategy.SearchQueries = strategy.SearchQueries[:maxPlannedQueries]
	}
	return strategy, nil
}

func fallbackStrategy(question string) SearchStrategy {
	return SearchStrategy{
		SearchQueries:     []string{question},
		ResearchRationale: "Fallback to basic search due to parsing error",
		ExpectedFindings:  "Basic information about the topic",
	}
}

// ExtractConcepts pulls key concepts from new research content. Returns
// nil when extraction is disabled, the content is empty, or anything
// fails: concepts enrich the run but are never load-bearing.
func (g *Gateway) ExtractConcepts(ctx context.Context, content string) []string {
	if !g.opts.EnableConceptExtraction || strings.TrimSpace(content) == "" {
		return nil
	}

	prompt := conceptExtractionPrompt(content)
	response, err := g.client.ChatWithFormat(ctx, userOnly(prompt), llm.NewJSONObjectFormat())
	if err != nil {
		g.logger.Warn("concept extraction failed", "error", err)
		return nil
	}

	extraction, err := jsonx.Unmarshal[ConceptExtraction](response)
	if err != nil {
		g.logger.Warn("concept extraction unparseable", "error", err)
		return nil
	}
	return extraction.KeyConcepts
}

// UpdateSummary folds new evidence into the running summary. Any failure
// returns the prior summary unchanged.
func (g *Gateway) UpdateSummary(ctx context.Context, view ContextView, newInformation string) string {
	if strings.TrimSpace(newInformation) == "" {
		return view.CurrentSummary
	}

	prompt := summaryUpdatePrompt(view, newInformation)
	response, err := g.client.ChatWithFormat(ctx, userOnly(prompt), llm.NewJSONObjectFormat())
	if err != nil {
		g.logger.Warn("summary update failed, keeping prior summary", "error", err)
		return view.CurrentSummary
	}

	summary, err := jsonx.Unmarshal[ComprehensiveSummary](response)
	if err != nil || strings.TrimSpace(summary.MainAnswer) == "" {
		g.logger.Warn("summary update unparseable, keeping prior summary", "error", err)
		return view.CurrentSummary
	}
	return renderSummary(summary)
}

// renderSummary flattens the structured summary into readable text.
func renderSummary(s ComprehensiveSummary) string {
	var b strings.Builder
	b.WriteString(s.MainAnswer)

	writeSection := func(heading string, items []string) {
		if len(items) == 0 {
			return
		}
		b.WriteString("\n\n")
		b.WriteString(heading)
		b.WriteString(":\n")
		for _, item := range items {
			b.WriteString("- ")
			b.WriteString(item)
			b.WriteString("\n")
		}
	}

	writeSection("Key Findings", s.KeyFindings)
	writeSection("Supporting Evidence", s.SupportingEvidence)
	writeSection("Related Concepts", s.RelatedConcepts)
	writeSection("Knowledge Gaps", s.KnowledgeGaps)

	return strings.TrimSpace(b.String())
}

// AssessCompleteness asks the model whether enough has been learned.
// Confidence is always derived from the completeness score, never taken
// from the model's own claim. Malformed output falls back to
// shouldContinue = (iterationCount < 3) with score 50. Transport errors
// propagate.
func (g *Gateway) AssessCompleteness(ctx context.Context, view ContextView) (model.Assessment, error) {
	prompt := completenessPrompt(view)
	response, err := g.client.ChatWithFormat(ctx, userOnly(prompt), llm.NewJSONObjectFormat())
	if err != nil {
		return model.Assessment{}, fmt.Errorf("assess completeness: %w", err)
	}

	completeness, err := jsonx.Unmarshal[ResearchCompleteness](response)
	if err != nil {
		g.logger.Warn("completeness assessment unparseable, using fallback", "error", err)
		return model.Assessment{
			ShouldContinue:    view.IterationCount < 3,
			CompletenessScore: 50,
			Reasoning:         "Assessment parsing failed, using fallback logic",
			ConfidenceLevel:   model.ConfidenceLow,
		}, nil
	}

	score := clampScore(completeness.CompletenessScore)
	return model.Assessment{
		ShouldContinue:      completeness.ShouldContinue,
		CompletenessScore:   score,
		Reasoning:           completeness.Reasoning,
		MissingAspects:      completeness.MissingAspects,
		RecommendedSearches: completeness.RecommendedNextSearches,
		ConfidenceLevel:     model.ConfidenceForScore(score),
	}, nil
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// ValidateSource rates one source's credibility. When validation is
// disabled, returns default acceptance without a model call. Unparseable
// output defaults to inclusion rather than silently dropping a source;
// transport errors default to review.
func (g *Gateway) ValidateSource(ctx context.Context, sourceURL, content string) SourceValidation {
	if !g.opts.EnableSourceValidation {
		return SourceValidation{OverallQuality: 7, Recommendation: RecommendInclude}
	}

	prompt := sourceValidationPrompt(sourceURL, content)
	response, err := g.client.ChatWithFormat(ctx, userOnly(prompt), llm.NewJSONObjectFormat())
	if err != nil {
		g.logger.Warn("source validation failed", "url", sourceURL, "error", err)
		return SourceValidation{
			OverallQuality: 5,
			Recommendation: RecommendReview,
			Reasoning:      fmt.Sprintf("Validation error: %v", err),
		}
	}

	validation, err := jsonx.Unmarshal[SourceValidation](response)
	if err != nil {
		g.logger.Warn("source validation unparseable", "url", sourceURL, "error", err)
		return SourceValidation{
			OverallQuality: 7,
			Recommendation: RecommendInclude,
			Reasoning:      "Default acceptance due to parsing error",
		}
	}
	return validation
}

// FinalAnswer produces a polished answer from the accumulated summary.
// Any failure falls back to the current summary.
func (g *Gateway) FinalAnswer(ctx context.Context, view ContextView) string {
	prompt := finalAnswerPrompt(view)
	response, err := g.client.Chat(ctx, userOnly(prompt))
	if err != nil {
		g.logger.Warn("final answer generation failed, using summary", "error", err)
		return view.CurrentSummary
	}

	answer := strings.TrimSpace(response)
	if answer == "" {
		return view.CurrentSummary
	}
	return answer
}

// RecoverFromError asks the model for alternative approaches after a
// failure. Any failure falls back to one basic keyword search using the
// original question.
func (g *Gateway) RecoverFromError(ctx context.Context, errorContext, question string) ErrorRecovery {
	prompt := errorRecoveryPrompt(errorContext, question)
	response, err := g.client.ChatWithFormat(ctx, userOnly(prompt), llm.NewJSONObjectFormat())
	if err == nil {
		recovery, parseErr := jsonx.Unmarshal[ErrorRecovery](response)
		if parseErr == nil && len(recovery.Alternatives) > 0 {
			return recovery
		}
		err = parseErr
	}

	g.logger.Warn("error recovery failed, using fallback", "error", err)
	return ErrorRecovery{
		Alternatives: []RecoveryAlternative{
			{Strategy: "Basic keyword search", Queries: []string{question}},
		},
		Explanation: "Fallback to simple search due to error recovery failure",
	}
}

// RefineQuery rewrites a query based on earlier results. Any failure
// returns the original query unchanged.
func (g *Gateway) RefineQuery(ctx context.Context, originalQuery string, previousResults []string) []string {
	prompt := queryRefinementPrompt(originalQuery, previousResults)
	response, err := g.client.ChatWithFormat(ctx, userOnly(prompt), llm.NewJSONObjectFormat())
	if err != nil {
		g.logger.Warn("query refinement failed", "error", err)
		return []string{originalQuery}
	}

	refinement, err := jsonx.Unmarshal[QueryRefinement](response)
	if err != nil || len(refinement.RefinedQueries) == 0 {
		g.logger.Warn("query refinement unparseable", "error", err)
		return []string{originalQuery}
	}
	return refinement.RefinedQueries
}

func userOnly(prompt string) []llm.ChatMessage {
	return []llm.ChatMessage{llm.UserMessage(prompt)}
}
