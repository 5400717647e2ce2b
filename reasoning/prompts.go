package reasoning

import (
	"fmt"
	"strings"
)

// ContextView is the read-only slice of research state that prompts need.
// The controller passes copies; the gateway never mutates research state.
type ContextView struct {
	Question       string
	CurrentSummary string
	KeyConcepts    []string
	UsedSources    []string
	IterationCount int
}

func searchStrategyPrompt(view ContextView, maxIterations int) string {
	summary := view.CurrentSummary
	if summary == "" {
		summary = "No prior research conducted"
	}
	concepts := "None"
	if len(view.KeyConcepts) > 0 {
		concepts = strings.Join(view.KeyConcepts, ", ")
	}
	sources := "None"
	if len(view.UsedSources) > 0 {
		sources = strings.Join(view.UsedSources, "\n")
	}

	return fmt.Sprintf(`You are an expert research strategist. Your task is to generate targeted search queries for deep research.

ORIGINAL USER QUESTION: %q

CURRENT RESEARCH SUMMARY:
%s

KEY CONCEPTS ALREADY EXPLORED:
%s

SOURCES ALREADY USED (AVOID THESE):
%s

ITERATION: %d/%d

Based on the current knowledge and gaps identified, generate 2-3 strategic search queries that will:
1. Fill knowledge gaps from the current summary
2. Explore deeper aspects mentioned but not fully covered
3. Find authoritative sources (laws, academic papers, official documents)
4. Avoid already-used sources
5. Build upon specific details mentioned in the summary

For legal questions: Focus on statutes, case law, constitutional articles, regulations
For technical questions: Focus on standards, specifications, research papers, expert analyses
For current events: Focus on recent developments, official statements, expert commentary

Return your response in this JSON format:
{
    "search_queries": ["query1", "query2", "query3"],
    "research_rationale": "Why these queries will advance our understanding",
    "expected_findings": "What types of information we hope to discover"
}`, view.Question, summary, concepts, sources, view.IterationCount+1, maxIterations)
}

func conceptExtractionPrompt(content string) string {
	return fmt.Sprintf(`Analyze this research content and extract key concepts, entities, and important details:

CONTENT:
%s

Extract and return:
1. Key legal concepts, articles, statutes, or regulations mentioned
2. Important names, organizations, or institutions
3. Specific numbers, dates, or quantitative information
4. Technical terms or specialized vocabulary
5. Cross-references to other important topics for further research

Return your response in this JSON format:
{
    "key_concepts": ["concept1", "concept2"]
}`, content)
}

func summaryUpdatePrompt(view ContextView, newInformation string) string {
	existing := view.CurrentSummary
	if existing == "" {
		existing = "No existing summary"
	}

	return fmt.Sprintf(`You are an expert research analyst. Create a comprehensive, well-structured summary.

ORIGINAL USER QUESTION: %q

EXISTING SUMMARY:
%s

NEW RESEARCH FINDINGS:
%s

Create an UPDATED COMPREHENSIVE SUMMARY that:

1. DIRECTLY ADDRESSES the original user question
2. INTEGRATES new findings with existing knowledge
3. MAINTAINS all important details and citations
4. IDENTIFIES remaining knowledge gaps
5. ORGANIZES information logically and clearly

Ensure every claim is properly cited with source URLs when available.

Return your response in this JSON format:
{
    "main_answer": "Direct response to the user's question based on current knowledge",
    "key_findings": ["most important discoveries"],
    "supporting_evidence": ["citations and sources supporting the findings"],
    "related_concepts": ["connected topics that provide context"],
    "knowledge_gaps": ["areas requiring further investigation"],
    "confidence_level": "Low/Medium/High"
}`, view.Question, existing, newInformation)
}

func completenessPrompt(view ContextView) string {
	return fmt.Sprintf(`Evaluate whether our current research is sufficient to provide a comprehensive answer.

ORIGINAL QUESTION: %q
CURRENT SUMMARY: %s
ITERATIONS COMPLETED: %d
SOURCES CONSULTED: %d

Rate the completeness on these criteria (1-10 scale):
1. Directness: Does the summary directly answer the user's question?
2. Depth: Is the information sufficiently detailed and comprehensive?
3. Authority: Are the sources authoritative and credible?
4. Coverage: Are all important aspects of the question covered?
5. Currency: Is the information current and up-to-date?

Return JSON format:
{
    "should_continue": true/false,
    "completeness_score": 0-100,
    "reasoning": "Detailed explanation of the assessment",
    "missing_aspects": ["aspect1", "aspect2"] or [],
    "recommended_next_searches": ["search1", "search2"] or []
}`, view.Question, view.CurrentSummary, view.IterationCount, len(view.UsedSources))
}

func sourceValidationPrompt(sourceURL, content string) string {
	preview := content
	if len(preview) > 500 {
		preview = preview[:500]
	}

	return fmt.Sprintf(`Evaluate the credibility and relevance of this source:

SOURCE URL: %s
CONTENT PREVIEW: %s...

Rate this source on:
1. Credibility: Is this from a reputable, authoritative source?
2. Relevance: How relevant is this content to research topics?
3. Recency: Is the information current and up-to-date?
4. Depth: Does it provide substantial, detailed information?

Return JSON format:
{
    "credibility_score": 0-10,
    "relevance_score": 0-10,
    "overall_quality": 0-10,
    "source_type": "academic/news/government/commercial/blog/other",
    "recommendation": "include/exclude/review",
    "reasoning": "Brief explanation of the assessment"
}`, sourceURL, preview)
}

func queryRefinementPrompt(originalQuery string, previousResults []string) string {
	previous := "No previous results"
	if len(previousResults) > 0 {
		capped := previousResults
		if len(capped) > 3 {
			capped = capped[:3]
		}
		previous = strings.Join(capped, "\n")
	}

	return fmt.Sprintf(`Refine this search query to get better, more specific results:

ORIGINAL QUERY: %q

PREVIOUS RESULTS SUMMARY:
%s

Create 2-3 refined search queries that:
1. Are more specific and targeted
2. Use different terminology or approach
3. Focus on gaps in current results
4. Avoid repeating ineffective searches

Return JSON format:
{
    "refined_queries": ["refined_query1", "refined_query2", "refined_query3"]
}`, originalQuery, previous)
}

func finalAnswerPrompt(view ContextView) string {
	return fmt.Sprintf(`Based on comprehensive research, provide a final, authoritative answer.

ORIGINAL QUESTION: %q

RESEARCH SUMMARY:
%s

SOURCES CONSULTED: %d sources
RESEARCH DEPTH: %d iterations

Provide a final answer that:
1. Directly and clearly answers the original question
2. Is well-structured and easy to understand
3. Includes key supporting evidence with citations
4. Acknowledges any limitations or uncertainties
5. Suggests related topics for further exploration

Format as a clear, comprehensive response suitable for the user.`,
		view.Question, view.CurrentSummary, len(view.UsedSources), view.IterationCount)
}

func errorRecoveryPrompt(errorContext, question string) string {
	return fmt.Sprintf(`An error occurred during research. Suggest alternative approaches.

ERROR CONTEXT: %s
ORIGINAL QUESTION: %q

Suggest 3 alternative research strategies that could work around this issue:
1. Different search terms or approaches
2. Alternative information sources
3. Modified research methodology

Return as JSON:
{
    "alternatives": [
        {"strategy": "description", "queries": ["query1", "query2"]}
    ],
    "explanation": "Why these alternatives might work better"
}`, errorContext, question)
}
