package search

import (
	"strings"
	"time"

	"github.com/richinex/delver/model"
)

// Accepted field-name aliases per canonical field, in resolution order.
// First present non-empty alias wins.
var (
	urlAliases     = []string{"url", "link", "href"}
	titleAliases   = []string{"title", "name"}
	contentAliases = []string{"content", "body", "text"}
	snippetAliases = []string{"snippet", "summary", "description"}
)

const snippetMaxLen = 200

// normalizeHit converts a raw provider hit into a canonical SearchResult.
// Returns false when the hit carries no usable signal: empty url, or both
// content and snippet empty.
func normalizeHit(hit Hit, now time.Time) (model.SearchResult, bool) {
	url := resolveAlias(hit, urlAliases)
	if url == "" {
		return model.SearchResult{}, false
	}

	content := resolveAlias(hit, contentAliases)
	snippet := resolveAlias(hit, snippetAliases)
	if content == "" && snippet == "" {
		return model.SearchResult{}, false
	}

	if snippet == "" {
		snippet = synthesizeSnippet(content)
	}

	return model.SearchResult{
		URL:       url,
		Title:     resolveAlias(hit, titleAliases),
		Content:   content,
		Snippet:   snippet,
		Timestamp: now,
	}, true
}

// resolveAlias returns the first non-empty string value among the aliases.
func resolveAlias(hit Hit, aliases []string) string {
	for _, key := range aliases {
		if raw, ok := hit[key]; ok {
			if s, ok := raw.(string); ok && strings.TrimSpace(s) != "" {
				return s
			}
		}
	}
	return ""
}

// synthesizeSnippet builds a snippet from the leading content characters.
func synthesizeSnippet(content string) string {
	if len(content) <= snippetMaxLen {
		return content
	}
	return content[:snippetMaxLen] + "..."
}

// RelevanceScore computes keyword-overlap relevance between a query and
// result text as 100 * |queryTokens ∩ textTokens| / |queryTokens|,
// capped at 100. Tokens are lower-cased whitespace-split sets. This is an
// approximate keyword-overlap heuristic, not semantic relevance.
func RelevanceScore(query, text string) float64 {
	queryTokens := tokenSet(query)
	if len(queryTokens) == 0 {
		return 0
	}

	textTokens := tokenSet(text)
	matched := 0
	for token := range queryTokens {
		if _, ok := textTokens[token]; ok {
			matched++
		}
	}

	score := 100 * float64(matched) / float64(len(queryTokens))
	if score > 100 {
		score = 100
	}
	return score
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
