// Package research implements the iterative research loop: planning
// searches, folding evidence into accumulated state, and deciding when
// enough has been learned to stop.
package research

import (
	"time"

	"github.com/richinex/delver/model"
	"github.com/richinex/delver/reasoning"
)

// Context is the mutable state of one research run. It is owned
// exclusively by the controller for the lifetime of the run; collaborators
// receive read-only views. Once a terminal status is set the context is
// only read, never mutated.
type Context struct {
	question       string
	currentSummary string
	usedSources    map[string]struct{}
	sourceOrder    []string // admission order of usedSources
	iterationCount int
	status         model.Status
	keyConcepts    []string
	history        []model.IterationRecord
	lastAssessment *model.Assessment
	startTime      time.Time
	endTime        time.Time
}

// newContext creates an initialized context for a question.
func newContext(question string) *Context {
	return &Context{
		question:    question,
		usedSources: make(map[string]struct{}),
		status:      model.StatusInitialized,
		startTime:   time.Now(),
	}
}

// AddSearchResult attempts admission of a result. Only the first-seen URL
// wins; a result whose URL has already been admitted is rejected
// regardless of content drift.
func (c *Context) AddSearchResult(result model.SearchResult) bool {
	if _, seen := c.usedSources[result.URL]; seen {
		return false
	}
	c.usedSources[result.URL] = struct{}{}
	c.sourceOrder = append(c.sourceOrder, result.URL)
	return true
}

// MarkSourceUsed records a URL as seen without admitting a result.
// Used when validation excludes a source: the URL must not be
// re-admitted in later rounds.
func (c *Context) MarkSourceUsed(url string) {
	if _, seen := c.usedSources[url]; seen {
		return
	}
	c.usedSources[url] = struct{}{}
	c.sourceOrder = append(c.sourceOrder, url)
}

// SourceUsed reports whether a URL has been admitted or marked used.
func (c *Context) SourceUsed(url string) bool {
	_, seen := c.usedSources[url]
	return seen
}

// Sources returns the used source URLs in admission order.
func (c *Context) Sources() []string {
	out := make([]string, len(c.sourceOrder))
	copy(out, c.sourceOrder)
	return out
}

// View returns the read-only slice of state that gateway prompts need.
func (c *Context) View() reasoning.ContextView {
	return reasoning.ContextView{
		Question:       c.question,
		CurrentSummary: c.currentSummary,
		KeyConcepts:    append([]string(nil), c.keyConcepts...),
		UsedSources:    c.Sources(),
		IterationCount: c.iterationCount,
	}
}

// mergeConcepts folds new concepts into state, case-insensitively deduped,
// and returns how many were actually new.
func (c *Context) mergeConcepts(incoming []string) int {
	before := len(c.keyConcepts)
	c.keyConcepts = model.MergeConcepts(c.keyConcepts, incoming)
	return len(c.keyConcepts) - before
}

// finish sets the terminal status and end time.
func (c *Context) finish(status model.Status) {
	c.status = status
	c.endTime = time.Now()
}
