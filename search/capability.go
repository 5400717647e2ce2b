// Package search executes web searches against pluggable providers,
// normalizes heterogeneous result shapes, and scores relevance.
package search

import "context"

// Hit is one raw provider result. Providers disagree on field names,
// so hits stay untyped until normalization.
type Hit map[string]any

// Capability is an externally supplied search backend consumed through
// a narrow interface.
type Capability interface {
	// Name identifies the backend in logs.
	Name() string
	// Search runs one query and returns up to maxResults raw hits.
	Search(ctx context.Context, query string, maxResults int) ([]Hit, error)
}
