package search

import "strings"

// SourceKind classifies a source by its URL domain.
type SourceKind string

const (
	SourceAcademic   SourceKind = "academic"
	SourceGovernment SourceKind = "government"
	SourceNews       SourceKind = "news"
	SourceOther      SourceKind = "other"
)

var academicDomains = []string{
	".edu", ".ac.", "scholar.google", "pubmed", "arxiv",
	"jstor", "springer", "wiley", "elsevier", "nature.com",
	"science.org", "pnas.org", "cell.com",
}

var governmentDomains = []string{
	".gov", ".mil", "europa.eu", "un.org", "who.int",
	"worldbank.org", "imf.org", "oecd.org",
}

var newsDomains = []string{
	"reuters.com", "bbc.com", "cnn.com", "nytimes.com",
	"washingtonpost.com", "wsj.com", "ft.com", "bloomberg.com",
	"apnews.com", "npr.org", "theguardian.com",
}

// CategorizeSource classifies a URL by matching known domain fragments.
func CategorizeSource(url string) SourceKind {
	lower := strings.ToLower(url)
	switch {
	case matchesAny(lower, academicDomains):
		return SourceAcademic
	case matchesAny(lower, governmentDomains):
		return SourceGovernment
	case matchesAny(lower, newsDomains):
		return SourceNews
	default:
		return SourceOther
	}
}

func matchesAny(url string, domains []string) bool {
	for _, d := range domains {
		if strings.Contains(url, d) {
			return true
		}
	}
	return false
}
