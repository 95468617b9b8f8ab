package search

// TermRecord is the data we index for an approved term.
type TermRecord struct {
	ID          string `json:"id"`
	Term        string `json:"term"`
	Translation string `json:"translation"`
	Definition  string `json:"definition"`
	Language    string `json:"language"`
	Theme       string `json:"theme"`
	Category    string `json:"category"`
}

// Result is a single search hit returned to the caller.
type Result struct {
	ID          string `json:"id"`
	Term        string `json:"term"`
	Translation string `json:"translation"`
	Snippet     string `json:"snippet"`
	Language    string `json:"language"`
	Theme       string `json:"theme"`
}

// Query describes a search request.
type Query struct {
	Text           string
	FilterLanguage string
	FilterTheme    string
	Limit          int
	Offset         int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a term search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push terms into a search index.
type Indexer interface {
	IndexTerm(record TermRecord) error
	DeleteTerm(id string) error
}
