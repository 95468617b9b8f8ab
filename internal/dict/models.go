package dict

import "time"

// Term statuses as reported by the upstream API.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

type Category struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Approved bool   `json:"isApproved"`
}

type Theme struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Approved bool   `json:"isApproved"`
}

type Language struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Code     string `json:"code"`
	Approved bool   `json:"isApproved"`
}

type Comment struct {
	Author    string    `json:"author,omitempty"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

type Term struct {
	ID           string      `json:"id"`
	Term         string      `json:"term"`
	Translation  string      `json:"translation"`
	Definition   string      `json:"definition"`
	Category     TaxonomyRef `json:"grammaticalCategory"`
	Theme        TaxonomyRef `json:"theme"`
	Language     TaxonomyRef `json:"language"`
	LanguageCode string      `json:"languageCode"`
	Status       string      `json:"status"`
	Author       string      `json:"author,omitempty"`
	AuthorEmail  string      `json:"authorEmail,omitempty"`
	Upvotes      int         `json:"upvotes"`
	Downvotes    int         `json:"downvotes"`
	Comments     []Comment   `json:"comments,omitempty"`
}

type TermPage struct {
	Terms       []Term `json:"terms"`
	CurrentPage int    `json:"currentPage"`
	TotalPages  int    `json:"totalPages"`
	TotalTerms  int    `json:"totalTerms"`
}

// ApproveData is the flattened, name-only projection submitted to the
// approval endpoint. All fields are plain strings by submission time.
type ApproveData struct {
	Term                string `json:"term"`
	Translation         string `json:"translation"`
	Definition          string `json:"definition"`
	GrammaticalCategory string `json:"grammaticalCategory"`
	Theme               string `json:"theme"`
	Language            string `json:"language"`
	LanguageCode        string `json:"languageCode"`
}

// TermFilter narrows approved-term listings.
type TermFilter struct {
	Category string
	Theme    string
	Language string
	Search   string
	Page     int
	Limit    int
}

type NewTerm struct {
	Term         string `json:"term"`
	Translation  string `json:"translation"`
	Definition   string `json:"definition"`
	Category     string `json:"grammaticalCategory"`
	Theme        string `json:"theme"`
	Language     string `json:"language"`
	LanguageCode string `json:"languageCode"`
}

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthResult struct {
	Token string `json:"token"`
}

type Flashcard struct {
	TermID      string `json:"termId"`
	Front       string `json:"front"`
	Back        string `json:"back"`
	Definition  string `json:"definition,omitempty"`
	LanguageTag string `json:"languageTag,omitempty"`
}

type Stats struct {
	TotalTerms     int `json:"totalTerms"`
	PendingTerms   int `json:"pendingTerms"`
	TotalUsers     int `json:"totalUsers"`
	TotalLanguages int `json:"totalLanguages"`
}
