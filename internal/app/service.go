package app

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"lexhub/api/internal/approval"
	"lexhub/api/internal/auth"
	"lexhub/api/internal/cache"
	"lexhub/api/internal/dict"
	"lexhub/api/internal/email"
	"lexhub/api/internal/export"
	"lexhub/api/internal/rbac"
	"lexhub/api/internal/search"
	"lexhub/api/internal/validate"
)

// upstream is the slice of the dictionary API client the service depends on.
type upstream interface {
	Login(ctx context.Context, creds dict.Credentials) (dict.AuthResult, error)
	Register(ctx context.Context, creds dict.Credentials) (dict.AuthResult, error)
	ApprovedTerms(ctx context.Context, token string, filter dict.TermFilter) (dict.TermPage, error)
	PendingTerms(ctx context.Context, token string) ([]dict.Term, error)
	AuthoredTerms(ctx context.Context, token string) ([]dict.Term, error)
	Term(ctx context.Context, token, id string) (dict.Term, error)
	AddTerm(ctx context.Context, token string, term dict.NewTerm) (dict.Term, error)
	ApproveTerm(ctx context.Context, token, id string, data dict.ApproveData) error
	RejectTerm(ctx context.Context, token, id string) error
	UpvoteTerm(ctx context.Context, token, id string) (dict.Term, error)
	DownvoteTerm(ctx context.Context, token, id string) (dict.Term, error)
	AddComment(ctx context.Context, token, id string, comment dict.Comment) (dict.Term, error)
	Flashcard(ctx context.Context, token, id string) (dict.Flashcard, error)
	Quiz(ctx context.Context, token string, limit int) ([]dict.Flashcard, error)
	Categories(ctx context.Context, token string) ([]dict.Category, error)
	Themes(ctx context.Context, token string) ([]dict.Theme, error)
	Languages(ctx context.Context, token string) ([]dict.Language, error)
	AddLanguage(ctx context.Context, token, name, code string) (dict.Language, error)
	ApproveCategory(ctx context.Context, token, id string) error
	ApproveTheme(ctx context.Context, token, id string) error
	ApproveLanguage(ctx context.Context, token, id, code string) error
	PublicTerms(ctx context.Context) ([]dict.Term, error)
	PublicCategories(ctx context.Context) ([]dict.Category, error)
	Stats(ctx context.Context, token string) (dict.Stats, error)
}

// BookmarkStore is the per-user bookmark state.
type BookmarkStore interface {
	Add(ctx context.Context, userID, termID string) error
	Remove(ctx context.Context, userID, termID string) error
	List(ctx context.Context, userID string) ([]string, error)
	Has(ctx context.Context, userID, termID string) (bool, error)
	Ping(ctx context.Context) error
}

// TaxonomyCache fronts the upstream taxonomy lists.
type TaxonomyCache interface {
	Get(ctx context.Context, name string, out any) error
	Set(ctx context.Context, name string, value any) error
	Invalidate(ctx context.Context, names ...string) error
}

// Session is the identity extracted from an upstream-issued bearer token.
type Session struct {
	Token     string
	UserID    string
	UserName  string
	Role      rbac.Role
	ExpiresAt time.Time
}

// TermView is a term enriched with per-user state the upstream does not
// know about.
type TermView struct {
	dict.Term
	Bookmarked bool `json:"bookmarked"`
	// ApprovalPreview is the flattened payload an approval of this term
	// would submit, shown to moderators while the term is pending. It is
	// the same projection the submit path uses, so the preview and the
	// eventual payload cannot diverge.
	ApprovalPreview *dict.ApproveData `json:"approvalPreview,omitempty"`
}

type Service struct {
	dict      upstream
	bookmarks BookmarkStore
	taxonomy  TaxonomyCache
	search    *search.Service
	export    *export.Service
	email     *email.Service

	// approving guards against double submission of the same term while
	// an approval sequence is still running.
	approving sync.Map
}

func NewService(client upstream, bookmarks BookmarkStore, taxonomy TaxonomyCache, searchSvc *search.Service, exportSvc *export.Service, emailSvc *email.Service) *Service {
	return &Service{
		dict:      client,
		bookmarks: bookmarks,
		taxonomy:  taxonomy,
		search:    searchSvc,
		export:    exportSvc,
		email:     emailSvc,
	}
}

func (s *Service) Can(role rbac.Role, action rbac.Action) bool {
	return rbac.Can(role, action)
}

// Ping reports whether the local state store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	if s.bookmarks == nil {
		return nil
	}
	return s.bookmarks.Ping(ctx)
}

// SessionFromToken decodes the bearer token into a session. No upstream
// call is made; the upstream re-validates the token on every proxied
// request.
func (s *Service) SessionFromToken(token string) (Session, error) {
	claims, err := auth.ParseToken(token)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:     token,
		UserID:    claims.ID,
		UserName:  claims.Username,
		Role:      rbac.Normalize(claims.Role),
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Auth

func (s *Service) Login(ctx context.Context, creds dict.Credentials) (map[string]any, error) {
	result, err := s.dict.Login(ctx, creds)
	if err != nil {
		return nil, err
	}
	return s.authPayload(result)
}

func (s *Service) Register(ctx context.Context, creds dict.Credentials) (map[string]any, error) {
	result, err := s.dict.Register(ctx, creds)
	if err != nil {
		return nil, err
	}
	return s.authPayload(result)
}

func (s *Service) authPayload(result dict.AuthResult) (map[string]any, error) {
	session, err := s.SessionFromToken(result.Token)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"token":     result.Token,
		"userId":    session.UserID,
		"username":  session.UserName,
		"role":      string(session.Role),
		"expiresAt": session.ExpiresAt.Unix(),
	}, nil
}

// Terms

func (s *Service) ListTerms(ctx context.Context, session Session, filter dict.TermFilter) (map[string]any, error) {
	page, err := s.dict.ApprovedTerms(ctx, session.Token, filter)
	if err != nil {
		return nil, err
	}
	views := s.annotate(ctx, session, page.Terms)
	return map[string]any{
		"terms":       views,
		"currentPage": page.CurrentPage,
		"totalPages":  page.TotalPages,
		"totalTerms":  page.TotalTerms,
	}, nil
}

func (s *Service) TermDetail(ctx context.Context, session Session, id string) (TermView, error) {
	term, err := s.dict.Term(ctx, session.Token, id)
	if err != nil {
		return TermView{}, err
	}
	view := TermView{Term: term}
	if s.bookmarks != nil {
		if ok, err := s.bookmarks.Has(ctx, session.UserID, id); err == nil {
			view.Bookmarked = ok
		}
	}
	if term.Status == dict.StatusPending && rbac.Can(session.Role, rbac.ActionApprove) {
		data := approval.Resolve(approval.InputFromTerm(term))
		view.ApprovalPreview = &data
	}
	return view, nil
}

// SubmitTerm validates the submission and forwards it. Validation failures
// surface the full inline error list, never just the first.
func (s *Service) SubmitTerm(ctx context.Context, session Session, input dict.NewTerm) (dict.Term, error) {
	data := dict.ApproveData{
		Term:                input.Term,
		GrammaticalCategory: input.Category,
		Theme:               input.Theme,
		Language:            input.Language,
		LanguageCode:        input.LanguageCode,
	}
	if messages := validate.ApproveData(data); len(messages) > 0 {
		return dict.Term{}, domainError(422, "VALIDATION_ERROR", "Submission is invalid", messages)
	}
	return s.dict.AddTerm(ctx, session.Token, input)
}

func (s *Service) PendingTerms(ctx context.Context, session Session) ([]dict.Term, error) {
	return s.dict.PendingTerms(ctx, session.Token)
}

func (s *Service) AuthoredTerms(ctx context.Context, session Session) ([]dict.Term, error) {
	return s.dict.AuthoredTerms(ctx, session.Token)
}

// annotate marks which of the listed terms the user has bookmarked. A
// bookmark store failure degrades to unmarked terms rather than failing
// the listing.
func (s *Service) annotate(ctx context.Context, session Session, terms []dict.Term) []TermView {
	views := make([]TermView, len(terms))
	bookmarked := map[string]bool{}
	if s.bookmarks != nil {
		ids, err := s.bookmarks.List(ctx, session.UserID)
		if err != nil {
			log.Printf("bookmarks: list for %s: %v", session.UserID, err)
		}
		for _, id := range ids {
			bookmarked[id] = true
		}
	}
	for i, term := range terms {
		views[i] = TermView{Term: term, Bookmarked: bookmarked[term.ID]}
	}
	return views
}

// Moderation

// ApproveTerm runs the full approval sequence for one pending term: the
// payload is validated, unapproved taxonomy entries are approved or
// created first, and the term itself goes last. A second submission for
// the same term while the first is still running is rejected.
func (s *Service) ApproveTerm(ctx context.Context, session Session, input approval.TermInput) (map[string]any, error) {
	if _, inFlight := s.approving.LoadOrStore(input.TermID, struct{}{}); inFlight {
		return nil, domainError(409, "APPROVAL_IN_PROGRESS", "An approval for this term is already running", nil)
	}
	defer s.approving.Delete(input.TermID)

	categories, err := s.CachedCategories(ctx, session)
	if err != nil {
		return nil, err
	}
	themes, err := s.CachedThemes(ctx, session)
	if err != nil {
		return nil, err
	}

	data, plan, messages := approval.BuildPlan(input, categories, themes)
	if len(messages) > 0 {
		return nil, domainError(422, "VALIDATION_ERROR", "Approval payload is invalid", messages)
	}

	engine := approval.NewEngine(tokenTaxonomy{client: s.dict, token: session.Token})
	if err := engine.Run(ctx, plan); err != nil {
		return nil, err
	}

	s.invalidateTaxonomy(ctx)
	if s.search != nil {
		s.search.IndexTerm(search.TermRecord{
			ID:          input.TermID,
			Term:        data.Term,
			Translation: data.Translation,
			Definition:  data.Definition,
			Language:    data.Language,
			Theme:       data.Theme,
			Category:    data.GrammaticalCategory,
		})
	}
	s.notifyDecision(ctx, session, input.TermID, data.Term, data.Language, true)

	return map[string]any{
		"approved": true,
		"term":     data,
		"skipped":  plan.Skipped,
	}, nil
}

func (s *Service) RejectTerm(ctx context.Context, session Session, id string) error {
	term, fetchErr := s.dict.Term(ctx, session.Token, id)
	if err := s.dict.RejectTerm(ctx, session.Token, id); err != nil {
		return err
	}
	if s.search != nil {
		s.search.DeleteTerm(id)
	}
	if fetchErr == nil {
		s.notifyDecision(ctx, session, id, term.Term, "", false)
	}
	return nil
}

// notifyDecision emails the term's author. Delivery is best effort; a
// moderation decision never fails because SMTP is down.
func (s *Service) notifyDecision(ctx context.Context, session Session, termID, termName, language string, approved bool) {
	if s.email == nil || !s.email.IsConfigured() {
		return
	}
	address := ""
	if term, err := s.dict.Term(ctx, session.Token, termID); err == nil {
		address = strings.TrimSpace(term.AuthorEmail)
	}
	if address == "" {
		return
	}
	go func() {
		var err error
		if approved {
			err = s.email.SendTermApproved(address, termName, language)
		} else {
			err = s.email.SendTermRejected(address, termName)
		}
		if err != nil {
			log.Printf("email: notify %s about %s: %v", address, termID, err)
		}
	}()
}

func (s *Service) invalidateTaxonomy(ctx context.Context) {
	if s.taxonomy == nil {
		return
	}
	if err := s.taxonomy.Invalidate(ctx, "categories", "themes", "languages"); err != nil {
		log.Printf("cache: invalidate taxonomy: %v", err)
	}
}

// tokenTaxonomy binds the moderator's token onto the upstream taxonomy
// calls the approval engine issues.
type tokenTaxonomy struct {
	client upstream
	token  string
}

func (t tokenTaxonomy) ApproveCategory(ctx context.Context, id string) error {
	return t.client.ApproveCategory(ctx, t.token, id)
}

func (t tokenTaxonomy) ApproveTheme(ctx context.Context, id string) error {
	return t.client.ApproveTheme(ctx, t.token, id)
}

func (t tokenTaxonomy) AddLanguage(ctx context.Context, name, code string) (dict.Language, error) {
	return t.client.AddLanguage(ctx, t.token, name, code)
}

func (t tokenTaxonomy) ApproveLanguage(ctx context.Context, id, code string) error {
	return t.client.ApproveLanguage(ctx, t.token, id, code)
}

func (t tokenTaxonomy) ApproveTerm(ctx context.Context, id string, data dict.ApproveData) error {
	return t.client.ApproveTerm(ctx, t.token, id, data)
}

// Votes and comments

func (s *Service) Upvote(ctx context.Context, session Session, id string) (dict.Term, error) {
	return s.dict.UpvoteTerm(ctx, session.Token, id)
}

func (s *Service) Downvote(ctx context.Context, session Session, id string) (dict.Term, error) {
	return s.dict.DownvoteTerm(ctx, session.Token, id)
}

func (s *Service) Comment(ctx context.Context, session Session, id, text string) (dict.Term, error) {
	if strings.TrimSpace(text) == "" {
		return dict.Term{}, domainError(422, "VALIDATION_ERROR", "Comment text is required", nil)
	}
	return s.dict.AddComment(ctx, session.Token, id, dict.Comment{
		Author:    session.UserName,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	})
}

// Study

func (s *Service) Flashcard(ctx context.Context, session Session, id string) (dict.Flashcard, error) {
	return s.dict.Flashcard(ctx, session.Token, id)
}

func (s *Service) Quiz(ctx context.Context, session Session, limit int) ([]dict.Flashcard, error) {
	cards, err := s.dict.Quiz(ctx, session.Token, limit)
	if err != nil {
		return nil, err
	}
	if cards == nil {
		cards = []dict.Flashcard{}
	}
	return cards, nil
}

// Taxonomy listings, cache-through. A cache failure falls back to the
// upstream; a stale-but-served list is never worth a 500.

func (s *Service) CachedCategories(ctx context.Context, session Session) ([]dict.Category, error) {
	var cached []dict.Category
	if s.cacheGet(ctx, "categories", &cached) {
		return cached, nil
	}
	categories, err := s.dict.Categories(ctx, session.Token)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, "categories", categories)
	return categories, nil
}

func (s *Service) CachedThemes(ctx context.Context, session Session) ([]dict.Theme, error) {
	var cached []dict.Theme
	if s.cacheGet(ctx, "themes", &cached) {
		return cached, nil
	}
	themes, err := s.dict.Themes(ctx, session.Token)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, "themes", themes)
	return themes, nil
}

func (s *Service) CachedLanguages(ctx context.Context, session Session) ([]dict.Language, error) {
	var cached []dict.Language
	if s.cacheGet(ctx, "languages", &cached) {
		return cached, nil
	}
	languages, err := s.dict.Languages(ctx, session.Token)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, "languages", languages)
	return languages, nil
}

func (s *Service) cacheGet(ctx context.Context, name string, out any) bool {
	if s.taxonomy == nil {
		return false
	}
	err := s.taxonomy.Get(ctx, name, out)
	if err == nil {
		return true
	}
	if !errors.Is(err, cache.ErrMiss) {
		log.Printf("cache: get %s: %v", name, err)
	}
	return false
}

func (s *Service) cacheSet(ctx context.Context, name string, value any) {
	if s.taxonomy == nil {
		return
	}
	if err := s.taxonomy.Set(ctx, name, value); err != nil {
		log.Printf("cache: set %s: %v", name, err)
	}
}

// Bookmarks

func (s *Service) AddBookmark(ctx context.Context, session Session, termID string) error {
	if s.bookmarks == nil {
		return domainError(503, "BOOKMARKS_UNAVAILABLE", "Bookmark storage is not configured", nil)
	}
	// The term must exist; a dangling bookmark would 404 on every listing.
	if _, err := s.dict.Term(ctx, session.Token, termID); err != nil {
		return err
	}
	return s.bookmarks.Add(ctx, session.UserID, termID)
}

func (s *Service) RemoveBookmark(ctx context.Context, session Session, termID string) error {
	if s.bookmarks == nil {
		return domainError(503, "BOOKMARKS_UNAVAILABLE", "Bookmark storage is not configured", nil)
	}
	return s.bookmarks.Remove(ctx, session.UserID, termID)
}

// BookmarkedTerms resolves the user's bookmarks against the upstream.
// Bookmarks whose term has since disappeared are dropped from the result.
func (s *Service) BookmarkedTerms(ctx context.Context, session Session) ([]TermView, error) {
	if s.bookmarks == nil {
		return nil, domainError(503, "BOOKMARKS_UNAVAILABLE", "Bookmark storage is not configured", nil)
	}
	ids, err := s.bookmarks.List(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	views := make([]TermView, 0, len(ids))
	for _, id := range ids {
		term, err := s.dict.Term(ctx, session.Token, id)
		if err != nil {
			if errors.Is(err, dict.ErrNotFound) {
				continue
			}
			return nil, err
		}
		views = append(views, TermView{Term: term, Bookmarked: true})
	}
	return views, nil
}

// Search

func (s *Service) SearchTerms(q search.Query) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q.Text}
	}
	return s.search.Search(q)
}

// Export

// ExportDeck builds a study deck from explicit term IDs, or from the
// user's bookmarks when none are given, and renders it in the requested
// format.
func (s *Service) ExportDeck(ctx context.Context, session Session, title string, format export.Format, termIDs []string) (*export.Result, error) {
	if len(termIDs) == 0 && s.bookmarks != nil {
		ids, err := s.bookmarks.List(ctx, session.UserID)
		if err != nil {
			return nil, err
		}
		termIDs = ids
	}

	cards := make([]export.Card, 0, len(termIDs))
	for _, id := range termIDs {
		term, err := s.dict.Term(ctx, session.Token, id)
		if err != nil {
			if errors.Is(err, dict.ErrNotFound) {
				continue
			}
			return nil, err
		}
		cards = append(cards, export.Card{
			Front:      term.Term,
			Back:       term.Translation,
			Definition: term.Definition,
			Language:   term.Language.Name,
			Theme:      term.Theme.Name,
		})
	}

	return s.export.Export(ctx, session.UserID, export.Request{
		Title:  title,
		Format: format,
		Cards:  cards,
	})
}

// Misc

func (s *Service) Stats(ctx context.Context, session Session) (dict.Stats, error) {
	return s.dict.Stats(ctx, session.Token)
}

func (s *Service) PublicTerms(ctx context.Context) ([]dict.Term, error) {
	terms, err := s.dict.PublicTerms(ctx)
	if err != nil {
		return nil, err
	}
	if terms == nil {
		terms = []dict.Term{}
	}
	return terms, nil
}

func (s *Service) PublicCategories(ctx context.Context) ([]dict.Category, error) {
	categories, err := s.dict.PublicCategories(ctx)
	if err != nil {
		return nil, err
	}
	if categories == nil {
		categories = []dict.Category{}
	}
	return categories, nil
}

// Bootstrap seeds the search index with the published terms. Called once
// at startup; a failure only delays search results until the first
// approval re-indexes.
func (s *Service) Bootstrap(ctx context.Context) error {
	if s.search == nil {
		return nil
	}
	terms, err := s.dict.PublicTerms(ctx)
	if err != nil {
		return err
	}
	records := make([]search.TermRecord, 0, len(terms))
	for _, term := range terms {
		records = append(records, search.TermRecord{
			ID:          term.ID,
			Term:        term.Term,
			Translation: term.Translation,
			Definition:  term.Definition,
			Language:    term.Language.Name,
			Theme:       term.Theme.Name,
			Category:    term.Category.Name,
		})
	}
	s.search.ReindexAll(records)
	return nil
}
