// Package dict is the HTTP client for the upstream dictionary REST API.
// It owns request/response shaping only; all data is owned by the upstream.
package dict

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
)

// APIError is a non-2xx response from the upstream API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("upstream %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("upstream %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return nil
	}
}

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// do issues one request against the upstream. token may be empty for the
// public endpoints; out may be nil when the response body is irrelevant.
func (c *Client) do(ctx context.Context, token, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var payload struct {
		Code    string `json:"code"`
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(raw, &payload); err == nil {
		apiErr.Code = payload.Code
		apiErr.Message = payload.Error
		if apiErr.Message == "" {
			apiErr.Message = payload.Message
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

// Auth

func (c *Client) Login(ctx context.Context, creds Credentials) (AuthResult, error) {
	var result AuthResult
	err := c.do(ctx, "", http.MethodPost, "/auth/login", creds, &result)
	return result, err
}

func (c *Client) Register(ctx context.Context, creds Credentials) (AuthResult, error) {
	var result AuthResult
	err := c.do(ctx, "", http.MethodPost, "/auth/register", creds, &result)
	return result, err
}

// Terms

func (c *Client) AllTerms(ctx context.Context, token string, page, limit int) (TermPage, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(limit))
	var result TermPage
	err := c.do(ctx, token, http.MethodGet, "/terms?"+query.Encode(), nil, &result)
	return result, err
}

func (c *Client) ApprovedTerms(ctx context.Context, token string, filter TermFilter) (TermPage, error) {
	query := url.Values{}
	query.Set("status", StatusApproved)
	if filter.Category != "" {
		query.Set("category", filter.Category)
	}
	if filter.Theme != "" {
		query.Set("theme", filter.Theme)
	}
	if filter.Language != "" {
		query.Set("language", filter.Language)
	}
	if filter.Search != "" {
		query.Set("search", filter.Search)
	}
	if filter.Page > 0 {
		query.Set("page", strconv.Itoa(filter.Page))
	}
	if filter.Limit > 0 {
		query.Set("limit", strconv.Itoa(filter.Limit))
	}
	var result TermPage
	err := c.do(ctx, token, http.MethodGet, "/terms?"+query.Encode(), nil, &result)
	return result, err
}

func (c *Client) PendingTerms(ctx context.Context, token string) ([]Term, error) {
	var result []Term
	err := c.do(ctx, token, http.MethodGet, "/terms/pending", nil, &result)
	return result, err
}

func (c *Client) AuthoredTerms(ctx context.Context, token string) ([]Term, error) {
	var result []Term
	err := c.do(ctx, token, http.MethodGet, "/terms/authored", nil, &result)
	return result, err
}

func (c *Client) Term(ctx context.Context, token, id string) (Term, error) {
	var result Term
	err := c.do(ctx, token, http.MethodGet, "/terms/"+url.PathEscape(id), nil, &result)
	return result, err
}

func (c *Client) AddTerm(ctx context.Context, token string, term NewTerm) (Term, error) {
	var result Term
	err := c.do(ctx, token, http.MethodPost, "/terms", term, &result)
	return result, err
}

func (c *Client) ApproveTerm(ctx context.Context, token, id string, data ApproveData) error {
	return c.do(ctx, token, http.MethodPut, "/terms/"+url.PathEscape(id)+"/approve", data, nil)
}

func (c *Client) RejectTerm(ctx context.Context, token, id string) error {
	return c.do(ctx, token, http.MethodPut, "/terms/"+url.PathEscape(id)+"/reject", nil, nil)
}

func (c *Client) UpvoteTerm(ctx context.Context, token, id string) (Term, error) {
	var result Term
	err := c.do(ctx, token, http.MethodPut, "/terms/"+url.PathEscape(id)+"/upvote", nil, &result)
	return result, err
}

func (c *Client) DownvoteTerm(ctx context.Context, token, id string) (Term, error) {
	var result Term
	err := c.do(ctx, token, http.MethodPut, "/terms/"+url.PathEscape(id)+"/downvote", nil, &result)
	return result, err
}

func (c *Client) AddComment(ctx context.Context, token, id string, comment Comment) (Term, error) {
	var result Term
	err := c.do(ctx, token, http.MethodPost, "/terms/"+url.PathEscape(id)+"/comment", comment, &result)
	return result, err
}

func (c *Client) Flashcard(ctx context.Context, token, id string) (Flashcard, error) {
	var result Flashcard
	err := c.do(ctx, token, http.MethodGet, "/terms/"+url.PathEscape(id)+"/flashcard", nil, &result)
	return result, err
}

func (c *Client) Quiz(ctx context.Context, token string, limit int) ([]Flashcard, error) {
	path := "/terms/quiz"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var result []Flashcard
	err := c.do(ctx, token, http.MethodGet, path, nil, &result)
	return result, err
}

// Taxonomy. The upstream exposes themes under /tags but approves them under
// /themes/{id}/approve; the asymmetry stays contained here.

func (c *Client) Categories(ctx context.Context, token string) ([]Category, error) {
	var result []Category
	err := c.do(ctx, token, http.MethodGet, "/categories", nil, &result)
	return result, err
}

func (c *Client) Themes(ctx context.Context, token string) ([]Theme, error) {
	var result []Theme
	err := c.do(ctx, token, http.MethodGet, "/tags", nil, &result)
	return result, err
}

func (c *Client) Languages(ctx context.Context, token string) ([]Language, error) {
	var result []Language
	err := c.do(ctx, token, http.MethodGet, "/languages", nil, &result)
	return result, err
}

func (c *Client) AddLanguage(ctx context.Context, token, name, code string) (Language, error) {
	body := map[string]string{"name": name, "code": code}
	var result Language
	err := c.do(ctx, token, http.MethodPost, "/languages", body, &result)
	return result, err
}

func (c *Client) ApproveCategory(ctx context.Context, token, id string) error {
	return c.do(ctx, token, http.MethodPut, "/categories/"+url.PathEscape(id)+"/approve", nil, nil)
}

func (c *Client) ApproveTheme(ctx context.Context, token, id string) error {
	return c.do(ctx, token, http.MethodPut, "/themes/"+url.PathEscape(id)+"/approve", nil, nil)
}

func (c *Client) ApproveLanguage(ctx context.Context, token, id, code string) error {
	body := map[string]string{"code": code}
	return c.do(ctx, token, http.MethodPut, "/languages/"+url.PathEscape(id)+"/approve", body, nil)
}

// Public endpoints (no token)

func (c *Client) PublicTerms(ctx context.Context) ([]Term, error) {
	var result []Term
	err := c.do(ctx, "", http.MethodGet, "/public/terms", nil, &result)
	return result, err
}

func (c *Client) PublicCategories(ctx context.Context) ([]Category, error) {
	var result []Category
	err := c.do(ctx, "", http.MethodGet, "/public/categories", nil, &result)
	return result, err
}

func (c *Client) Stats(ctx context.Context, token string) (Stats, error) {
	var result Stats
	err := c.do(ctx, token, http.MethodGet, "/stats", nil, &result)
	return result, err
}
