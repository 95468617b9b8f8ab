package search

import (
	"sort"
	"strings"
	"sync"
)

// Memory is the fallback index used when Meilisearch is not configured or
// unhealthy: case-insensitive substring matching over an in-process map.
// It is rebuilt from the upstream on bootstrap, so losing it on restart
// costs nothing.
type Memory struct {
	mu      sync.RWMutex
	records map[string]TermRecord
}

func NewMemory() *Memory {
	return &Memory{records: make(map[string]TermRecord)}
}

// Healthy always reports true; the in-process index cannot go away.
func (m *Memory) Healthy() bool {
	return true
}

// IndexTerm adds or updates a term.
func (m *Memory) IndexTerm(record TermRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.ID] = record
	return nil
}

// IndexTerms bulk-indexes terms.
func (m *Memory) IndexTerms(records []TermRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, record := range records {
		m.records[record.ID] = record
	}
	return nil
}

// DeleteTerm removes a term.
func (m *Memory) DeleteTerm(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, id)
	return nil
}

// Search matches the query text against term, translation and definition.
func (m *Memory) Search(q Query) ([]Result, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(q.Text))

	var matched []TermRecord
	for _, record := range m.records {
		if q.FilterLanguage != "" && !strings.EqualFold(record.Language, q.FilterLanguage) {
			continue
		}
		if q.FilterTheme != "" && !strings.EqualFold(record.Theme, q.FilterTheme) {
			continue
		}
		if needle != "" && !matches(record, needle) {
			continue
		}
		matched = append(matched, record)
	}

	// Stable order: term text, then id to break ties.
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Term != matched[j].Term {
			return matched[i].Term < matched[j].Term
		}
		return matched[i].ID < matched[j].ID
	})

	total := len(matched)
	limit := q.Limit
	if limit == 0 {
		limit = 20
	}
	start := q.Offset
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	results := make([]Result, 0, end-start)
	for _, record := range matched[start:end] {
		results = append(results, Result{
			ID:          record.ID,
			Term:        record.Term,
			Translation: record.Translation,
			Snippet:     record.Definition,
			Language:    record.Language,
			Theme:       record.Theme,
		})
	}
	return results, total, nil
}

func matches(record TermRecord, needle string) bool {
	return strings.Contains(strings.ToLower(record.Term), needle) ||
		strings.Contains(strings.ToLower(record.Translation), needle) ||
		strings.Contains(strings.ToLower(record.Definition), needle)
}
