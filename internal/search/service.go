package search

import "log"

// Service is the facade that tries Meilisearch first and falls back to the
// in-memory index.
type Service struct {
	meili  *Meili
	memory *Memory
}

// NewService creates a search service. meili may be nil if Meilisearch is
// not configured.
func NewService(meili *Meili, memory *Memory) *Service {
	return &Service{meili: meili, memory: memory}
}

// Search tries Meilisearch if healthy, otherwise the in-memory index.
func (s *Service) Search(q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to memory: %v", err)
	}

	results, total, err := s.memory.Search(q)
	if err != nil {
		log.Printf("search: memory index error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexTerm indexes an approved term in both backends (fire-and-forget to
// Meilisearch).
func (s *Service) IndexTerm(record TermRecord) {
	_ = s.memory.IndexTerm(record)
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexTerm(record); err != nil {
			log.Printf("search: index term %s: %v", record.ID, err)
		}
	}()
}

// DeleteTerm removes a term from both backends (fire-and-forget).
func (s *Service) DeleteTerm(id string) {
	_ = s.memory.DeleteTerm(id)
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteTerm(id); err != nil {
			log.Printf("search: delete term %s: %v", id, err)
		}
	}()
}

// ReindexAll replaces both backends with the given records. Called during
// bootstrap with the approved terms read from the upstream.
func (s *Service) ReindexAll(records []TermRecord) {
	if err := s.memory.IndexTerms(records); err != nil {
		log.Printf("search: reindex memory: %v", err)
	}
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	if err := s.meili.IndexTerms(records); err != nil {
		log.Printf("search: reindex terms: %v", err)
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
