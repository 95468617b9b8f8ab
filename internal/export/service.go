package export

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Service provides deck export functionality
type Service struct {
	store *ArtifactStore
}

// NewService creates an export service. store may be nil when object
// storage is not configured; results are then returned inline only.
func NewService(store *ArtifactStore) *Service {
	return &Service{store: store}
}

// Export generates a deck in the requested format
func (s *Service) Export(ctx context.Context, userID string, req Request) (*Result, error) {
	if len(req.Cards) == 0 {
		return nil, ErrEmptyDeck
	}
	title := req.Title
	if title == "" {
		title = "Study Deck"
	}

	var result *Result
	var err error
	switch req.Format {
	case FormatCSV:
		result, err = exportCSV(req.Cards, title)
	case FormatPDF, "":
		var html string
		html, err = RenderDeckHTML(TemplateData{
			Title:       title,
			Cards:       req.Cards,
			GeneratedAt: time.Now(),
		})
		if err != nil {
			return nil, fmt.Errorf("render deck: %w", err)
		}
		result, err = exportPDF(html, title)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, req.Format)
	}
	if err != nil {
		return nil, err
	}

	if s.store != nil {
		url, putErr := s.store.Put(ctx, userID, result)
		if putErr != nil {
			// The inline payload is still good; losing the stored copy
			// only costs the re-download link.
			log.Printf("export: artifact upload failed: %v", putErr)
		} else {
			result.URL = url
		}
	}
	return result, nil
}
