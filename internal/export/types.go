// Package export renders flashcard study decks as PDF or CSV.
package export

import "errors"

// Format represents the export output format
type Format string

const (
	FormatPDF Format = "pdf"
	FormatCSV Format = "csv"
)

// Card is one flashcard in a deck.
type Card struct {
	Front      string
	Back       string
	Definition string
	Language   string
	Theme      string
}

// Request contains parameters for an export operation
type Request struct {
	Title  string
	Format Format
	Cards  []Card
}

// Result contains the export output
type Result struct {
	Data     []byte
	Filename string
	MimeType string
	// URL is set when the artifact was persisted to object storage.
	URL string
}

var (
	// ErrEmptyDeck indicates there were no cards to export.
	ErrEmptyDeck = errors.New("export deck is empty")
	// ErrUnsupportedFormat indicates an unknown export format.
	ErrUnsupportedFormat = errors.New("unsupported export format")
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
)
