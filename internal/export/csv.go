package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// exportCSV writes the deck in the front,back,definition,language,theme
// layout most flashcard applications import directly.
func exportCSV(cards []Card, title string) (*Result, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"front", "back", "definition", "language", "theme"}); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, card := range cards {
		record := []string{card.Front, card.Back, card.Definition, card.Language, card.Theme}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv record: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}

	return &Result{
		Data:     buf.Bytes(),
		Filename: sanitizeFilename(title) + ".csv",
		MimeType: "text/csv",
	}, nil
}
