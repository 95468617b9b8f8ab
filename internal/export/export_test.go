package export

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func sampleCards() []Card {
	return []Card{
		{Front: "Chat", Back: "Cat", Definition: "A small domesticated felid.", Language: "French", Theme: "Animals"},
		{Front: "Chien", Back: "Dog", Language: "French", Theme: "Animals"},
	}
}

func TestRenderDeckHTML(t *testing.T) {
	html, err := RenderDeckHTML(TemplateData{
		Title:       "French Animals",
		Cards:       sampleCards(),
		GeneratedAt: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{"French Animals", "Chat", "Cat", "2 cards", "Mar 14, 2026"} {
		if !strings.Contains(html, want) {
			t.Fatalf("rendered html missing %q", want)
		}
	}
}

func TestRenderDeckHTMLEscapesContent(t *testing.T) {
	html, err := RenderDeckHTML(TemplateData{
		Title: "Deck",
		Cards: []Card{{Front: "<script>alert(1)</script>", Back: "x"}},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(html, "<script>alert") {
		t.Fatalf("card content must be escaped")
	}
}

func TestExportCSV(t *testing.T) {
	result, err := exportCSV(sampleCards(), "French Animals")
	if err != nil {
		t.Fatalf("csv: %v", err)
	}
	if result.Filename != "French-Animals.csv" || result.MimeType != "text/csv" {
		t.Fatalf("unexpected result meta: %+v", result)
	}
	lines := strings.Split(strings.TrimSpace(string(result.Data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines", len(lines))
	}
	if lines[0] != "front,back,definition,language,theme" {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "Chat,Cat,") {
		t.Fatalf("unexpected first row %q", lines[1])
	}
}

func TestExportCSVQuotesCommas(t *testing.T) {
	cards := []Card{{Front: "Chat", Back: "Cat", Definition: "small, domesticated"}}
	result, err := exportCSV(cards, "Deck")
	if err != nil {
		t.Fatalf("csv: %v", err)
	}
	if !strings.Contains(string(result.Data), `"small, domesticated"`) {
		t.Fatalf("expected quoted definition, got %s", result.Data)
	}
}

func TestServiceRejectsEmptyDeck(t *testing.T) {
	service := NewService(nil)
	if _, err := service.Export(context.Background(), "user-1", Request{Format: FormatCSV}); !errors.Is(err, ErrEmptyDeck) {
		t.Fatalf("expected ErrEmptyDeck, got %v", err)
	}
}

func TestServiceRejectsUnknownFormat(t *testing.T) {
	service := NewService(nil)
	_, err := service.Export(context.Background(), "user-1", Request{Format: "docx", Cards: sampleCards()})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestServiceCSVWithoutStoreHasNoURL(t *testing.T) {
	service := NewService(nil)
	result, err := service.Export(context.Background(), "user-1", Request{Format: FormatCSV, Cards: sampleCards()})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if result.URL != "" {
		t.Fatalf("expected no URL without object storage, got %q", result.URL)
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"French Animals":  "French-Animals",
		"Déjà vu!":        "Dj-vu",
		"":                "deck",
		"a/b\\c":          "abc",
		strings.Repeat("x", 80): strings.Repeat("x", 50),
	}
	for in, want := range cases {
		if got := sanitizeFilename(in); got != want {
			t.Fatalf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
