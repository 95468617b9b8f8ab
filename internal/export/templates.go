package export

import (
	"bytes"
	"html/template"
	"time"
)

var deckTemplate = template.Must(template.New("deck").Funcs(template.FuncMap{
	"formatDate": func(t time.Time, layout string) string {
		return t.Format(layout)
	},
}).Parse(deckTemplateHTML))

// TemplateData holds data for deck template rendering
type TemplateData struct {
	Title       string
	Cards       []Card
	GeneratedAt time.Time
}

// RenderDeckHTML renders the printable card sheet for a deck
func RenderDeckHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := deckTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const deckTemplateHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <style>
    body { font-family: Arial, sans-serif; margin: 1rem; }
    h1 { border-bottom: 2px solid #333; padding-bottom: 0.5rem; }
    .meta { color: #666; font-size: 0.9em; margin-bottom: 1.5rem; }
    .cards { display: grid; grid-template-columns: 1fr 1fr; gap: 0.75rem; }
    .card { border: 1px solid #999; border-radius: 6px; padding: 0.75rem; page-break-inside: avoid; }
    .front { font-size: 1.3em; font-weight: bold; }
    .back { margin-top: 0.25rem; }
    .definition { color: #444; font-size: 0.9em; margin-top: 0.5rem; }
    .tag { color: #666; font-size: 0.8em; margin-top: 0.5rem; }
  </style>
</head>
<body>
  <h1>{{.Title}}</h1>
  <div class="meta">{{len .Cards}} cards | {{formatDate .GeneratedAt "Jan 2, 2006"}}</div>
  <div class="cards">
    {{range .Cards}}
    <div class="card">
      <div class="front">{{.Front}}</div>
      <div class="back">{{.Back}}</div>
      {{if .Definition}}<div class="definition">{{.Definition}}</div>{{end}}
      {{if .Language}}<div class="tag">{{.Language}}{{if .Theme}} &middot; {{.Theme}}{{end}}</div>{{end}}
    </div>
    {{end}}
  </div>
</body>
</html>`
