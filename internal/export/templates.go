package export

import (
	"bytes"
	"embed"
	"html/template"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var ataTemplate = template.Must(
	template.New("ata.html").
		Funcs(template.FuncMap{
			"formatDate": func(t time.Time, layout string) string {
				return t.Format(layout)
			},
		}).
		ParseFS(templateFS, "templates/ata.html"),
)

// TemplateData holds data for document template rendering
type TemplateData struct {
	Title         string
	Committee     string
	SessionNumber string
	SessionType   string
	MeetingDate   string
	MeetingTime   string
	Body          template.HTML
	GeneratedAt   time.Time
}

// RenderHTML wraps a rendered draft in the printable page layout.
func RenderHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := ataTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
