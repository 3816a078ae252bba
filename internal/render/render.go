// Package render turns report records into standalone HTML pages.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"ipo-report-go/internal/branding"
	"ipo-report-go/internal/interpret"
	"ipo-report-go/internal/types"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page is everything one report page shows.
type Page struct {
	Record types.ReportRecord
	// Interpretation is optional.
	Interpretation *interpret.Interpretation
	Theme          branding.Theme
	GeneratedAt    time.Time
}

// Renderer executes the embedded report template.
type Renderer struct {
	tmpl *template.Template
}

func New() (*Renderer, error) {
	tmpl, err := template.New("report.html").Funcs(funcs).ParseFS(templateFS, "templates/report.html")
	if err != nil {
		return nil, fmt.Errorf("parse report template: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

type view struct {
	Page
	CSS   template.CSS
	Logo  template.URL
	Date  string
	Chart chartView
	Title string
}

// Render writes the page to w.
func (r *Renderer) Render(w io.Writer, p Page) error {
	if p.GeneratedAt.IsZero() {
		p.GeneratedAt = time.Now()
	}
	v := view{
		Page:  p,
		CSS:   template.CSS(p.Theme.CSSVariables()),
		Date:  p.GeneratedAt.Format("2006년 01월 02일"),
		Chart: buildChart(p.Record.ScoreDistribution),
		Title: p.Record.OrganizationName + " 조직효과성 진단 리포트",
	}
	if p.Theme.Logo.DataURI != "" {
		v.Logo = template.URL(p.Theme.Logo.DataURI)
	}
	if err := r.tmpl.Execute(w, v); err != nil {
		return fmt.Errorf("render report %q: %w", p.Record.UnitName, err)
	}
	return nil
}

// HTML renders the page into a string.
func (r *Renderer) HTML(p Page) (string, error) {
	var buf bytes.Buffer
	if err := r.Render(&buf, p); err != nil {
		return "", err
	}
	return buf.String(), nil
}

var funcs = template.FuncMap{
	"score": func(v *float64) string {
		if v == nil {
			return "-"
		}
		return fmt.Sprintf("%.2f", *v)
	},
	"pct": func(v float64) string { return fmt.Sprintf("%.1f%%", v) },
	"gradeClass": func(g string) string {
		switch g {
		case "우수":
			return "grade-excellent"
		case "양호":
			return "grade-good"
		case "보통":
			return "grade-fair"
		case "개선 필요":
			return "grade-poor"
		}
		return "grade-na"
	},
	"sub": func(a, b float64) float64 { return a - b },
	"inc": func(i int) int { return i + 1 },
	"width": func(v *float64) string {
		if v == nil {
			return "0%"
		}
		return fmt.Sprintf("%.1f%%", *v/5*100)
	},
}
