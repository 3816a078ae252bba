// Package processor runs one "generate reports" action end to end: build the
// unit records, interpret, render, print, log and mail them.
package processor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/google/uuid"

	"ipo-report-go/internal/branding"
	"ipo-report-go/internal/dataset"
	"ipo-report-go/internal/interpret"
	"ipo-report-go/internal/logger"
	"ipo-report-go/internal/mailer"
	"ipo-report-go/internal/pdf"
	"ipo-report-go/internal/render"
	"ipo-report-go/internal/report"
	"ipo-report-go/internal/store"
	"ipo-report-go/internal/types"
)

// Recorder persists snapshots and delivery logs. *store.Store satisfies it.
type Recorder interface {
	SaveReport(ctx context.Context, org, hash string, rec types.ReportRecord) error
	LogPDF(ctx context.Context, p store.PDFGeneration) error
	LogEmail(ctx context.Context, e store.EmailLog) error
	BrandingFor(ctx context.Context, orgName string) (store.Branding, error)
}

// Sender delivers mail. *mailer.Mailer satisfies it.
type Sender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// Deps wires the collaborators. Interpreter, PDF, Mailer and Store are
// optional; a step whose collaborator is missing is skipped with a
// diagnostic when the request asked for it.
type Deps struct {
	Builder     *report.Builder
	Renderer    *render.Renderer
	Branding    branding.Config
	Interpreter *interpret.Interpreter
	PDF         *pdf.Batch
	Mailer      Sender
	Store       Recorder
	Log         *logger.Logger
}

type Processor struct {
	deps Deps
	log  *logger.Logger
	now  func() time.Time
}

func New(deps Deps) *Processor {
	return &Processor{deps: deps, log: deps.Log.WithComponent("processor"), now: time.Now}
}

// Request describes one run.
type Request struct {
	Table types.RawTable
	Index []types.ItemIndexEntry
	// GroupColumn partitions respondents; empty builds the whole organization only.
	GroupColumn string
	// IncludeWhole adds a whole-organization report ahead of the unit reports.
	IncludeWhole   bool
	Interpret      bool
	ForceInterpret bool
	PDF            bool
	EmailTo        []string
}

// UnitReport is everything produced for one unit.
type UnitReport struct {
	Record         types.ReportRecord        `json:"record"`
	DataHash       string                    `json:"data_hash"`
	Interpretation *interpret.Interpretation `json:"interpretation,omitempty"`
	HTML           string                    `json:"-"`
	PDF            []byte                    `json:"-"`
	PDFName        string                    `json:"pdf_name,omitempty"`
}

// Result is returned by Run. Degraded is set when an optional step failed or
// was skipped; Diagnostics says which.
type Result struct {
	RunID        string             `json:"run_id"`
	Organization string             `json:"organization"`
	Validation   dataset.Validation `json:"validation"`
	Units        []UnitReport       `json:"units"`
	Warnings     []string           `json:"warnings"`
	Fallback     bool               `json:"fallback"`
	Dropped      map[string]int     `json:"dropped"`
	Bundle       []byte             `json:"-"`
	BundleFiles  int                `json:"bundle_files"`
	EmailSent    bool               `json:"email_sent"`
	Degraded     bool               `json:"degraded"`
	Diagnostics  []string           `json:"diagnostics,omitempty"`
	DurationMs   int64              `json:"duration_ms"`
}

func (r *Result) degrade(format string, args ...any) {
	r.Degraded = true
	r.Diagnostics = append(r.Diagnostics, fmt.Sprintf(format, args...))
}

// Unit finds a unit report by name.
func (r *Result) Unit(name string) (UnitReport, bool) {
	for _, u := range r.Units {
		if u.Record.UnitName == name {
			return u, true
		}
	}
	return UnitReport{}, false
}

// Run executes req. It fails only when the records cannot be built or ctx
// ends; every later step degrades instead.
func (p *Processor) Run(ctx context.Context, req Request) (*Result, error) {
	start := p.now()
	res := &Result{RunID: uuid.New().String()}
	log := p.log.WithField("run_id", res.RunID)

	res.Validation = dataset.Validate(req.Table, req.Index)
	if !res.Validation.OK() {
		res.Warnings = append(res.Warnings, fmt.Sprintf("지표에 있는 컬럼 %d개가 데이터에 없습니다: %s",
			len(res.Validation.Missing), strings.Join(res.Validation.Missing, ", ")))
	}

	records, err := p.build(ctx, req, res)
	if err != nil {
		return nil, err
	}
	log.WithField("organization", res.Organization).WithField("units", len(records)).Info("records built")

	theme := p.theme(ctx, res.Organization, res)
	for _, rec := range records {
		u := UnitReport{Record: rec}
		if u.DataHash, err = report.DataHash(rec); err != nil {
			res.degrade("%s: hash: %v", rec.UnitName, err)
		}
		if p.deps.Store != nil && u.DataHash != "" {
			if err := p.deps.Store.SaveReport(ctx, res.Organization, u.DataHash, rec); err != nil {
				res.degrade("%s: save snapshot: %v", rec.UnitName, err)
			}
		}
		if req.Interpret {
			p.interpret(ctx, &u, req.ForceInterpret, res)
		}
		page := render.Page{Record: rec, Interpretation: u.Interpretation, Theme: theme, GeneratedAt: start}
		if u.HTML, err = p.deps.Renderer.HTML(page); err != nil {
			res.degrade("%s: render: %v", rec.UnitName, err)
		}
		res.Units = append(res.Units, u)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if req.PDF {
		p.printAll(ctx, res)
	}
	if len(req.EmailTo) > 0 {
		p.email(ctx, req.EmailTo, res)
	}

	res.DurationMs = p.now().Sub(start).Milliseconds()
	entry := log.WithField("duration_ms", res.DurationMs)
	if res.Degraded {
		entry.WithField("diagnostics", res.Diagnostics).Warn("run finished degraded")
	} else {
		entry.Info("run finished")
	}
	return res, nil
}

func (p *Processor) build(ctx context.Context, req Request, res *Result) ([]types.ReportRecord, error) {
	b, err := p.deps.Builder.BuildAll(ctx, req.Table, req.Index, req.GroupColumn)
	if err != nil {
		return nil, err
	}
	res.Organization = b.Organization.DisplayName()
	res.Warnings = append(res.Warnings, b.Grouping.Warnings...)
	res.Fallback = b.Grouping.Fallback
	res.Dropped = b.Grouping.Dropped
	records := b.Records

	grouped := strings.TrimSpace(req.GroupColumn) != "" && !b.Grouping.Fallback
	if req.IncludeWhole && grouped {
		whole, err := p.deps.Builder.BuildAll(ctx, req.Table, req.Index, "")
		if err != nil {
			return nil, err
		}
		records = append(whole.Records, records...)
	}
	return records, nil
}

func (p *Processor) theme(ctx context.Context, org string, res *Result) branding.Theme {
	theme := p.deps.Branding.Resolve(org)
	if p.deps.Store == nil {
		return theme
	}
	b, err := p.deps.Store.BrandingFor(ctx, org)
	switch {
	case err == nil:
		theme = theme.Apply(b.Override())
	case !errors.Is(err, store.ErrNotFound):
		res.degrade("branding lookup: %v", err)
	}
	return theme
}

func (p *Processor) interpret(ctx context.Context, u *UnitReport, force bool, res *Result) {
	if p.deps.Interpreter == nil {
		res.degrade("%s: interpretation requested but %v", u.Record.UnitName, interpret.ErrNotConfigured)
		return
	}
	in := p.deps.Interpreter.Interpret(ctx, res.Organization, u.Record, force)
	if in.Degraded {
		res.degrade("%s: interpretation: %s", u.Record.UnitName, in.Diagnostic)
	}
	u.Interpretation = &in
}

func (p *Processor) printAll(ctx context.Context, res *Result) {
	if p.deps.PDF == nil {
		res.degrade("pdf requested but no converter is configured")
		return
	}
	jobs := make([]pdf.Job, 0, len(res.Units))
	for _, u := range res.Units {
		jobs = append(jobs, pdf.Job{Unit: u.Record.UnitName, HTML: u.HTML})
	}
	files, err := p.deps.PDF.RenderAll(ctx, jobs)
	if err != nil {
		res.degrade("pdf: %v", err)
		return
	}
	for i, f := range files {
		entry := store.PDFGeneration{
			RunID: res.RunID, UnitName: f.Unit, FileName: f.Name,
			SizeBytes: len(f.Data), DurationMs: f.Duration.Milliseconds(), Status: store.StatusSuccess,
		}
		if f.Err != nil {
			entry.Status, entry.Error = store.StatusFailed, f.Err.Error()
			res.degrade("%s: pdf: %v", f.Unit, f.Err)
		} else {
			res.Units[i].PDF = f.Data
			res.Units[i].PDFName = f.Name
		}
		if p.deps.Store != nil {
			if err := p.deps.Store.LogPDF(ctx, entry); err != nil {
				p.log.WithError(err).Warn("pdf log failed")
			}
		}
	}
	if len(files) > 1 {
		var buf bytes.Buffer
		n, err := pdf.Bundle(&buf, files)
		if err != nil {
			res.degrade("zip: %v", err)
			return
		}
		res.Bundle, res.BundleFiles = buf.Bytes(), n
	}
}

// BundleName is the download name of the zip archive.
func (r *Result) BundleName() string {
	return strings.TrimSuffix(pdf.FileName(r.Organization), ".pdf") + ".zip"
}

func (p *Processor) email(ctx context.Context, to []string, res *Result) {
	msg := mailer.Message{
		To:      to,
		Subject: fmt.Sprintf("[%s] 조직효과성 진단 리포트", res.Organization),
		HTML:    emailBody(res),
	}
	switch {
	case len(res.Bundle) > 0:
		msg.Attachments = []mailer.Attachment{{Name: res.BundleName(), ContentType: "application/zip", Data: res.Bundle}}
	default:
		for _, u := range res.Units {
			if len(u.PDF) > 0 {
				msg.Attachments = append(msg.Attachments, mailer.Attachment{Name: u.PDFName, ContentType: "application/pdf", Data: u.PDF})
			} else if u.HTML != "" {
				name := strings.TrimSuffix(pdf.FileName(u.Record.UnitName), ".pdf") + ".html"
				msg.Attachments = append(msg.Attachments, mailer.Attachment{Name: name, ContentType: "text/html; charset=utf-8", Data: []byte(u.HTML)})
			}
		}
	}

	entry := store.EmailLog{RunID: res.RunID, Recipients: to, Subject: msg.Subject, Attachments: len(msg.Attachments), Status: store.StatusSuccess}
	var err error
	if p.deps.Mailer == nil {
		err = mailer.ErrNotConfigured
	} else {
		err = p.deps.Mailer.Send(ctx, msg)
	}
	if err != nil {
		entry.Status, entry.Error = store.StatusFailed, err.Error()
		res.degrade("email: %v", err)
	} else {
		res.EmailSent = true
	}
	if p.deps.Store != nil {
		if err := p.deps.Store.LogEmail(ctx, entry); err != nil {
			p.log.WithError(err).Warn("email log failed")
		}
	}
}

func emailBody(res *Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<p>%s 조직효과성 진단 리포트를 보내드립니다.</p><ul>", html.EscapeString(res.Organization))
	for _, u := range res.Units {
		fmt.Fprintf(&b, "<li>%s (응답자 %d명)</li>", html.EscapeString(u.Record.UnitName), u.Record.Respondents)
	}
	b.WriteString("</ul>")
	return b.String()
}
