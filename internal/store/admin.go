package store

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Stats summarizes table sizes for the admin dashboard.
type Stats struct {
	Organizations         int `json:"organizations"`
	Reports               int `json:"reports"`
	CachedInterpretations int `json:"cached_interpretations"`
	PDFs                  int `json:"pdfs"`
	PDFFailures           int `json:"pdf_failures"`
	Emails                int `json:"emails"`
	EmailFailures         int `json:"email_failures"`
}

func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	counts := []struct {
		dst   *int
		query string
	}{
		{&st.Organizations, `SELECT COUNT(*) FROM organizations`},
		{&st.Reports, `SELECT COUNT(*) FROM reports`},
		{&st.CachedInterpretations, `SELECT COUNT(*) FROM reports WHERE ai_analysis != ''`},
		{&st.PDFs, `SELECT COUNT(*) FROM pdf_generations`},
		{&st.PDFFailures, `SELECT COUNT(*) FROM pdf_generations WHERE status = 'failed'`},
		{&st.Emails, `SELECT COUNT(*) FROM email_logs`},
		{&st.EmailFailures, `SELECT COUNT(*) FROM email_logs WHERE status = 'failed'`},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dst); err != nil {
			return Stats{}, fmt.Errorf("stats: %w", err)
		}
	}
	return st, nil
}

// CleanOldData deletes reports and logs created before now-olderThan and
// returns how many rows went away. Organizations and branding are kept.
func (s *Store) CleanOldData(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := s.now().Add(-olderThan).UnixMilli()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var total int64
	for _, table := range []string{"reports", "pdf_generations", "email_logs"} {
		res, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE created_at < ?`, cutoff)
		if err != nil {
			return 0, fmt.Errorf("clean %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("clean: %w", err)
	}
	s.log.WithField("deleted", total).WithField("older_than", olderThan.String()).Info("old data cleaned")
	return total, nil
}

// ExportWorkbook writes organizations, reports and delivery logs as one
// sheet each.
func (s *Store) ExportWorkbook(ctx context.Context, w io.Writer) error {
	orgs, err := s.ListOrganizations(ctx)
	if err != nil {
		return err
	}
	reports, err := s.ListReports(ctx, 10000)
	if err != nil {
		return err
	}
	pdfs, err := s.ListPDFGenerations(ctx, 10000)
	if err != nil {
		return err
	}
	emails, err := s.ListEmailLogs(ctx, 10000)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheets := []struct {
		name   string
		header []any
		rows   [][]any
	}{
		{name: "Organizations", header: []any{"ID", "Name", "Industry", "Contact", "Created"}},
		{name: "Reports", header: []any{"ID", "Organization", "Unit", "Respondents", "Data Hash", "AI Analysis", "Created"}},
		{name: "PDF", header: []any{"ID", "Run", "Unit", "File", "Bytes", "Duration (ms)", "Status", "Error", "Created"}},
		{name: "Emails", header: []any{"ID", "Run", "Recipients", "Subject", "Attachments", "Status", "Error", "Created"}},
	}
	for _, o := range orgs {
		sheets[0].rows = append(sheets[0].rows, []any{o.ID, o.Name, o.Industry, o.ContactEmail, o.CreatedAt.Format(time.RFC3339)})
	}
	for _, r := range reports {
		sheets[1].rows = append(sheets[1].rows, []any{r.ID, r.OrganizationName, r.UnitName, r.Record.Respondents, r.DataHash, r.HasAnalysis, r.CreatedAt.Format(time.RFC3339)})
	}
	for _, p := range pdfs {
		sheets[2].rows = append(sheets[2].rows, []any{p.ID, p.RunID, p.UnitName, p.FileName, p.SizeBytes, p.DurationMs, p.Status, p.Error, p.CreatedAt.Format(time.RFC3339)})
	}
	for _, e := range emails {
		sheets[3].rows = append(sheets[3].rows, []any{e.ID, e.RunID, strings.Join(e.Recipients, ", "), e.Subject, e.Attachments, e.Status, e.Error, e.CreatedAt.Format(time.RFC3339)})
	}

	for i, sh := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sh.name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(sh.name); err != nil {
			return err
		}
		if err := f.SetSheetRow(sh.name, "A1", &sh.header); err != nil {
			return err
		}
		for j, row := range sh.rows {
			cell, err := excelize.CoordinatesToCellName(1, j+2)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(sh.name, cell, &row); err != nil {
				return err
			}
		}
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
