package store

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"ipo-report-go/internal/interpret"
	"ipo-report-go/internal/logger"
	"ipo-report-go/internal/types"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "data", "reports.db"), logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOrganizationCRUD(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	o, err := s.CreateOrganization(ctx, Organization{Name: " 한빛상사 ", Industry: "제조"})
	require.NoError(t, err)
	assert.Equal(t, "한빛상사", o.Name)
	assert.NotZero(t, o.ID)

	_, err = s.CreateOrganization(ctx, Organization{Name: "한빛상사"})
	assert.ErrorIs(t, err, ErrDuplicate)
	_, err = s.CreateOrganization(ctx, Organization{Name: " "})
	assert.Error(t, err)

	byName, err := s.GetOrganizationByName(ctx, "한빛상사")
	require.NoError(t, err)
	assert.Equal(t, o.ID, byName.ID)

	o.ContactEmail = "hr@hanbit.co.kr"
	updated, err := s.UpdateOrganization(ctx, o)
	require.NoError(t, err)
	assert.Equal(t, "hr@hanbit.co.kr", updated.ContactEmail)

	list, err := s.ListOrganizations(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.DeleteOrganization(ctx, o.ID))
	_, err = s.GetOrganization(ctx, o.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteOrganization(ctx, o.ID), ErrNotFound)
	_, err = s.UpdateOrganization(ctx, o)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBranding(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	o, err := s.CreateOrganization(ctx, Organization{Name: "한빛상사"})
	require.NoError(t, err)

	_, err = s.BrandingFor(ctx, "한빛상사")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.UpsertBranding(ctx, Branding{OrganizationID: o.ID, PrimaryColor: "#112233", Logo: []byte{1, 2}})
	require.NoError(t, err)
	b, err := s.UpsertBranding(ctx, Branding{OrganizationID: o.ID, PrimaryColor: "#445566"})
	require.NoError(t, err)
	assert.Equal(t, "#445566", b.PrimaryColor)
	assert.Empty(t, b.Logo)

	got, err := s.BrandingFor(ctx, "한빛상사")
	require.NoError(t, err)
	assert.Equal(t, "#445566", got.Override().PrimaryColor)

	_, err = s.UpsertBranding(ctx, Branding{OrganizationID: 999})
	assert.ErrorIs(t, err, ErrNotFound)

	// branding goes with its organization
	require.NoError(t, s.DeleteOrganization(ctx, o.ID))
	_, err = s.GetBranding(ctx, o.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInterpretationCache(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	var _ interpret.Cache = s

	_, ok, err := s.GetInterpretation(ctx, "한빛상사", "abc")
	require.NoError(t, err)
	assert.False(t, ok)

	rec := types.ReportRecord{UnitName: "영업팀", OrganizationName: "영업팀", Respondents: 7}
	require.NoError(t, s.SaveReport(ctx, "한빛상사", "abc", rec))
	_, ok, err = s.GetInterpretation(ctx, "한빛상사", "abc")
	require.NoError(t, err)
	assert.False(t, ok, "a snapshot without analysis is not a cache hit")

	in := interpret.Interpretation{Writer: "초안", Final: "최종", DataHash: "abc"}
	require.NoError(t, s.PutInterpretation(ctx, "한빛상사", "abc", in))
	got, ok, err := s.GetInterpretation(ctx, "한빛상사", "abc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "최종", got.Final)

	// saving the same record again keeps the analysis
	require.NoError(t, s.SaveReport(ctx, "한빛상사", "abc", rec))
	_, ok, _ = s.GetInterpretation(ctx, "한빛상사", "abc")
	assert.True(t, ok)

	// other organizations do not share the cache
	_, ok, _ = s.GetInterpretation(ctx, "다른회사", "abc")
	assert.False(t, ok)

	reports, err := s.ListReports(ctx, 0)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, 7, reports[0].Record.Respondents)
	assert.True(t, reports[0].HasAnalysis)
}

func TestLogsStatsAndClean(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now.Add(-40 * 24 * time.Hour) }

	require.NoError(t, s.LogPDF(ctx, PDFGeneration{RunID: "r1", UnitName: "A", FileName: "A.pdf", Status: StatusFailed, Error: "timeout"}))
	require.NoError(t, s.LogEmail(ctx, EmailLog{RunID: "r1", Recipients: []string{"a@x.com", "b@x.com"}, Subject: "s", Status: StatusSuccess}))
	require.NoError(t, s.SaveReport(ctx, "org", "h1", types.ReportRecord{UnitName: "A"}))

	s.now = func() time.Time { return now }
	require.NoError(t, s.LogPDF(ctx, PDFGeneration{RunID: "r2", UnitName: "B", FileName: "B.pdf", SizeBytes: 10, Status: StatusSuccess}))
	_, err := s.CreateOrganization(ctx, Organization{Name: "org"})
	require.NoError(t, err)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Organizations: 1, Reports: 1, PDFs: 2, PDFFailures: 1, Emails: 1}, st)

	emails, err := s.ListEmailLogs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, emails, 1)
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, emails[0].Recipients)

	pdfs, err := s.ListPDFGenerations(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pdfs, 2)
	assert.Equal(t, "B", pdfs[0].UnitName)

	n, err := s.CleanOldData(ctx, 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	st, err = s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Organizations: 1, PDFs: 1}, st)
}

func TestExportWorkbook(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	_, err := s.CreateOrganization(ctx, Organization{Name: "한빛상사"})
	require.NoError(t, err)
	require.NoError(t, s.LogPDF(ctx, PDFGeneration{RunID: "r", UnitName: "A", FileName: "A.pdf", Status: StatusSuccess}))

	var buf bytes.Buffer
	require.NoError(t, s.ExportWorkbook(ctx, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Organizations", "Reports", "PDF", "Emails"}, f.GetSheetList())
	rows, err := f.GetRows("Organizations")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "한빛상사", rows[1][1])
	pdfRows, err := f.GetRows("PDF")
	require.NoError(t, err)
	assert.Len(t, pdfRows, 2)
}
