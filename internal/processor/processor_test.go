package processor

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ipo-report-go/internal/interpret"
	"ipo-report-go/internal/logger"
	"ipo-report-go/internal/mailer"
	"ipo-report-go/internal/pdf"
	"ipo-report-go/internal/render"
	"ipo-report-go/internal/report"
	"ipo-report-go/internal/store"
	"ipo-report-go/internal/types"
)

var index = []types.ItemIndexEntry{
	{Header: "Q1", Question: "조직의 목표가 명확하다", Category: "Input", Subcategory: "목적경영"},
	{Header: "Q2", Question: "협업이 원활하다", Category: "Process", Subcategory: "협업"},
	{Header: "Q3", Question: "성과가 공정하게 평가된다", Category: "Output", Subcategory: "성과"},
	{Header: "FREE", Question: "개선 의견", Category: types.SubjectiveCategory},
}

func table() types.RawTable {
	return types.RawTable{
		Header: []string{"회사명", "팀", "Q1", "Q2", "Q3", "FREE"},
		Rows: [][]string{
			{"알파", "A", "5", "4", "4", "회의 문화를 개선하면 좋겠습니다"},
			{"알파", "A", "4", "4", "5", ""},
			{"알파", "A", "5", "5", "4", ""},
			{"알파", "B", "2", "2", "1", "일정 공유가 부족하다고 느낍니다"},
			{"알파", "B", "1", "2", "2", ""},
			{"알파", "B", "2", "3", "1", ""},
		},
	}
}

type fakeConverter struct{ fail string }

func (f fakeConverter) Convert(_ context.Context, html string) ([]byte, error) {
	if f.fail != "" && strings.Contains(html, f.fail) {
		return nil, errors.New("print failed")
	}
	return []byte("%PDF-1.7"), nil
}

type memRecorder struct {
	mu        sync.Mutex
	snapshots map[string]types.ReportRecord
	pdfs      []store.PDFGeneration
	emails    []store.EmailLog
	branding  *store.Branding
}

func newRecorder() *memRecorder { return &memRecorder{snapshots: map[string]types.ReportRecord{}} }

func (m *memRecorder) SaveReport(_ context.Context, org, hash string, rec types.ReportRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[org+"/"+hash] = rec
	return nil
}

func (m *memRecorder) LogPDF(_ context.Context, p store.PDFGeneration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pdfs = append(m.pdfs, p)
	return nil
}

func (m *memRecorder) LogEmail(_ context.Context, e store.EmailLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emails = append(m.emails, e)
	return nil
}

func (m *memRecorder) BrandingFor(context.Context, string) (store.Branding, error) {
	if m.branding == nil {
		return store.Branding{}, store.ErrNotFound
	}
	return *m.branding, nil
}

type sent struct {
	msgs []mailer.Message
	err  error
}

func (s *sent) Send(_ context.Context, msg mailer.Message) error {
	s.msgs = append(s.msgs, msg)
	return s.err
}

func newProcessor(t *testing.T, rec *memRecorder, mail Sender, conv pdf.Converter) *Processor {
	t.Helper()
	r, err := render.New()
	require.NoError(t, err)
	log := logger.Discard()
	deps := Deps{
		Builder:     report.NewBuilder(report.DefaultOptions(), log),
		Renderer:    r,
		Interpreter: interpret.New(interpret.MockGenerator{}, nil, log),
		Mailer:      mail,
		Log:         log,
	}
	if rec != nil {
		deps.Store = rec
	}
	if conv != nil {
		deps.PDF = pdf.NewBatch(conv, 2, log)
	}
	return New(deps)
}

func TestRunFullPipeline(t *testing.T) {
	rec := newRecorder()
	rec.branding = &store.Branding{PrimaryColor: "#123456"}
	mail := &sent{}
	p := newProcessor(t, rec, mail, fakeConverter{})

	res, err := p.Run(context.Background(), Request{
		Table: table(), Index: index, GroupColumn: "팀", IncludeWhole: true,
		Interpret: true, PDF: true, EmailTo: []string{"hr@alpha.com"},
	})
	require.NoError(t, err)
	assert.False(t, res.Degraded, res.Diagnostics)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, "알파", res.Organization)
	assert.True(t, res.Validation.OK())

	require.Len(t, res.Units, 3)
	assert.True(t, res.Units[0].Record.IsTotalOrganization)
	assert.Equal(t, "A", res.Units[1].Record.UnitName)
	assert.Equal(t, "B", res.Units[2].Record.UnitName)
	for _, u := range res.Units {
		assert.NotEmpty(t, u.DataHash)
		require.NotNil(t, u.Interpretation)
		assert.NotEmpty(t, u.Interpretation.Final)
		assert.Contains(t, u.HTML, "#123456")
		assert.Equal(t, []byte("%PDF-1.7"), u.PDF)
	}
	assert.Len(t, rec.snapshots, 3)
	assert.Len(t, rec.pdfs, 3)

	zr, err := zip.NewReader(bytes.NewReader(res.Bundle), int64(len(res.Bundle)))
	require.NoError(t, err)
	assert.Len(t, zr.File, 3)
	assert.Equal(t, 3, res.BundleFiles)
	assert.Equal(t, "알파_조직효과성진단.zip", res.BundleName())

	require.True(t, res.EmailSent)
	require.Len(t, mail.msgs, 1)
	require.Len(t, mail.msgs[0].Attachments, 1)
	assert.Equal(t, "application/zip", mail.msgs[0].Attachments[0].ContentType)
	require.Len(t, rec.emails, 1)
	assert.Equal(t, store.StatusSuccess, rec.emails[0].Status)

	u, ok := res.Unit("B")
	require.True(t, ok)
	assert.Equal(t, 3, u.Record.Respondents)
}

func TestRunDegradesOptionalSteps(t *testing.T) {
	rec := newRecorder()
	mail := &sent{err: errors.New("smtp down")}
	p := newProcessor(t, rec, mail, fakeConverter{fail: "<h1>B "})

	res, err := p.Run(context.Background(), Request{
		Table: table(), Index: index, GroupColumn: "팀", PDF: true, EmailTo: []string{"hr@alpha.com"},
	})
	require.NoError(t, err)
	require.Len(t, res.Units, 2)
	assert.True(t, res.Degraded)
	assert.NotEmpty(t, res.Units[0].PDF)
	assert.Empty(t, res.Units[1].PDF)
	assert.Equal(t, 1, res.BundleFiles)

	require.Len(t, rec.pdfs, 2)
	assert.Equal(t, store.StatusFailed, rec.pdfs[1].Status)
	assert.False(t, res.EmailSent)
	require.Len(t, rec.emails, 1)
	assert.Equal(t, store.StatusFailed, rec.emails[0].Status)
	assert.Contains(t, strings.Join(res.Diagnostics, "\n"), "smtp down")
}

func TestRunWithoutCollaborators(t *testing.T) {
	p := newProcessor(t, nil, nil, nil)
	p.deps.Interpreter = nil

	res, err := p.Run(context.Background(), Request{
		Table: table(), Index: index, Interpret: true, PDF: true, EmailTo: []string{"hr@alpha.com"},
	})
	require.NoError(t, err)
	require.Len(t, res.Units, 1)
	assert.True(t, res.Units[0].Record.IsTotalOrganization)
	assert.NotEmpty(t, res.Units[0].HTML)
	assert.Nil(t, res.Units[0].Interpretation)
	assert.True(t, res.Degraded)
	assert.Len(t, res.Diagnostics, 3)
}

func TestRunFallbackAndValidation(t *testing.T) {
	p := newProcessor(t, nil, nil, nil)
	idx := append([]types.ItemIndexEntry{{Header: "GONE", Category: "Input"}}, index...)

	res, err := p.Run(context.Background(), Request{Table: table(), Index: idx, GroupColumn: "회사명", IncludeWhole: true})
	require.NoError(t, err)
	assert.True(t, res.Fallback)
	// a fallback already is the whole organization, so it is not added twice
	require.Len(t, res.Units, 1)
	assert.False(t, res.Validation.OK())
	assert.Len(t, res.Warnings, 2)
	assert.False(t, res.Degraded)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newProcessor(t, nil, nil, nil).Run(ctx, Request{Table: table(), Index: index, GroupColumn: "팀"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEmailAttachesHTMLWithoutPDF(t *testing.T) {
	mail := &sent{}
	p := newProcessor(t, nil, mail, nil)
	res, err := p.Run(context.Background(), Request{Table: table(), Index: index, EmailTo: []string{"hr@alpha.com"}})
	require.NoError(t, err)
	assert.True(t, res.EmailSent)
	require.Len(t, mail.msgs, 1)
	att := mail.msgs[0].Attachments
	require.Len(t, att, 1)
	assert.Equal(t, "전체 조직_조직효과성진단.html", att[0].Name)
	assert.Contains(t, mail.msgs[0].Subject, "알파")
}

func TestRunSharesSnapshotWithInterpretationCache(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(ctx, filepath.Join(t.TempDir(), "reports.db"), logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	p := newProcessor(t, nil, nil, nil)
	p.deps.Store = st
	p.deps.Interpreter = interpret.New(interpret.MockGenerator{}, st, logger.Discard())

	req := Request{Table: table(), Index: index, GroupColumn: "팀", Interpret: true}
	_, err = p.Run(ctx, req)
	require.NoError(t, err)

	reports, err := st.ListReports(ctx, 0)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	for _, r := range reports {
		assert.Equal(t, "알파", r.OrganizationName)
		assert.Contains(t, []string{"A", "B"}, r.UnitName)
		assert.True(t, r.HasAnalysis, r.UnitName)
	}
	stats, err := st.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Reports)
	assert.Equal(t, 2, stats.CachedInterpretations)

	// a second run is served from the stored analysis
	res, err := p.Run(ctx, req)
	require.NoError(t, err)
	for _, u := range res.Units {
		require.NotNil(t, u.Interpretation)
		assert.True(t, u.Interpretation.Cached, u.Record.UnitName)
	}
}
