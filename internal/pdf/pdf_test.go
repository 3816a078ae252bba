package pdf

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ipo-report-go/internal/logger"
)

type fakeConverter struct {
	inFlight, peak atomic.Int32
	fail           string
}

func (f *fakeConverter) Convert(ctx context.Context, html string) ([]byte, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if f.fail != "" && strings.Contains(html, f.fail) {
		return nil, errors.New("chrome crashed")
	}
	return []byte("%PDF-" + html), ctx.Err()
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "영업팀_조직효과성진단.pdf", FileName(" 영업팀 "))
	assert.Equal(t, "R_D_조직효과성진단.pdf", FileName("R/D"))
	assert.Equal(t, "report_조직효과성진단.pdf", FileName(""))
}

func TestRenderAllKeepsOrderAndBound(t *testing.T) {
	conv := &fakeConverter{fail: "B"}
	b := NewBatch(conv, 2, logger.Discard())
	jobs := []Job{{Unit: "A", HTML: "A"}, {Unit: "B", HTML: "B"}, {Unit: "C", HTML: "C"}, {Unit: "D", HTML: "D"}}

	files, err := b.RenderAll(context.Background(), jobs)
	require.NoError(t, err)
	require.Len(t, files, 4)
	for i, j := range jobs {
		assert.Equal(t, j.Unit, files[i].Unit)
	}
	assert.Equal(t, []byte("%PDF-A"), files[0].Data)
	assert.Error(t, files[1].Err)
	assert.NoError(t, files[3].Err)
	assert.LessOrEqual(t, conv.peak.Load(), int32(2))
}

func TestRenderAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewBatch(&fakeConverter{}, 1, logger.Discard()).RenderAll(ctx, []Job{{Unit: "A"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBundle(t *testing.T) {
	files := []File{
		{Unit: "A", Name: FileName("A"), Data: []byte("one")},
		{Unit: "B", Name: FileName("B"), Err: errors.New("boom")},
		{Unit: "A", Name: FileName("A"), Data: []byte("two")},
	}
	var buf bytes.Buffer
	n, err := Bundle(&buf, files)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)
	assert.Equal(t, "A_조직효과성진단.pdf", zr.File[0].Name)
	assert.Equal(t, "A_조직효과성진단(1).pdf", zr.File[1].Name)
	rc, err := zr.File[1].Open()
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "two", string(body))
}

func TestPrintOptions(t *testing.T) {
	o := printOptions()
	assert.True(t, o.PrintBackground)
	assert.InDelta(t, 8.27, *o.PaperWidth, 1e-9)
	assert.InDelta(t, 0.709, *o.MarginBottom, 1e-3)
	assert.InDelta(t, 0.591, *o.MarginLeft, 1e-3)
}

func TestReleaseKillsLaunchedBrowser(t *testing.T) {
	c := NewChrome(ChromeConfig{}, logger.Discard())
	kills := 0
	c.kill = func() { kills++ }

	require.NoError(t, c.release())
	assert.Equal(t, 1, kills)
	assert.Nil(t, c.kill)

	// a second release or Close has nothing left to stop
	require.NoError(t, c.Close())
	assert.Equal(t, 1, kills)
}
