package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ipo-report-go/internal/processor"
	"ipo-report-go/internal/types"
)

func TestWriteResult(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	res := &processor.Result{
		Organization: "알파",
		Units: []processor.UnitReport{
			{Record: types.ReportRecord{UnitName: "A"}, HTML: "<html>A</html>", PDF: []byte("%PDF"), PDFName: "A_조직효과성진단.pdf"},
			{Record: types.ReportRecord{UnitName: "B/2"}, HTML: "<html>B</html>"},
		},
		Bundle: []byte("PK"),
	}
	written, err := writeResult(dir, res)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "A_조직효과성진단.html"),
		filepath.Join(dir, "A_조직효과성진단.pdf"),
		filepath.Join(dir, "B_2_조직효과성진단.html"),
		filepath.Join(dir, "알파_조직효과성진단.zip"),
	}, written)

	data, err := os.ReadFile(written[2])
	require.NoError(t, err)
	assert.Equal(t, "<html>B</html>", string(data))
}
