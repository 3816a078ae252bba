// Package dataset reads survey uploads and the item index into RawTables.
package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/korean"

	"ipo-report-go/internal/logger"
	"ipo-report-go/internal/types"
)

var (
	ErrNoSheets    = errors.New("dataset: workbook has no sheets")
	ErrNoRows      = errors.New("dataset: no data rows")
	ErrUnsupported = errors.New("dataset: unsupported file type")
)

var (
	utf8BOM         = []byte{0xEF, 0xBB, 0xBF}
	supportedSuffix = []string{".xlsx", ".xlsm", ".csv"}
)

// Reader loads uploads and logs each outcome through an injected logger.
type Reader struct {
	log *logger.Logger
}

func NewReader(log *logger.Logger) *Reader {
	return &Reader{log: log.WithComponent("dataset")}
}

// LoadTable is the logged form of the package LoadTable.
func (r *Reader) LoadTable(path string) (types.RawTable, error) {
	table, err := LoadTable(path)
	r.logTable(filepath.Base(path), table, err)
	return table, err
}

// ReadTable is the logged form of the package ReadTable.
func (r *Reader) ReadTable(rd io.Reader, name string) (types.RawTable, error) {
	table, err := ReadTable(rd, name)
	r.logTable(name, table, err)
	return table, err
}

func (r *Reader) logTable(name string, table types.RawTable, err error) {
	entry := r.log.WithField("file", name)
	if err != nil {
		entry.WithField("error", err.Error()).Error("dataset read failed")
		return
	}
	entry.WithField("rows", table.Len()).WithField("columns", len(table.Header)).Info("dataset loaded")
}

// LoadTable opens an xlsx or csv file from disk.
func LoadTable(path string) (types.RawTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.RawTable{}, fmt.Errorf("open: %w", err)
	}
	defer f.Close()
	return ReadTable(f, filepath.Base(path))
}

// ReadTable reads an upload; name is only used for its extension.
func ReadTable(r io.Reader, name string) (types.RawTable, error) {
	ext := strings.ToLower(filepath.Ext(name))

	var (
		rows [][]string
		err  error
	)
	switch ext {
	case ".csv":
		rows, err = readCSV(r)
	case ".xlsx", ".xlsm":
		rows, err = readXLSX(r)
	default:
		return types.RawTable{}, fmt.Errorf("%w: %q (want one of %s)", ErrUnsupported, ext, strings.Join(supportedSuffix, ", "))
	}
	if err != nil {
		return types.RawTable{}, err
	}
	return buildTable(rows)
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheets
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return rows, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	text, err := decode(raw)
	if err != nil {
		return nil, err
	}
	cr := csv.NewReader(strings.NewReader(text))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return rows, nil
}

// decode tries utf-8, then CP949 (EUC-KR superset used by Korean Excel
// exports), then latin-1 which accepts any byte sequence.
func decode(raw []byte) (string, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	if out, err := korean.EUCKR.NewDecoder().Bytes(raw); err == nil && !bytes.ContainsRune(out, utf8.RuneError) {
		return string(out), nil
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("decode csv: %w", err)
	}
	return string(out), nil
}

// buildTable trims and de-duplicates header names, drops rows without any
// non-blank cell and pads rows to the header width.
func buildTable(rows [][]string) (types.RawTable, error) {
	if len(rows) == 0 {
		return types.RawTable{}, ErrNoRows
	}
	header := uniqueHeader(rows[0])
	out := types.RawTable{Header: header, Rows: [][]string{}}
	for _, r := range rows[1:] {
		if blank(r) {
			continue
		}
		row := make([]string, len(header))
		for i := 0; i < len(header) && i < len(r); i++ {
			row[i] = strings.TrimSpace(r[i])
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

// uniqueHeader trims names; blanks become "Unnamed: i" and repeats get a
// ".n" suffix.
func uniqueHeader(raw []string) []string {
	used := map[string]bool{}
	out := make([]string, len(raw))
	for i, h := range raw {
		h = strings.TrimSpace(h)
		if h == "" {
			h = "Unnamed: " + strconv.Itoa(i)
		}
		name := h
		for n := 1; used[name]; n++ {
			name = h + "." + strconv.Itoa(n)
		}
		used[name] = true
		out[i] = name
	}
	return out
}

func blank(r []string) bool {
	for _, c := range r {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
