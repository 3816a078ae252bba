package dataset

import (
	"fmt"
	"io"
	"strings"

	"ipo-report-go/internal/types"
)

// Index column names with their accepted aliases.
var (
	indexHeaderCols      = []string{"헤더명", "header", "Header"}
	indexQuestionCols    = []string{"문항명", "question", "Question"}
	indexCategoryCols    = []string{"대분류", "category", "Category"}
	indexSubcategoryCols = []string{"소분류", "subcategory", "Subcategory"}
)

// LoadIndex reads the item index workbook (or csv) from disk.
func LoadIndex(path string) ([]types.ItemIndexEntry, error) {
	table, err := LoadTable(path)
	if err != nil {
		return nil, fmt.Errorf("load index: %w", err)
	}
	return IndexFromTable(table)
}

// ReadIndex is LoadIndex for an upload.
func ReadIndex(r io.Reader, name string) ([]types.ItemIndexEntry, error) {
	table, err := ReadTable(r, name)
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	return IndexFromTable(table)
}

// LoadIndex is the logged form of the package LoadIndex.
func (r *Reader) LoadIndex(path string) ([]types.ItemIndexEntry, error) {
	idx, err := LoadIndex(path)
	r.logIndex(path, idx, err)
	return idx, err
}

// ReadIndex is the logged form of the package ReadIndex.
func (r *Reader) ReadIndex(rd io.Reader, name string) ([]types.ItemIndexEntry, error) {
	idx, err := ReadIndex(rd, name)
	r.logIndex(name, idx, err)
	return idx, err
}

func (r *Reader) logIndex(name string, idx []types.ItemIndexEntry, err error) {
	entry := r.log.WithField("index", name)
	if err != nil {
		entry.WithField("error", err.Error()).Error("item index read failed")
		return
	}
	entry.WithField("items", len(idx)).Info("item index loaded")
}

// IndexFromTable maps index rows to entries. When no header-name column is
// recognized the first column is used; rows with a blank header are skipped.
func IndexFromTable(table types.RawTable) ([]types.ItemIndexEntry, error) {
	if len(table.Header) == 0 {
		return nil, ErrNoRows
	}
	headerCol := firstPresent(table, indexHeaderCols)
	if headerCol == "" {
		headerCol = table.Header[0]
	}
	question := firstPresent(table, indexQuestionCols)
	category := firstPresent(table, indexCategoryCols)
	sub := firstPresent(table, indexSubcategoryCols)

	headers, _ := table.Column(headerCol)
	entries := make([]types.ItemIndexEntry, 0, len(headers))
	for i, h := range headers {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		entries = append(entries, types.ItemIndexEntry{
			Header:      h,
			Question:    cell(table, i, question),
			Category:    cell(table, i, category),
			Subcategory: cell(table, i, sub),
		})
	}
	return entries, nil
}

func firstPresent(table types.RawTable, names []string) string {
	for _, n := range names {
		if table.Has(n) {
			return n
		}
	}
	return ""
}

func cell(table types.RawTable, row int, col string) string {
	if col == "" {
		return ""
	}
	idx := table.Index(col)
	if idx < 0 || idx >= len(table.Rows[row]) {
		return ""
	}
	return strings.TrimSpace(table.Rows[row][idx])
}
