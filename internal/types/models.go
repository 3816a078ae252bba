package types

import "strings"

// RawTable holds respondent rows as read from an upload. Header names are
// trimmed and unique; an empty cell is treated as a missing answer.
type RawTable struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// Index returns the column position of name, or -1.
func (t RawTable) Index(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Has reports whether the table carries a column called name.
func (t RawTable) Has(name string) bool { return t.Index(name) >= 0 }

// Column returns every cell of the named column; short rows yield "".
// ok is false when the column does not exist.
func (t RawTable) Column(name string) (cells []string, ok bool) {
	idx := t.Index(name)
	if idx < 0 {
		return nil, false
	}
	cells = make([]string, len(t.Rows))
	for i, r := range t.Rows {
		if idx < len(r) {
			cells[i] = r[idx]
		}
	}
	return cells, true
}

// Len is the respondent count.
func (t RawTable) Len() int { return len(t.Rows) }

// Subset returns a table sharing the header with the selected rows.
func (t RawTable) Subset(rows []int) RawTable {
	out := RawTable{Header: t.Header, Rows: make([][]string, 0, len(rows))}
	for _, i := range rows {
		out.Rows = append(out.Rows, t.Rows[i])
	}
	return out
}

// SubjectiveCategory marks free-text items in the reference index.
const SubjectiveCategory = "주관식"

// ItemIndexEntry describes one survey item from the reference index.
type ItemIndexEntry struct {
	Header      string `json:"header"`
	Question    string `json:"question"`
	Category    string `json:"category"`
	Subcategory string `json:"subcategory,omitempty"`
}

// IsSubjective reports whether the entry is a free-text question.
func (e ItemIndexEntry) IsSubjective() bool {
	return strings.TrimSpace(e.Category) == SubjectiveCategory
}

// Label is the display text of the item, falling back to the header.
func (e ItemIndexEntry) Label() string {
	if q := strings.TrimSpace(e.Question); q != "" {
		return q
	}
	return strings.TrimSpace(e.Header)
}
