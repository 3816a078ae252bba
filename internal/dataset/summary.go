package dataset

import (
	"strings"

	"ipo-report-go/internal/likert"
	"ipo-report-go/internal/types"
)

// ColumnSummary describes one upload column.
type ColumnSummary struct {
	Name      string  `json:"name"`
	Filled    int     `json:"filled"`
	FillRate  float64 `json:"fill_rate"`
	Objective bool    `json:"objective"`
	Indexed   bool    `json:"indexed"`
	FreeText  bool    `json:"free_text"`
}

// DatasetSummary is the upload overview shown before generating reports and
// passed to the interpreter as organization context.
type DatasetSummary struct {
	Respondents int             `json:"respondents"`
	Columns     []ColumnSummary `json:"columns"`
	Objective   int             `json:"objective_columns"`
	FreeText    int             `json:"free_text_columns"`
	Validation  Validation      `json:"validation"`
	Org         Organization    `json:"organization"`
}

// Summarize inspects every column of table against the index.
func Summarize(table types.RawTable, index []types.ItemIndexEntry, n likert.Normalizer, objectiveRatio float64) DatasetSummary {
	byHeader := map[string]types.ItemIndexEntry{}
	for _, e := range index {
		byHeader[strings.TrimSpace(e.Header)] = e
	}

	ds := DatasetSummary{
		Respondents: table.Len(),
		Columns:     make([]ColumnSummary, 0, len(table.Header)),
		Validation:  Validate(table, index),
		Org:         DetectOrganization(table),
	}
	for _, h := range table.Header {
		cells, _ := table.Column(h)
		cs := ColumnSummary{Name: h}
		for _, c := range cells {
			if strings.TrimSpace(c) != "" {
				cs.Filled++
			}
		}
		if table.Len() > 0 {
			cs.FillRate = float64(cs.Filled) / float64(table.Len())
		}
		entry, indexed := byHeader[h]
		cs.Indexed = indexed
		cs.FreeText = indexed && entry.IsSubjective()
		cs.Objective = !cs.FreeText && n.IsObjective(cells, objectiveRatio)
		if cs.Objective {
			ds.Objective++
		}
		if cs.FreeText {
			ds.FreeText++
		}
		ds.Columns = append(ds.Columns, cs)
	}
	return ds
}
