package report

import (
	"ipo-report-go/internal/actionable"
	"ipo-report-go/internal/aggregator"
	"ipo-report-go/internal/dataset"
	"ipo-report-go/internal/types"
)

// Unit names the rows being assembled.
type Unit struct {
	Name    string
	IsTotal bool
}

// Assemble builds the record of one unit. It never fails: missing columns
// and empty tables produce null scores.
func Assemble(table types.RawTable, index []types.ItemIndexEntry, unit Unit, org dataset.Organization, opts Options) types.ReportRecord {
	rec := types.ReportRecord{
		UnitName:              unit.Name,
		IsTotalOrganization:   unit.IsTotal,
		Respondents:           table.Len(),
		ImprovementPriorities: actionable.Priorities(),
	}
	if unit.IsTotal {
		rec.OrganizationName = org.DisplayName()
	} else {
		rec.OrganizationName = unit.Name
		rec.DeptName = org.Company
	}

	rec.Input, rec.Process, rec.Output = aggregator.ScoreIPO(table, index, opts.Scoring)
	rec.ScoreDistribution = aggregator.ScoreChart(table, index, opts.Scoring)
	rec.OpenEnded = collectOpenEnded(table, index, opts)
	rec.FocusAreas = actionable.Generate(rec.Categories(), opts.Scoring.Thresholds.Fair)
	return rec
}
