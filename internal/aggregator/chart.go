package aggregator

import (
	"strings"

	"ipo-report-go/internal/types"
)

const chartTitle = "진단 영역/항목별 점수 분포"

// ScoreChart builds the item-level line chart over Likert columns in index
// order, with one segment per IPO area spanning its first and last point.
func ScoreChart(table types.RawTable, index []types.ItemIndexEntry, opts Options) types.ScoreDistribution {
	chart := types.ScoreDistribution{
		Title:      chartTitle,
		Labels:     []string{},
		Ours:       []float64{},
		Benchmarks: []float64{},
		Segments:   []types.Segment{},
	}
	positions := map[string][]int{}
	for _, e := range index {
		header := strings.TrimSpace(e.Header)
		label := e.Label()
		if header == "" || label == "" {
			continue
		}
		cells, ok := table.Column(header)
		if !ok || !opts.Normalizer.IsObjective(cells, opts.ObjectiveRatio) {
			continue
		}
		m := mean(opts.Normalizer.Valid(cells))
		if m == nil {
			continue
		}
		avg := round(*m, 2)
		if area := AreaOf(e.Category); area != "" {
			positions[area] = append(positions[area], len(chart.Labels))
		}
		chart.Labels = append(chart.Labels, label)
		chart.Ours = append(chart.Ours, avg)
		chart.Benchmarks = append(chart.Benchmarks, round(clamp(avg-opts.BenchmarkOffset, 0, 5), 2))
	}
	for _, area := range types.IPOCategories {
		idx := positions[area]
		if len(idx) == 0 {
			continue
		}
		// positions are appended in increasing order
		chart.Segments = append(chart.Segments, types.Segment{Name: area, From: idx[0], To: idx[len(idx)-1]})
	}
	return chart
}
