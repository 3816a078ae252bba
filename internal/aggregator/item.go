package aggregator

import "ipo-report-go/internal/types"

// ScoreItem aggregates one index entry over the table. A header missing from
// the table yields a null mean and an all-zero distribution.
func ScoreItem(table types.RawTable, entry types.ItemIndexEntry, opts Options) types.ItemScore {
	score, _ := scoreItem(table, entry, opts)
	return score
}

// scoreItem also returns the unrounded mean, which category averages use.
func scoreItem(table types.RawTable, entry types.ItemIndexEntry, opts Options) (types.ItemScore, *float64) {
	score := types.ItemScore{
		Question:    entry.Label(),
		Header:      entry.Header,
		Subcategory: entry.Subcategory,
	}
	cells, ok := table.Column(entry.Header)
	if !ok {
		return score, nil
	}
	valid := opts.Normalizer.Valid(cells)
	raw := mean(valid)
	if raw == nil {
		return score, nil
	}
	score.Mean = rounded(raw, 2)
	score.ValidCount = len(valid)
	score.Distribution = distribution(valid)
	bm := round(clamp(*score.Mean-opts.BenchmarkOffset, 0, 5), 2)
	score.Benchmark = &bm
	d := score.Distribution
	score.Aggregate = types.DistributionAggregate{
		NegPct: round(d.VeryLow+d.Low, 1),
		MidPct: round(d.Medium, 1),
		PosPct: round(d.High+d.VeryHigh, 1),
	}
	return score, raw
}

// distribution returns the share of each integer scale point among valid.
func distribution(valid []float64) types.Distribution {
	var dist types.Distribution
	if len(valid) == 0 {
		return dist
	}
	counts := map[int]int{}
	for _, v := range valid {
		if v == float64(int(v)) {
			counts[int(v)]++
		}
	}
	total := float64(len(valid))
	for v := 1; v <= 5; v++ {
		dist.Set(v, round(float64(counts[v])/total*100, 1))
	}
	return dist
}
