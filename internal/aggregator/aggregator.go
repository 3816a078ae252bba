// Package aggregator computes item, sub-category and IPO category scores for
// one respondent table. Every function here is pure.
package aggregator

import (
	"math"

	"ipo-report-go/internal/likert"
)

// Grade labels.
const (
	GradeExcellent = "우수"
	GradeGood      = "양호"
	GradeFair      = "보통"
	GradePoor      = "개선 필요"
	GradeNA        = "N/A"
)

// Thresholds are the lower bounds of each grade.
type Thresholds struct {
	Excellent float64 `yaml:"excellent" json:"excellent"`
	Good      float64 `yaml:"good" json:"good"`
	Fair      float64 `yaml:"fair" json:"fair"`
}

// Options tunes aggregation.
type Options struct {
	BenchmarkOffset float64
	ObjectiveRatio  float64
	Thresholds      Thresholds
	// Benchmarks optionally maps sub-category labels to admin-configured
	// comparison scores. Labels missing from a non-empty table get
	// DefaultBenchmark.
	Benchmarks map[string]float64
	Normalizer likert.Normalizer
}

const (
	DefaultBenchmarkOffset = 0.25
	DefaultBenchmark       = 3.2
)

// DefaultOptions returns the production constants.
func DefaultOptions() Options {
	return Options{
		BenchmarkOffset: DefaultBenchmarkOffset,
		ObjectiveRatio:  likert.DefaultObjectiveRatio,
		Thresholds:      Thresholds{Excellent: 3.8, Good: 3.4, Fair: 3.0},
	}
}

// Grade maps an average to its label; nil yields N/A.
func (o Options) Grade(avg *float64) string {
	if avg == nil {
		return GradeNA
	}
	switch v := *avg; {
	case v >= o.Thresholds.Excellent:
		return GradeExcellent
	case v >= o.Thresholds.Good:
		return GradeGood
	case v >= o.Thresholds.Fair:
		return GradeFair
	default:
		return GradePoor
	}
}

// BenchmarkFor returns the configured benchmark of a sub-category, or nil
// when no table is configured.
func (o Options) BenchmarkFor(label string) *float64 {
	if len(o.Benchmarks) == 0 {
		return nil
	}
	if v, ok := o.Benchmarks[label]; ok {
		return &v
	}
	v := DefaultBenchmark
	return &v
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// mean returns nil for an empty slice.
func mean(vals []float64) *float64 {
	if len(vals) == 0 {
		return nil
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	m := sum / float64(len(vals))
	return &m
}

func rounded(p *float64, places int) *float64 {
	if p == nil {
		return nil
	}
	v := round(*p, places)
	return &v
}
