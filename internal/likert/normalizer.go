// Package likert turns raw survey cells into numeric 1..5 scale values.
package likert

import (
	"math"
	"strconv"
	"strings"
)

const (
	ScaleMin = 1.0
	ScaleMax = 5.0

	// DefaultObjectiveRatio is the share of in-range values that marks a Likert column.
	DefaultObjectiveRatio = 0.8
)

// Labels maps known answer texts to scale points. Keys are compared after trimming.
var Labels = map[string]float64{
	"매우 그렇지 않다": 1,
	"전혀 그렇지 않다": 1,
	"매우그렇지않다":   1,
	"그렇지 않다":    2,
	"그렇지않다":     2,
	"보통이다":      3,
	"보통":        3,
	"그렇다":       4,
	"매우 그렇다":    5,
	"매우그렇다":     5,
	"매우 그렇다.":   5,
}

// Normalizer parses cells with a label table. The zero value uses Labels.
type Normalizer struct {
	labels map[string]float64
}

// New returns a normalizer over labels; nil selects the built-in table.
func New(labels map[string]float64) Normalizer {
	return Normalizer{labels: labels}
}

func (n Normalizer) table() map[string]float64 {
	if n.labels == nil {
		return Labels
	}
	return n.labels
}

// Parse maps one cell to a number: label lookup first, then a plain numeric
// parse. ok is false for blanks and anything unparseable.
func (n Normalizer) Parse(raw string) (v float64, ok bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	if v, ok := n.table()[s]; ok {
		return v, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Normalize is Parse restricted to the 1..5 scale.
func (n Normalizer) Normalize(raw string) (v float64, ok bool) {
	v, ok = n.Parse(raw)
	if !ok || v < ScaleMin || v > ScaleMax {
		return 0, false
	}
	return v, true
}

// Column normalizes every cell; nil entries are missing answers.
func (n Normalizer) Column(cells []string) []*float64 {
	out := make([]*float64, len(cells))
	for i, c := range cells {
		if v, ok := n.Normalize(c); ok {
			out[i] = &v
		}
	}
	return out
}

// Valid returns only the in-range values of cells, in order.
func (n Normalizer) Valid(cells []string) []float64 {
	out := make([]float64, 0, len(cells))
	for _, c := range cells {
		if v, ok := n.Normalize(c); ok {
			out = append(out, v)
		}
	}
	return out
}

// IsObjective reports whether at least ratio of the parseable cells fall in
// 1..5. A column with nothing parseable is not objective.
func (n Normalizer) IsObjective(cells []string, ratio float64) bool {
	parsed, within := 0, 0
	for _, c := range cells {
		v, ok := n.Parse(c)
		if !ok {
			continue
		}
		parsed++
		if v >= ScaleMin && v <= ScaleMax {
			within++
		}
	}
	if parsed == 0 {
		return false
	}
	return float64(within)/float64(parsed) >= ratio
}
