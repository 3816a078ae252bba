package render

import (
	"fmt"
	"strings"

	"ipo-report-go/internal/types"
)

const (
	chartWidth   = 720.0
	chartHeight  = 260.0
	chartPadX    = 40.0
	chartPadTop  = 20.0
	chartPadBot  = 40.0
	chartScaleLo = 1.0
	chartScaleHi = 5.0
)

type point struct{ X, Y float64 }

type chartLabel struct {
	X    float64
	Text string
}

type gridline struct {
	Y    float64
	Text string
}

type chartSegment struct {
	X1, X2 float64
	Name   string
}

type chartView struct {
	Width, Height float64
	Ours          string
	Benchmarks    string
	OurDots       []point
	Labels        []chartLabel
	Segments      []chartSegment
	Gridlines     []gridline
	Empty         bool
}

// buildChart lays the score series out as SVG polyline coordinates.
func buildChart(d types.ScoreDistribution) chartView {
	v := chartView{Width: chartWidth, Height: chartHeight, Empty: len(d.Labels) == 0}
	for s := chartScaleLo; s <= chartScaleHi; s++ {
		v.Gridlines = append(v.Gridlines, gridline{Y: yFor(s), Text: fmt.Sprintf("%.0f", s)})
	}
	if v.Empty {
		return v
	}
	n := len(d.Labels)
	step := (chartWidth - 2*chartPadX) / float64(max(n-1, 1))
	xFor := func(i int) float64 {
		if n == 1 {
			return chartWidth / 2
		}
		return chartPadX + float64(i)*step
	}
	var ours, bench []string
	for i := range d.Labels {
		x := xFor(i)
		if i < len(d.Ours) {
			p := point{X: x, Y: yFor(d.Ours[i])}
			v.OurDots = append(v.OurDots, p)
			ours = append(ours, fmt.Sprintf("%.1f,%.1f", p.X, p.Y))
		}
		if i < len(d.Benchmarks) {
			bench = append(bench, fmt.Sprintf("%.1f,%.1f", x, yFor(d.Benchmarks[i])))
		}
		v.Labels = append(v.Labels, chartLabel{X: x, Text: fmt.Sprintf("%d", i+1)})
	}
	v.Ours = strings.Join(ours, " ")
	v.Benchmarks = strings.Join(bench, " ")
	for _, s := range d.Segments {
		v.Segments = append(v.Segments, chartSegment{X1: xFor(s.From) - step/2, X2: xFor(s.To) + step/2, Name: s.Name})
	}
	return v
}

func yFor(score float64) float64 {
	if score < chartScaleLo {
		score = chartScaleLo
	}
	if score > chartScaleHi {
		score = chartScaleHi
	}
	plot := chartHeight - chartPadTop - chartPadBot
	return chartPadTop + (chartScaleHi-score)/(chartScaleHi-chartScaleLo)*plot
}
