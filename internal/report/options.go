// Package report assembles one ReportRecord per organizational unit.
package report

import (
	"ipo-report-go/internal/aggregator"
	"ipo-report-go/internal/grouping"
)

// Options configures assembly. The zero value is not useful; start from
// DefaultOptions.
type Options struct {
	Scoring aggregator.Options
	// MinAnswerLength drops shorter free-text answers (counted in runes).
	MinAnswerLength int
	// MaxAnswers caps the answers kept per question; longer answers win.
	MaxAnswers int
	// RepresentativeAnswers of each question are not repeated under later
	// questions of the same report.
	RepresentativeAnswers int
	MinGroupSize          int
	// Concurrency bounds how many units are assembled at once.
	Concurrency int
}

func DefaultOptions() Options {
	return Options{
		Scoring:               aggregator.DefaultOptions(),
		MinAnswerLength:       10,
		MaxAnswers:            20,
		RepresentativeAnswers: 3,
		MinGroupSize:          grouping.DefaultMinSize,
		Concurrency:           4,
	}
}
