package report

import (
	"sort"
	"strings"
	"unicode/utf8"

	"ipo-report-go/internal/privacy"
	"ipo-report-go/internal/types"
)

// collectOpenEnded gathers the free-text answers of every subjective index
// entry present in table. used is shared across the questions of one report.
func collectOpenEnded(table types.RawTable, index []types.ItemIndexEntry, opts Options) []types.OpenEndedGroup {
	groups := []types.OpenEndedGroup{}
	used := map[string]bool{}
	for _, e := range index {
		if !e.IsSubjective() {
			continue
		}
		cells, ok := table.Column(strings.TrimSpace(e.Header))
		if !ok {
			continue
		}
		groups = append(groups, types.OpenEndedGroup{
			Header:   e.Header,
			Title:    e.Label(),
			Category: e.Subcategory,
			Answers:  processAnswers(cells, used, opts),
		})
	}
	return groups
}

// processAnswers drops short answers and duplicates (case and whitespace
// insensitive, also against used), masks personal details and keeps the
// longest MaxAnswers when there are more. The first RepresentativeAnswers
// kept are added to used.
func processAnswers(raw []string, used map[string]bool, opts Options) []string {
	type answer struct{ text, key string }
	var kept []answer
	seen := map[string]bool{}
	for _, a := range raw {
		a = strings.TrimSpace(a)
		if a == "" || utf8.RuneCountInString(a) < opts.MinAnswerLength {
			continue
		}
		key := normalizeAnswer(a)
		if seen[key] || used[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, answer{text: privacy.MaskSensitive(a), key: key})
	}
	if opts.MaxAnswers > 0 && len(kept) > opts.MaxAnswers {
		sort.SliceStable(kept, func(i, j int) bool {
			return utf8.RuneCountInString(kept[i].text) > utf8.RuneCountInString(kept[j].text)
		})
		kept = kept[:opts.MaxAnswers]
	}
	out := make([]string, len(kept))
	for i, a := range kept {
		out[i] = a.text
		if i < opts.RepresentativeAnswers {
			used[a.key] = true
		}
	}
	return out
}

func normalizeAnswer(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
