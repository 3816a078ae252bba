package aggregator

import (
	"regexp"
	"strings"

	"ipo-report-go/internal/types"
)

var categoryDescriptions = map[string]string{
	types.CategoryInput:   "리소스·역량·정보 투입 수준",
	types.CategoryProcess: "협업·의사소통·리더십 실행",
	types.CategoryOutput:  "성과·몰입·문화 인식",
}

var spaceRun = regexp.MustCompile(`\s+`)

// InArea reports whether an index category label belongs to the IPO area.
// Reference data varies its labels ("Input 영역", "process"), so the match
// is a case-insensitive substring.
func InArea(category, area string) bool {
	c := strings.ToLower(spaceRun.ReplaceAllString(strings.TrimSpace(category), " "))
	return strings.Contains(c, strings.ToLower(area))
}

// AreaOf returns the first IPO area matching category, or "".
func AreaOf(category string) string {
	for _, area := range types.IPOCategories {
		if InArea(category, area) {
			return area
		}
	}
	return ""
}

// ScoreCategory aggregates every index entry of one IPO area. Entries
// without a sub-category label are left out of the sub-category groups but
// still count toward the area average.
func ScoreCategory(table types.RawTable, index []types.ItemIndexEntry, area string, opts Options) types.CategoryScore {
	cat := types.CategoryScore{
		Name:          area,
		Description:   categoryDescriptions[area],
		Subcategories: []types.SubcategoryScore{},
		Items:         []types.ItemScore{},
	}

	var order []string
	bySub := map[string][]types.ItemIndexEntry{}
	var loose []types.ItemIndexEntry
	for _, e := range index {
		if !InArea(e.Category, area) {
			continue
		}
		sub := strings.TrimSpace(e.Subcategory)
		if sub == "" {
			loose = append(loose, e)
			continue
		}
		if _, seen := bySub[sub]; !seen {
			order = append(order, sub)
		}
		bySub[sub] = append(bySub[sub], e)
	}

	var all []float64
	for _, sub := range order {
		group := types.SubcategoryScore{Name: sub, Items: []types.ItemScore{}, Benchmark: opts.BenchmarkFor(sub)}
		var subMeans []float64
		for _, e := range bySub[sub] {
			item, raw := scoreItem(table, e, opts)
			group.Items = append(group.Items, item)
			if raw != nil {
				subMeans = append(subMeans, *raw)
			}
		}
		group.ItemCount = len(group.Items)
		group.Average = rounded(mean(subMeans), 2)
		all = append(all, subMeans...)
		cat.Subcategories = append(cat.Subcategories, group)
		cat.Items = append(cat.Items, group.Items...)
	}
	for _, e := range loose {
		item, raw := scoreItem(table, e, opts)
		cat.Items = append(cat.Items, item)
		if raw != nil {
			all = append(all, *raw)
		}
	}

	cat.Average = rounded(mean(all), 2)
	cat.Grade = opts.Grade(cat.Average)
	return cat
}

// ScoreIPO returns the Input, Process and Output areas in that order.
func ScoreIPO(table types.RawTable, index []types.ItemIndexEntry, opts Options) (input, process, output types.CategoryScore) {
	input = ScoreCategory(table, index, types.CategoryInput, opts)
	process = ScoreCategory(table, index, types.CategoryProcess, opts)
	output = ScoreCategory(table, index, types.CategoryOutput, opts)
	return input, process, output
}
