// Package grouping partitions a respondent table into organizational units.
package grouping

import (
	"fmt"
	"strings"

	"ipo-report-go/internal/types"
)

// WholeOrganization is the unit name used when the table is not partitioned.
const WholeOrganization = "전체 조직"

// DefaultMinSize is the smallest unit that still gets its own report.
const DefaultMinSize = 3

// Group is one unit and the rows that belong to it. Whole marks the
// whole-organization group; a unit value that happens to equal
// WholeOrganization is still a unit.
type Group struct {
	Name  string
	Rows  []int
	Table types.RawTable
	Whole bool
}

// Result carries the groups in first-seen order. Fallback is set when the
// caller asked for a partition but got the whole organization instead.
type Result struct {
	Groups   []Group
	Dropped  map[string]int
	Warnings []string
	Fallback bool
}

// Whole returns the table as a single whole-organization group.
func Whole(table types.RawTable) Result {
	return Result{Groups: []Group{whole(table)}, Dropped: map[string]int{}}
}

func whole(table types.RawTable) Group {
	rows := make([]int, table.Len())
	for i := range rows {
		rows[i] = i
	}
	return Group{Name: WholeOrganization, Rows: rows, Table: table, Whole: true}
}

// ByColumn partitions table by the distinct values of column. Units with
// fewer than minSize rows are dropped. Rows with a blank unit value belong to
// no unit. When the column is missing, has fewer than two distinct values, or
// no unit survives, the whole organization is returned with a warning.
func ByColumn(table types.RawTable, column string, minSize int) Result {
	if minSize <= 0 {
		minSize = DefaultMinSize
	}
	column = strings.TrimSpace(column)
	if column == "" {
		return Whole(table)
	}
	cells, ok := table.Column(column)
	if !ok {
		return fallback(table, fmt.Sprintf("그룹 컬럼 '%s'이(가) 데이터에 없어 전체 조직으로 생성합니다", column))
	}

	var order []string
	members := map[string][]int{}
	for i, c := range cells {
		key := strings.TrimSpace(c)
		if key == "" {
			continue
		}
		if _, seen := members[key]; !seen {
			order = append(order, key)
		}
		members[key] = append(members[key], i)
	}
	if len(order) < 2 {
		return fallback(table, fmt.Sprintf("그룹 컬럼 '%s'의 고유값이 %d개뿐이어서 전체 조직으로 생성합니다", column, len(order)))
	}

	res := Result{Dropped: map[string]int{}}
	for _, key := range order {
		rows := members[key]
		if len(rows) < minSize {
			res.Dropped[key] = len(rows)
			res.Warnings = append(res.Warnings, fmt.Sprintf("'%s' 응답자가 %d명으로 최소 인원(%d명) 미만이라 제외합니다", key, len(rows), minSize))
			continue
		}
		res.Groups = append(res.Groups, Group{Name: key, Rows: rows, Table: table.Subset(rows)})
	}
	if len(res.Groups) == 0 {
		fb := fallback(table, fmt.Sprintf("최소 인원(%d명) 이상인 그룹이 없어 전체 조직으로 생성합니다", minSize))
		fb.Dropped = res.Dropped
		fb.Warnings = append(res.Warnings, fb.Warnings...)
		return fb
	}
	return res
}

func fallback(table types.RawTable, warning string) Result {
	return Result{
		Groups:   []Group{whole(table)},
		Dropped:  map[string]int{},
		Warnings: []string{warning},
		Fallback: true,
	}
}

// Names lists the group names in order.
func (r Result) Names() []string {
	out := make([]string, len(r.Groups))
	for i, g := range r.Groups {
		out[i] = g.Name
	}
	return out
}

var unitKeywords = []string{"팀", "부서", "조직", "소속", "부문", "센터", "team", "dept", "org"}

// Candidate is a column that looks like an organizational unit.
type Candidate struct {
	Column string `json:"column"`
	Units  int    `json:"units"`
}

// CandidateColumns suggests grouping columns: the name carries a unit
// keyword and the distinct non-blank count lies between 2 and 70% of rows.
func CandidateColumns(table types.RawTable) []Candidate {
	out := []Candidate{}
	limit := float64(table.Len()) * 0.7
	for _, h := range table.Header {
		lower := strings.ToLower(h)
		matched := false
		for _, kw := range unitKeywords {
			if strings.Contains(lower, kw) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		cells, _ := table.Column(h)
		distinct := map[string]struct{}{}
		for _, c := range cells {
			if c = strings.TrimSpace(c); c != "" {
				distinct[c] = struct{}{}
			}
		}
		if n := len(distinct); n >= 2 && float64(n) <= limit {
			out = append(out, Candidate{Column: h, Units: n})
		}
	}
	return out
}
