package dataset

import (
	"strings"

	"ipo-report-go/internal/types"
)

// DefaultOrganizationName is shown when no company column is present.
const DefaultOrganizationName = "업로드 데이터"

var (
	companyColumns    = []string{"CMPNAME", "회사명", "조직명", "Company", "Organization", "Org", "회사", "조직"}
	departmentColumns = []string{"POS", "부서명", "팀명", "Department", "Team", "Position", "부서", "팀", "직책", "소속"}
)

// Validation compares upload columns with the index headers.
type Validation struct {
	Missing       []string `json:"missing"`
	Extra         []string `json:"extra"`
	ExpectedCount int      `json:"expected_count"`
	ActualCount   int      `json:"actual_count"`
}

// OK reports whether every indexed header is present.
func (v Validation) OK() bool { return len(v.Missing) == 0 }

// Validate lists index headers absent from the table and table columns the
// index does not describe.
func Validate(table types.RawTable, index []types.ItemIndexEntry) Validation {
	expected := map[string]bool{}
	v := Validation{Missing: []string{}, Extra: []string{}, ActualCount: len(table.Header)}
	for _, e := range index {
		h := strings.TrimSpace(e.Header)
		if h == "" {
			continue
		}
		v.ExpectedCount++
		expected[h] = true
		if !table.Has(h) {
			v.Missing = append(v.Missing, h)
		}
	}
	for _, h := range table.Header {
		if !expected[h] {
			v.Extra = append(v.Extra, h)
		}
	}
	return v
}

// Organization is the company and department detected from an upload.
type Organization struct {
	Company    string `json:"company,omitempty"`
	Department string `json:"department,omitempty"`
}

// DisplayName is the company or DefaultOrganizationName.
func (o Organization) DisplayName() string {
	if o.Company != "" {
		return o.Company
	}
	return DefaultOrganizationName
}

// DetectOrganization takes the most frequent value of the first company
// column present and the first value of the first department column.
func DetectOrganization(table types.RawTable) Organization {
	var org Organization
	for _, col := range companyColumns {
		if cells, ok := table.Column(col); ok {
			if v := mostFrequent(cells); v != "" {
				org.Company = v
				break
			}
		}
	}
	for _, col := range departmentColumns {
		if cells, ok := table.Column(col); ok {
			if v := firstNonBlank(cells); v != "" {
				org.Department = v
				break
			}
		}
	}
	return org
}

// mostFrequent gives ties to the value that reached the count first.
func mostFrequent(cells []string) string {
	counts := map[string]int{}
	best, bestN := "", 0
	for _, c := range cells {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		counts[c]++
		if n := counts[c]; n > bestN {
			best, bestN = c, n
		}
	}
	return best
}

func firstNonBlank(cells []string) string {
	for _, c := range cells {
		if c = strings.TrimSpace(c); c != "" {
			return c
		}
	}
	return ""
}
