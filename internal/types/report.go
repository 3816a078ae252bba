package types

// IPO top-level categories, in report order.
const (
	CategoryInput   = "Input"
	CategoryProcess = "Process"
	CategoryOutput  = "Output"
)

// IPOCategories lists the three framework areas in display order.
var IPOCategories = []string{CategoryInput, CategoryProcess, CategoryOutput}

// Distribution is the share (percent, one decimal) of valid answers per scale point.
type Distribution struct {
	VeryLow  float64 `json:"veryLow"`
	Low      float64 `json:"low"`
	Medium   float64 `json:"medium"`
	High     float64 `json:"high"`
	VeryHigh float64 `json:"veryHigh"`
}

// Set stores pct for the 1..5 scale point v; other values are ignored.
func (d *Distribution) Set(v int, pct float64) {
	switch v {
	case 1:
		d.VeryLow = pct
	case 2:
		d.Low = pct
	case 3:
		d.Medium = pct
	case 4:
		d.High = pct
	case 5:
		d.VeryHigh = pct
	}
}

// Sum adds the five buckets.
func (d Distribution) Sum() float64 {
	return d.VeryLow + d.Low + d.Medium + d.High + d.VeryHigh
}

// DistributionAggregate folds the five buckets into negative/neutral/positive.
type DistributionAggregate struct {
	NegPct float64 `json:"neg_pct"`
	MidPct float64 `json:"mid_pct"`
	PosPct float64 `json:"pos_pct"`
}

// ItemScore is the per-unit result for one survey item.
type ItemScore struct {
	Question     string                `json:"question"`
	Header       string                `json:"header"`
	Subcategory  string                `json:"subcategory,omitempty"`
	Mean         *float64              `json:"average"`
	Benchmark    *float64              `json:"benchmark"`
	Distribution Distribution          `json:"responses"`
	Aggregate    DistributionAggregate `json:"dist_agg"`
	ValidCount   int                   `json:"valid_count"`
}

// SubcategoryScore groups items sharing a sub-category label.
type SubcategoryScore struct {
	Name      string      `json:"name"`
	Average   *float64    `json:"average"`
	Benchmark *float64    `json:"benchmark,omitempty"`
	Items     []ItemScore `json:"items"`
	ItemCount int         `json:"item_count"`
}

// CategoryScore aggregates every item under one IPO area.
type CategoryScore struct {
	Name          string             `json:"name"`
	Description   string             `json:"description"`
	Average       *float64           `json:"average"`
	Grade         string             `json:"grade"`
	Subcategories []SubcategoryScore `json:"subcategories"`
	Items         []ItemScore        `json:"items"`
}

// Segment marks the chart index range covered by one IPO area.
type Segment struct {
	Name string `json:"name"`
	From int    `json:"from"`
	To   int    `json:"to"`
}

// ScoreDistribution is the item-level line chart data.
type ScoreDistribution struct {
	Title      string    `json:"title"`
	Labels     []string  `json:"labels"`
	Ours       []float64 `json:"ours"`
	Benchmarks []float64 `json:"benchmarks"`
	Segments   []Segment `json:"segments"`
}

// OpenEndedGroup holds the retained free-text answers of one question.
type OpenEndedGroup struct {
	Header   string   `json:"header"`
	Title    string   `json:"title"`
	Category string   `json:"category,omitempty"`
	Answers  []string `json:"answers"`
}

// ActionCard is a data-driven improvement suggestion.
type ActionCard struct {
	Area    string  `json:"area"`
	Insight string  `json:"insight"`
	Action  string  `json:"action"`
	Score   float64 `json:"score"`
}

// ReportRecord is the self-contained result for one unit (or the whole organization).
type ReportRecord struct {
	UnitName              string            `json:"unit_name"`
	OrganizationName      string            `json:"organization_name"`
	DeptName              string            `json:"dept_name,omitempty"`
	IsTotalOrganization   bool              `json:"is_total_organization"`
	Respondents           int               `json:"respondents"`
	Input                 CategoryScore     `json:"input"`
	Process               CategoryScore     `json:"process"`
	Output                CategoryScore     `json:"output"`
	ScoreDistribution     ScoreDistribution `json:"score_distribution"`
	OpenEnded             []OpenEndedGroup  `json:"open_ended"`
	ImprovementPriorities []string          `json:"improvement_priorities"`
	FocusAreas            []ActionCard      `json:"focus_areas"`
}

// Categories returns the three IPO areas in display order.
func (r ReportRecord) Categories() []CategoryScore {
	return []CategoryScore{r.Input, r.Process, r.Output}
}

// Category returns the area with the given IPO name.
func (r ReportRecord) Category(name string) (CategoryScore, bool) {
	switch name {
	case CategoryInput:
		return r.Input, true
	case CategoryProcess:
		return r.Process, true
	case CategoryOutput:
		return r.Output, true
	}
	return CategoryScore{}, false
}
