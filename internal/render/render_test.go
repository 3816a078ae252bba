package render

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ipo-report-go/internal/branding"
	"ipo-report-go/internal/interpret"
	"ipo-report-go/internal/types"
)

func f(v float64) *float64 { return &v }

func sampleRecord() types.ReportRecord {
	return types.ReportRecord{
		UnitName:         "영업팀",
		OrganizationName: "영업팀",
		DeptName:         "한빛상사",
		Respondents:      12,
		Input: types.CategoryScore{
			Name: "Input", Average: f(3.9), Grade: "우수",
			Subcategories: []types.SubcategoryScore{{
				Name: "목적경영", Average: f(3.9), Benchmark: f(3.5),
				Items: []types.ItemScore{{Question: "목표가 명확하다", Header: "Q1", Mean: f(3.9), Benchmark: f(3.65),
					Aggregate: types.DistributionAggregate{NegPct: 10, MidPct: 20, PosPct: 70}}},
			}},
		},
		Process: types.CategoryScore{Name: "Process", Grade: "N/A"},
		Output:  types.CategoryScore{Name: "Output", Average: f(2.5), Grade: "개선 필요"},
		ScoreDistribution: types.ScoreDistribution{
			Title:      "문항별 점수",
			Labels:     []string{"목표가 명확하다", "성과가 좋다"},
			Ours:       []float64{3.9, 2.5},
			Benchmarks: []float64{3.65, 2.25},
			Segments:   []types.Segment{{Name: "Input", From: 0, To: 0}, {Name: "Output", From: 1, To: 1}},
		},
		OpenEnded:             []types.OpenEndedGroup{{Header: "FREE", Title: "하고 싶은 말", Answers: []string{"<script>alert(1)</script> 회의가 너무 많습니다"}}},
		ImprovementPriorities: []string{"소통 강화"},
		FocusAreas:            []types.ActionCard{{Area: "Output", Insight: "성과 점수가 낮습니다", Action: "목표를 재정렬하세요", Score: 2.5}},
	}
}

func TestRender(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	out, err := r.HTML(Page{
		Record:      sampleRecord(),
		Theme:       branding.DefaultTheme(),
		GeneratedAt: time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.Contains(t, out, "영업팀 조직효과성 진단 리포트")
	assert.Contains(t, out, "한빛상사")
	assert.Contains(t, out, "--brand-primary")
	assert.Contains(t, out, "2025년 03월 07일")
	assert.Contains(t, out, "grade-excellent")
	assert.Contains(t, out, "grade-na")
	assert.Contains(t, out, "3.90")
	assert.Contains(t, out, `<div class="value">-</div>`)
	assert.Contains(t, out, "<polyline")
	assert.Contains(t, out, "목표를 재정렬하세요")
	assert.Contains(t, out, "&lt;script&gt;")
	assert.NotContains(t, out, "<script>alert")
	assert.NotContains(t, out, "AI 종합 해석")
}

func TestRenderInterpretationAndLogo(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	theme := branding.DefaultTheme()
	theme.Logo.DataURI = branding.DataURI([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'})
	theme.Logo.Alt = "한빛 로고"
	in := &interpret.Interpretation{Writer: "초안", Final: "종합적으로 양호합니다", Degraded: true}

	out, err := r.HTML(Page{Record: sampleRecord(), Theme: theme, Interpretation: in})
	require.NoError(t, err)
	assert.Contains(t, out, "AI 종합 해석")
	assert.Contains(t, out, "종합적으로 양호합니다")
	assert.Contains(t, out, "기본 문구로 대체")
	assert.Contains(t, out, `src="data:image/png;base64,`)
	assert.Contains(t, out, `alt="한빛 로고"`)
}

func TestRenderEmptyChart(t *testing.T) {
	r, err := New()
	require.NoError(t, err)
	rec := types.ReportRecord{OrganizationName: "빈 조직", IsTotalOrganization: true}
	out, err := r.HTML(Page{Record: rec, Theme: branding.DefaultTheme()})
	require.NoError(t, err)
	assert.Contains(t, out, "표시할 객관식 문항이 없습니다")
	assert.False(t, strings.Contains(out, "<polyline"))
}

func TestBuildChart(t *testing.T) {
	v := buildChart(types.ScoreDistribution{
		Labels:     []string{"a", "b", "c"},
		Ours:       []float64{5, 3, 1},
		Benchmarks: []float64{4.75, 2.75, 0.75},
		Segments:   []types.Segment{{Name: "Input", From: 0, To: 2}},
	})
	require.False(t, v.Empty)
	require.Len(t, v.OurDots, 3)
	assert.Equal(t, chartPadX, v.OurDots[0].X)
	assert.Equal(t, chartWidth-chartPadX, v.OurDots[2].X)
	assert.Equal(t, chartPadTop, v.OurDots[0].Y)
	assert.Equal(t, chartHeight-chartPadBot, v.OurDots[2].Y)
	assert.Equal(t, "40.0,20.0 360.0,120.0 680.0,220.0", v.Ours)
	// benchmarks under the scale floor are drawn on the floor
	assert.True(t, strings.HasSuffix(v.Benchmarks, "680.0,220.0"))
	assert.Len(t, v.Gridlines, 5)
	require.Len(t, v.Segments, 1)
	assert.Less(t, v.Segments[0].X1, v.OurDots[0].X)

	single := buildChart(types.ScoreDistribution{Labels: []string{"a"}, Ours: []float64{3}, Benchmarks: []float64{2.75}})
	assert.Equal(t, chartWidth/2, single.OurDots[0].X)
}
