package actionable

import (
	"fmt"

	"ipo-report-go/internal/types"
)

var priorities = []string{
	"점수가 낮은 Input 세부항목을 1순위로 개선",
	"Process 영역 중 협업·의사소통 항목은 제도화 필요",
	"Output 영역에서 반복 언급된 이슈는 리더십 미팅 안건화",
}

var actions = map[string]string{
	types.CategoryInput:   "필요 자원과 역량 지원 계획을 분기 단위로 점검하고 담당자를 지정",
	types.CategoryProcess: "협업 절차와 의사결정 규칙을 문서화하고 정례 회의에서 점검",
	types.CategoryOutput:  "성과 지표를 팀 단위로 공유하고 개선 과제를 리더십 미팅 안건으로 상정",
}

// Priorities returns the standing improvement priorities shown on every report.
func Priorities() []string {
	return append([]string(nil), priorities...)
}

// Generate returns one card per IPO area whose weakest sub-category averages
// below threshold. Areas without sub-category scores are skipped.
func Generate(categories []types.CategoryScore, threshold float64) []types.ActionCard {
	cards := []types.ActionCard{}
	for _, cat := range categories {
		var worst *types.SubcategoryScore
		for i := range cat.Subcategories {
			sub := &cat.Subcategories[i]
			if sub.Average == nil {
				continue
			}
			if worst == nil || *sub.Average < *worst.Average {
				worst = sub
			}
		}
		if worst == nil || *worst.Average >= threshold {
			continue
		}
		cards = append(cards, types.ActionCard{
			Area:    cat.Name,
			Insight: fmt.Sprintf("%s 영역의 '%s' 점수가 %.2f점으로 가장 낮습니다", cat.Name, worst.Name, *worst.Average),
			Action:  actions[cat.Name],
			Score:   *worst.Average,
		})
	}
	return cards
}
