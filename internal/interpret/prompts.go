package interpret

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"ipo-report-go/internal/types"
)

// Stage names one call of the interpretation chain.
type Stage string

const (
	StageScore      Stage = "score"
	StageItems      Stage = "items"
	StageFreeText   Stage = "free_text"
	StageOrgContext Stage = "org_context"
	StageWriter     Stage = "writer"
	StageReviewer   Stage = "reviewer"
)

var stages = []Stage{StageScore, StageItems, StageFreeText, StageOrgContext, StageWriter, StageReviewer}

// lowReliabilityRespondents triggers a reliability caveat in the score stage.
const lowReliabilityRespondents = 30

const maxLowItems = 5

const preamble = "당신은 조직효과성 진단 결과를 해석하는 HRD 컨설턴트다. 한국어로, 데이터에 있는 사실만 사용해 간결하게 작성하라. 인사말이나 자기소개는 쓰지 마라."

var fallbacks = map[Stage]string{
	StageScore:      "Input, Process, Output 세 영역의 점수가 전반적으로 안정적인 수준입니다. 상대적으로 낮은 영역을 중심으로 개선 과제를 정하는 것을 권합니다.",
	StageItems:      "점수가 낮은 문항을 중심으로 협업 절차와 의사소통 체계를 점검하고, 구성원 역량 개발 계획을 함께 수립하는 것이 좋겠습니다.",
	StageFreeText:   "주관식 응답에서는 업무 환경과 협업 방식에 대한 의견이 주로 언급되었습니다. 반복된 의견을 리더십 미팅에서 함께 검토하기를 권합니다.",
	StageOrgContext: "조직 특성에 대한 추가 정보가 부족하여 일반적인 조직 기준으로 해석했습니다.",
	StageWriter:     "이번 진단 결과는 조직이 안정적인 운영 기반을 갖추고 있음을 보여줍니다. 낮게 나타난 영역부터 개선 과제를 정하고 분기 단위로 점검한다면 더 큰 성과를 기대할 수 있습니다.",
	StageReviewer:   "",
	"":              "조직의 현재 상태는 전반적으로 양호하며 지속적인 개선을 통해 더 나은 성과를 기대할 수 있습니다.",
}

func stageMarker(s Stage) string { return "[단계:" + string(s) + "]" }

type ipoSummary struct {
	Area    string   `json:"area"`
	Average *float64 `json:"average"`
	Grade   string   `json:"grade"`
}

func ipoJSON(rec types.ReportRecord) string {
	var out []ipoSummary
	for _, c := range rec.Categories() {
		out = append(out, ipoSummary{Area: c.Name, Average: c.Average, Grade: c.Grade})
	}
	b, _ := json.Marshal(out)
	return string(b)
}

func header(s Stage, rec types.ReportRecord) string {
	return fmt.Sprintf("%s\n%s\n\n[데이터]\n조직명: %s\n응답자수: %d\n", stageMarker(s), preamble, rec.OrganizationName, rec.Respondents)
}

func scorePrompt(rec types.ReportRecord) string {
	var b strings.Builder
	b.WriteString(header(StageScore, rec))
	fmt.Fprintf(&b, "IPO 점수: %s\n\n[작업]\n- 어느 영역이 상대적으로 높고 낮은지 3~4문장으로 설명하라.\n", ipoJSON(rec))
	if rec.Respondents < lowReliabilityRespondents {
		fmt.Fprintf(&b, "- 응답자가 %d명 미만이므로 해석의 신뢰도에 주의가 필요하다는 문장을 포함하라.\n", lowReliabilityRespondents)
	}
	return b.String()
}

type lowItem struct {
	Area     string  `json:"area"`
	Question string  `json:"question"`
	Average  float64 `json:"average"`
	NegPct   float64 `json:"neg_pct"`
}

// lowestItems returns up to n scored items ordered by ascending mean.
func lowestItems(rec types.ReportRecord, n int) []lowItem {
	var items []lowItem
	for _, c := range rec.Categories() {
		for _, it := range c.Items {
			if it.Mean == nil {
				continue
			}
			items = append(items, lowItem{Area: c.Name, Question: it.Question, Average: *it.Mean, NegPct: it.Aggregate.NegPct})
		}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Average < items[j].Average })
	if len(items) > n {
		items = items[:n]
	}
	return items
}

func itemsPrompt(rec types.ReportRecord) string {
	b, _ := json.Marshal(lowestItems(rec, maxLowItems))
	return header(StageItems, rec) + "점수가 낮은 문항: " + string(b) +
		"\n\n[작업]\n- 각 문항이 낮게 나온 이유를 추정하지 말고, 리더가 바로 실행할 수 있는 개선 행동을 문항별 한 문장으로 제시하라.\n"
}

func freeTextPrompt(rec types.ReportRecord) string {
	var b strings.Builder
	b.WriteString(header(StageFreeText, rec))
	b.WriteString("주관식 응답:\n")
	total := 0
	for _, g := range rec.OpenEnded {
		if len(g.Answers) == 0 {
			continue
		}
		fmt.Fprintf(&b, "## %s\n", g.Title)
		for _, a := range g.Answers {
			fmt.Fprintf(&b, "- %s\n", a)
			total++
		}
	}
	if total == 0 {
		b.WriteString("(응답 없음)\n")
	}
	b.WriteString("\n[작업]\n- 반복되는 주제를 2~3개로 묶어 요약하라. 개인을 특정할 수 있는 표현은 쓰지 마라.\n")
	return b.String()
}

func orgContextPrompt(rec types.ReportRecord) string {
	name := rec.OrganizationName
	if !rec.IsTotalOrganization && rec.DeptName != "" {
		name = rec.DeptName
	}
	return header(StageOrgContext, rec) +
		fmt.Sprintf("추정 산업/직무: %s\n조직 특성 응답:\n%s\n\n[작업]\n- 이 조직의 업무 특성을 2문장으로 정리하라.\n", GuessIndustry(name), characteristicAnswers(rec))
}

func writerPrompt(rec types.ReportRecord, in Interpretation) string {
	return header(StageWriter, rec) + fmt.Sprintf(
		"점수 해석: %s\n개선 문항: %s\n주관식 요약: %s\n조직 맥락: %s\n\n[작업]\n- 위 내용을 바탕으로 리더에게 전달할 종합 해석을 2개 문단으로 작성하라.\n",
		in.Score, in.Items, in.FreeText, in.OrgContext)
}

func reviewerPrompt(rec types.ReportRecord, draft string) string {
	return header(StageReviewer, rec) + "초안:\n" + draft +
		"\n\n[작업]\n- 초안의 사실 오류와 과장을 고치고 문장을 다듬은 최종본만 출력하라. 수정할 것이 없으면 초안을 그대로 출력하라.\n"
}

// characteristicAnswers collects answers of the organization-characteristics
// question (header NO40 or a title mentioning 조직 특성/이미지).
func characteristicAnswers(rec types.ReportRecord) string {
	var lines []string
	for _, g := range rec.OpenEnded {
		title := strings.TrimSpace(g.Title)
		if !strings.EqualFold(strings.TrimSpace(g.Header), "NO40") &&
			!strings.Contains(title, "조직특성") && !strings.Contains(title, "조직 특성") && !strings.Contains(title, "조직 이미지") {
			continue
		}
		for _, a := range g.Answers {
			lines = append(lines, "- "+a)
		}
	}
	if len(lines) == 0 {
		return "관련 응답이 없습니다."
	}
	return strings.Join(lines, "\n")
}

var industryRules = []struct {
	keywords []string
	label    string
}{
	{[]string{"건설", "토목", "현장", "플랜트", "onsite"}, "건설·인프라·현장 기반 조직"},
	{[]string{"구조", "설계", "엔지니어", "engineering"}, "설계·기술·엔지니어링 조직"},
	{[]string{"HR", "인재", "교육", "러닝", "mylearn", "mysuni"}, "HRD·러닝·사내교육 조직"},
	{[]string{"plant", "fab", "제조"}, "제조·플랜트 기반 조직"},
}

const defaultIndustry = "일반 사무/내부 조직"

// GuessIndustry maps an organization name to a rough business domain.
// Keywords match the name as is or lowercased, so "HR" stays case-sensitive.
func GuessIndustry(name string) string {
	lower := strings.ToLower(name)
	for _, r := range industryRules {
		for _, kw := range r.keywords {
			if strings.Contains(name, kw) || strings.Contains(lower, kw) {
				return r.label
			}
		}
	}
	return defaultIndustry
}
