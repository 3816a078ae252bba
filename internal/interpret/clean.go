package interpret

import (
	"encoding/json"
	"regexp"
	"strings"
)

var stripPrefixes = []string{
	"저는 조직효과성 진단 점수를 해석하는 HRD 컨설턴트입니다.",
	"데이터를 입력해 주시면 분석해 드리겠습니다.",
	"예시 분석 (가상 데이터 적용):",
	"예시:",
}

var (
	boldPattern      = regexp.MustCompile(`\*\*(.*?)\*\*`)
	emphasisPattern  = regexp.MustCompile(`\*(.*?)\*`)
	underlinePattern = regexp.MustCompile(`_{2,}(.*?)_{2,}`)
)

// cleanText strips markdown fences and emphasis, unwraps a single-field JSON
// object and drops boilerplate openings models like to add.
func cleanText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	for _, f := range []string{"```json", "```text", "```"} {
		s = strings.ReplaceAll(s, f, "")
	}
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "json\n{") {
		s = s[len("json\n"):]
	}
	if v, ok := singleValue(s); ok {
		s = v
	}
	s = boldPattern.ReplaceAllString(s, "$1")
	s = emphasisPattern.ReplaceAllString(s, "$1")
	s = underlinePattern.ReplaceAllString(s, "$1")
	for _, p := range stripPrefixes {
		if strings.HasPrefix(s, p) {
			s = strings.TrimLeft(s[len(p):], " \n:*")
		}
	}
	return strings.TrimSpace(s)
}

// singleValue returns the string field of a one-key JSON object.
func singleValue(s string) (string, bool) {
	raw := extractJSON(s)
	if raw == "" || raw != s {
		return "", false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil || len(obj) != 1 {
		return "", false
	}
	for _, v := range obj {
		str, ok := v.(string)
		return strings.TrimSpace(str), ok
	}
	return "", false
}

// extractJSON finds the first balanced JSON object in a string and returns it.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return strings.TrimSpace(s[start : i+1])
			}
		}
	}
	return ""
}
