// Package privacy masks personal details in free-text answers and previews.
package privacy

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"ipo-report-go/internal/types"
)

const (
	maskRune     = "＊"
	emailTag     = "[이메일]"
	phoneTag     = "[전화번호]"
	teamTag      = "[팀명]"
	teamSuffix   = "팀"
	emailPadding = "****"
)

var (
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	phonePattern = regexp.MustCompile(`\b\d{2,3}[-\s]?\d{3,4}[-\s]?\d{4}\b`)
	wordPattern  = regexp.MustCompile(`[\p{L}\p{N}_]+`)
)

// SensitiveKeywords mark preview columns whose values are masked token by token.
var SensitiveKeywords = []string{
	"조직", "회사", "부서", "팀", "본부", "소속", "부문", "사업부", "센터",
	"이름", "성명", "name", "department", "organization", "org",
}

// MaskSensitive replaces e-mail addresses, phone numbers and team names in a
// free-text answer with placeholder tags.
func MaskSensitive(text string) string {
	text = emailPattern.ReplaceAllString(text, emailTag)
	text = phonePattern.ReplaceAllString(text, phoneTag)
	return wordPattern.ReplaceAllStringFunc(text, func(w string) string {
		if strings.HasSuffix(w, teamSuffix) && len(w) > len(teamSuffix) {
			return teamTag
		}
		return w
	})
}

// MaskToken keeps the first and last rune of token.
func MaskToken(token string) string {
	token = strings.TrimSpace(token)
	runes := []rune(token)
	switch len(runes) {
	case 0:
		return token
	case 1:
		return maskRune
	case 2:
		return string(runes[0]) + maskRune
	}
	return string(runes[0]) + strings.Repeat(maskRune, len(runes)-2) + string(runes[len(runes)-1])
}

// MaskText masks every whitespace-separated token of s.
func MaskText(s string) string {
	parts := strings.Fields(s)
	for i, p := range parts {
		parts[i] = MaskToken(p)
	}
	return strings.Join(parts, " ")
}

// MaskEmail hides the local part of an address but its first and last rune.
func MaskEmail(s string) string {
	s = strings.TrimSpace(s)
	local, domain, ok := strings.Cut(s, "@")
	if !ok {
		return s
	}
	if local == "" {
		return emailPadding + "@" + domain
	}
	first, _ := utf8.DecodeRuneInString(local)
	if utf8.RuneCountInString(local) <= 2 {
		return string(first) + emailPadding + "@" + domain
	}
	last, _ := utf8.DecodeLastRuneInString(local)
	return string(first) + emailPadding + string(last) + "@" + domain
}

// Preview returns at most limit rows of table with identifying columns
// masked. A column holding any "@" is treated as e-mail; a column whose
// name carries a sensitive keyword is masked token by token. limit <= 0
// keeps every row.
func Preview(table types.RawTable, limit int) types.RawTable {
	n := table.Len()
	if limit > 0 && limit < n {
		n = limit
	}
	out := types.RawTable{Header: table.Header, Rows: make([][]string, n)}
	for i := 0; i < n; i++ {
		out.Rows[i] = append([]string(nil), table.Rows[i]...)
	}
	for col, h := range table.Header {
		cells, _ := table.Column(h)
		var mask func(string) string
		switch {
		case containsAt(cells):
			mask = MaskEmail
		case sensitiveColumn(h):
			mask = MaskText
		default:
			continue
		}
		for _, row := range out.Rows {
			if col < len(row) {
				row[col] = mask(row[col])
			}
		}
	}
	return out
}

func containsAt(cells []string) bool {
	for _, c := range cells {
		if strings.Contains(c, "@") {
			return true
		}
	}
	return false
}

func sensitiveColumn(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range SensitiveKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
