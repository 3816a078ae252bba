package actionable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ipo-report-go/internal/types"
)

func avg(v float64) *float64 { return &v }

func TestGenerate(t *testing.T) {
	cats := []types.CategoryScore{
		{Name: types.CategoryInput, Subcategories: []types.SubcategoryScore{
			{Name: "목적경영", Average: avg(3.5)},
			{Name: "지원체계", Average: avg(2.4)},
			{Name: "교육", Average: nil},
		}},
		{Name: types.CategoryProcess, Subcategories: []types.SubcategoryScore{
			{Name: "협업", Average: avg(3.0)},
		}},
		{Name: types.CategoryOutput},
	}
	cards := Generate(cats, 3.0)
	require.Len(t, cards, 1)
	assert.Equal(t, types.CategoryInput, cards[0].Area)
	assert.Equal(t, 2.4, cards[0].Score)
	assert.Contains(t, cards[0].Insight, "지원체계")
	assert.NotEmpty(t, cards[0].Action)
}

func TestGenerateNothingBelowThreshold(t *testing.T) {
	assert.Empty(t, Generate(nil, 3.0))
}

func TestPrioritiesIsACopy(t *testing.T) {
	p := Priorities()
	require.Len(t, p, 3)
	p[0] = "changed"
	assert.NotEqual(t, "changed", Priorities()[0])
}
