package interpret

import (
	"context"
	"strings"
)

// MockGenerator returns canned text keyed by the stage marker in a prompt.
// USE_MOCK_LLM=true selects it so the whole flow runs offline.
type MockGenerator struct{}

func (MockGenerator) Generate(_ context.Context, prompt string) (string, error) {
	for _, s := range stages {
		if strings.Contains(prompt, stageMarker(s)) {
			return fallbacks[s], nil
		}
	}
	return fallbacks[""], nil
}
