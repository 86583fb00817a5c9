package comod

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ghostctl/ghost/internal/knowledge"
)

func TestFormatEntries_RulesFirstThenByFile(t *testing.T) {
	entries := []knowledge.Entry{
		{Title: "plain decision", Files: []string{"b.go"}},
		{Title: "carries a rule", Rule: "never do Y", Files: []string{"a.go"}},
	}
	out := FormatEntries("Known mistakes", entries)

	rulesIdx := indexOf(out, "### Rules to follow")
	byFileIdx := indexOf(out, "### By file")
	assert.True(t, rulesIdx >= 0 && byFileIdx >= 0 && rulesIdx < byFileIdx)
	assert.Contains(t, out, "never do Y")
	assert.Contains(t, out, "b.go: plain decision")
}

func TestFormatEntries_Empty(t *testing.T) {
	assert.Equal(t, "", FormatEntries("Known mistakes", nil))
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
