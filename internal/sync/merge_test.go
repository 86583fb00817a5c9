package sync

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeFreeform_LocalWinsUnlessEmpty(t *testing.T) {
	assert.Equal(t, "local text", mergeFreeform("local text", "remote text"))
	assert.Equal(t, "remote text", mergeFreeform("  \n  ", "remote text"))
	assert.Equal(t, "remote text", mergeFreeform("", "remote text"))
}

func TestMergeEntries_DedupesStructuredByTitleAndDescription(t *testing.T) {
	local := "### Use retries\ncaps at 5.\n\n<!-- area:retry -->\n"
	remote := "### Use retries\ncaps at 5.\n\n<!-- area:retry -->\n\n### Avoid globals\nuse DI instead.\n\n<!-- area:config -->\n"

	merged := mergeEntries(local, remote)
	assert.Equal(t, 1, countOccurrences(merged, "Use retries"))
	assert.Contains(t, merged, "Avoid globals")
}

func TestMergeEntries_FallsBackToBlockDedupeWhenNoStructuredEntries(t *testing.T) {
	local := "- first legacy note\n\n- shared note"
	remote := "- shared note\n\n- second legacy note"

	merged := mergeEntries(local, remote)
	assert.Equal(t, 1, countOccurrences(merged, "shared note"))
	assert.Contains(t, merged, "first legacy note")
	assert.Contains(t, merged, "second legacy note")
}

func TestMergeEntries_StructuredEntriesComeBeforeLegacyOnes(t *testing.T) {
	local := "- an old legacy note"
	remote := "### A structured entry\nsome body.\n\n<!-- area:config -->\n"

	merged := mergeEntries(local, remote)
	structuredIdx := indexOf(merged, "### A structured entry")
	legacyIdx := indexOf(merged, "old legacy note")
	require.GreaterOrEqual(t, structuredIdx, 0)
	require.GreaterOrEqual(t, legacyIdx, 0)
	assert.Less(t, structuredIdx, legacyIdx)
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}

func TestMergeTags_DeepUnion(t *testing.T) {
	local := []byte(`{"auth": ["2026-01-01-aaaaaaaa"], "db": ["2026-01-02-bbbbbbbb"]}`)
	remote := []byte(`{"auth": ["2026-01-03-cccccccc"]}`)

	out, err := mergeTags(local, remote)
	require.NoError(t, err)

	var merged map[string][]string
	require.NoError(t, json.Unmarshal(out, &merged))
	assert.ElementsMatch(t, []string{"2026-01-01-aaaaaaaa", "2026-01-03-cccccccc"}, merged["auth"])
	assert.ElementsMatch(t, []string{"2026-01-02-bbbbbbbb"}, merged["db"])
}

func TestMergeTags_EmptySidesDegradeToEmptyMap(t *testing.T) {
	out, err := mergeTags(nil, []byte(`not json`))
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(out))
}

func countOccurrences(s, substr string) int {
	count := 0
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			count++
		}
	}
	return count
}
