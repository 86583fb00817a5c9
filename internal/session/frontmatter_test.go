package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFrontmatter_RoundTrip(t *testing.T) {
	started := time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC)
	ended := started.Add(time.Hour)
	fm := Frontmatter{
		ID:         "2026-07-30-0a1b2c3d",
		Branch:     "main",
		BaseCommit: "abc123",
		Started:    started,
		Ended:      &ended,
		Tags:       []string{"area:cart", "type:refactor"},
	}

	doc := Format(fm, "## Prompt 1 <!-- ph:aaaaaaaa -->\n> hi\n")
	gotFM, gotBody := splitFrontmatter(doc)

	assert.Equal(t, fm.ID, gotFM.ID)
	assert.Equal(t, fm.Branch, gotFM.Branch)
	assert.Equal(t, fm.BaseCommit, gotFM.BaseCommit)
	assert.True(t, fm.Started.Equal(gotFM.Started))
	assert.True(t, fm.Ended.Equal(*gotFM.Ended))
	assert.Equal(t, fm.Tags, gotFM.Tags)
	assert.Equal(t, "## Prompt 1 <!-- ph:aaaaaaaa -->\n> hi\n", gotBody)
}

func TestSplitFrontmatter_NoDelimiterDegradesToEmptyFrontmatter(t *testing.T) {
	fm, body := splitFrontmatter("just a body, no frontmatter\n")
	assert.Equal(t, Frontmatter{}, fm)
	assert.Equal(t, "just a body, no frontmatter\n", body)
}

func TestMergeTags_Idempotent(t *testing.T) {
	a := []string{"x", "y"}
	b := []string{"y", "z"}
	once := mergeTags(a, b)
	twice := mergeTags(a, once)
	assert.Equal(t, once, twice)
	assert.Equal(t, []string{"x", "y", "z"}, once)
}
