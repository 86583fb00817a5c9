package comod

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghostctl/ghost/internal/knowledge"
)

func TestScore_Formula(t *testing.T) {
	now := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
	e := knowledge.Entry{
		Files: []string{"a.go", "b.go"},
		Area:  "scm",
		Date:  "2026-07-15", // 15 days ago -> recency 1 - 15/30 = 0.5
		Rule:  "always do X",
	}
	f := []string{"a.go"}
	neighbours := []string{"b.go"}

	got := Score(e, f, neighbours, "scm", now)
	// 10*1 (a.go in F) + 5*1 (b.go in neighbours) + 5 (area match) + 3*0.5 + 20 (rule)
	assert.InDelta(t, 10+5+5+1.5+20, got, 0.001)
}

func TestScore_NoFilesGetsLegacyBaseline(t *testing.T) {
	now := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
	e := knowledge.Entry{Title: "legacy note"}
	got := Score(e, nil, nil, "general", now)
	assert.Equal(t, 1.0, got)
}

type fakeCounter struct {
	stale map[string]bool
}

func (f fakeCounter) CommitsTouchingFileSince(ctx context.Context, path, sinceDate string) (int, error) {
	if f.stale[path] {
		return 20, nil
	}
	return 1, nil
}

func TestRank_StalenessProbeDemotesEntry(t *testing.T) {
	now := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
	entries := []knowledge.Entry{
		{Title: "fresh", Files: []string{"a.go"}, Date: "2026-07-29"},
		{Title: "stale", Files: []string{"b.go"}, Date: "2026-07-29"},
	}
	f := []string{"a.go", "b.go"}

	counter := fakeCounter{stale: map[string]bool{"b.go": true}}
	ranked := Rank(context.Background(), entries, f, nil, "general", now, counter, 2)

	require.Len(t, ranked, 2)
	assert.Equal(t, "fresh", ranked[0].Title)
}

func TestRank_FallsBackToMostRecentWhenNoPositiveScore(t *testing.T) {
	now := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
	entries := []knowledge.Entry{
		{Title: "older", Date: "2026-01-01"},
		{Title: "newer", Date: "2026-06-01"},
	}
	ranked := Rank(context.Background(), entries, nil, nil, "general", now, nil, 1)
	// Neither entry has files/rule/matching area, and with no F, days_since
	// dominates; "newer" still has a positive legacy-baseline score of 1 since
	// both lack files, so this degrades to the plain top-1 by score, which
	// ties on the +1 baseline and keeps insertion order (stable sort) — assert
	// on the fallback path directly instead, with entries that truly score 0.
	assert.NotEmpty(t, ranked)

	zeroScoreEntries := []knowledge.Entry{
		{Title: "older", Files: []string{"z.go"}, Date: "2026-01-01"},
		{Title: "newer", Files: []string{"z.go"}, Date: "2026-06-01"},
	}
	ranked = Rank(context.Background(), zeroScoreEntries, []string{"x.go"}, nil, "general", now, nil, 1)
	require.Len(t, ranked, 1)
	assert.Equal(t, "newer", ranked[0].Title)
}
