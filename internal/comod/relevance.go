package comod

import (
	"context"
	"sort"
	"time"

	"github.com/ghostctl/ghost/internal/knowledge"
)

// CommitCounter is the subset of *scm.Adapter the staleness probe needs,
// narrowed to a single method so relevance scoring can be tested without a
// real repository.
type CommitCounter interface {
	CommitsTouchingFileSince(ctx context.Context, path, sinceDate string) (int, error)
}

// Score computes the relevance score of an entry given the current file
// set F, its co-modified neighbours, the area derived from F, and the
// current time, per the weighted formula in spec §4.6.
func Score(e knowledge.Entry, f, neighbours []string, areaF string, now time.Time) float64 {
	score := 10*float64(len(intersect(e.Files, f))) +
		5*float64(len(intersect(e.Files, neighbours)))

	if e.Area != "" && e.Area != "general" && e.Area == areaF {
		score += 5
	}
	if days, ok := daysSince(e.Date, now); ok {
		recency := 1 - days/30
		if recency < 0 {
			recency = 0
		}
		score += 3 * recency
	}
	if e.Rule != "" {
		score += 20
	}
	if len(e.Files) == 0 {
		score += 1
	}
	return score
}

func daysSince(date string, now time.Time) (float64, bool) {
	if date == "" {
		return 0, false
	}
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return 0, false
	}
	return now.Sub(t).Hours() / 24, true
}

func intersect(a, b []string) []string {
	set := make(map[string]bool, len(b))
	for _, x := range b {
		set[x] = true
	}
	var out []string
	for _, x := range a {
		if set[x] {
			out = append(out, x)
		}
	}
	return out
}

// scoredEntry pairs an entry with its working score for sort stability.
type scoredEntry struct {
	entry knowledge.Entry
	score float64
}

// Rank scores entries against the current file set F, probes the top 2k
// for staleness (subtracting 5 when any of an entry's first three files
// has had more than 10 commits since entry.Date), re-sorts, and returns the
// top k entries with positive score. If no entry scores positive, it falls
// back to the k most recent entries by date.
func Rank(ctx context.Context, entries []knowledge.Entry, f, neighbours []string, areaF string, now time.Time, counter CommitCounter, k int) []knowledge.Entry {
	if len(entries) == 0 || k <= 0 {
		return nil
	}

	scored := make([]scoredEntry, len(entries))
	for i, e := range entries {
		scored[i] = scoredEntry{entry: e, score: Score(e, f, neighbours, areaF, now)}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

	probe := 2 * k
	if probe > len(scored) {
		probe = len(scored)
	}
	if counter != nil {
		for i := 0; i < probe; i++ {
			if isStale(ctx, scored[i].entry, counter) {
				scored[i].score -= 5
			}
		}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

	var positive []knowledge.Entry
	for _, s := range scored {
		if s.score > 0 {
			positive = append(positive, s.entry)
		}
		if len(positive) == k {
			break
		}
	}
	if len(positive) > 0 {
		return positive
	}

	return mostRecent(entries, k)
}

func isStale(ctx context.Context, e knowledge.Entry, counter CommitCounter) bool {
	if e.Date == "" {
		return false
	}
	limit := len(e.Files)
	if limit > 3 {
		limit = 3
	}
	for _, path := range e.Files[:limit] {
		n, err := counter.CommitsTouchingFileSince(ctx, path, e.Date)
		if err == nil && n > 10 {
			return true
		}
	}
	return false
}

func mostRecent(entries []knowledge.Entry, k int) []knowledge.Entry {
	sorted := append([]knowledge.Entry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date > sorted[j].Date })
	if k > len(sorted) {
		k = len(sorted)
	}
	return sorted[:k]
}
