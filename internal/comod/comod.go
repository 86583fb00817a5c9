// Package comod implements the co-modification graph over file paths and
// the relevance scorer used to rank knowledge entries for injection.
package comod

import (
	"encoding/json"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/ghostctl/ghost/internal/paths"
)

// Graph is an undirected weighted adjacency list over repo-relative file
// paths, stored as a symmetric directed map for O(1) per-vertex lookup.
type Graph map[string]map[string]int

var modifiedLinePattern = regexp.MustCompile(`(?m)^- Modified: (.+)$`)

// Build scans every completed session transcript and produces the
// co-modification graph: split each file on lines equal to "---", collect
// the unique set of modified paths per turn, and increment both directed
// weights for every unordered pair within a turn.
func Build(repoRoot string) (Graph, int, error) {
	dir := paths.Abs(repoRoot, paths.CompletedDir)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return Graph{}, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}

	g := Graph{}
	count := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		count++
		data, err := os.ReadFile(dir + "/" + e.Name())
		if err != nil {
			continue
		}
		for _, turn := range turnModifiedSets(string(data)) {
			addPairs(g, turn)
		}
	}
	return g, count, nil
}

// turnModifiedSets splits content on lines exactly equal to "---" and
// returns, for each resulting segment (including ones with no
// modifications, so adjacency for Corrections stays meaningful), the
// unique set of paths named by "- Modified: <path>" lines within it.
func turnModifiedSets(content string) []map[string]bool {
	segments := strings.Split(content, "\n---\n")
	sets := make([]map[string]bool, len(segments))
	for i, segment := range segments {
		set := make(map[string]bool)
		for _, m := range modifiedLinePattern.FindAllStringSubmatch(segment, -1) {
			set[strings.TrimSpace(m[1])] = true
		}
		sets[i] = set
	}
	return sets
}

func addPairs(g Graph, set map[string]bool) {
	paths := make([]string, 0, len(set))
	for p := range set {
		paths = append(paths, p)
	}
	for i := 0; i < len(paths); i++ {
		for j := i + 1; j < len(paths); j++ {
			a, b := paths[i], paths[j]
			addEdge(g, a, b)
			addEdge(g, b, a)
		}
	}
}

func addEdge(g Graph, from, to string) {
	if g[from] == nil {
		g[from] = map[string]int{}
	}
	g[from][to]++
}

type cachedGraph struct {
	SessionCount int   `json:"sessionCount"`
	Graph        Graph `json:"graph"`
}

// LoadOrBuild returns the co-modification graph, reusing the on-disk cache
// at paths.ComodCacheFile when its recorded session count still matches the
// current number of completed sessions, and rebuilding (and rewriting the
// cache) otherwise.
func LoadOrBuild(repoRoot string) (Graph, error) {
	currentCount, err := completedSessionCount(repoRoot)
	if err != nil {
		return nil, err
	}

	if cached, ok := readCache(repoRoot); ok && cached.SessionCount == currentCount {
		return cached.Graph, nil
	}

	g, count, err := Build(repoRoot)
	if err != nil {
		return nil, err
	}
	_ = writeCache(repoRoot, cachedGraph{SessionCount: count, Graph: g})
	return g, nil
}

func completedSessionCount(repoRoot string) (int, error) {
	entries, err := os.ReadDir(paths.Abs(repoRoot, paths.CompletedDir))
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".md") {
			n++
		}
	}
	return n, nil
}

func readCache(repoRoot string) (cachedGraph, bool) {
	data, err := os.ReadFile(paths.Abs(repoRoot, paths.ComodCacheFile))
	if err != nil {
		return cachedGraph{}, false
	}
	var c cachedGraph
	if err := json.Unmarshal(data, &c); err != nil {
		// Degrade gracefully per spec §7: a corrupt cache just misses.
		return cachedGraph{}, false
	}
	return c, true
}

func writeCache(repoRoot string, c cachedGraph) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(paths.Abs(repoRoot, paths.ComodCacheFile), data, 0o600)
}

// Neighbours returns, for the input file set F, the top k paths not already
// in F ranked by the number of files in F whose adjacency list contains
// them, ties broken lexicographically.
func Neighbours(g Graph, f []string, k int) []string {
	inF := make(map[string]bool, len(f))
	for _, p := range f {
		inF[p] = true
	}

	counts := map[string]int{}
	for _, p := range f {
		for n := range g[p] {
			if !inF[n] {
				counts[n]++
			}
		}
	}

	type scored struct {
		path  string
		count int
	}
	var all []scored
	for p, c := range counts {
		all = append(all, scored{p, c})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].count != all[j].count {
			return all[i].count > all[j].count
		}
		return all[i].path < all[j].path
	})

	if k > len(all) {
		k = len(all)
	}
	out := make([]string, 0, k)
	for i := 0; i < k; i++ {
		out = append(out, all[i].path)
	}
	return out
}

// Corrections returns the set of paths that were modified in two or more
// adjacent-turn intersections within a single session transcript — the
// Background Finalizer's auto-mistake trigger (spec §4.6/§4.8).
func Corrections(content string) []string {
	turns := turnModifiedSets(content)
	counts := map[string]int{}
	for i := 1; i < len(turns); i++ {
		for p := range turns[i-1] {
			if turns[i][p] {
				counts[p]++
			}
		}
	}

	var out []string
	for p, c := range counts {
		if c >= 2 {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}
