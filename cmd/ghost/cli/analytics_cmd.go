package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/ghostctl/ghost/internal/comod"
	"github.com/ghostctl/ghost/internal/knowledge"
	"github.com/ghostctl/ghost/internal/paths"
	"github.com/ghostctl/ghost/internal/session"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// defaultTop is how many rows heatmap/stats print when --top isn't given.
const defaultTop = 10

func newHeatmapCmd() *cobra.Command {
	var tag, since string
	var asJSON bool
	var top int

	cmd := &cobra.Command{
		Use:   "heatmap",
		Short: "Show the most frequently co-modified files",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHeatmap(cmd, tag, since, asJSON, top)
		},
	}

	cmd.Flags().StringVar(&tag, "tag", "", "restrict to sessions carrying this tag")
	cmd.Flags().StringVar(&since, "since", "", "restrict to sessions on or after this date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit JSON instead of a text bar chart")
	cmd.Flags().IntVar(&top, "top", defaultTop, "number of files to show")
	return cmd
}

type heatRow struct {
	Path   string `json:"path"`
	Weight int    `json:"weight"`
}

func runHeatmap(cmd *cobra.Command, tag, since string, asJSON bool, top int) error {
	root, err := paths.RepoRoot()
	if err != nil {
		return errors.New("not a git repository")
	}

	sessionFilter, err := sessionFilter(root, tag, since)
	if err != nil {
		return err
	}

	g, err := graphFiltered(root, sessionFilter)
	if err != nil {
		return fmt.Errorf("build co-modification graph: %w", err)
	}

	weights := map[string]int{}
	for path, neighbours := range g {
		for _, w := range neighbours {
			weights[path] += w
		}
	}

	rows := make([]heatRow, 0, len(weights))
	for path, w := range weights {
		rows = append(rows, heatRow{Path: path, Weight: w})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Weight != rows[j].Weight {
			return rows[i].Weight > rows[j].Weight
		}
		return rows[i].Path < rows[j].Path
	})
	if top > 0 && len(rows) > top {
		rows = rows[:top]
	}

	w := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	if len(rows) == 0 {
		fmt.Fprintln(w, "no co-modification data.")
		return nil
	}

	width := terminalWidth()
	maxWeight := rows[0].Weight
	for _, r := range rows {
		barLen := 0
		if maxWeight > 0 {
			barLen = r.Weight * (width - 40) / maxWeight
		}
		if barLen < 1 {
			barLen = 1
		}
		fmt.Fprintf(w, "%-30s %4d %s\n", truncatePath(r.Path, 30), r.Weight, strings.Repeat("#", barLen))
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	var tag, since string
	var asJSON bool
	var top int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize session, mistake, and decision counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStats(cmd, tag, since, asJSON, top)
		},
	}

	cmd.Flags().StringVar(&tag, "tag", "", "restrict to sessions carrying this tag")
	cmd.Flags().StringVar(&since, "since", "", "restrict to sessions on or after this date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit JSON instead of text")
	cmd.Flags().IntVar(&top, "top", defaultTop, "number of areas to show")
	return cmd
}

type areaCount struct {
	Area  string `json:"area"`
	Count int    `json:"count"`
}

type statsReport struct {
	Sessions  int         `json:"sessions"`
	Mistakes  int         `json:"mistakes"`
	Decisions int         `json:"decisions"`
	TopAreas  []areaCount `json:"topAreas"`
}

func runStats(cmd *cobra.Command, tag, since string, asJSON bool, top int) error {
	root, err := paths.RepoRoot()
	if err != nil {
		return errors.New("not a git repository")
	}

	allowed, err := sessionFilter(root, tag, since)
	if err != nil {
		return err
	}

	sessionCount := 0
	if allowed == nil {
		entries, err := os.ReadDir(paths.Abs(root, paths.CompletedDir))
		if err == nil {
			for _, e := range entries {
				if !e.IsDir() && strings.HasSuffix(e.Name(), ".md") {
					sessionCount++
				}
			}
		}
	} else {
		sessionCount = len(allowed)
	}

	mistakes, err := knowledge.LoadMistakes(root)
	if err != nil {
		return err
	}
	decisions, err := knowledge.LoadDecisions(root)
	if err != nil {
		return err
	}

	areaCounts := map[string]int{}
	countFiltered := func(entries []knowledge.Entry) int {
		n := 0
		for _, e := range entries {
			if allowed != nil && !allowed[e.SessionID] {
				continue
			}
			n++
			areaCounts[e.Area]++
		}
		return n
	}

	report := statsReport{
		Sessions:  sessionCount,
		Mistakes:  countFiltered(mistakes),
		Decisions: countFiltered(decisions),
	}

	var areas []areaCount
	for a, c := range areaCounts {
		areas = append(areas, areaCount{Area: a, Count: c})
	}
	sort.Slice(areas, func(i, j int) bool {
		if areas[i].Count != areas[j].Count {
			return areas[i].Count > areas[j].Count
		}
		return areas[i].Area < areas[j].Area
	})
	if top > 0 && len(areas) > top {
		areas = areas[:top]
	}
	report.TopAreas = areas

	w := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Fprintf(w, "sessions:  %d\n", report.Sessions)
	fmt.Fprintf(w, "mistakes:  %d\n", report.Mistakes)
	fmt.Fprintf(w, "decisions: %d\n", report.Decisions)
	if len(report.TopAreas) > 0 {
		fmt.Fprintln(w, "\ntop areas:")
		for _, a := range report.TopAreas {
			fmt.Fprintf(w, "  %-20s %d\n", a.Area, a.Count)
		}
	}
	return nil
}

// sessionFilter resolves --tag/--since into the set of allowed session ids,
// or nil if neither flag restricts anything (meaning: no filter).
func sessionFilter(root, tag, since string) (map[string]bool, error) {
	if tag == "" && since == "" {
		return nil, nil
	}

	var sinceTime time.Time
	if since != "" {
		t, err := time.Parse("2006-01-02", since)
		if err != nil {
			return nil, fmt.Errorf("invalid --since date %q: want YYYY-MM-DD", since)
		}
		sinceTime = t
	}

	var tagged map[string]bool
	if tag != "" {
		ids, err := knowledge.SessionsForTag(root, tag)
		if err != nil {
			return nil, fmt.Errorf("load tag index: %w", err)
		}
		tagged = make(map[string]bool, len(ids))
		for _, id := range ids {
			tagged[id] = true
		}
	}

	entries, err := os.ReadDir(paths.Abs(root, paths.CompletedDir))
	if os.IsNotExist(err) {
		return map[string]bool{}, nil
	}
	if err != nil {
		return nil, err
	}

	allowed := map[string]bool{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".md")
		if tagged != nil && !tagged[id] {
			continue
		}
		if !sinceTime.IsZero() {
			date := paths.DateFromSessionID(id)
			t, err := time.Parse("2006-01-02", date)
			if err != nil || t.Before(sinceTime) {
				continue
			}
		}
		allowed[id] = true
	}
	return allowed, nil
}

// graphFiltered returns the full co-modification graph when allowed is nil,
// else rebuilds it from only the allowed sessions' transcripts.
func graphFiltered(root string, allowed map[string]bool) (comod.Graph, error) {
	if allowed == nil {
		return comod.LoadOrBuild(root)
	}

	dir := paths.Abs(root, paths.CompletedDir)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return comod.Graph{}, nil
	}
	if err != nil {
		return nil, err
	}

	g := comod.Graph{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".md")
		if !allowed[id] {
			continue
		}
		data, err := os.ReadFile(dir + "/" + e.Name())
		if err != nil {
			continue
		}
		_, body := session.Split(string(data))
		// comod.Build scans a whole repo's completed/ directory rather than
		// a single transcript, so filtering to a session subset re-derives
		// turns locally instead.
		for _, turn := range splitTurns(body) {
			addPairsTo(g, turn)
		}
	}
	return g, nil
}

func splitTurns(body string) []map[string]bool {
	segments := strings.Split(body, "\n---\n")
	sets := make([]map[string]bool, 0, len(segments))
	for _, segment := range segments {
		set := map[string]bool{}
		for _, line := range strings.Split(segment, "\n") {
			const prefix = "- Modified: "
			if strings.HasPrefix(line, prefix) {
				set[strings.TrimSpace(strings.TrimPrefix(line, prefix))] = true
			}
		}
		sets = append(sets, set)
	}
	return sets
}

func addPairsTo(g comod.Graph, set map[string]bool) {
	members := make([]string, 0, len(set))
	for p := range set {
		members = append(members, p)
	}
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			a, b := members[i], members[j]
			if g[a] == nil {
				g[a] = map[string]int{}
			}
			if g[b] == nil {
				g[b] = map[string]int{}
			}
			g[a][b]++
			g[b][a]++
		}
	}
}

func terminalWidth() int {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
			return w
		}
	}
	return 80
}

func truncatePath(p string, n int) string {
	if len(p) <= n {
		return p
	}
	return "..." + p[len(p)-(n-3):]
}
