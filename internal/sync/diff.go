package sync

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// PreviewDiff renders a human-readable line diff between local and merged
// content, for `ghost knowledge diff`.
// Grounded on the teacher's DiffLinesToChars/DiffMain/DiffCharsToLines
// line-diff idiom.
func PreviewDiff(local, merged string) string {
	if local == merged {
		return ""
	}

	dmp := diffmatchpatch.New()
	text1, text2, lineArray := dmp.DiffLinesToChars(local, merged)
	diffs := dmp.DiffMain(text1, text2, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var b strings.Builder
	for _, d := range diffs {
		prefix := "  "
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		}
		for _, line := range strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n") {
			b.WriteString(prefix)
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	return b.String()
}
