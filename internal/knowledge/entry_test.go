package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatEntry_RoundTrip(t *testing.T) {
	e := Entry{
		Title:       "Use context timeouts for all git shell-outs",
		Description: "Prevents a hung credential helper from blocking a hook indefinitely.",
		SessionID:   "2026-07-30-0a1b2c3d",
		CommitSHA:   "abc1234",
		Files:       []string{"internal/scm/scm.go"},
		Area:        "scm",
		Date:        "2026-07-30",
		Tried:       []string{"context.Background() with no timeout"},
		Rule:        "always pass a bounded context to os/exec.CommandContext",
		Structured:  true,
	}

	got := ParseEntries(FormatEntry(e))
	if assert.Len(t, got, 1) {
		assert.Equal(t, e, got[0])
	}
}

func TestFormatEntry_OmitsGeneralAreaAndEmptyOptionalFields(t *testing.T) {
	e := Entry{Title: "Short decision", Description: "", Area: "general"}
	rendered := FormatEntry(e)
	assert.NotContains(t, rendered, "area:")
	assert.NotContains(t, rendered, "tried:")
	assert.NotContains(t, rendered, "rule:")
}

func TestParseEntries_LegacyPlainLines(t *testing.T) {
	doc := "- Use feature flags sparingly\n- Keep migrations reversible\n"
	got := ParseEntries(doc)
	if assert.Len(t, got, 2) {
		assert.Equal(t, "Use feature flags sparingly", got[0].Title)
		assert.Equal(t, "Keep migrations reversible", got[1].Title)
	}
}

func TestParseEntries_MixedLegacyAndStructured(t *testing.T) {
	doc := "- an old legacy entry\n\n### A structured entry\nSome body text.\n\n<!-- session:s1 | date:2026-07-01 -->\n"
	got := ParseEntries(doc)
	if assert.Len(t, got, 2) {
		assert.Equal(t, "an old legacy entry", got[0].Title)
		assert.False(t, got[0].Structured)
		assert.Equal(t, "A structured entry", got[1].Title)
		assert.True(t, got[1].Structured)
		assert.Equal(t, "s1", got[1].SessionID)
		assert.Equal(t, "2026-07-01", got[1].Date)
	}
}

func TestParseEntries_EmptyDocument(t *testing.T) {
	assert.Nil(t, ParseEntries(""))
}

func TestDeriveArea(t *testing.T) {
	cases := []struct {
		name  string
		files []string
		want  string
	}{
		{"empty", nil, "general"},
		{"root level only", []string{"README.md", "go.mod"}, "general"},
		{"src prefix stripped", []string{"src/cart/items.go", "src/cart/totals.go"}, "cart"},
		{"app prefix stripped", []string{"app/billing/invoice.go"}, "billing"},
		{"majority wins", []string{"scm/a.go", "scm/b.go", "redact/c.go"}, "scm"},
		{"mixed root and nested", []string{"README.md", "lib/auth/login.go"}, "auth"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DeriveArea(tc.files))
		})
	}
}

func TestIsJunkTitle(t *testing.T) {
	assert.True(t, IsJunkTitle(""))
	assert.True(t, IsJunkTitle("none"))
	assert.True(t, IsJunkTitle("N/A"))
	assert.True(t, IsJunkTitle("No significant decisions"))
	assert.False(t, IsJunkTitle("Retry uploads with exponential backoff"))
}
