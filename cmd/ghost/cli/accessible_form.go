package cli

import (
	"os"

	"github.com/charmbracelet/huh"
)

// newAccessibleForm wraps huh.NewForm, switching to huh's plain
// accessible-mode prompts when ACCESSIBLE is set in the environment —
// simpler text prompts that work with screen readers, in place of the
// default TUI.
func newAccessibleForm(groups ...*huh.Group) *huh.Form {
	form := huh.NewForm(groups...)
	if os.Getenv("ACCESSIBLE") != "" {
		form = form.WithAccessible(true)
	}
	return form
}
