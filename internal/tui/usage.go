package tui

import (
	"fmt"
	"sort"
	"strings"

	"skiff/internal/engine"
)

// UsagePanel renders the token and tool-call side panel.
type UsagePanel struct{}

// Render draws the usage panel from accumulated engine stats.
func (UsagePanel) Render(st engine.State, width int, theme Theme) string {
	lines := []string{
		"Model: " + fallbackText(st.Settings.SelectedModel, "default"),
		fmt.Sprintf("Turns: %d", st.Usage.Turns),
		fmt.Sprintf("Input tokens: %d", st.Usage.InputTokens),
		fmt.Sprintf("Output tokens: %d", st.Usage.OutputTokens),
		"Cost: " + fmt.Sprintf("$%.4f", st.Usage.CostUSD),
		"Tools:",
	}

	if len(st.Usage.ToolCalls) == 0 {
		lines = append(lines, "  none")
	} else {
		names := make([]string, 0, len(st.Usage.ToolCalls))
		for name := range st.Usage.ToolCalls {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			lines = append(lines, fmt.Sprintf("  %s (%d)", name, st.Usage.ToolCalls[name]))
		}
	}

	return renderPanel(width, theme.UsagePanelStyle, strings.Join(lines, "\n"))
}
