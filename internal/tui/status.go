package tui

import (
	"fmt"
	"strings"

	"skiff/internal/engine"
)

// StatusModel renders the top status bar.
type StatusModel struct {
	Version   string
	Connected bool
}

// NewStatusModel constructs status data for rendering.
func NewStatusModel(version string) StatusModel {
	return StatusModel{Version: strings.TrimSpace(version)}
}

// Render draws a one-line status bar from the current engine state.
func (m StatusModel) Render(st engine.State, width int, theme Theme) string {
	parts := []string{
		"skiff " + fallbackText(m.Version, "dev"),
		"session: " + fallbackText(st.SessionID, "new"),
		"status: " + string(st.Status),
		connectionLabel(m.Connected),
	}
	if n := st.QueueLen(); n > 0 {
		parts = append(parts, fmt.Sprintf("queued: %d", n))
	}
	if st.Settings.ThinkingEnabled {
		parts = append(parts, "thinking")
	}
	if st.Settings.PlanModeEnabled {
		parts = append(parts, "plan")
	}
	if st.Compacting {
		parts = append(parts, "compacting…")
	}

	line := strings.Join(parts, " | ")
	style := theme.StatusBarStyle
	if width > 0 {
		style = style.Width(width)
	}
	return style.Render(line)
}

func connectionLabel(connected bool) string {
	if connected {
		return "online"
	}
	return "offline"
}

func fallbackText(value, fallback string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	return trimmed
}
