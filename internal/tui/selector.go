package tui

import (
	"fmt"
	"strings"
	"time"

	"skiff/internal/protocol"

	tea "github.com/charmbracelet/bubbletea"
)

type selectorItem struct {
	Value string
	Label string
}

// selectorState is the modal session picker opened by /sessions.
type selectorState struct {
	Title  string
	Items  []selectorItem
	Cursor int
}

func newSessionSelector(sessions []protocol.SessionInfo, currentID string) *selectorState {
	items := make([]selectorItem, 0, len(sessions))
	cursor := 0
	for index, info := range sessions {
		label := info.ID
		if title := strings.TrimSpace(info.Title); title != "" {
			label = fmt.Sprintf("%s  %s", info.ID, title)
		}
		if info.UpdatedAt > 0 {
			label += "  (" + time.Unix(info.UpdatedAt, 0).UTC().Format(time.DateTime) + ")"
		}
		if info.ID == currentID {
			label += "  [current]"
			cursor = index
		}
		items = append(items, selectorItem{Value: info.ID, Label: label})
	}
	if len(items) == 0 {
		return nil
	}
	return &selectorState{
		Title:  "Select Session",
		Items:  items,
		Cursor: cursor,
	}
}

// handleKey moves the cursor or resolves the selection. It returns the chosen
// session id when confirmed and done=true when the selector should close.
func (s *selectorState) handleKey(msg tea.KeyMsg) (selected string, done bool) {
	switch msg.Type {
	case tea.KeyEsc:
		return "", true
	case tea.KeyUp:
		s.Cursor--
		if s.Cursor < 0 {
			s.Cursor = len(s.Items) - 1
		}
		return "", false
	case tea.KeyDown:
		s.Cursor++
		if s.Cursor >= len(s.Items) {
			s.Cursor = 0
		}
		return "", false
	case tea.KeyEnter:
		if len(s.Items) == 0 {
			return "", true
		}
		return s.Items[s.Cursor].Value, true
	default:
		return "", false
	}
}

func (s *selectorState) render(width int, theme Theme) string {
	if s == nil || len(s.Items) == 0 {
		return renderPanel(width, theme.PanelStyle, "No sessions found.")
	}
	lines := make([]string, 0, len(s.Items)+2)
	lines = append(lines, s.Title)
	lines = append(lines, "Use ↑/↓ to navigate, Enter to confirm, Esc to cancel.")
	for index, item := range s.Items {
		prefix := "  "
		if index == s.Cursor {
			prefix = "> "
		}
		lines = append(lines, prefix+item.Label)
	}
	return renderPanel(width, theme.PanelStyle, strings.Join(lines, "\n"))
}
