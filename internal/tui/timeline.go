package tui

import (
	"fmt"
	"strings"

	"skiff/internal/engine"

	"github.com/charmbracelet/lipgloss"
)

const toolArgPreviewLimit = 120

// TimelineModel windows the rendered conversation inside a scrollable panel.
// Content always comes from the engine state; the model only owns scrolling.
type TimelineModel struct {
	scrollTop int

	// viewportHeight is the number of visible content lines inside the
	// panel. 0 means unconstrained.
	viewportHeight int

	// lastTotal is the rendered line count from the previous Render, used
	// to clamp scrolling between frames.
	lastTotal int
}

// SetViewportHeight configures the visible line count.
func (m *TimelineModel) SetViewportHeight(height int) {
	if height < 0 {
		height = 0
	}
	m.viewportHeight = height
	m.clampScrollTop()
}

// ScrollUp moves the viewport up by lines.
func (m *TimelineModel) ScrollUp(lines int) {
	if lines <= 0 {
		return
	}
	m.scrollTop -= lines
	m.clampScrollTop()
}

// ScrollDown moves the viewport down by lines.
func (m *TimelineModel) ScrollDown(lines int) {
	if lines <= 0 {
		return
	}
	m.scrollTop += lines
	m.clampScrollTop()
}

// PageUp scrolls one viewport up.
func (m *TimelineModel) PageUp() {
	step := m.viewportHeight
	if step <= 0 {
		step = 10
	}
	m.ScrollUp(step)
}

// PageDown scrolls one viewport down.
func (m *TimelineModel) PageDown() {
	step := m.viewportHeight
	if step <= 0 {
		step = 10
	}
	m.ScrollDown(step)
}

// ScrollToTop jumps to the oldest rendered line.
func (m *TimelineModel) ScrollToTop() {
	m.scrollTop = 0
}

// ScrollToBottom jumps to the most recent lines.
func (m *TimelineModel) ScrollToBottom() {
	m.scrollTop = m.maxScrollTop()
}

// Render draws the conversation derived from st.
func (m *TimelineModel) Render(st engine.State, width int, theme Theme) string {
	lines := buildTimelineLines(st, theme)
	if len(lines) == 0 {
		return renderPanel(width, theme.PanelStyle, "No messages yet.")
	}

	wasAtBottom := m.scrollTop >= m.maxScrollTop()
	m.lastTotal = len(lines)
	if wasAtBottom {
		m.scrollTop = m.maxScrollTop()
	}
	m.clampScrollTop()

	if m.viewportHeight > 0 && len(lines) > m.viewportHeight {
		start := m.scrollTop
		lines = lines[start : start+m.viewportHeight]
	}
	return renderPanel(width, theme.PanelStyle, strings.Join(lines, "\n"))
}

// buildTimelineLines flattens the confirmed timeline, queue markers, in-flight
// sends, and streaming thinking text into display lines.
func buildTimelineLines(st engine.State, theme Theme) []string {
	lines := make([]string, 0, len(st.Timeline)*2)

	queuePos := map[string]int{}
	for i, id := range st.QueuedIDs() {
		queuePos[id] = i + 1
	}

	for _, entry := range st.Timeline {
		rendered := renderEntry(entry, theme)
		if rendered == "" {
			continue
		}
		if pos, queued := queuePos[entry.ID]; queued {
			rendered += theme.QueuedPrefixStyle.Render(fmt.Sprintf("  [queued #%d]", pos))
		}
		lines = append(lines, strings.Split(rendered, "\n")...)
	}

	for _, id := range pendingSendIDs(st) {
		send := st.PendingSends[id]
		text := firstLine(send.Text)
		lines = append(lines, theme.UserPrefixStyle.Render("you:")+" "+text+theme.QueuedPrefixStyle.Render("  [sending]"))
	}

	if thinking := strings.TrimSpace(st.Thinking); thinking != "" {
		lines = append(lines, theme.ThinkingPrefixStyle.Render("thinking:"))
		lines = append(lines, strings.Split(thinking, "\n")...)
	}

	return lines
}

func renderEntry(entry engine.ChatMessage, theme Theme) string {
	if entry.Block != nil {
		switch entry.Block.Type {
		case "text":
			return prefixedText(theme.AgentPrefixStyle.Render("agent:"), entry.Block.Text)
		case "thinking":
			return prefixedText(theme.ThinkingPrefixStyle.Render("thinking:"), entry.Block.Thinking)
		case "tool_use":
			label := theme.ToolPrefixStyle.Render("tool:") + " " + entry.Block.Name
			args := previewJSON(entry.Block.Input)
			if args != "" {
				label += " " + args
			}
			return label
		default:
			return ""
		}
	}

	text := strings.TrimSpace(entry.Text)
	if text == "" {
		return ""
	}
	if entry.Source == engine.SourceUser {
		return prefixedText(theme.UserPrefixStyle.Render("you:"), text)
	}
	return prefixedText(theme.AgentPrefixStyle.Render("agent:"), text)
}

func prefixedText(prefix, text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	raw := strings.Split(text, "\n")
	out := prefix + " " + raw[0]
	if len(raw) > 1 {
		out += "\n" + strings.Join(raw[1:], "\n")
	}
	return out
}

func previewJSON(raw []byte) string {
	compact := strings.TrimSpace(string(raw))
	if compact == "" || compact == "{}" {
		return ""
	}
	if len(compact) > toolArgPreviewLimit {
		compact = compact[:toolArgPreviewLimit] + "…"
	}
	return compact
}

func pendingSendIDs(st engine.State) []string {
	ids := make([]string, 0, len(st.PendingSends))
	for id := range st.PendingSends {
		ids = append(ids, id)
	}
	// Stable order by submit time, then id.
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0; j-- {
			a, b := st.PendingSends[ids[j-1]], st.PendingSends[ids[j]]
			if a.SubmittedAt < b.SubmittedAt || (a.SubmittedAt == b.SubmittedAt && a.ID <= b.ID) {
				break
			}
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
	return ids
}

func firstLine(text string) string {
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		return text[:idx]
	}
	return text
}

func renderPanel(width int, style lipgloss.Style, content string) string {
	if width > 0 {
		return style.Width(width).Render(content)
	}
	return style.Render(content)
}

func (m *TimelineModel) maxScrollTop() int {
	if m.viewportHeight <= 0 {
		return 0
	}
	maxTop := m.lastTotal - m.viewportHeight
	if maxTop < 0 {
		return 0
	}
	return maxTop
}

func (m *TimelineModel) clampScrollTop() {
	if m.scrollTop < 0 {
		m.scrollTop = 0
		return
	}
	if maxTop := m.maxScrollTop(); m.scrollTop > maxTop {
		m.scrollTop = maxTop
	}
}
