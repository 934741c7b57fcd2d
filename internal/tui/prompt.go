package tui

import (
	"fmt"
	"strings"

	"skiff/internal/engine"

	tea "github.com/charmbracelet/bubbletea"
)

// promptKeyEvent translates a key press aimed at the pending interactive
// request into an engine event. ok is false when the key is not a prompt
// answer and should fall through to normal input handling.
func promptKeyEvent(pending engine.PendingRequest, msg tea.KeyMsg) (engine.Event, bool) {
	switch pending.Kind {
	case engine.PendingPermission:
		if pending.Permission == nil {
			return nil, false
		}
		switch msg.String() {
		case "y", "Y":
			return engine.RespondPermission{RequestID: pending.Permission.RequestID, Allow: true}, true
		case "n", "N", "esc":
			return engine.RespondPermission{RequestID: pending.Permission.RequestID, Allow: false}, true
		}
	case engine.PendingQuestion:
		if pending.Question == nil || len(pending.Question.Questions) == 0 {
			return nil, false
		}
		options := pending.Question.Questions[0].Options
		key := msg.String()
		if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
			choice := int(key[0] - '1')
			if choice < len(options) {
				return engine.AnswerQuestion{
					RequestID: pending.Question.RequestID,
					Answers:   []string{options[choice]},
				}, true
			}
		}
	}
	return nil, false
}

// renderPrompt draws the pending interactive request panel.
func renderPrompt(pending engine.PendingRequest, width int, theme Theme) string {
	switch pending.Kind {
	case engine.PendingPermission:
		if pending.Permission == nil {
			return ""
		}
		lines := []string{
			"Permission requested: " + pending.Permission.ToolName,
		}
		if args := previewJSON(pending.Permission.ToolInput); args != "" {
			lines = append(lines, "  "+args)
		}
		if plan := strings.TrimSpace(pending.Permission.PlanContent); plan != "" {
			lines = append(lines, "", plan)
		}
		lines = append(lines, "", "Press y to allow, n to deny.")
		return renderPanel(width, theme.PromptPanelStyle, strings.Join(lines, "\n"))

	case engine.PendingQuestion:
		if pending.Question == nil || len(pending.Question.Questions) == 0 {
			return ""
		}
		q := pending.Question.Questions[0]
		lines := []string{q.Text, ""}
		for i, option := range q.Options {
			lines = append(lines, fmt.Sprintf("  %d. %s", i+1, option))
		}
		lines = append(lines, "", "Press the option number to answer.")
		return renderPanel(width, theme.PromptPanelStyle, strings.Join(lines, "\n"))
	}
	return ""
}
