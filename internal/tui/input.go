package tui

import (
	"strings"
	"unicode"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// InputModel stores the single-line compose buffer.
type InputModel struct {
	prompt      string
	placeholder string
	value       string

	// errBanner is the last rejection reason, shown above the input line
	// until the next edit.
	errBanner string
}

// NewInputModel constructs the input state.
func NewInputModel(prompt, placeholder string) InputModel {
	p := strings.TrimSpace(prompt)
	if p == "" {
		p = ">"
	}
	return InputModel{
		prompt:      p,
		placeholder: strings.TrimSpace(placeholder),
	}
}

// Value returns current raw input text.
func (m InputModel) Value() string {
	return m.value
}

// SetValue replaces input text.
func (m *InputModel) SetValue(value string) {
	m.value = value
}

// Clear resets input text and the error banner.
func (m *InputModel) Clear() {
	m.value = ""
	m.errBanner = ""
}

// SetErrorBanner shows a rejection reason above the input line.
func (m *InputModel) SetErrorBanner(text string) {
	m.errBanner = strings.TrimSpace(text)
}

// ErrorBanner returns the current rejection reason, if any.
func (m InputModel) ErrorBanner() string {
	return m.errBanner
}

// HandleKey mutates input state and reports submit key.
func (m *InputModel) HandleKey(msg tea.KeyMsg) (submitted bool) {
	switch msg.Type {
	case tea.KeyEnter:
		return true
	case tea.KeyBackspace, tea.KeyDelete:
		if m.value == "" {
			return false
		}
		runes := []rune(m.value)
		m.value = string(runes[:len(runes)-1])
		m.errBanner = ""
		return false
	case tea.KeySpace:
		m.value += " "
		m.errBanner = ""
		return false
	case tea.KeyCtrlU:
		m.value = ""
		m.errBanner = ""
		return false
	case tea.KeyCtrlW:
		m.value = trimLastWord(m.value)
		m.errBanner = ""
		return false
	}

	if len(msg.Runes) > 0 {
		m.value += string(msg.Runes)
		m.errBanner = ""
	}
	return false
}

// Render draws the input line, preceded by the error banner when set.
func (m InputModel) Render(width int, theme Theme) string {
	value := m.value
	valueStyle := theme.InputTextStyle
	if strings.TrimSpace(value) == "" {
		value = m.placeholder
		valueStyle = theme.InputPlaceholderTextStyle
	}

	line := theme.InputPromptStyle.Render(m.prompt+" ") + valueStyle.Render(value)
	if m.errBanner != "" {
		line = theme.ErrorStyle.Render("Rejected: "+m.errBanner) + "\n" + line
	}
	if width > 0 {
		return lipgloss.NewStyle().Width(width).Render(line)
	}
	return line
}

func trimLastWord(value string) string {
	runes := []rune(value)
	end := len(runes)
	for end > 0 && unicode.IsSpace(runes[end-1]) {
		end--
	}
	for end > 0 && !unicode.IsSpace(runes[end-1]) {
		end--
	}
	return string(runes[:end])
}
