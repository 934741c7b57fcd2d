// Package tui hosts the terminal frontend. The App model is the engine
// driver: it serializes key presses, wire frames, and timer ticks into
// engine.Apply calls and executes the returned effects.
package tui

import (
	"strings"
	"time"

	"skiff/internal/command"
	"skiff/internal/draft"
	"skiff/internal/engine"
	"skiff/internal/protocol"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultAppWidth         = 100
	defaultUsagePanelWidth  = 36
	minimumTimelineWidth    = 40
	minimumUsagePanelWidth  = 22
	draftSaveDebounce       = 2 * time.Second
	composePlaceholderText  = "Type a message, /help for commands"
)

// FrameMsg carries one decoded inbound wire event into the update loop. The
// transport handler posts these through Program.Send.
type FrameMsg struct {
	Event protocol.Event
}

// ConnStateMsg reports transport connectivity changes.
type ConnStateMsg struct {
	Connected bool
}

type loadRetryMsg struct {
	loadRequestID string
	generation    uint64
}

type rewindTimeoutMsg struct {
	nonce      string
	generation uint64
}

type draftSaveMsg struct{}

// AppConfig configures the root BubbleTea model.
type AppConfig struct {
	Version   string
	ThemeName string
	ShowUsage bool
	SessionID string
	Settings  engine.Settings
	Send      func(protocol.Message) bool
	Logger    *zap.Logger
	Drafts    *draft.Store
}

// App is the root TUI model and the engine driver.
type App struct {
	theme     Theme
	showUsage bool

	width  int
	height int

	st     engine.State
	send   func(protocol.Message) bool
	logger *zap.Logger
	drafts *draft.Store

	status   StatusModel
	timeline TimelineModel
	input    InputModel
	usage    UsagePanel

	selector *selectorState
	notice   string

	draftDirty bool
	draftTimer bool
}

// NewApp constructs the root TUI model.
func NewApp(cfg AppConfig) *App {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	send := cfg.Send
	if send == nil {
		send = func(protocol.Message) bool { return false }
	}

	app := &App{
		theme:     ResolveTheme(cfg.ThemeName),
		showUsage: cfg.ShowUsage,
		width:     defaultAppWidth,
		st:        engine.NewState(strings.TrimSpace(cfg.SessionID), cfg.Settings),
		send:      send,
		logger:    logger,
		drafts:    cfg.Drafts,
		status:    NewStatusModel(cfg.Version),
		input:     NewInputModel(">", composePlaceholderText),
	}
	app.restoreDraft(app.st.SessionID)
	return app
}

// Init requests the initial session snapshot.
func (m *App) Init() tea.Cmd {
	return nil
}

// Update applies state changes from user input, wire frames, and timers.
func (m *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.timeline.SetViewportHeight(m.timelineViewportHeight())
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case FrameMsg:
		return m, m.dispatch(engine.WireEvent{Event: msg.Event, Now: time.Now().Unix()})

	case ConnStateMsg:
		m.status.Connected = msg.Connected
		if msg.Connected {
			// Reconnect reconciliation: ask for an authoritative snapshot
			// without resetting local state. The snapshot event merges it,
			// and the engine arms the load_session retry timer.
			return m, m.dispatch(engine.ReloadSession{LoadRequestID: uuid.NewString()})
		}
		return m, nil

	case loadRetryMsg:
		return m, m.dispatch(engine.LoadRetryTick{
			LoadRequestID: msg.loadRequestID,
			Generation:    msg.generation,
		})

	case rewindTimeoutMsg:
		return m, m.dispatch(engine.RewindTimeoutTick{
			Nonce:      msg.nonce,
			Generation: msg.generation,
		})

	case draftSaveMsg:
		m.draftTimer = false
		m.persistDraft()
		return m, nil
	}

	return m, nil
}

// View renders status bar, body, optional prompt, notices, and input line.
func (m *App) View() string {
	width := m.width
	if width <= 0 {
		width = defaultAppWidth
	}

	parts := []string{
		m.status.Render(m.st, width, m.theme),
		m.renderBody(width),
	}
	if prompt := renderPrompt(m.st.Pending, width, m.theme); prompt != "" {
		parts = append(parts, prompt)
	}
	if notice := m.currentNotice(); notice != "" {
		parts = append(parts, m.theme.NoticeStyle.Render(notice))
	}
	parts = append(parts, m.input.Render(width, m.theme))
	return strings.Join(parts, "\n")
}

// dispatch feeds one event through the engine and executes the effects.
func (m *App) dispatch(ev engine.Event) tea.Cmd {
	next, effects := engine.Apply(m.st, ev)
	m.st = next

	var cmds []tea.Cmd
	for _, effect := range effects {
		switch eff := effect.(type) {
		case engine.SendEffect:
			m.sendMessage(eff.Message)
		case engine.LogEffect:
			m.logger.Debug(eff.Message,
				zap.String("id", eff.ID),
				zap.String("detail", eff.Detail))
		case engine.RestoreComposeEffect:
			m.input.SetValue(eff.Text)
			m.input.SetErrorBanner(eff.Error)
		case engine.ScheduleLoadRetry:
			tick := loadRetryMsg{loadRequestID: eff.LoadRequestID, generation: eff.Generation}
			cmds = append(cmds, tea.Tick(eff.After, func(time.Time) tea.Msg { return tick }))
		case engine.ScheduleRewindTimeout:
			tick := rewindTimeoutMsg{nonce: eff.Nonce, generation: eff.Generation}
			cmds = append(cmds, tea.Tick(eff.After, func(time.Time) tea.Msg { return tick }))
		}
	}
	if len(cmds) == 0 {
		return nil
	}
	return tea.Batch(cmds...)
}

func (m *App) sendMessage(msg protocol.Message) {
	if !m.send(msg) {
		m.logger.Warn("frame dropped while disconnected", zap.String("type", string(msg.Type)))
		m.notice = "offline: message not sent"
	}
}

func (m *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.persistDraft()
		return m, tea.Quit
	}

	if m.selector != nil {
		selected, done := m.selector.handleKey(msg)
		if done {
			m.selector = nil
			if selected != "" && selected != m.st.SessionID {
				return m, m.switchSession(selected)
			}
		}
		return m, nil
	}

	if !m.st.Pending.Empty() {
		if ev, ok := promptKeyEvent(m.st.Pending, msg); ok {
			return m, m.dispatch(ev)
		}
	}

	if m.handleScrollKey(msg) {
		return m, nil
	}

	if submitted := m.input.HandleKey(msg); submitted {
		content := strings.TrimSpace(m.input.Value())
		m.input.Clear()
		return m, m.handleSubmit(content)
	}
	m.markDraftDirty()
	return m, m.armDraftTimer()
}

func (m *App) handleSubmit(content string) tea.Cmd {
	if content == "" {
		return nil
	}
	m.notice = ""

	if strings.HasPrefix(content, "/") {
		var cmds []tea.Cmd
		command.Execute(content, command.Env{
			State: m.st,
			Dispatch: func(ev engine.Event) {
				if cmd := m.dispatch(ev); cmd != nil {
					cmds = append(cmds, cmd)
				}
			},
			OpenSessionSelector: func() {
				m.selector = newSessionSelector(m.st.Sessions, m.st.SessionID)
				if m.selector == nil {
					m.notice = "No sessions found yet; try again in a moment."
				}
			},
			NewLoadRequestID: uuid.NewString,
			NewNonce:         uuid.NewString,
			GetInputValue:    m.input.Value,
			SetInputValue:    m.input.SetValue,
			AppendNotice:     func(text string) { m.notice = text },
			AppendError:      func(errText string) { m.notice = "Error: " + errText },
		})
		if len(cmds) == 0 {
			return nil
		}
		return tea.Batch(cmds...)
	}

	m.clearDraft()
	return m.dispatch(engine.SubmitMessage{
		ID:   uuid.NewString(),
		Text: content,
		Now:  time.Now().Unix(),
	})
}

func (m *App) switchSession(sessionID string) tea.Cmd {
	m.persistDraft()
	cmd := m.dispatch(engine.SwitchSession{
		SessionID:     sessionID,
		LoadRequestID: uuid.NewString(),
	})
	m.input.Clear()
	m.restoreDraft(sessionID)
	return cmd
}

func (m *App) handleScrollKey(msg tea.KeyMsg) bool {
	switch msg.Type {
	case tea.KeyUp:
		m.timeline.ScrollUp(1)
		return true
	case tea.KeyDown:
		m.timeline.ScrollDown(1)
		return true
	case tea.KeyPgUp:
		m.timeline.PageUp()
		return true
	case tea.KeyPgDown:
		m.timeline.PageDown()
		return true
	case tea.KeyHome:
		m.timeline.ScrollToTop()
		return true
	case tea.KeyEnd:
		m.timeline.ScrollToBottom()
		return true
	default:
		return false
	}
}

func (m *App) renderBody(width int) string {
	m.timeline.SetViewportHeight(m.timelineViewportHeight())
	if m.selector != nil {
		return m.selector.render(width, m.theme)
	}

	if !m.showUsage {
		return m.timeline.Render(m.st, width, m.theme)
	}

	usageWidth := defaultUsagePanelWidth
	if width/3 < usageWidth {
		usageWidth = width / 3
	}
	if usageWidth < minimumUsagePanelWidth {
		usageWidth = minimumUsagePanelWidth
	}

	timelineWidth := width - usageWidth - 1
	if timelineWidth < minimumTimelineWidth {
		timelineWidth = minimumTimelineWidth
		usageWidth = width - timelineWidth - 1
		if usageWidth < 0 {
			usageWidth = 0
		}
	}

	timelineView := m.timeline.Render(m.st, timelineWidth, m.theme)
	if usageWidth <= 0 {
		return timelineView
	}
	usageView := m.usage.Render(m.st, usageWidth, m.theme)
	return lipgloss.JoinHorizontal(lipgloss.Top, timelineView, usageView)
}

func (m *App) currentNotice() string {
	if m.notice != "" {
		return m.notice
	}
	return strings.TrimSpace(m.st.Notice)
}

func (m *App) timelineViewportHeight() int {
	if m.height <= 0 {
		return 0
	}

	const nonBodyRows = 2 // status + input
	bodyHeight := m.height - nonBodyRows
	if bodyHeight < 1 {
		return 1
	}

	contentHeight := bodyHeight - m.theme.PanelStyle.GetVerticalFrameSize()
	if contentHeight < 1 {
		return 1
	}
	return contentHeight
}

func (m *App) markDraftDirty() {
	m.draftDirty = true
}

func (m *App) armDraftTimer() tea.Cmd {
	if m.drafts == nil || m.draftTimer || !m.draftDirty {
		return nil
	}
	m.draftTimer = true
	return tea.Tick(draftSaveDebounce, func(time.Time) tea.Msg { return draftSaveMsg{} })
}

func (m *App) persistDraft() {
	if m.drafts == nil || !m.draftDirty || m.st.SessionID == "" {
		return
	}
	m.draftDirty = false
	err := m.drafts.Save(draft.Draft{
		SessionID:       m.st.SessionID,
		Text:            m.input.Value(),
		Model:           m.st.Settings.SelectedModel,
		ThinkingEnabled: m.st.Settings.ThinkingEnabled,
		PlanModeEnabled: m.st.Settings.PlanModeEnabled,
	})
	if err != nil {
		m.logger.Warn("save draft", zap.Error(err))
	}
}

func (m *App) clearDraft() {
	m.draftDirty = false
	if m.drafts == nil || m.st.SessionID == "" {
		return
	}
	if err := m.drafts.Delete(m.st.SessionID); err != nil {
		m.logger.Warn("delete draft", zap.Error(err))
	}
}

func (m *App) restoreDraft(sessionID string) {
	if m.drafts == nil || sessionID == "" {
		return
	}
	d, err := m.drafts.Load(sessionID)
	if err != nil {
		return
	}
	m.input.SetValue(d.Text)
}
