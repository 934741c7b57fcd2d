package engine

import (
	"skiff/internal/protocol"
)

// Event is one discrete transition request consumed by Apply. Inbound wire
// events and local user actions share the union so the driver serializes
// everything through a single dispatch point.
type Event interface {
	isEvent()
}

// WireEvent wraps one inbound backend frame. Now is the driver-supplied
// arrival time so the transition itself never reads the clock.
type WireEvent struct {
	Event protocol.Event
	Now   int64
}

// SubmitMessage is the local "send message" action. The driver assigns the
// id and timestamp so the transition stays deterministic.
type SubmitMessage struct {
	ID          string
	Text        string
	Attachments []protocol.Attachment
	Now         int64
}

// RespondPermission answers the pending permission request. A stale
// RequestID is a silent no-op.
type RespondPermission struct {
	RequestID string
	Allow     bool
}

// AnswerQuestion answers the pending multiple-choice request.
type AnswerQuestion struct {
	RequestID string
	Answers   []string
}

// RequestStop asks the backend to interrupt the running turn. Only valid
// while running.
type RequestStop struct{}

// RemoveQueued withdraws an accepted-but-undispatched message.
type RemoveQueued struct {
	ID string
}

// SwitchSession resets local state and loads another backend session.
type SwitchSession struct {
	SessionID     string
	LoadRequestID string
}

// ReloadSession re-requests the current session's snapshot without touching
// local state, used after a reconnect. The snapshot merge reconciles.
type ReloadSession struct {
	LoadRequestID string
}

// LoadRetryTick fires when the load_session retry timer elapses. Stale ticks
// (generation or request mismatch) are discarded.
type LoadRetryTick struct {
	LoadRequestID string
	Generation    uint64
}

// SetThinking toggles extended thinking locally and, when enabling with a
// budget, tells the backend.
type SetThinking struct {
	Enabled   bool
	MaxTokens int
}

// SetPlanMode toggles plan mode locally.
type SetPlanMode struct {
	Enabled bool
}

// SetModel selects the model used for subsequent starts.
type SetModel struct {
	Name string
}

// RewindPreview requests a dry-run file rewind for a past user message.
type RewindPreview struct {
	UserMessageID string
	Nonce         string
}

// RewindTimeoutTick fires when the rewind preview guard elapses.
type RewindTimeoutTick struct {
	Nonce      string
	Generation uint64
}

// RequestSessions asks the backend for the session list.
type RequestSessions struct{}

func (WireEvent) isEvent()         {}
func (SubmitMessage) isEvent()     {}
func (RespondPermission) isEvent() {}
func (AnswerQuestion) isEvent()    {}
func (RequestStop) isEvent()       {}
func (RemoveQueued) isEvent()      {}
func (SwitchSession) isEvent()     {}
func (ReloadSession) isEvent()     {}
func (LoadRetryTick) isEvent()     {}
func (SetThinking) isEvent()       {}
func (SetPlanMode) isEvent()       {}
func (SetModel) isEvent()          {}
func (RewindPreview) isEvent()     {}
func (RewindTimeoutTick) isEvent() {}
func (RequestSessions) isEvent()   {}
