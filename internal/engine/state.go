package engine

import (
	"maps"

	"skiff/internal/protocol"
)

// Settings is the local session configuration echoed to the backend on start
// and queue_message.
type Settings struct {
	SelectedModel   string
	ThinkingEnabled bool
	PlanModeEnabled bool
}

func (s Settings) wire() *protocol.Settings {
	return &protocol.Settings{
		SelectedModel:   s.SelectedModel,
		ThinkingEnabled: s.ThinkingEnabled,
		PlanModeEnabled: s.PlanModeEnabled,
	}
}

// UsageStats accumulates token and cost counters from terminal agent results.
// Display only; the engine never reads them back.
type UsageStats struct {
	InputTokens  int
	OutputTokens int
	CostUSD      float64
	Turns        int
	ToolCalls    map[string]int
}

// State is the complete per-session reconciliation state. It is a value:
// Apply copies it before mutating, so callers never observe partial updates
// and retained old states stay intact.
type State struct {
	SessionID string
	Status    SessionStatus

	// processAlive tracks whether the agent child process exists, which is
	// independent of Status: a finished turn leaves the process alive and
	// the session ready.
	processAlive bool

	Pending PendingRequest

	Timeline     []ChatMessage
	Queued       map[string]QueuedMessage
	queueOrder   []string
	PendingSends map[string]PendingSend
	LastRejected *RejectedMessage

	// Tool-call argument streaming: decode buffers keyed by call id, the
	// stack of still-unresolved call ids (latest last), and the timeline
	// index cache. The cache is an accelerator, never a source of truth.
	Accum     map[string]string
	openCalls []string
	toolIndex map[string]int

	// Thinking is the accumulated extended-thinking text for the current
	// turn; cleared when a new turn starts so stale content never flashes.
	Thinking string

	// streamTextID is the timeline id of the text block currently being
	// streamed, if any. streamTextSeq feeds generated ids for text that
	// arrives as bare deltas with no preceding block start.
	streamTextID  string
	streamTextSeq int

	Settings Settings
	Usage    UsageStats

	Sessions   []protocol.SessionInfo
	Compacting bool
	Notice     string

	// Generation increases on every session switch/reset. Timer callbacks
	// carry the generation they were armed under; a mismatch marks them
	// stale.
	Generation uint64

	// loadRequestID correlates an outstanding load_session round-trip.
	loadRequestID string
	// rewindNonce correlates an outstanding rewind preview round-trip.
	rewindNonce string
}

// NewState returns the fresh per-session state entered on open or switch.
func NewState(sessionID string, settings Settings) State {
	return State{
		SessionID:    sessionID,
		Status:       StatusLoading,
		Pending:      NoPending(),
		Queued:       map[string]QueuedMessage{},
		PendingSends: map[string]PendingSend{},
		Accum:        map[string]string{},
		toolIndex:    map[string]int{},
		Settings:     settings,
		Usage:        UsageStats{ToolCalls: map[string]int{}},
	}
}

// clone deep-copies every mutable structure so the transition function can
// freely modify the copy.
func (s State) clone() State {
	out := s
	out.Timeline = append([]ChatMessage(nil), s.Timeline...)
	out.Queued = maps.Clone(s.Queued)
	out.queueOrder = append([]string(nil), s.queueOrder...)
	out.PendingSends = maps.Clone(s.PendingSends)
	out.Accum = maps.Clone(s.Accum)
	out.openCalls = append([]string(nil), s.openCalls...)
	out.toolIndex = maps.Clone(s.toolIndex)
	out.Sessions = append([]protocol.SessionInfo(nil), s.Sessions...)
	out.Usage.ToolCalls = maps.Clone(s.Usage.ToolCalls)
	if out.Queued == nil {
		out.Queued = map[string]QueuedMessage{}
	}
	if out.PendingSends == nil {
		out.PendingSends = map[string]PendingSend{}
	}
	if out.Accum == nil {
		out.Accum = map[string]string{}
	}
	if out.toolIndex == nil {
		out.toolIndex = map[string]int{}
	}
	if out.Usage.ToolCalls == nil {
		out.Usage.ToolCalls = map[string]int{}
	}
	return out
}

// QueueLen returns the number of accepted-but-undispatched messages.
func (s State) QueueLen() int {
	return len(s.queueOrder)
}

// QueuedIDs returns queued message ids in FIFO order.
func (s State) QueuedIDs() []string {
	return append([]string(nil), s.queueOrder...)
}

// enqueue records a queued message, idempotently: a duplicate id overwrites
// the record but keeps its original position.
func (s *State) enqueue(msg QueuedMessage) {
	if _, exists := s.Queued[msg.ID]; !exists {
		s.queueOrder = append(s.queueOrder, msg.ID)
	}
	s.Queued[msg.ID] = msg
}

// dequeue removes a queued message by id.
func (s *State) dequeue(id string) {
	if _, exists := s.Queued[id]; !exists {
		return
	}
	delete(s.Queued, id)
	for i, qid := range s.queueOrder {
		if qid == id {
			s.queueOrder = append(s.queueOrder[:i], s.queueOrder[i+1:]...)
			break
		}
	}
}
