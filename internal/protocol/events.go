// Package protocol defines the wire format spoken between the client and the
// agent backend: inbound events pushed by the backend and outbound messages
// sent by the client. Frames are single JSON objects tagged by "type".
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// EventType identifies inbound wire event variants.
type EventType string

const (
	EventStatus                EventType = "status"
	EventStarting              EventType = "starting"
	EventStarted               EventType = "started"
	EventStopped               EventType = "stopped"
	EventProcessExit           EventType = "process_exit"
	EventAgentMessage          EventType = "claude_message"
	EventError                 EventType = "error"
	EventSessions              EventType = "sessions"
	EventPermissionRequest     EventType = "permission_request"
	EventUserQuestion          EventType = "user_question"
	EventMessagesSnapshot      EventType = "messages_snapshot"
	EventMessageStateChanged   EventType = "message_state_changed"
	EventMessageUsedAsResponse EventType = "message_used_as_response"
	EventToolProgress          EventType = "tool_progress"
	EventToolSummary           EventType = "tool_summary"
	EventTaskNotification      EventType = "task_notification"
	EventCompactionStart       EventType = "compaction_start"
	EventCompactionEnd         EventType = "compaction_end"
)

var (
	ErrEmptyFrame     = errors.New("empty wire frame")
	ErrMissingType    = errors.New("wire frame has no type")
	ErrMalformedFrame = errors.New("malformed wire frame")
)

// Attachment is a user-supplied file reference carried with a message.
type Attachment struct {
	Name     string `json:"name"`
	MimeType string `json:"mimeType,omitempty"`
	Content  string `json:"content,omitempty"`
	Path     string `json:"path,omitempty"`
}

// Question is one multiple-choice prompt inside a user_question event.
type Question struct {
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

// SessionInfo describes one backend session in a sessions event.
type SessionInfo struct {
	ID        string `json:"id"`
	Title     string `json:"title,omitempty"`
	UpdatedAt int64  `json:"updatedAt,omitempty"`
}

// TimelineMessage is one confirmed conversation entry as the backend sees it.
// Order is the backend-assigned sequence key; nil means "no ordering key".
type TimelineMessage struct {
	ID          string          `json:"id"`
	Source      string          `json:"source"`
	Text        string          `json:"text,omitempty"`
	Block       *ContentBlock   `json:"block,omitempty"`
	State       string          `json:"state,omitempty"`
	Order       *int64          `json:"order,omitempty"`
	Timestamp   int64           `json:"timestamp,omitempty"`
	Attachments []Attachment    `json:"attachments,omitempty"`
	Raw         json.RawMessage `json:"raw,omitempty"`
}

// PendingSnapshot is the snapshot's view of the backend's single pending
// interactive request slot.
type PendingSnapshot struct {
	Kind        string          `json:"kind"` // "permission" or "question"
	RequestID   string          `json:"requestId"`
	ToolName    string          `json:"toolName,omitempty"`
	ToolInput   json.RawMessage `json:"toolInput,omitempty"`
	PlanContent string          `json:"planContent,omitempty"`
	Questions   []Question      `json:"questions,omitempty"`
	Timestamp   int64           `json:"timestamp,omitempty"`
}

// Usage carries token accounting attached to a terminal agent result.
type Usage struct {
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd,omitempty"`
}

// Event is the inbound wire event envelope. Only the fields relevant to the
// tagged Type are populated; the rest stay zero.
type Event struct {
	Type EventType `json:"type"`

	// status
	Running bool `json:"running,omitempty"`

	// error, task_notification, tool_progress, tool_summary
	Message string `json:"message,omitempty"`

	// claude_message
	Data *AgentMessage `json:"data,omitempty"`

	// sessions
	Sessions []SessionInfo `json:"sessions,omitempty"`

	// permission_request / user_question
	RequestID   string          `json:"requestId,omitempty"`
	ToolName    string          `json:"toolName,omitempty"`
	ToolInput   json.RawMessage `json:"toolInput,omitempty"`
	PlanContent string          `json:"planContent,omitempty"`
	Questions   []Question      `json:"questions,omitempty"`
	Timestamp   int64           `json:"timestamp,omitempty"`

	// messages_snapshot
	Messages       []TimelineMessage `json:"messages,omitempty"`
	SessionStatus  string            `json:"sessionStatus,omitempty"`
	PendingRequest *PendingSnapshot  `json:"pendingInteractiveRequest,omitempty"`

	// message_state_changed / message_used_as_response
	ID            string           `json:"id,omitempty"`
	NewState      string           `json:"newState,omitempty"`
	QueuePosition *int             `json:"queuePosition,omitempty"`
	ErrorMessage  string           `json:"errorMessage,omitempty"`
	UserMessage   *TimelineMessage `json:"userMessage,omitempty"`
	Text          string           `json:"text,omitempty"`
	Order         *int64           `json:"order,omitempty"`

	// tool_progress / tool_summary
	ToolUseID string `json:"toolUseId,omitempty"`
	Summary   string `json:"summary,omitempty"`
}

// DecodeEvent parses one inbound frame.
func DecodeEvent(frame []byte) (Event, error) {
	if len(strings.TrimSpace(string(frame))) == 0 {
		return Event{}, ErrEmptyFrame
	}
	var ev Event
	if err := json.Unmarshal(frame, &ev); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if strings.TrimSpace(string(ev.Type)) == "" {
		return Event{}, ErrMissingType
	}
	return ev, nil
}

// AgentMessage is the payload of a claude_message event: either a complete
// agent message with content blocks, a nested stream sub-event, or a terminal
// result for the current turn.
type AgentMessage struct {
	Type    string          `json:"type"` // "assistant", "stream_event", "result"
	Subtype string          `json:"subtype,omitempty"`
	ID      string          `json:"id,omitempty"`
	Content []ContentBlock  `json:"content,omitempty"`
	Event   *StreamEvent    `json:"event,omitempty"`
	IsError bool            `json:"is_error,omitempty"`
	Result  string          `json:"result,omitempty"`
	Usage   *Usage          `json:"usage,omitempty"`
	Raw     json.RawMessage `json:"raw,omitempty"`
}

// ContentBlock is one structured unit of agent output.
type ContentBlock struct {
	Type      string          `json:"type"` // "text", "thinking", "tool_use"
	Text      string          `json:"text,omitempty"`
	Thinking  string          `json:"thinking,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
}

// StreamEvent is a nested stream sub-event inside a claude_message frame.
// Argument deltas do not repeat the tool-call id; they belong to the most
// recently opened still-unresolved call.
type StreamEvent struct {
	Type         string        `json:"type"` // content_block_start/_delta/_stop
	Index        int           `json:"index,omitempty"`
	ContentBlock *ContentBlock `json:"content_block,omitempty"`
	Delta        *StreamDelta  `json:"delta,omitempty"`
}

// StreamDelta is the incremental payload of a content_block_delta sub-event.
type StreamDelta struct {
	Type        string `json:"type"` // "text_delta", "thinking_delta", "input_json_delta"
	Text        string `json:"text,omitempty"`
	Thinking    string `json:"thinking,omitempty"`
	PartialJSON string `json:"partial_json,omitempty"`
}
