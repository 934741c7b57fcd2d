package protocol

import (
	"encoding/json"
	"errors"
	"strings"
)

// MessageType identifies outbound wire message variants.
type MessageType string

const (
	MsgStart               MessageType = "start"
	MsgQueueMessage        MessageType = "queue_message"
	MsgDeliverMessage      MessageType = "deliver_message"
	MsgRemoveQueuedMessage MessageType = "remove_queued_message"
	MsgStop                MessageType = "stop"
	MsgPermissionResponse  MessageType = "permission_response"
	MsgQuestionResponse    MessageType = "question_response"
	MsgListSessions        MessageType = "list_sessions"
	MsgLoadSession         MessageType = "load_session"
	MsgSetThinkingBudget   MessageType = "set_thinking_budget"
	MsgRewindFiles         MessageType = "rewind_files"
)

var ErrMissingMessageType = errors.New("wire message has no type")

// Settings is the session configuration carried on start and queue_message.
type Settings struct {
	SelectedModel   string `json:"selectedModel,omitempty"`
	ThinkingEnabled bool   `json:"thinkingEnabled"`
	PlanModeEnabled bool   `json:"planModeEnabled"`
}

// Message is the outbound wire message envelope. Only the fields relevant to
// the tagged Type are populated.
type Message struct {
	Type MessageType `json:"type"`

	// start
	SelectedModel   string `json:"selectedModel,omitempty"`
	ThinkingEnabled bool   `json:"thinkingEnabled,omitempty"`
	PlanModeEnabled bool   `json:"planModeEnabled,omitempty"`
	ResumeSessionID string `json:"resumeSessionId,omitempty"`

	// queue_message / deliver_message
	ID          string       `json:"id,omitempty"`
	Text        string       `json:"text,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Settings    *Settings    `json:"settings,omitempty"`

	// remove_queued_message
	MessageID string `json:"messageId,omitempty"`

	// permission_response / question_response
	RequestID string   `json:"requestId,omitempty"`
	Allow     bool     `json:"allow,omitempty"`
	Answers   []string `json:"answers,omitempty"`

	// load_session
	LoadRequestID string `json:"loadRequestId,omitempty"`
	SessionID     string `json:"sessionId,omitempty"`

	// set_thinking_budget
	MaxTokens int `json:"max_tokens,omitempty"`

	// rewind_files
	UserMessageID string `json:"userMessageId,omitempty"`
	DryRun        bool   `json:"dryRun,omitempty"`
}

// EncodeMessage serializes one outbound frame.
func EncodeMessage(msg Message) ([]byte, error) {
	if strings.TrimSpace(string(msg.Type)) == "" {
		return nil, ErrMissingMessageType
	}
	return json.Marshal(msg)
}
