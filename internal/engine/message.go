package engine

import (
	"fmt"

	"skiff/internal/protocol"
)

// MessageSource identifies who authored a timeline entry.
type MessageSource string

const (
	SourceUser  MessageSource = "user"
	SourceAgent MessageSource = "agent"
)

// MessageState is the lifecycle of an outbound user message as reported by
// the backend. Only forward transitions are applied.
type MessageState string

const (
	StateSubmitted  MessageState = "SUBMITTED"
	StateAccepted   MessageState = "ACCEPTED"
	StateDispatched MessageState = "DISPATCHED"
	StateStreaming  MessageState = "STREAMING"
	StateCommitted  MessageState = "COMMITTED"
	StateComplete   MessageState = "COMPLETE"
	StateRejected   MessageState = "REJECTED"
	StateFailed     MessageState = "FAILED"
	StateCancelled  MessageState = "CANCELLED"
)

// stateRank orders the forward lifecycle. Terminal states share the top rank
// and are reachable from any non-terminal state.
var stateRank = map[MessageState]int{
	StateSubmitted:  0,
	StateAccepted:   1,
	StateDispatched: 2,
	StateStreaming:  3,
	StateCommitted:  4,
	StateComplete:   5,
	StateRejected:   6,
	StateFailed:     6,
	StateCancelled:  6,
}

// Terminal reports whether the state ends the message lifecycle.
func (s MessageState) Terminal() bool {
	return s == StateRejected || s == StateFailed || s == StateCancelled
}

// known reports whether the state participates in local bookkeeping. Unknown
// intermediate markers from newer backends are informational only.
func (s MessageState) known() bool {
	_, ok := stateRank[s]
	return ok
}

// ChatMessage is one displayed timeline entry. Agent content blocks expanded
// from a parent message use "{parentId}-{blockIndex}" ids.
type ChatMessage struct {
	ID          string
	Source      MessageSource
	Text        string
	Block       *protocol.ContentBlock
	ToolUseID   string
	Timestamp   int64
	Order       *int64
	Attachments []protocol.Attachment
}

// BlockID derives the timeline id for one expanded agent content block.
func BlockID(parentID string, blockIndex int) string {
	return fmt.Sprintf("%s-%d", parentID, blockIndex)
}

// QueuedMessage is a user message the backend accepted but has not yet
// dispatched to the agent process.
type QueuedMessage struct {
	ID            string
	Text          string
	Attachments   []protocol.Attachment
	State         MessageState
	QueuePosition int
}

// PendingSend is a locally buffered message awaiting backend acknowledgment,
// captured at submit time so rejected input can be restored.
type PendingSend struct {
	ID          string
	Text        string
	Attachments []protocol.Attachment
	SubmittedAt int64
}

// RejectedMessage is the single-slot recovery record for the most recently
// rejected or failed user message.
type RejectedMessage struct {
	Text        string
	Attachments []protocol.Attachment
	Error       string
}

// insertOrdered inserts msg into timeline by backend-assigned sequence.
// Entries without an ordering key append at the tail, but a snapshot is
// adopted verbatim and can leave unkeyed entries interleaved between keyed
// ones, so the insertion point is found against keyed entries only: after the
// last keyed entry whose key is not greater than the new one.
func insertOrdered(timeline []ChatMessage, msg ChatMessage) []ChatMessage {
	if msg.Order == nil {
		return append(timeline, msg)
	}
	pos := 0
	for i := range timeline {
		if timeline[i].Order != nil && *timeline[i].Order <= *msg.Order {
			pos = i + 1
		}
	}
	timeline = append(timeline, ChatMessage{})
	copy(timeline[pos+1:], timeline[pos:])
	timeline[pos] = msg
	return timeline
}

// timelineIndex returns the position of id in timeline, or -1.
func timelineIndex(timeline []ChatMessage, id string) int {
	for i := range timeline {
		if timeline[i].ID == id {
			return i
		}
	}
	return -1
}

// removeTimeline deletes id from timeline when present.
func removeTimeline(timeline []ChatMessage, id string) []ChatMessage {
	idx := timelineIndex(timeline, id)
	if idx < 0 {
		return timeline
	}
	return append(timeline[:idx], timeline[idx+1:]...)
}

func chatFromWire(msg protocol.TimelineMessage) ChatMessage {
	source := SourceAgent
	if msg.Source == string(SourceUser) {
		source = SourceUser
	}
	var order *int64
	if msg.Order != nil {
		v := *msg.Order
		order = &v
	}
	cm := ChatMessage{
		ID:          msg.ID,
		Source:      source,
		Text:        msg.Text,
		Timestamp:   msg.Timestamp,
		Order:       order,
		Attachments: append([]protocol.Attachment(nil), msg.Attachments...),
	}
	if msg.Block != nil {
		block := *msg.Block
		cm.Block = &block
		if block.Type == "tool_use" {
			cm.ToolUseID = block.ID
		}
	}
	return cm
}
