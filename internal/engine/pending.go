package engine

import (
	"encoding/json"

	"skiff/internal/protocol"
)

// PendingKind discriminates the pending interactive request slot.
type PendingKind string

const (
	PendingNone       PendingKind = "none"
	PendingPermission PendingKind = "permission"
	PendingQuestion   PendingKind = "question"
)

// PermissionRequest is a backend-initiated tool approval prompt.
type PermissionRequest struct {
	RequestID   string
	ToolName    string
	ToolInput   json.RawMessage
	PlanContent string
	Timestamp   int64
}

// QuestionRequest is a backend-initiated multiple-choice prompt.
type QuestionRequest struct {
	RequestID string
	Questions []protocol.Question
	Timestamp int64
}

// PendingRequest is the single interactive request the backend is blocked on.
// The backend only ever tracks one in-flight request per session, so a newly
// arriving request of either kind replaces whatever was pending.
type PendingRequest struct {
	Kind       PendingKind
	Permission *PermissionRequest
	Question   *QuestionRequest
}

// NoPending is the empty slot value.
func NoPending() PendingRequest {
	return PendingRequest{Kind: PendingNone}
}

// RequestID returns the id of the pending request, or "" when the slot is
// empty.
func (p PendingRequest) RequestID() string {
	switch p.Kind {
	case PendingPermission:
		if p.Permission != nil {
			return p.Permission.RequestID
		}
	case PendingQuestion:
		if p.Question != nil {
			return p.Question.RequestID
		}
	}
	return ""
}

// Empty reports whether no interactive request is pending.
func (p PendingRequest) Empty() bool {
	return p.Kind == PendingNone || p.Kind == ""
}

func pendingFromSnapshot(snap *protocol.PendingSnapshot) PendingRequest {
	if snap == nil {
		return NoPending()
	}
	switch snap.Kind {
	case "permission":
		return PendingRequest{
			Kind: PendingPermission,
			Permission: &PermissionRequest{
				RequestID:   snap.RequestID,
				ToolName:    snap.ToolName,
				ToolInput:   snap.ToolInput,
				PlanContent: snap.PlanContent,
				Timestamp:   snap.Timestamp,
			},
		}
	case "question":
		return PendingRequest{
			Kind: PendingQuestion,
			Question: &QuestionRequest{
				RequestID: snap.RequestID,
				Questions: append([]protocol.Question(nil), snap.Questions...),
				Timestamp: snap.Timestamp,
			},
		}
	default:
		return NoPending()
	}
}
