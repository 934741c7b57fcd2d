package engine

import (
	"skiff/internal/protocol"
)

// thinkingSuffix is appended to dispatched text when extended thinking is
// enabled.
const thinkingSuffix = " ultrathink"

// maybeDrain dispatches the oldest queued message once the session is idle.
// It runs after every transition, which covers both the "turn just finished"
// edge and the "message queued while already idle" case. It never fires in
// loading, starting, running, or stopping, and never on an empty queue.
func maybeDrain(s *State) []Effect {
	if s.Status != StatusReady || len(s.queueOrder) == 0 {
		return nil
	}

	id := s.queueOrder[0]
	msg := s.Queued[id]
	s.dequeue(id)

	var effects []Effect
	if !s.processAlive {
		effects = append(effects, SendEffect{Message: protocol.Message{
			Type:            protocol.MsgStart,
			SelectedModel:   s.Settings.SelectedModel,
			ThinkingEnabled: s.Settings.ThinkingEnabled,
			PlanModeEnabled: s.Settings.PlanModeEnabled,
			ResumeSessionID: s.SessionID,
		}})
	}
	s.Status = StatusStarting

	text := msg.Text
	if s.Settings.ThinkingEnabled {
		text += thinkingSuffix
	}
	effects = append(effects, SendEffect{Message: protocol.Message{
		Type:        protocol.MsgDeliverMessage,
		ID:          id,
		Text:        text,
		Attachments: msg.Attachments,
		Settings:    s.Settings.wire(),
	}})
	return effects
}
