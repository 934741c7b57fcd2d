package engine

import (
	"skiff/internal/protocol"
)

// applySnapshot merges the authoritative full-state snapshot the backend
// pushes on every (re)connect. The snapshot wins for everything it knows
// about; the only local data patched back in is what the backend cannot yet
// know: unacknowledged pending sends, and a pending interactive request that
// arrived in the window between reconnect and snapshot delivery.
func applySnapshot(s *State, ev protocol.Event) []Effect {
	timeline := make([]ChatMessage, 0, len(ev.Messages))
	queued := map[string]QueuedMessage{}
	var queueOrder []string
	inSnapshot := make(map[string]bool, len(ev.Messages))

	for _, wire := range ev.Messages {
		cm := chatFromWire(wire)
		timeline = append(timeline, cm)
		inSnapshot[wire.ID] = true
		if MessageState(wire.State) == StateAccepted && cm.Source == SourceUser {
			queued[wire.ID] = QueuedMessage{
				ID:          wire.ID,
				Text:        wire.Text,
				Attachments: append([]protocol.Attachment(nil), wire.Attachments...),
				State:       StateAccepted,
			}
			queueOrder = append(queueOrder, wire.ID)
		}
	}

	s.Timeline = timeline
	s.Queued = queued
	s.queueOrder = queueOrder

	// Pending sends the snapshot already contains were confirmed across the
	// reconnect boundary; the rest are still awaiting acknowledgment.
	for id := range s.PendingSends {
		if inSnapshot[id] {
			delete(s.PendingSends, id)
		}
	}

	s.Status = ParseSessionStatus(ev.SessionStatus)
	if runningAdjacent(s.Status) {
		s.processAlive = true
	}

	// An empty snapshot slot must not clobber a request recorded locally in
	// the reconnect race window; a populated one always wins.
	snapPending := pendingFromSnapshot(ev.PendingRequest)
	if !snapPending.Empty() {
		s.Pending = snapPending
	}

	s.clearStreamState()
	s.loadRequestID = ""
	return nil
}
