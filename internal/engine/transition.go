package engine

import (
	"fmt"
	"time"

	"skiff/internal/protocol"
)

const (
	// LoadRetryInterval is how long the client waits for a snapshot before
	// re-sending load_session.
	LoadRetryInterval = 5 * time.Second
	// RewindTimeout guards the rewind preview round-trip.
	RewindTimeout = 30 * time.Second

	exitPlanModeTool = "ExitPlanMode"
)

// Apply is the state-transition function. It is pure and synchronous: given
// a state value and one event it deterministically produces the next state
// plus the effects the driver must execute. Events are serialized by the
// driver; Apply is never called concurrently for one session.
func Apply(s State, ev Event) (State, []Effect) {
	next := s.clone()
	var effects []Effect

	switch ev := ev.(type) {
	case WireEvent:
		effects = applyWire(&next, ev.Event, ev.Now)
	case SubmitMessage:
		effects = applySubmit(&next, ev)
	case RespondPermission:
		effects = applyPermissionResponse(&next, ev)
	case AnswerQuestion:
		effects = applyQuestionResponse(&next, ev)
	case RequestStop:
		effects = applyStop(&next)
	case RemoveQueued:
		effects = applyRemoveQueued(&next, ev)
	case SwitchSession:
		effects = applySwitchSession(&next, ev)
	case ReloadSession:
		effects = applyReloadSession(&next, ev)
	case LoadRetryTick:
		effects = applyLoadRetry(&next, ev)
	case SetThinking:
		next.Settings.ThinkingEnabled = ev.Enabled
		if ev.Enabled && ev.MaxTokens > 0 {
			effects = []Effect{SendEffect{Message: protocol.Message{
				Type:      protocol.MsgSetThinkingBudget,
				MaxTokens: ev.MaxTokens,
			}}}
		}
	case SetPlanMode:
		next.Settings.PlanModeEnabled = ev.Enabled
	case SetModel:
		next.Settings.SelectedModel = ev.Name
	case RewindPreview:
		next.rewindNonce = ev.Nonce
		effects = []Effect{
			SendEffect{Message: protocol.Message{
				Type:          protocol.MsgRewindFiles,
				UserMessageID: ev.UserMessageID,
				DryRun:        true,
			}},
			ScheduleRewindTimeout{Nonce: ev.Nonce, Generation: next.Generation, After: RewindTimeout},
		}
	case RewindTimeoutTick:
		if ev.Generation == next.Generation && ev.Nonce == next.rewindNonce && next.rewindNonce != "" {
			next.rewindNonce = ""
			next.Notice = "rewind preview timed out"
		}
	case RequestSessions:
		effects = []Effect{SendEffect{Message: protocol.Message{Type: protocol.MsgListSessions}}}
	}

	effects = append(effects, maybeDrain(&next)...)
	return next, effects
}

func applyWire(s *State, ev protocol.Event, now int64) []Effect {
	switch ev.Type {
	case protocol.EventStatus:
		s.processAlive = true
		if ev.Running {
			s.Status = StatusRunning
		} else {
			s.Status = StatusReady
		}
	case protocol.EventStarting:
		s.Status = StatusStarting
	case protocol.EventStarted:
		s.Status = StatusRunning
		s.processAlive = true
		s.Thinking = ""
	case protocol.EventStopped, protocol.EventProcessExit:
		s.Status = StatusReady
		s.processAlive = false
	case protocol.EventAgentMessage:
		return applyAgentMessage(s, ev.Data, now)
	case protocol.EventError:
		s.Notice = ev.Message
		return []Effect{LogEffect{Message: "backend error", Detail: ev.Message}}
	case protocol.EventSessions:
		s.Sessions = append([]protocol.SessionInfo(nil), ev.Sessions...)
	case protocol.EventPermissionRequest:
		s.Pending = PendingRequest{
			Kind: PendingPermission,
			Permission: &PermissionRequest{
				RequestID:   ev.RequestID,
				ToolName:    ev.ToolName,
				ToolInput:   ev.ToolInput,
				PlanContent: ev.PlanContent,
				Timestamp:   ev.Timestamp,
			},
		}
	case protocol.EventUserQuestion:
		s.Pending = PendingRequest{
			Kind: PendingQuestion,
			Question: &QuestionRequest{
				RequestID: ev.RequestID,
				Questions: append([]protocol.Question(nil), ev.Questions...),
				Timestamp: ev.Timestamp,
			},
		}
	case protocol.EventMessagesSnapshot:
		return applySnapshot(s, ev)
	case protocol.EventMessageStateChanged:
		return applyStateChange(s, ev)
	case protocol.EventMessageUsedAsResponse:
		return applyUsedAsResponse(s, ev)
	case protocol.EventToolProgress, protocol.EventToolSummary:
		if ev.Summary != "" {
			s.Notice = ev.Summary
		}
	case protocol.EventTaskNotification:
		s.Notice = ev.Message
	case protocol.EventCompactionStart:
		s.Compacting = true
	case protocol.EventCompactionEnd:
		s.Compacting = false
	default:
		return []Effect{LogEffect{Message: "unknown wire event", Detail: string(ev.Type)}}
	}
	return nil
}

func applyAgentMessage(s *State, data *protocol.AgentMessage, now int64) []Effect {
	if data == nil {
		return []Effect{LogEffect{Message: "claude_message with no payload"}}
	}
	// Any agent content while starting means the process got to work before
	// the started signal landed.
	if s.Status == StatusStarting {
		s.Status = StatusRunning
	}

	switch data.Type {
	case "assistant":
		return applyAgentBlocks(s, data, now)
	case "stream_event":
		return applyStreamEvent(s, data)
	case "result":
		if runningAdjacent(s.Status) {
			s.Status = StatusReady
		}
		s.Usage.Turns++
		if data.Usage != nil {
			s.Usage.InputTokens += data.Usage.InputTokens
			s.Usage.OutputTokens += data.Usage.OutputTokens
			s.Usage.CostUSD += data.Usage.CostUSD
		}
		if data.IsError {
			s.Notice = data.Result
		}
	default:
		return []Effect{LogEffect{Message: "unknown agent message", Detail: data.Type}}
	}
	return nil
}

// applyAgentBlocks expands a complete agent message into one timeline entry
// per content block. Re-delivered blocks update the existing entry in place.
func applyAgentBlocks(s *State, data *protocol.AgentMessage, now int64) []Effect {
	for i := range data.Content {
		block := data.Content[i]
		id := BlockID(data.ID, i)
		entry := ChatMessage{
			ID:        id,
			Source:    SourceAgent,
			Text:      block.Text,
			Block:     &block,
			Timestamp: now,
		}
		if block.Type == "tool_use" {
			entry.ToolUseID = block.ID
			s.resolveCall(block.ID)
		}
		if idx := timelineIndex(s.Timeline, id); idx >= 0 {
			entry.Timestamp = s.Timeline[idx].Timestamp
			entry.Order = s.Timeline[idx].Order
			s.Timeline[idx] = entry
			if entry.ToolUseID != "" {
				s.toolIndex[entry.ToolUseID] = idx
			}
			continue
		}
		s.Timeline = append(s.Timeline, entry)
		if entry.ToolUseID != "" {
			s.toolIndex[entry.ToolUseID] = len(s.Timeline) - 1
		}
	}
	return nil
}

func applyStreamEvent(s *State, data *protocol.AgentMessage) []Effect {
	sub := data.Event
	if sub == nil {
		return []Effect{LogEffect{Message: "stream_event with no sub-event"}}
	}
	switch sub.Type {
	case "content_block_start":
		block := sub.ContentBlock
		if block == nil {
			return []Effect{LogEffect{Message: "content_block_start with no block"}}
		}
		parent := data.ID
		if parent == "" {
			parent = block.ID
		}
		entryID := BlockID(parent, sub.Index)
		switch block.Type {
		case "tool_use":
			s.openToolCall(block.ID, entryID, block.Name, block.Input)
		case "text":
			if timelineIndex(s.Timeline, entryID) < 0 {
				s.Timeline = append(s.Timeline, ChatMessage{
					ID:     entryID,
					Source: SourceAgent,
					Text:   block.Text,
				})
			}
			s.streamTextID = entryID
		}
	case "content_block_delta":
		delta := sub.Delta
		if delta == nil {
			return []Effect{LogEffect{Message: "content_block_delta with no delta"}}
		}
		switch delta.Type {
		case "input_json_delta":
			return applyArgDelta(s, delta.PartialJSON)
		case "text_delta":
			appendStreamText(s, delta.Text)
		case "thinking_delta":
			s.Thinking += delta.Thinking
		}
	case "content_block_stop":
		if len(s.openCalls) > 0 {
			s.resolveLatestCall()
		} else {
			s.streamTextID = ""
		}
	}
	return nil
}

func appendStreamText(s *State, text string) {
	if text == "" {
		return
	}
	if s.streamTextID == "" {
		s.streamTextSeq++
		s.streamTextID = fmt.Sprintf("stream-%d-%d", s.Generation, s.streamTextSeq)
		s.Timeline = append(s.Timeline, ChatMessage{ID: s.streamTextID, Source: SourceAgent})
	}
	idx := timelineIndex(s.Timeline, s.streamTextID)
	if idx < 0 {
		s.Timeline = append(s.Timeline, ChatMessage{ID: s.streamTextID, Source: SourceAgent})
		idx = len(s.Timeline) - 1
	}
	entry := s.Timeline[idx]
	entry.Text += text
	s.Timeline[idx] = entry
}

// applyStateChange is the authoritative message lifecycle transition.
// Unknown ids and backward transitions are no-ops: duplicate and out-of-order
// delivery is expected, never fatal.
func applyStateChange(s *State, ev protocol.Event) []Effect {
	newState := MessageState(ev.NewState)
	if !newState.known() {
		// Intermediate informational markers from the backend.
		return nil
	}

	id := ev.ID
	queued, inQueue := s.Queued[id]
	_, isPendingSend := s.PendingSends[id]
	tlIdx := timelineIndex(s.Timeline, id)
	if !inQueue && !isPendingSend && tlIdx < 0 {
		return []Effect{LogEffect{Message: "state change for unknown message", ID: id, Detail: string(newState)}}
	}
	if inQueue && stateRank[newState] < stateRank[queued.State] {
		return []Effect{LogEffect{Message: "backward state transition ignored", ID: id, Detail: string(newState)}}
	}

	switch newState {
	case StateAccepted:
		pos := 0
		if ev.QueuePosition != nil {
			pos = *ev.QueuePosition
		}
		if tlIdx >= 0 {
			if !inQueue && !isPendingSend {
				// Replayed acceptance for a message that already moved past
				// the queue. Re-enqueueing would hand it to the drain and
				// deliver it to the backend a second time.
				return []Effect{LogEffect{Message: "replayed acceptance ignored", ID: id}}
			}
			// Idempotent re-delivery: queue bookkeeping only.
			record := queued
			if !inQueue {
				record = QueuedMessage{ID: id, Text: s.Timeline[tlIdx].Text, Attachments: s.Timeline[tlIdx].Attachments}
			}
			record.State = StateAccepted
			record.QueuePosition = pos
			s.enqueue(record)
		} else {
			cm, record := acceptedMessage(s, ev, pos)
			s.Timeline = insertOrdered(s.Timeline, cm)
			s.enqueue(record)
		}
		delete(s.PendingSends, id)

	case StateDispatched, StateCommitted, StateComplete:
		s.dequeue(id)
		delete(s.PendingSends, id)

	case StateStreaming, StateSubmitted:
		if inQueue {
			queued.State = newState
			s.Queued[id] = queued
		}

	case StateCancelled:
		s.dequeue(id)
		s.Timeline = removeTimeline(s.Timeline, id)
		delete(s.PendingSends, id)

	case StateRejected, StateFailed:
		rejected := RejectedMessage{Error: ev.ErrorMessage}
		if inQueue {
			rejected.Text = queued.Text
			rejected.Attachments = queued.Attachments
		} else if send, ok := s.PendingSends[id]; ok {
			rejected.Text = send.Text
			rejected.Attachments = send.Attachments
		} else if tlIdx >= 0 {
			rejected.Text = s.Timeline[tlIdx].Text
			rejected.Attachments = s.Timeline[tlIdx].Attachments
		}
		s.dequeue(id)
		s.Timeline = removeTimeline(s.Timeline, id)
		delete(s.PendingSends, id)
		s.LastRejected = &rejected
		return []Effect{RestoreComposeEffect{
			Text:        rejected.Text,
			Attachments: rejected.Attachments,
			Error:       rejected.Error,
		}}
	}
	return nil
}

// acceptedMessage builds the timeline entry and queue record for a freshly
// accepted message, preferring the backend-carried payload and falling back
// to the local pending-send buffer.
func acceptedMessage(s *State, ev protocol.Event, pos int) (ChatMessage, QueuedMessage) {
	if ev.UserMessage != nil {
		cm := chatFromWire(*ev.UserMessage)
		cm.Source = SourceUser
		return cm, QueuedMessage{
			ID:            cm.ID,
			Text:          cm.Text,
			Attachments:   cm.Attachments,
			State:         StateAccepted,
			QueuePosition: pos,
		}
	}
	send := s.PendingSends[ev.ID]
	cm := ChatMessage{
		ID:          ev.ID,
		Source:      SourceUser,
		Text:        send.Text,
		Timestamp:   send.SubmittedAt,
		Attachments: send.Attachments,
	}
	return cm, QueuedMessage{
		ID:            ev.ID,
		Text:          send.Text,
		Attachments:   send.Attachments,
		State:         StateAccepted,
		QueuePosition: pos,
	}
}

// applyUsedAsResponse lands an interactive-response message in its correct
// position after the snapshot that preceded it.
func applyUsedAsResponse(s *State, ev protocol.Event) []Effect {
	if idx := timelineIndex(s.Timeline, ev.ID); idx >= 0 {
		entry := s.Timeline[idx]
		entry.Text = ev.Text
		s.Timeline[idx] = entry
	} else {
		var order *int64
		if ev.Order != nil {
			v := *ev.Order
			order = &v
		}
		s.Timeline = insertOrdered(s.Timeline, ChatMessage{
			ID:     ev.ID,
			Source: SourceUser,
			Text:   ev.Text,
			Order:  order,
		})
	}
	s.dequeue(ev.ID)
	delete(s.PendingSends, ev.ID)
	return nil
}

func applySubmit(s *State, ev SubmitMessage) []Effect {
	if ev.Text == "" && len(ev.Attachments) == 0 {
		return nil
	}
	s.PendingSends[ev.ID] = PendingSend{
		ID:          ev.ID,
		Text:        ev.Text,
		Attachments: append([]protocol.Attachment(nil), ev.Attachments...),
		SubmittedAt: ev.Now,
	}
	return []Effect{SendEffect{Message: protocol.Message{
		Type:        protocol.MsgQueueMessage,
		ID:          ev.ID,
		Text:        ev.Text,
		Attachments: ev.Attachments,
		Settings:    s.Settings.wire(),
	}}}
}

func applyPermissionResponse(s *State, ev RespondPermission) []Effect {
	if s.Pending.Kind != PendingPermission || s.Pending.RequestID() != ev.RequestID {
		return []Effect{LogEffect{Message: "stale permission response", ID: ev.RequestID}}
	}
	perm := s.Pending.Permission
	s.Pending = NoPending()
	if ev.Allow && perm.ToolName == exitPlanModeTool {
		s.Settings.PlanModeEnabled = false
	}
	return []Effect{SendEffect{Message: protocol.Message{
		Type:      protocol.MsgPermissionResponse,
		RequestID: ev.RequestID,
		Allow:     ev.Allow,
	}}}
}

func applyQuestionResponse(s *State, ev AnswerQuestion) []Effect {
	if s.Pending.Kind != PendingQuestion || s.Pending.RequestID() != ev.RequestID {
		return []Effect{LogEffect{Message: "stale question response", ID: ev.RequestID}}
	}
	s.Pending = NoPending()
	return []Effect{SendEffect{Message: protocol.Message{
		Type:      protocol.MsgQuestionResponse,
		RequestID: ev.RequestID,
		Answers:   ev.Answers,
	}}}
}

func applyStop(s *State) []Effect {
	if s.Status != StatusRunning {
		return []Effect{LogEffect{Message: "stop requested outside running", Detail: string(s.Status)}}
	}
	s.Status = StatusStopping
	return []Effect{SendEffect{Message: protocol.Message{Type: protocol.MsgStop}}}
}

func applyRemoveQueued(s *State, ev RemoveQueued) []Effect {
	if _, ok := s.Queued[ev.ID]; !ok {
		return []Effect{LogEffect{Message: "remove for message not queued", ID: ev.ID}}
	}
	// Local structures stay put until the backend confirms with CANCELLED.
	return []Effect{SendEffect{Message: protocol.Message{
		Type:      protocol.MsgRemoveQueuedMessage,
		MessageID: ev.ID,
	}}}
}

func applySwitchSession(s *State, ev SwitchSession) []Effect {
	settings := s.Settings
	generation := s.Generation + 1
	*s = NewState(ev.SessionID, settings)
	s.Generation = generation
	s.loadRequestID = ev.LoadRequestID
	return []Effect{
		SendEffect{Message: protocol.Message{
			Type:          protocol.MsgLoadSession,
			LoadRequestID: ev.LoadRequestID,
			SessionID:     ev.SessionID,
		}},
		ScheduleLoadRetry{LoadRequestID: ev.LoadRequestID, Generation: generation, After: LoadRetryInterval},
	}
}

// applyReloadSession re-requests the current session's snapshot after a
// reconnect. Local state is kept; the snapshot merge reconciles it.
func applyReloadSession(s *State, ev ReloadSession) []Effect {
	s.loadRequestID = ev.LoadRequestID
	return []Effect{
		SendEffect{Message: protocol.Message{
			Type:          protocol.MsgLoadSession,
			LoadRequestID: ev.LoadRequestID,
			SessionID:     s.SessionID,
		}},
		ScheduleLoadRetry{LoadRequestID: ev.LoadRequestID, Generation: s.Generation, After: LoadRetryInterval},
	}
}

// applyLoadRetry re-sends load_session when no snapshot arrived within the
// retry window. The snapshot merge clears the outstanding request id, so a
// tick after delivery (or from a superseded switch) is discarded.
func applyLoadRetry(s *State, ev LoadRetryTick) []Effect {
	if ev.Generation != s.Generation || s.loadRequestID == "" || ev.LoadRequestID != s.loadRequestID {
		return nil
	}
	return []Effect{
		SendEffect{Message: protocol.Message{
			Type:          protocol.MsgLoadSession,
			LoadRequestID: ev.LoadRequestID,
			SessionID:     s.SessionID,
		}},
		ScheduleLoadRetry{LoadRequestID: ev.LoadRequestID, Generation: ev.Generation, After: LoadRetryInterval},
	}
}
