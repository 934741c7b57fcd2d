package engine

import (
	"encoding/json"

	"github.com/tidwall/gjson"

	"skiff/internal/protocol"
)

// openToolCall starts a decode buffer for callID and ensures a placeholder
// timeline entry exists for the in-flight invocation.
func (s *State) openToolCall(callID, entryID, name string, input json.RawMessage) {
	if len(input) == 0 {
		input = json.RawMessage("{}")
	}
	idx := timelineIndex(s.Timeline, entryID)
	if idx < 0 {
		s.Timeline = append(s.Timeline, ChatMessage{
			ID:     entryID,
			Source: SourceAgent,
			Block: &protocol.ContentBlock{
				Type:  "tool_use",
				ID:    callID,
				Name:  name,
				Input: input,
			},
			ToolUseID: callID,
		})
		idx = len(s.Timeline) - 1
	}
	s.Accum[callID] = ""
	s.openCalls = append(s.openCalls, callID)
	s.toolIndex[callID] = idx
	s.Usage.ToolCalls[name]++
}

// resolveLatestCall closes the most recently opened still-unresolved call and
// releases its decode buffer.
func (s *State) resolveLatestCall() {
	if len(s.openCalls) == 0 {
		return
	}
	callID := s.openCalls[len(s.openCalls)-1]
	s.openCalls = s.openCalls[:len(s.openCalls)-1]
	delete(s.Accum, callID)
}

// resolveCall closes a specific call id if it is still open.
func (s *State) resolveCall(callID string) {
	for i, id := range s.openCalls {
		if id == callID {
			s.openCalls = append(s.openCalls[:i], s.openCalls[i+1:]...)
			delete(s.Accum, callID)
			return
		}
	}
}

// applyArgDelta concatenates one streamed argument fragment into the latest
// open call's buffer and attempts a parse. Partial JSON is expected and
// silently discarded; the buffer stays intact for the next fragment.
func applyArgDelta(s *State, fragment string) []Effect {
	if len(s.openCalls) == 0 {
		return []Effect{LogEffect{Message: "argument delta with no open tool call"}}
	}
	callID := s.openCalls[len(s.openCalls)-1]
	buf := s.Accum[callID] + fragment
	s.Accum[callID] = buf

	if !gjson.Valid(buf) {
		return nil
	}

	idx, ok := s.lookupToolEntry(callID)
	if !ok {
		return []Effect{LogEffect{Message: "tool call has no timeline entry", ID: callID}}
	}
	entry := s.Timeline[idx]
	var block protocol.ContentBlock
	if entry.Block != nil {
		block = *entry.Block
	} else {
		block = protocol.ContentBlock{Type: "tool_use", ID: callID}
	}
	block.Input = json.RawMessage(buf)
	entry.Block = &block
	s.Timeline[idx] = entry
	return nil
}

// lookupToolEntry resolves a tool-call id to its timeline position. The index
// cache is consulted first but never trusted blind: on a miss or a mismatch it
// is rebuilt from a linear scan of the timeline.
func (s *State) lookupToolEntry(callID string) (int, bool) {
	if idx, ok := s.toolIndex[callID]; ok {
		if idx >= 0 && idx < len(s.Timeline) && s.Timeline[idx].ToolUseID == callID {
			return idx, true
		}
	}
	for i := range s.Timeline {
		if s.Timeline[i].ToolUseID == callID {
			s.toolIndex[callID] = i
			return i, true
		}
	}
	delete(s.toolIndex, callID)
	return -1, false
}

// clearStreamState drops all decode buffers, open calls, and the index cache.
// None of them is meaningful across a reconnect or session switch.
func (s *State) clearStreamState() {
	s.Accum = map[string]string{}
	s.openCalls = nil
	s.toolIndex = map[string]int{}
	s.streamTextID = ""
}
