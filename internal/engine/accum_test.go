package engine

import (
	"testing"

	"skiff/internal/protocol"
)

func streamEvent(msgID string, sub protocol.StreamEvent) WireEvent {
	return wire(protocol.Event{
		Type: protocol.EventAgentMessage,
		Data: &protocol.AgentMessage{Type: "stream_event", ID: msgID, Event: &sub},
	})
}

func toolCallStart(msgID, callID, name string) WireEvent {
	return streamEvent(msgID, protocol.StreamEvent{
		Type:         "content_block_start",
		Index:        0,
		ContentBlock: &protocol.ContentBlock{Type: "tool_use", ID: callID, Name: name},
	})
}

func argDelta(msgID, fragment string) WireEvent {
	return streamEvent(msgID, protocol.StreamEvent{
		Type:  "content_block_delta",
		Delta: &protocol.StreamDelta{Type: "input_json_delta", PartialJSON: fragment},
	})
}

func TestArgumentDeltaParsesOnlyWhenComplete(t *testing.T) {
	t.Parallel()

	s := newTestState()
	s.Status = StatusRunning

	s, _ = Apply(s, toolCallStart("msg-1", "call-1", "Bash"))
	s, _ = Apply(s, argDelta("msg-1", `{"fo`))

	idx, ok := s.lookupToolEntry("call-1")
	if !ok {
		t.Fatalf("tool call placeholder missing from timeline")
	}
	if got := string(s.Timeline[idx].Block.Input); got != "{}" {
		t.Fatalf("partial JSON must not replace displayed input, got %q", got)
	}

	s, _ = Apply(s, argDelta("msg-1", `o":1}`))
	idx, _ = s.lookupToolEntry("call-1")
	if got := string(s.Timeline[idx].Block.Input); got != `{"foo":1}` {
		t.Fatalf("parsed input = %q, want %q", got, `{"foo":1}`)
	}
}

func TestStrayDeltaWithNoOpenCallIsNoOp(t *testing.T) {
	t.Parallel()

	before := newTestState()
	before.Status = StatusRunning

	after, effects := Apply(before, argDelta("msg-1", `{"a":1}`))
	if len(after.Timeline) != 0 || len(after.Accum) != 0 {
		t.Fatalf("stray delta must not create state")
	}
	logged := false
	for _, eff := range effects {
		if _, ok := eff.(LogEffect); ok {
			logged = true
		}
	}
	if !logged {
		t.Fatalf("stray delta should leave a debug log effect")
	}
}

func TestDeltaBindsToLatestOpenCall(t *testing.T) {
	t.Parallel()

	s := newTestState()
	s.Status = StatusRunning
	s, _ = Apply(s, toolCallStart("msg-1", "call-1", "Read"))
	s, _ = Apply(s, toolCallStart("msg-2", "call-2", "Bash"))

	s, _ = Apply(s, argDelta("msg-2", `{"command":"ls"}`))

	idx1, _ := s.lookupToolEntry("call-1")
	idx2, _ := s.lookupToolEntry("call-2")
	if got := string(s.Timeline[idx1].Block.Input); got != "{}" {
		t.Fatalf("older call received the delta: %q", got)
	}
	if got := string(s.Timeline[idx2].Block.Input); got != `{"command":"ls"}` {
		t.Fatalf("latest call missed the delta: %q", got)
	}
}

func TestBlockStopResolvesLatestCall(t *testing.T) {
	t.Parallel()

	s := newTestState()
	s.Status = StatusRunning
	s, _ = Apply(s, toolCallStart("msg-1", "call-1", "Bash"))
	s, _ = Apply(s, streamEvent("msg-1", protocol.StreamEvent{Type: "content_block_stop"}))

	if len(s.openCalls) != 0 {
		t.Fatalf("stop must resolve the open call, still open: %v", s.openCalls)
	}
	if _, ok := s.Accum["call-1"]; ok {
		t.Fatalf("resolved call must release its decode buffer")
	}
}

func TestIndexCacheRepairsOnMismatch(t *testing.T) {
	t.Parallel()

	s := newTestState()
	s.Status = StatusRunning
	s, _ = Apply(s, toolCallStart("msg-1", "call-1", "Bash"))

	// Poison the cache: point the call at the wrong position.
	s.toolIndex["call-1"] = 99

	idx, ok := s.lookupToolEntry("call-1")
	if !ok {
		t.Fatalf("lookup must fall back to a linear scan")
	}
	if s.Timeline[idx].ToolUseID != "call-1" {
		t.Fatalf("repaired index points at the wrong entry")
	}
	if s.toolIndex["call-1"] != idx {
		t.Fatalf("cache must be repaired after a miss")
	}
}

func TestThinkingDeltaAccumulatesAndClearsOnStarted(t *testing.T) {
	t.Parallel()

	s := newTestState()
	s.Status = StatusRunning
	s, _ = Apply(s, streamEvent("msg-1", protocol.StreamEvent{
		Type:  "content_block_delta",
		Delta: &protocol.StreamDelta{Type: "thinking_delta", Thinking: "hmm, "},
	}))
	s, _ = Apply(s, streamEvent("msg-1", protocol.StreamEvent{
		Type:  "content_block_delta",
		Delta: &protocol.StreamDelta{Type: "thinking_delta", Thinking: "let me check"},
	}))

	if s.Thinking != "hmm, let me check" {
		t.Fatalf("thinking buffer = %q", s.Thinking)
	}

	s, _ = Apply(s, wire(protocol.Event{Type: protocol.EventStarted}))
	if s.Thinking != "" {
		t.Fatalf("started signal must clear stale thinking text, got %q", s.Thinking)
	}
}
