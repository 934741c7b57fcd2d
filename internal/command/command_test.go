package command

import (
	"strings"
	"testing"

	"skiff/internal/engine"
	"skiff/internal/protocol"
)

type capture struct {
	events  []engine.Event
	notices []string
	errors  []string
	opened  bool
	input   string
}

func newEnv(st engine.State, c *capture) Env {
	return Env{
		State:               st,
		Dispatch:            func(ev engine.Event) { c.events = append(c.events, ev) },
		OpenSessionSelector: func() { c.opened = true },
		NewLoadRequestID:    func() string { return "load-1" },
		NewNonce:            func() string { return "nonce-1" },
		GetInputValue:       func() string { return c.input },
		SetInputValue:       func(v string) { c.input = v },
		AppendNotice:        func(t string) { c.notices = append(c.notices, t) },
		AppendError:         func(t string) { c.errors = append(c.errors, t) },
	}
}

func TestExecuteStopOnlyWhileRunning(t *testing.T) {
	t.Parallel()

	st := engine.NewState("s1", engine.Settings{})
	var c capture
	Execute("/stop", newEnv(st, &c))
	if len(c.events) != 0 {
		t.Fatalf("events = %d, want 0 when not running", len(c.events))
	}
	if len(c.errors) != 1 {
		t.Fatalf("errors = %d, want 1", len(c.errors))
	}

	st.Status = engine.StatusRunning
	c = capture{}
	Execute("/stop", newEnv(st, &c))
	if len(c.events) != 1 {
		t.Fatalf("events = %d, want 1", len(c.events))
	}
	if _, ok := c.events[0].(engine.RequestStop); !ok {
		t.Fatalf("event = %T, want RequestStop", c.events[0])
	}
}

func TestExecuteSessionsOpensSelector(t *testing.T) {
	t.Parallel()

	st := engine.NewState("s1", engine.Settings{})
	var c capture
	Execute("/sessions", newEnv(st, &c))

	if len(c.events) != 1 {
		t.Fatalf("events = %d, want 1", len(c.events))
	}
	if _, ok := c.events[0].(engine.RequestSessions); !ok {
		t.Fatalf("event = %T, want RequestSessions", c.events[0])
	}
	if !c.opened {
		t.Fatalf("selector not opened")
	}
}

func TestExecuteSwitchDispatchesWithLoadRequestID(t *testing.T) {
	t.Parallel()

	st := engine.NewState("s1", engine.Settings{})
	var c capture
	Execute("/switch s2", newEnv(st, &c))

	if len(c.events) != 1 {
		t.Fatalf("events = %d, want 1", len(c.events))
	}
	sw, ok := c.events[0].(engine.SwitchSession)
	if !ok {
		t.Fatalf("event = %T, want SwitchSession", c.events[0])
	}
	if sw.SessionID != "s2" || sw.LoadRequestID != "load-1" {
		t.Fatalf("SwitchSession = %+v, want s2/load-1", sw)
	}
}

func TestExecuteSwitchToCurrentIsNoop(t *testing.T) {
	t.Parallel()

	st := engine.NewState("s1", engine.Settings{})
	var c capture
	Execute("/switch s1", newEnv(st, &c))

	if len(c.events) != 0 {
		t.Fatalf("events = %d, want 0", len(c.events))
	}
	if len(c.notices) != 1 {
		t.Fatalf("notices = %d, want 1", len(c.notices))
	}
}

func TestExecuteThinking(t *testing.T) {
	t.Parallel()

	st := engine.NewState("s1", engine.Settings{})

	var c capture
	Execute("/thinking on 4096", newEnv(st, &c))
	if len(c.events) != 1 {
		t.Fatalf("events = %d, want 1", len(c.events))
	}
	set, ok := c.events[0].(engine.SetThinking)
	if !ok {
		t.Fatalf("event = %T, want SetThinking", c.events[0])
	}
	if !set.Enabled || set.MaxTokens != 4096 {
		t.Fatalf("SetThinking = %+v, want enabled with 4096", set)
	}

	c = capture{}
	Execute("/thinking off", newEnv(st, &c))
	set, ok = c.events[0].(engine.SetThinking)
	if !ok || set.Enabled {
		t.Fatalf("event = %+v, want SetThinking disabled", c.events[0])
	}

	c = capture{}
	Execute("/thinking sideways", newEnv(st, &c))
	if len(c.events) != 0 || len(c.errors) != 1 {
		t.Fatalf("events=%d errors=%d, want usage error only", len(c.events), len(c.errors))
	}
}

func TestExecuteRewindRequiresKnownMessage(t *testing.T) {
	t.Parallel()

	st := engine.NewState("s1", engine.Settings{})
	var c capture
	Execute("/rewind msg-9", newEnv(st, &c))
	if len(c.events) != 0 || len(c.errors) != 1 {
		t.Fatalf("events=%d errors=%d, want error for unknown id", len(c.events), len(c.errors))
	}

	st.Timeline = append(st.Timeline, engine.ChatMessage{ID: "msg-9", Source: engine.SourceUser, Text: "hi"})
	c = capture{}
	Execute("/rewind msg-9", newEnv(st, &c))
	if len(c.events) != 1 {
		t.Fatalf("events = %d, want 1", len(c.events))
	}
	rw, ok := c.events[0].(engine.RewindPreview)
	if !ok {
		t.Fatalf("event = %T, want RewindPreview", c.events[0])
	}
	if rw.UserMessageID != "msg-9" || rw.Nonce != "nonce-1" {
		t.Fatalf("RewindPreview = %+v, want msg-9/nonce-1", rw)
	}
}

func TestExecuteRemoveRequiresQueuedMessage(t *testing.T) {
	t.Parallel()

	st := engine.NewState("s1", engine.Settings{})
	var c capture
	Execute("/remove m1", newEnv(st, &c))
	if len(c.events) != 0 || len(c.errors) != 1 {
		t.Fatalf("events=%d errors=%d, want error for unqueued id", len(c.events), len(c.errors))
	}

	st.Queued["m1"] = engine.QueuedMessage{ID: "m1", Text: "later"}
	c = capture{}
	Execute("/remove m1", newEnv(st, &c))
	if len(c.events) != 1 {
		t.Fatalf("events = %d, want 1", len(c.events))
	}
	if rm, ok := c.events[0].(engine.RemoveQueued); !ok || rm.ID != "m1" {
		t.Fatalf("event = %+v, want RemoveQueued m1", c.events[0])
	}
}

func TestExecuteModelShowsAndSets(t *testing.T) {
	t.Parallel()

	st := engine.NewState("s1", engine.Settings{SelectedModel: "claude-sonnet-4"})
	var c capture
	Execute("/model", newEnv(st, &c))
	if len(c.events) != 0 {
		t.Fatalf("events = %d, want 0", len(c.events))
	}
	if len(c.notices) != 1 || !strings.Contains(c.notices[0], "claude-sonnet-4") {
		t.Fatalf("notices = %v, want current model", c.notices)
	}

	c = capture{}
	Execute("/model claude-opus-4", newEnv(st, &c))
	if sm, ok := c.events[0].(engine.SetModel); !ok || sm.Name != "claude-opus-4" {
		t.Fatalf("event = %+v, want SetModel claude-opus-4", c.events[0])
	}
}

func TestExecuteUnknownCommand(t *testing.T) {
	t.Parallel()

	st := engine.NewState("s1", engine.Settings{})
	var c capture
	Execute("/frobnicate", newEnv(st, &c))
	if len(c.errors) != 1 || !strings.Contains(c.errors[0], "/frobnicate") {
		t.Fatalf("errors = %v, want unknown command", c.errors)
	}
}

func TestExecuteRetryRestoresRejectedText(t *testing.T) {
	t.Parallel()

	st := engine.NewState("s1", engine.Settings{})
	var c capture
	Execute("/retry", newEnv(st, &c))
	if len(c.errors) != 1 {
		t.Fatalf("errors = %d, want 1 with no rejected message", len(c.errors))
	}

	st.LastRejected = &engine.RejectedMessage{Text: "fix the bug", Error: "queue full"}
	c = capture{input: "and add a test"}
	Execute("/retry", newEnv(st, &c))
	if c.input != "fix the bug\n\nand add a test" {
		t.Fatalf("input = %q, want rejected text prepended", c.input)
	}
}

func TestExecuteQueueListsFIFO(t *testing.T) {
	t.Parallel()

	st := engine.NewState("s1", engine.Settings{})
	st, _ = engine.Apply(st, engine.WireEvent{Event: protocol.Event{
		Type:     protocol.EventMessageStateChanged,
		ID:       "m1",
		NewState: "ACCEPTED",
		Text:     "first",
	}})
	st, _ = engine.Apply(st, engine.WireEvent{Event: protocol.Event{
		Type:     protocol.EventMessageStateChanged,
		ID:       "m2",
		NewState: "ACCEPTED",
		Text:     "second",
	}})

	var c capture
	Execute("/queue", newEnv(st, &c))
	if len(c.notices) != 1 {
		t.Fatalf("notices = %d, want 1", len(c.notices))
	}
	first := strings.Index(c.notices[0], "m1")
	second := strings.Index(c.notices[0], "m2")
	if first < 0 || second < 0 || first > second {
		t.Fatalf("queue listing order wrong:\n%s", c.notices[0])
	}
}
