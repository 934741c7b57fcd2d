package engine

import (
	"testing"

	"skiff/internal/protocol"
)

func TestStatusMachineTransitions(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		from  SessionStatus
		event Event
		want  SessionStatus
	}{
		{"status running", StatusReady, runningStatus(true), StatusRunning},
		{"status not running", StatusRunning, runningStatus(false), StatusReady},
		{"starting signal", StatusReady, wire(protocol.Event{Type: protocol.EventStarting}), StatusStarting},
		{"started signal", StatusStarting, wire(protocol.Event{Type: protocol.EventStarted}), StatusRunning},
		{"stopped signal", StatusRunning, wire(protocol.Event{Type: protocol.EventStopped}), StatusReady},
		{"process exit", StatusStopping, wire(protocol.Event{Type: protocol.EventProcessExit}), StatusReady},
		{"terminal result while running", StatusRunning, wire(protocol.Event{
			Type: protocol.EventAgentMessage,
			Data: &protocol.AgentMessage{Type: "result"},
		}), StatusReady},
		{"terminal result while stopping", StatusStopping, wire(protocol.Event{
			Type: protocol.EventAgentMessage,
			Data: &protocol.AgentMessage{Type: "result"},
		}), StatusReady},
		{"agent content while starting", StatusStarting, wire(protocol.Event{
			Type: protocol.EventAgentMessage,
			Data: &protocol.AgentMessage{Type: "assistant", ID: "m1"},
		}), StatusRunning},
		{"loading ignores result", StatusLoading, wire(protocol.Event{
			Type: protocol.EventAgentMessage,
			Data: &protocol.AgentMessage{Type: "result"},
		}), StatusLoading},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s := newTestState()
			s.Status = tc.from
			s.processAlive = true
			after, _ := Apply(s, tc.event)
			if after.Status != tc.want {
				t.Fatalf("%s: status = %q, want %q", tc.name, after.Status, tc.want)
			}
		})
	}
}

func TestInitialStatusIsLoading(t *testing.T) {
	t.Parallel()

	if got := newTestState().Status; got != StatusLoading {
		t.Fatalf("fresh state status = %q, want loading", got)
	}
}

func TestSwitchSessionResetsState(t *testing.T) {
	t.Parallel()

	s, _ := applyAll(t, newTestState(),
		runningStatus(true),
		SubmitMessage{ID: "m1", Text: "pending", Now: 1},
		toolCallStart("msg-1", "call-1", "Bash"),
	)

	after, effects := Apply(s, SwitchSession{SessionID: "sess-2", LoadRequestID: "load-1"})
	if after.Status != StatusLoading {
		t.Fatalf("switch must reset status to loading, got %q", after.Status)
	}
	if len(after.Timeline) != 0 || len(after.Accum) != 0 || len(after.PendingSends) != 0 {
		t.Fatalf("switch must reconstruct the state container")
	}
	if after.Generation != s.Generation+1 {
		t.Fatalf("switch must bump the generation counter")
	}
	if after.Settings != s.Settings {
		t.Fatalf("settings must survive a session switch")
	}

	msgs := sentMessages(effects)
	if len(msgs) != 1 || msgs[0].Type != protocol.MsgLoadSession || msgs[0].LoadRequestID != "load-1" {
		t.Fatalf("expected a load_session message, got %+v", msgs)
	}
	scheduled := false
	for _, eff := range effects {
		if _, ok := eff.(ScheduleLoadRetry); ok {
			scheduled = true
		}
	}
	if !scheduled {
		t.Fatalf("switch must arm the load retry timer")
	}
}

func TestReloadSessionKeepsStateAndArmsRetry(t *testing.T) {
	t.Parallel()

	s, _ := applyAll(t, newTestState(),
		runningStatus(true),
		SubmitMessage{ID: "m1", Text: "pending", Now: 1},
	)

	after, effects := Apply(s, ReloadSession{LoadRequestID: "load-2"})
	if len(after.PendingSends) != 1 || after.Status != StatusRunning {
		t.Fatalf("reload must not reset local state")
	}
	if after.Generation != s.Generation {
		t.Fatalf("reload must not bump the generation counter")
	}

	msgs := sentMessages(effects)
	if len(msgs) != 1 || msgs[0].Type != protocol.MsgLoadSession || msgs[0].LoadRequestID != "load-2" {
		t.Fatalf("expected a load_session message, got %+v", msgs)
	}
	scheduled := false
	for _, eff := range effects {
		if _, ok := eff.(ScheduleLoadRetry); ok {
			scheduled = true
		}
	}
	if !scheduled {
		t.Fatalf("reload must arm the load retry timer")
	}

	// No snapshot yet: the tick re-sends even though the session is running.
	_, effects = Apply(after, LoadRetryTick{LoadRequestID: "load-2", Generation: after.Generation})
	if msgs := sentMessages(effects); len(msgs) != 1 || msgs[0].Type != protocol.MsgLoadSession {
		t.Fatalf("matching tick must re-send load_session, got %+v", msgs)
	}

	// Snapshot delivery ends the round-trip.
	after, _ = Apply(after, snapshotEvent(nil, string(StatusRunning), nil))
	_, effects = Apply(after, LoadRetryTick{LoadRequestID: "load-2", Generation: after.Generation})
	if len(sentMessages(effects)) != 0 {
		t.Fatalf("tick after snapshot delivery must be discarded")
	}
}

func TestLoadRetryIgnoresStaleTicks(t *testing.T) {
	t.Parallel()

	s, _ := Apply(newTestState(), SwitchSession{SessionID: "sess-2", LoadRequestID: "load-1"})

	// Tick from a superseded switch: wrong generation.
	_, effects := Apply(s, LoadRetryTick{LoadRequestID: "load-1", Generation: s.Generation - 1})
	if len(sentMessages(effects)) != 0 {
		t.Fatalf("stale generation tick must be discarded")
	}

	// Matching tick while still loading re-sends and re-arms.
	_, effects = Apply(s, LoadRetryTick{LoadRequestID: "load-1", Generation: s.Generation})
	msgs := sentMessages(effects)
	if len(msgs) != 1 || msgs[0].Type != protocol.MsgLoadSession {
		t.Fatalf("matching tick must re-send load_session, got %+v", msgs)
	}

	// A snapshot ends the round-trip; later ticks are no-ops.
	s, _ = Apply(s, snapshotEvent(nil, string(StatusReady), nil))
	_, effects = Apply(s, LoadRetryTick{LoadRequestID: "load-1", Generation: s.Generation})
	if len(sentMessages(effects)) != 0 {
		t.Fatalf("tick after snapshot delivery must be discarded")
	}
}

func TestRewindTimeoutStaleness(t *testing.T) {
	t.Parallel()

	s := newTestState()
	s.Status = StatusReady
	s.processAlive = true

	s, effects := Apply(s, RewindPreview{UserMessageID: "m1", Nonce: "n1"})
	msgs := sentMessages(effects)
	if len(msgs) != 1 || msgs[0].Type != protocol.MsgRewindFiles || !msgs[0].DryRun {
		t.Fatalf("expected a dry-run rewind_files message, got %+v", msgs)
	}

	// A newer preview supersedes the first; the old timeout must not fire.
	s, _ = Apply(s, RewindPreview{UserMessageID: "m2", Nonce: "n2"})
	after, _ := Apply(s, RewindTimeoutTick{Nonce: "n1", Generation: s.Generation})
	if after.Notice != "" {
		t.Fatalf("stale rewind timeout mutated state: %q", after.Notice)
	}

	after, _ = Apply(s, RewindTimeoutTick{Nonce: "n2", Generation: s.Generation})
	if after.Notice == "" {
		t.Fatalf("current rewind timeout must surface a notice")
	}
}
