package tui

import (
	"encoding/json"
	"strings"
	"testing"

	"skiff/internal/engine"
	"skiff/internal/protocol"
)

func linesOf(st engine.State) string {
	return strings.Join(buildTimelineLines(st, ResolveTheme("dark")), "\n")
}

func TestBuildTimelineLinesRendersSources(t *testing.T) {
	t.Parallel()

	st := engine.NewState("s1", engine.Settings{})
	st.Timeline = []engine.ChatMessage{
		{ID: "u1", Source: engine.SourceUser, Text: "read the config loader"},
		{ID: "a1-0", Source: engine.SourceAgent, Block: &protocol.ContentBlock{Type: "text", Text: "Looking at it now."}},
		{ID: "a1-1", Source: engine.SourceAgent, Block: &protocol.ContentBlock{
			Type:  "tool_use",
			ID:    "tool-1",
			Name:  "Read",
			Input: json.RawMessage(`{"path":"config.go"}`),
		}},
	}

	out := linesOf(st)
	if !strings.Contains(out, "read the config loader") {
		t.Fatalf("user text missing:\n%s", out)
	}
	if !strings.Contains(out, "Looking at it now.") {
		t.Fatalf("agent text missing:\n%s", out)
	}
	if !strings.Contains(out, "Read") || !strings.Contains(out, `{"path":"config.go"}`) {
		t.Fatalf("tool call missing:\n%s", out)
	}
}

func TestBuildTimelineLinesMarksQueuedPositions(t *testing.T) {
	t.Parallel()

	st := engine.NewState("s1", engine.Settings{})
	for _, id := range []string{"m1", "m2"} {
		st, _ = engine.Apply(st, engine.WireEvent{Event: protocol.Event{
			Type:     protocol.EventMessageStateChanged,
			ID:       id,
			NewState: "ACCEPTED",
			UserMessage: &protocol.TimelineMessage{
				ID:     id,
				Source: "user",
				Text:   "queued " + id,
			},
		}})
	}

	out := linesOf(st)
	if !strings.Contains(out, "[queued #1]") || !strings.Contains(out, "[queued #2]") {
		t.Fatalf("queue markers missing:\n%s", out)
	}
	if strings.Index(out, "[queued #1]") > strings.Index(out, "[queued #2]") {
		t.Fatalf("queue markers out of order:\n%s", out)
	}
}

func TestBuildTimelineLinesShowsPendingSendsInSubmitOrder(t *testing.T) {
	t.Parallel()

	st := engine.NewState("s1", engine.Settings{})
	st, _ = engine.Apply(st, engine.SubmitMessage{ID: "p2", Text: "second", Now: 20})
	st, _ = engine.Apply(st, engine.SubmitMessage{ID: "p1", Text: "first", Now: 10})

	out := linesOf(st)
	first := strings.Index(out, "first")
	second := strings.Index(out, "second")
	if first < 0 || second < 0 {
		t.Fatalf("pending sends missing:\n%s", out)
	}
	if first > second {
		t.Fatalf("pending sends not in submit order:\n%s", out)
	}
	if !strings.Contains(out, "[sending]") {
		t.Fatalf("sending marker missing:\n%s", out)
	}
}

func TestBuildTimelineLinesShowsThinking(t *testing.T) {
	t.Parallel()

	st := engine.NewState("s1", engine.Settings{})
	st.Thinking = "weighing two approaches"

	out := linesOf(st)
	if !strings.Contains(out, "weighing two approaches") {
		t.Fatalf("thinking text missing:\n%s", out)
	}
}

func TestTimelineScrollClampsToContent(t *testing.T) {
	t.Parallel()

	st := engine.NewState("s1", engine.Settings{})
	for i := 0; i < 30; i++ {
		st.Timeline = append(st.Timeline, engine.ChatMessage{
			ID:     engine.BlockID("msg", i),
			Source: engine.SourceUser,
			Text:   "line",
		})
	}

	var tl TimelineModel
	tl.SetViewportHeight(10)
	_ = tl.Render(st, 80, ResolveTheme("dark"))

	tl.ScrollUp(1000)
	if tl.scrollTop != 0 {
		t.Fatalf("scrollTop = %d, want 0 after overscroll up", tl.scrollTop)
	}
	tl.ScrollDown(1000)
	if tl.scrollTop != 20 {
		t.Fatalf("scrollTop = %d, want 20 after overscroll down", tl.scrollTop)
	}
}
