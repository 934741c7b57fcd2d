package command

import (
	"fmt"
	"strconv"
	"strings"

	"skiff/internal/engine"
)

// Execute parses and handles one slash command.
func Execute(content string, env Env) {
	parts := strings.Fields(strings.TrimSpace(content))
	if len(parts) == 0 {
		return
	}
	name := strings.TrimPrefix(parts[0], "/")
	args := parts[1:]

	switch name {
	case "help":
		env.notice(strings.Join([]string{
			"Slash commands:",
			"/help",
			"/stop",
			"/sessions",
			"/switch <session-id>",
			"/thinking on [max-tokens] | off",
			"/plan on | off",
			"/model <name>",
			"/rewind <user-message-id>",
			"/remove <queued-message-id>",
			"/retry",
			"/queue",
		}, "\n"))

	case "stop":
		if env.State.Status != engine.StatusRunning {
			env.fail("nothing is running")
			return
		}
		env.dispatch(engine.RequestStop{})

	case "sessions":
		env.dispatch(engine.RequestSessions{})
		if env.OpenSessionSelector != nil {
			env.OpenSessionSelector()
		}

	case "switch":
		if len(args) != 1 {
			env.fail("usage: /switch <session-id>")
			return
		}
		target := strings.TrimSpace(args[0])
		if target == env.State.SessionID {
			env.notice("Already on session " + target + ".")
			return
		}
		env.dispatch(engine.SwitchSession{
			SessionID:     target,
			LoadRequestID: env.NewLoadRequestID(),
		})
		env.notice("Loading session " + target + "…")

	case "thinking":
		if len(args) == 0 {
			env.fail("usage: /thinking on [max-tokens] | off")
			return
		}
		switch strings.ToLower(args[0]) {
		case "on":
			maxTokens := 0
			if len(args) > 1 {
				parsed, err := strconv.Atoi(args[1])
				if err != nil || parsed < 0 {
					env.fail("usage: /thinking on [max-tokens]")
					return
				}
				maxTokens = parsed
			}
			env.dispatch(engine.SetThinking{Enabled: true, MaxTokens: maxTokens})
			env.notice("Extended thinking enabled.")
		case "off":
			env.dispatch(engine.SetThinking{Enabled: false})
			env.notice("Extended thinking disabled.")
		default:
			env.fail("usage: /thinking on [max-tokens] | off")
		}

	case "plan":
		if len(args) != 1 {
			env.fail("usage: /plan on | off")
			return
		}
		switch strings.ToLower(args[0]) {
		case "on":
			env.dispatch(engine.SetPlanMode{Enabled: true})
			env.notice("Plan mode enabled.")
		case "off":
			env.dispatch(engine.SetPlanMode{Enabled: false})
			env.notice("Plan mode disabled.")
		default:
			env.fail("usage: /plan on | off")
		}

	case "model":
		if len(args) == 0 {
			current := strings.TrimSpace(env.State.Settings.SelectedModel)
			if current == "" {
				current = "default"
			}
			env.notice("Model: " + current)
			return
		}
		model := strings.TrimSpace(strings.Join(args, " "))
		env.dispatch(engine.SetModel{Name: model})
		env.notice("Model set to " + model + ". Applies to the next turn.")

	case "rewind":
		if len(args) != 1 {
			env.fail("usage: /rewind <user-message-id>")
			return
		}
		id := strings.TrimSpace(args[0])
		if idx := timelinePosition(env.State, id); idx < 0 {
			env.fail("unknown message id: " + id)
			return
		}
		env.dispatch(engine.RewindPreview{UserMessageID: id, Nonce: env.NewNonce()})
		env.notice("Previewing file rewind to " + id + "…")

	case "remove":
		if len(args) != 1 {
			env.fail("usage: /remove <queued-message-id>")
			return
		}
		id := strings.TrimSpace(args[0])
		if _, queued := env.State.Queued[id]; !queued {
			env.fail("message is not queued: " + id)
			return
		}
		env.dispatch(engine.RemoveQueued{ID: id})

	case "retry":
		rejected := env.State.LastRejected
		if rejected == nil {
			env.fail("no rejected message to retry")
			return
		}
		text := rejected.Text
		if current := strings.TrimSpace(env.getInput()); current != "" {
			text = text + "\n\n" + current
		}
		env.setInput(text)
		env.notice("Restored rejected message to input.")

	case "queue":
		ids := env.State.QueuedIDs()
		if len(ids) == 0 {
			env.notice("No queued messages.")
			return
		}
		lines := make([]string, 0, len(ids)+1)
		lines = append(lines, "Queued messages:")
		for i, id := range ids {
			queued := env.State.Queued[id]
			lines = append(lines, fmt.Sprintf("  %d. %s  %s", i+1, id, firstLine(queued.Text)))
		}
		env.notice(strings.Join(lines, "\n"))

	default:
		env.fail("unknown slash command: /" + name)
	}
}

func timelinePosition(st engine.State, id string) int {
	for i := range st.Timeline {
		if st.Timeline[i].ID == id {
			return i
		}
	}
	return -1
}

func firstLine(text string) string {
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		return text[:idx]
	}
	return text
}
