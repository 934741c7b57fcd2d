// Package command parses and executes slash commands typed into the compose
// box. Commands translate into engine events; the package never touches the
// transport or the terminal directly.
package command

import (
	"skiff/internal/engine"
)

// Env provides adapter hooks so command execution stays UI-framework agnostic.
type Env struct {
	// State is a read-only snapshot of the current engine state.
	State engine.State

	// Dispatch feeds one event through the reconciliation engine.
	Dispatch func(ev engine.Event)

	// OpenSessionSelector opens the modal session picker.
	OpenSessionSelector func()

	// NewLoadRequestID and NewNonce mint correlation ids for round-trips.
	NewLoadRequestID func() string
	NewNonce         func() string

	GetInputValue func() string
	SetInputValue func(value string)

	AppendNotice func(text string)
	AppendError  func(errText string)
}

func (env Env) dispatch(ev engine.Event) {
	if env.Dispatch != nil {
		env.Dispatch(ev)
	}
}

func (env Env) notice(text string) {
	if env.AppendNotice != nil {
		env.AppendNotice(text)
	}
}

func (env Env) fail(errText string) {
	if env.AppendError != nil {
		env.AppendError(errText)
	}
}

func (env Env) getInput() string {
	if env.GetInputValue == nil {
		return ""
	}
	return env.GetInputValue()
}

func (env Env) setInput(value string) {
	if env.SetInputValue != nil {
		env.SetInputValue(value)
	}
}
