package engine

import (
	"time"

	"skiff/internal/protocol"
)

// Effect is an instruction for the driver. The transition function is pure;
// everything with a side effect comes out as one of these.
type Effect interface {
	isEffect()
}

// SendEffect asks the driver to transmit one wire message.
type SendEffect struct {
	Message protocol.Message
}

// LogEffect asks the driver to emit a debug log line. Used for protocol
// desync (unknown ids, impossible transitions), which is expected and never
// fatal.
type LogEffect struct {
	Message string
	ID      string
	Detail  string
}

// RestoreComposeEffect asks the driver to put rejected input back into the
// compose box along with the backend's error text.
type RestoreComposeEffect struct {
	Text        string
	Attachments []protocol.Attachment
	Error       string
}

// ScheduleLoadRetry arms the load_session retry timer.
type ScheduleLoadRetry struct {
	LoadRequestID string
	Generation    uint64
	After         time.Duration
}

// ScheduleRewindTimeout arms the rewind preview guard timer.
type ScheduleRewindTimeout struct {
	Nonce      string
	Generation uint64
	After      time.Duration
}

func (SendEffect) isEffect()            {}
func (LogEffect) isEffect()             {}
func (RestoreComposeEffect) isEffect()  {}
func (ScheduleLoadRetry) isEffect()     {}
func (ScheduleRewindTimeout) isEffect() {}
