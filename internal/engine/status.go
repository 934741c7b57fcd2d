// Package engine implements the message and session reconciliation core: a
// pure, synchronous state-transition function that keeps the local
// conversation view consistent with the backend's authoritative event stream.
// The engine never performs I/O; outbound traffic, logging, and timers are
// returned as effects for the driver to execute.
package engine

// SessionStatus is the agent process lifecycle phase. Exactly one phase is
// active at a time.
type SessionStatus string

const (
	StatusIdle     SessionStatus = "idle"
	StatusLoading  SessionStatus = "loading"
	StatusStarting SessionStatus = "starting"
	StatusReady    SessionStatus = "ready"
	StatusRunning  SessionStatus = "running"
	StatusStopping SessionStatus = "stopping"
)

// ParseSessionStatus maps a wire status token to a phase, defaulting to ready
// for unknown tokens so a newer backend cannot wedge the client in loading.
func ParseSessionStatus(token string) SessionStatus {
	switch SessionStatus(token) {
	case StatusIdle, StatusLoading, StatusStarting, StatusReady, StatusRunning, StatusStopping:
		return SessionStatus(token)
	default:
		return StatusReady
	}
}

// runningAdjacent reports whether the phase belongs to an active turn.
func runningAdjacent(s SessionStatus) bool {
	return s == StatusStarting || s == StatusRunning || s == StatusStopping
}
