package session

import "fmt"

// State represents the lifecycle state of a recognition session.
type State int

const (
	// StateOpen - session is active, updates are being merged.
	StateOpen State = iota
	// StateCompleted - session closed normally, transcript is final.
	StateCompleted
	// StateFailed - session ended on an error; the transcript holds the
	// last consistent state before the failure.
	StateFailed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateOpen:
		return "OPEN"
	case StateCompleted:
		return "COMPLETED"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(s))
	}
}

// IsTerminal returns true if the state is terminal.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}
