package session

// State is the controller state
type State int

const (
	StateIdle State = iota
	StateSending
	StateRetrying
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateRetrying:
		return "retrying"
	default:
		return "unknown"
	}
}
