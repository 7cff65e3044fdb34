package connection

// State represents the supervisor connection state.
type State uint8

const (
	// StateDisconnected indicates no active broker session.
	StateDisconnected State = iota

	// StateConnecting indicates a connection attempt is in progress.
	StateConnecting

	// StateSubscribed indicates an active session with the report topic
	// subscription established.
	StateSubscribed

	// StateDraining indicates a stop was requested while subscribed; the
	// in-flight message finishes, then the loop exits without reconnecting.
	StateDraining

	// StateStopped indicates the supervisor has exited. Terminal.
	StateStopped
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateSubscribed:
		return "SUBSCRIBED"
	case StateDraining:
		return "DRAINING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}
