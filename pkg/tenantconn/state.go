package tenantconn

// State is the lifecycle state of a tenant connection. Transitions are
// applied synchronously at I/O completion points rather than through
// transport callbacks, so the current state is always the result of the last
// completed operation.
type State string

const (
	// StateConnecting means a dial is in flight; callers wait for it.
	StateConnecting State = "connecting"
	// StateConnected means the connection is live and usable.
	StateConnected State = "connected"
	// StateDisconnected means the connection was closed deliberately.
	StateDisconnected State = "disconnected"
	// StateError means the last dial or operation failed; the next access
	// replaces the connection.
	StateError State = "error"
)

func (s State) String() string { return string(s) }

// transitions is the set of legal state changes for a single connection
// object. A replaced connection starts over as a fresh object in
// StateConnecting, so there is no edge out of the terminal states.
var transitions = map[State][]State{
	StateConnecting: {StateConnected, StateError},
	StateConnected:  {StateDisconnected, StateError},
}

func canTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
