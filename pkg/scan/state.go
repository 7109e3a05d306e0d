package scan

// State is the controller's lifecycle state.
type State int

const (
	// StateIdle means no items are loaded or scanning was never started.
	StateIdle State = iota

	// StateScanning means the timer is armed and the cursor advances.
	StateScanning

	// StatePausedByLimit means the cycle limit was reached. The timer is
	// disarmed and the highlight is frozen on the first item until Resume.
	StatePausedByLimit

	// StateSuspended means an activation's effect is running
	// (speech, navigation or content generation) and the timer is disarmed.
	StateSuspended

	// StateListening means a voice adapter is capturing an utterance.
	StateListening
)

// String returns the wire name of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StatePausedByLimit:
		return "paused"
	case StateSuspended:
		return "suspended"
	case StateListening:
		return "listening"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state as its wire name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Snapshot is a point-in-time copy of the controller state.
type Snapshot struct {
	State       State  `json:"state"`
	CursorIndex int    `json:"cursor_index"`
	CycleCount  int    `json:"cycle_count"`
	CycleLimit  int    `json:"cycle_limit"`
	Items       []Item `json:"items"`
	Current     *Item  `json:"current,omitempty"`
}
