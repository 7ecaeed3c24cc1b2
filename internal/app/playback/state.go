package playback

// State represents the playback state of a session.
type State int

const (
	StateIdle    State = iota // Nothing playing
	StatePlaying              // A stream is running
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	default:
		return "unknown"
	}
}

// StateOf derives the state from the current handle.
func StateOf(h Handle) State {
	if h == nil || h.Finished() {
		return StateIdle
	}
	return StatePlaying
}
