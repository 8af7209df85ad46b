// ABOUTME: Playback instance state machine states
// ABOUTME: Terminal states mark an instance for reaping and exclude it from the mix
package engine

// State is the lifecycle state of a playback instance.
//
// Pending -> Playing <-> Paused -> Finished (end of clip, loop off)
// Stopped on explicit stop from any non-terminal state; Failed on
// decode error from any state. Finished, Stopped, and Failed are
// terminal.
type State int32

const (
	StatePending State = iota
	StatePlaying
	StatePaused
	StateFinished
	StateStopped
	StateFailed
)

// Terminal reports whether instances in this state are done for good.
func (s State) Terminal() bool {
	switch s {
	case StateFinished, StateStopped, StateFailed:
		return true
	}
	return false
}

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateFinished:
		return "finished"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
