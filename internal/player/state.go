package player

// State is a user's position in the session protocol state machine. Commands
// are routed based on the sender's current state and every externally
// visible transition is pushed to the user's bound connection.
type State int

const (
	StateOffline State = iota
	StateIdle
	StateChallengeIssued
	StateChallenged
	StateInGame
)

func (s State) String() string {
	switch s {
	case StateOffline:
		return "OFFLINE"
	case StateIdle:
		return "IDLE"
	case StateChallengeIssued:
		return "CHALLENGE_ISSUED"
	case StateChallenged:
		return "CHALLENGED"
	case StateInGame:
		return "IN_GAME"
	}
	return "UNKNOWN"
}
