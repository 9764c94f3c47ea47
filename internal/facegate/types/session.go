package types

import "time"

// SessionPhase is the coarse state of the authorization session.
type SessionPhase int

const (
	PhaseIdle SessionPhase = iota
	PhasePending
	PhaseAuthorized
)

func (p SessionPhase) String() string {
	switch p {
	case PhasePending:
		return "pending"
	case PhaseAuthorized:
		return "authorized"
	default:
		return "idle"
	}
}

// GateDecision is the outcome of one authorization episode. At most
// one open decision is produced per episode; the cooldown suppresses
// any further open decisions until it elapses.
type GateDecision struct {
	EpisodeID string
	Open      bool
	Identity  string
	Timestamp time.Time
}

// SessionSnapshot is a consistent view of the session fields, safe to
// read while the receive path keeps advancing the state.
type SessionSnapshot struct {
	Phase              SessionPhase
	RecognizedIdentity *string
	AuthorizedIdentity *string
	ConsecutiveCount   int
}
