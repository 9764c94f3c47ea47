// Package session holds the authorization state machine: the per-
// identity confidence accumulation that turns noisy per-frame
// recognition results into a single gate-open decision per episode.
package session

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/facegate/facegate/internal/facegate/types"
)

// Config tunes the machine. Zero values fall back to the defaults the
// gate has always run with.
type Config struct {
	// RequiredConsecutive is how many contiguous ticks the same
	// identity must top the tally before the gate opens. Default 30.
	RequiredConsecutive int

	// Cooldown suppresses further open decisions after one is emitted,
	// protecting the actuator from duplicate triggers. Default 3s.
	Cooldown time.Duration

	// Now replaces the wall clock in tests.
	Now func() time.Time
}

// Machine accumulates per-frame recognition outcomes and decides when
// the gate opens. One mutex guards every session field: Observe (the
// receive/aggregation path) is the only writer of the recognition
// bookkeeping, and the card-identity path synchronizes on the same
// lock so a swipe can never land mid-evaluation.
type Machine struct {
	cfg    Config
	logger *log.Logger
	now    func() time.Time

	mu            sync.Mutex
	recognized    *string
	authorized    *string
	consecutive   int
	lastSequence  uint64
	haveSequence  bool
	cooldownUntil time.Time
}

func New(cfg Config, logger *log.Logger) *Machine {
	if cfg.RequiredConsecutive <= 0 {
		cfg.RequiredConsecutive = 30
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 3 * time.Second
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Machine{cfg: cfg, logger: logger, now: now}
}

// Observe folds one frame's qualified top candidate into the session
// and reports whether this tick opens the gate. top is nil when the
// frame contributed no candidate (no face detected, or the tally's top
// fell below the threshold). Replaying the frame sequence last seen is
// a no-op, so duplicate delivery cannot double-increment the counter.
//
// The consecutive counter increments only while the same identity
// stays on top. No face resets it to zero. A flip between two
// different identities also resets to zero and clears the candidate:
// both identities are distrusted until one of them holds again on the
// following tick. A sustained run is the primary anti-spoof control,
// so a single lucky frame can never open the gate.
func (m *Machine) Observe(sequence uint64, top *string) (types.GateDecision, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.haveSequence && sequence == m.lastSequence {
		return types.GateDecision{}, false
	}
	m.lastSequence = sequence
	m.haveSequence = true

	switch {
	case top == nil:
		// Absence of a face is not "same identity repeated".
		m.recognized = nil
		m.consecutive = 0
	case m.recognized != nil && *top == *m.recognized:
		m.consecutive++
	case m.recognized == nil:
		id := *top
		m.recognized = &id
		m.consecutive = 1
	default:
		m.recognized = nil
		m.consecutive = 0
	}

	if m.recognized == nil || m.consecutive < m.cfg.RequiredConsecutive {
		return types.GateDecision{}, false
	}
	// Card present: card and face must agree from the tick the card
	// was supplied onward. Card absent: pure-face mode, the run length
	// alone decides.
	if m.authorized != nil && *m.authorized != *m.recognized {
		return types.GateDecision{}, false
	}

	now := m.now()
	if now.Before(m.cooldownUntil) {
		// Bookkeeping above still ran; only the emission is suppressed.
		return types.GateDecision{}, false
	}

	decision := types.GateDecision{
		EpisodeID: uuid.NewString(),
		Open:      true,
		Identity:  *m.recognized,
		Timestamp: now,
	}

	// The episode is over: reset the session and arm the cooldown.
	m.recognized = nil
	m.authorized = nil
	m.consecutive = 0
	m.cooldownUntil = now.Add(m.cfg.Cooldown)

	m.logger.Printf("session: open for %s (episode %s)", decision.Identity, decision.EpisodeID)
	return decision, true
}

// SetAuthorizedIdentity records the card-derived identity supplied by
// the reader (or the manual debug source). It does not touch the
// consecutive counter: agreement with the face candidate is required
// from this tick forward, never retroactively.
func (m *Machine) SetAuthorizedIdentity(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.authorized != nil && *m.authorized == id {
		return
	}
	m.authorized = &id
	m.logger.Printf("session: authorized identity set to %s", id)
}

// ClearAuthorizedIdentity forgets the card identity, e.g. when the
// card is withdrawn.
func (m *Machine) ClearAuthorizedIdentity() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.authorized = nil
}

// Reset returns the session to its initial state. Used when the
// connection is re-established; the cooldown is deliberately kept, a
// reconnect must not let the actuator re-fire early.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recognized = nil
	m.authorized = nil
	m.consecutive = 0
	m.haveSequence = false
}

// Snapshot returns a consistent view of the session for reply building
// and display. No partially-updated state is ever visible.
func (m *Machine) Snapshot() types.SessionSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := types.SessionSnapshot{ConsecutiveCount: m.consecutive}
	if m.recognized != nil {
		id := *m.recognized
		snap.RecognizedIdentity = &id
	}
	if m.authorized != nil {
		id := *m.authorized
		snap.AuthorizedIdentity = &id
	}
	switch {
	case m.now().Before(m.cooldownUntil):
		snap.Phase = types.PhaseAuthorized
	case snap.RecognizedIdentity != nil || snap.AuthorizedIdentity != nil:
		snap.Phase = types.PhasePending
	default:
		snap.Phase = types.PhaseIdle
	}
	return snap
}
