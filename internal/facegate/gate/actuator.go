// Package gate applies gate-open decisions to the physical actuator.
package gate

import (
	"log"
	"sync"
	"time"

	"github.com/facegate/facegate/internal/facegate/types"
)

// Actuator is the hardware collaborator. EmulateOpen is best-effort;
// no contract beyond the error is assumed.
type Actuator interface {
	EmulateOpen(identity string) error
}

// LogActuator stands in for the hardware: it records the open instead
// of pulsing the gate. Used in virtual mode and wherever the real
// driver is not wired in.
type LogActuator struct {
	Logger *log.Logger
}

func (a LogActuator) EmulateOpen(identity string) error {
	a.Logger.Printf("gate: emulate open for %s", identity)
	return nil
}

// Gateway wraps the actuator with its own cooldown latch so a
// duplicated or delayed open message can never re-trigger the
// hardware, independently of the server's cooldown.
type Gateway struct {
	actuator Actuator
	cooldown time.Duration
	logger   *log.Logger
	now      func() time.Time

	mu            sync.Mutex
	cooldownUntil time.Time
	opens         uint64
}

func NewGateway(a Actuator, cooldown time.Duration, logger *log.Logger) *Gateway {
	if cooldown <= 0 {
		cooldown = 3 * time.Second
	}
	return &Gateway{actuator: a, cooldown: cooldown, logger: logger, now: time.Now}
}

// OnDecision triggers the actuator for an open decision unless the
// gate is cooling down. Actuator failures are logged and swallowed;
// the session loop must never die because a relay misfired.
func (g *Gateway) OnDecision(d types.GateDecision) {
	if !d.Open {
		return
	}

	g.mu.Lock()
	now := g.now()
	if now.Before(g.cooldownUntil) {
		g.mu.Unlock()
		g.logger.Printf("gate: cooldown active, ignoring open for %s", d.Identity)
		return
	}
	g.cooldownUntil = now.Add(g.cooldown)
	g.opens++
	g.mu.Unlock()

	if err := g.actuator.EmulateOpen(d.Identity); err != nil {
		g.logger.Printf("gate: actuator failed for %s: %v", d.Identity, err)
	}
}

// Opens reports how many times the actuator has been triggered.
func (g *Gateway) Opens() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.opens
}
