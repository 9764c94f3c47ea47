package gate

import (
	"bytes"
	"errors"
	"log"
	"testing"
	"time"

	"github.com/facegate/facegate/internal/facegate/types"
)

func testLogger() *log.Logger {
	return log.New(bytes.NewBuffer(nil), "", 0)
}

type countingActuator struct {
	calls []string
	err   error
}

func (a *countingActuator) EmulateOpen(identity string) error {
	a.calls = append(a.calls, identity)
	return a.err
}

func openDecision(id string) types.GateDecision {
	return types.GateDecision{Open: true, Identity: id, Timestamp: time.Now()}
}

func TestOnDecision_Open_TriggersActuatorOnce(t *testing.T) {
	act := &countingActuator{}
	g := NewGateway(act, 3*time.Second, testLogger())

	g.OnDecision(openDecision("alice"))
	g.OnDecision(openDecision("alice")) // camera jitter replay
	g.OnDecision(openDecision("bob"))   // different identity, same window

	if len(act.calls) != 1 {
		t.Fatalf("expected exactly 1 actuation inside the cooldown, got %d", len(act.calls))
	}
	if act.calls[0] != "alice" {
		t.Errorf("expected alice, got %s", act.calls[0])
	}
}

func TestOnDecision_AfterCooldown_FiresAgain(t *testing.T) {
	act := &countingActuator{}
	g := NewGateway(act, 3*time.Second, testLogger())

	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return base }
	g.OnDecision(openDecision("alice"))

	g.now = func() time.Time { return base.Add(4 * time.Second) }
	g.OnDecision(openDecision("bob"))

	if len(act.calls) != 2 {
		t.Fatalf("expected 2 actuations across cooldown windows, got %d", len(act.calls))
	}
	if g.Opens() != 2 {
		t.Errorf("expected opens=2, got %d", g.Opens())
	}
}

func TestOnDecision_NotOpen_Ignored(t *testing.T) {
	act := &countingActuator{}
	g := NewGateway(act, time.Second, testLogger())

	g.OnDecision(types.GateDecision{Open: false, Identity: "alice"})
	if len(act.calls) != 0 {
		t.Fatalf("closed decision must not actuate, got %d calls", len(act.calls))
	}
}

func TestOnDecision_ActuatorFailure_IsSwallowed(t *testing.T) {
	act := &countingActuator{err: errors.New("relay stuck")}
	g := NewGateway(act, time.Second, testLogger())

	// Must not panic and must still count the attempt window.
	g.OnDecision(openDecision("alice"))
	if g.Opens() != 1 {
		t.Errorf("expected the attempt recorded, got %d", g.Opens())
	}
}
