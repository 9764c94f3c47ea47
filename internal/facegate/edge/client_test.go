package edge_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/facegate/facegate/internal/facegate/capture"
	"github.com/facegate/facegate/internal/facegate/edge"
	"github.com/facegate/facegate/internal/facegate/gate"
	"github.com/facegate/facegate/internal/facegate/identity"
	"github.com/facegate/facegate/internal/facegate/transport"
	"github.com/facegate/facegate/internal/facegate/types"
)

func testLogger() *log.Logger {
	return log.New(bytes.NewBuffer(nil), "", 0)
}

// fakeConn times out on receive unless a payload was queued, and
// records every send.
type fakeConn struct {
	mu    sync.Mutex
	sent  [][]byte
	recvs chan []byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{recvs: make(chan []byte, 16)}
}

func (c *fakeConn) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, payload)
	return nil
}

func (c *fakeConn) Recv(timeout time.Duration) ([]byte, error) {
	select {
	case p := <-c.recvs:
		return p, nil
	case <-time.After(timeout):
		return nil, transport.ErrTimeout
	}
}

func (c *fakeConn) uploads(t *testing.T) []types.FrameUpload {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.FrameUpload, 0, len(c.sent))
	for _, p := range c.sent {
		var up types.FrameUpload
		if err := json.Unmarshal(p, &up); err != nil {
			t.Fatalf("unmarshal upload: %v", err)
		}
		out = append(out, up)
	}
	return out
}

// fakeCapture produces a frame every interval, optionally failing
// after a fixed number of frames.
type fakeCapture struct {
	interval  time.Duration
	failAfter uint64 // 0 = never
	seq       uint64
}

func (f *fakeCapture) Read(ctx context.Context) (capture.Frame, error) {
	select {
	case <-ctx.Done():
		return capture.Frame{}, ctx.Err()
	case <-time.After(f.interval):
	}
	if f.failAfter > 0 && f.seq >= f.failAfter {
		return capture.Frame{}, capture.ErrCaptureFailed
	}
	f.seq++
	return capture.Frame{Sequence: f.seq, JPEG: []byte{0xff, 0xd8}, TakenAt: time.Now()}, nil
}

func (f *fakeCapture) Close() error { return nil }

type signalActuator struct {
	opened chan string
}

func (a *signalActuator) EmulateOpen(id string) error {
	select {
	case a.opened <- id:
	default:
	}
	return nil
}

func newTestClient(conn edge.Conn, cap capture.Source, cards identity.Source, act gate.Actuator, maxTimeouts int) *edge.Client {
	return edge.New(edge.Dependencies{
		Logger:                 testLogger(),
		Conn:                   conn,
		Capture:                cap,
		Cards:                  cards,
		Gate:                   gate.NewGateway(act, time.Minute, testLogger()),
		RecvTimeout:            10 * time.Millisecond,
		MaxConsecutiveTimeouts: maxTimeouts,
		CardMaxAge:             time.Second,
		MaxInFlightSends:       4,
	})
}

func TestRun_TimeoutBudgetExhausted_SessionDies(t *testing.T) {
	conn := newFakeConn()
	cli := newTestClient(conn, &fakeCapture{interval: time.Millisecond}, identity.NoCardSource{}, &signalActuator{opened: make(chan string, 1)}, 3)

	err := cli.Run(context.Background())
	if !errors.Is(err, edge.ErrSessionDead) {
		t.Fatalf("expected ErrSessionDead, got %v", err)
	}
}

func TestRun_CaptureFailure_IsFatal(t *testing.T) {
	conn := newFakeConn()
	cli := newTestClient(conn, &fakeCapture{interval: time.Millisecond, failAfter: 2}, identity.NoCardSource{}, &signalActuator{opened: make(chan string, 1)}, 1000)

	err := cli.Run(context.Background())
	if !errors.Is(err, capture.ErrCaptureFailed) {
		t.Fatalf("expected capture failure to end the session, got %v", err)
	}
}

func TestRun_CardSwipe_AttachesClaimToUploads(t *testing.T) {
	conn := newFakeConn()
	cards := identity.NewManualSource()
	cards.Offer("card-0007")

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	cli := newTestClient(conn, &fakeCapture{interval: time.Millisecond}, cards, &signalActuator{opened: make(chan string, 1)}, 1000)
	if err := cli.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	ups := conn.uploads(t)
	if len(ups) == 0 {
		t.Fatal("expected frames dispatched")
	}
	claimed := 0
	for _, up := range ups {
		if up.ClaimedIdentity != nil && *up.ClaimedIdentity == "card-0007" {
			claimed++
		}
	}
	if claimed == 0 {
		t.Error("expected the swiped card to ride along with the uploads")
	}
}

func TestRun_GateOpenStats_TriggerActuatorOnce(t *testing.T) {
	conn := newFakeConn()
	act := &signalActuator{opened: make(chan string, 2)}

	recognized := "card-0001"
	for n := 0; n < 2; n++ {
		payload, err := json.Marshal(types.SessionStats{
			Sequence:           uint64(n + 1),
			GateOpen:           true,
			RecognizedIdentity: &recognized,
			IdentityNames:      map[string]string{"card-0001": "Ada"},
		})
		if err != nil {
			t.Fatalf("marshal stats: %v", err)
		}
		conn.recvs <- payload
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cli := newTestClient(conn, &fakeCapture{interval: time.Millisecond}, identity.NoCardSource{}, act, 1000)

	done := make(chan error, 1)
	go func() { done <- cli.Run(ctx) }()

	select {
	case id := <-act.opened:
		if id != "card-0001" {
			t.Errorf("expected actuation for card-0001, got %s", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("actuator never fired on a gate-open message")
	}

	// The gateway's cooldown must swallow the duplicate open.
	select {
	case id := <-act.opened:
		t.Fatalf("duplicate open actuated the gate again for %s", id)
	case <-time.After(100 * time.Millisecond):
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
}
