package dispatch_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/facegate/facegate/internal/facegate/dispatch"
	"github.com/facegate/facegate/internal/facegate/types"
)

func testLogger() *log.Logger {
	return log.New(bytes.NewBuffer(nil), "", 0)
}

// recordingSender captures every payload it is handed.
type recordingSender struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (s *recordingSender) Send(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads = append(s.payloads, payload)
	return nil
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payloads)
}

// stalledSender blocks every send until released.
type stalledSender struct {
	release chan struct{}
}

func (s *stalledSender) Send([]byte) error {
	<-s.release
	return nil
}

func TestDispatch_EncodesFrameUpload(t *testing.T) {
	sender := &recordingSender{}
	d := dispatch.New(sender, 2, testLogger())

	claimed := "card-42"
	d.Dispatch(types.FrameUpload{
		Sequence:        7,
		Image:           []byte{0xff, 0xd8},
		ClaimedIdentity: &claimed,
	})
	d.Wait()

	if got := sender.count(); got != 1 {
		t.Fatalf("expected 1 send, got %d", got)
	}

	var up types.FrameUpload
	if err := json.Unmarshal(sender.payloads[0], &up); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if up.Sequence != 7 {
		t.Errorf("expected sequence 7, got %d", up.Sequence)
	}
	if up.ClaimedIdentity == nil || *up.ClaimedIdentity != "card-42" {
		t.Errorf("expected claimed identity card-42, got %v", up.ClaimedIdentity)
	}
}

func TestDispatch_AtCap_DropsInsteadOfBlocking(t *testing.T) {
	sender := &stalledSender{release: make(chan struct{})}
	d := dispatch.New(sender, 2, testLogger())

	// Two dispatches occupy both slots; the rest must be shed without
	// delaying the caller.
	start := time.Now()
	for seq := uint64(1); seq <= 10; seq++ {
		d.Dispatch(types.FrameUpload{Sequence: seq})
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("dispatch blocked the capture path for %s", elapsed)
	}

	if dropped := d.Dropped(); dropped != 8 {
		t.Errorf("expected 8 dropped frames, got %d", dropped)
	}

	close(sender.release)
	d.Wait()

	if sent := d.Sent(); sent != 2 {
		t.Errorf("expected 2 sent frames, got %d", sent)
	}
}

func TestDispatch_SendFailure_IsNonFatalAndNotCounted(t *testing.T) {
	d := dispatch.New(failingSender{}, 1, testLogger())

	d.Dispatch(types.FrameUpload{Sequence: 1})
	d.Wait()

	if sent := d.Sent(); sent != 0 {
		t.Errorf("expected 0 sent frames after failure, got %d", sent)
	}
	// The slot must be free again for the next frame.
	d.Dispatch(types.FrameUpload{Sequence: 2})
	d.Wait()
	if dropped := d.Dropped(); dropped != 0 {
		t.Errorf("expected no drops, got %d", dropped)
	}
}

type failingSender struct{}

func (failingSender) Send([]byte) error { return errors.New("wire down") }
