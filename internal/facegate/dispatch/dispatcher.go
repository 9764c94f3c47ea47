// Package dispatch decouples the capture cadence from network latency:
// frame uploads are fired on their own goroutines, capped at a small
// number in flight, and dropped (not queued) when the cap is reached.
package dispatch

import (
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"

	"github.com/facegate/facegate/internal/facegate/types"
)

// DefaultMaxInFlight is the in-flight send cap when none is configured.
const DefaultMaxInFlight = 4

// Sender is the transport operation a dispatcher needs.
type Sender interface {
	Send(payload []byte) error
}

// Dispatcher fires frame uploads at the transport without ever making
// the capture loop wait.
type Dispatcher struct {
	sender Sender
	logger *log.Logger
	slots  chan struct{}
	wg     sync.WaitGroup

	sent    atomic.Uint64
	dropped atomic.Uint64
}

func New(sender Sender, maxInFlight int, logger *log.Logger) *Dispatcher {
	if maxInFlight <= 0 {
		maxInFlight = DefaultMaxInFlight
	}
	return &Dispatcher{
		sender: sender,
		logger: logger,
		slots:  make(chan struct{}, maxInFlight),
	}
}

// Dispatch encodes and sends one frame upload asynchronously. It
// returns immediately; when all in-flight slots are taken the frame is
// dropped and counted. A failed send is logged and the frame is lost,
// which is harmless: only the latest frame matters to the server.
func (d *Dispatcher) Dispatch(frame types.FrameUpload) {
	select {
	case d.slots <- struct{}{}:
	default:
		if n := d.dropped.Add(1); n == 1 || n%100 == 0 {
			d.logger.Printf("dispatch: in-flight cap reached, %d frames dropped so far", n)
		}
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() { <-d.slots }()

		payload, err := json.Marshal(frame)
		if err != nil {
			d.logger.Printf("dispatch: marshal frame %d: %v", frame.Sequence, err)
			return
		}
		if err := d.sender.Send(payload); err != nil {
			d.logger.Printf("dispatch: send frame %d: %v", frame.Sequence, err)
			return
		}
		d.sent.Add(1)
	}()
}

// Sent reports how many uploads reached the transport.
func (d *Dispatcher) Sent() uint64 { return d.sent.Load() }

// Dropped reports how many uploads were shed at the in-flight cap.
func (d *Dispatcher) Dropped() uint64 { return d.dropped.Load() }

// Wait blocks until every in-flight send has completed or failed.
// In-flight sends are never cancelled; they are fire-and-forget.
func (d *Dispatcher) Wait() { d.wg.Wait() }
