// Package edge runs the gate-side half of the authorization session:
// a capture loop that keeps dispatching frames regardless of network
// latency, and a receive loop that folds the server's stats back into
// the client state and actuates the gate.
package edge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/facegate/facegate/internal/facegate/capture"
	"github.com/facegate/facegate/internal/facegate/dispatch"
	"github.com/facegate/facegate/internal/facegate/gate"
	"github.com/facegate/facegate/internal/facegate/identity"
	"github.com/facegate/facegate/internal/facegate/transport"
	"github.com/facegate/facegate/internal/facegate/types"
)

// ErrSessionDead means the receive loop exhausted its consecutive-
// timeout budget. The client does not reconnect.
var ErrSessionDead = errors.New("edge: consecutive receive timeouts exhausted")

// idleLogEvery is how many face-less frames pass between idle log
// lines.
const idleLogEvery = 100

// Conn is the subset of the transport channel the client needs.
type Conn interface {
	Send(payload []byte) error
	Recv(timeout time.Duration) ([]byte, error)
}

type Dependencies struct {
	Logger  *log.Logger
	Conn    Conn
	Capture capture.Source
	Cards   identity.Source
	Gate    *gate.Gateway

	RecvTimeout            time.Duration
	MaxConsecutiveTimeouts int
	CardMaxAge             time.Duration
	MaxInFlightSends       int
}

// Client owns the edge session. The capture loop is the only writer of
// the claimed identity (fed by card polls); the receive loop is the
// only writer of the server stats; both share one mutex.
type Client struct {
	logger      *log.Logger
	conn        Conn
	capture     capture.Source
	cards       identity.Source
	gate        *gate.Gateway
	recvTimeout time.Duration
	maxTimeouts int
	cardMaxAge  time.Duration
	maxInFlight int

	mu         sync.Mutex
	claimed    *string
	claimedSeq uint64
	lastStats  *types.SessionStats
	recvErr    error
}

func New(d Dependencies) *Client {
	if d.RecvTimeout <= 0 {
		d.RecvTimeout = time.Second
	}
	if d.MaxConsecutiveTimeouts <= 0 {
		d.MaxConsecutiveTimeouts = 100
	}
	if d.CardMaxAge <= 0 {
		d.CardMaxAge = time.Second
	}
	return &Client{
		logger:      d.Logger,
		conn:        d.Conn,
		capture:     d.Capture,
		cards:       d.Cards,
		gate:        d.Gate,
		recvTimeout: d.RecvTimeout,
		maxTimeouts: d.MaxConsecutiveTimeouts,
		cardMaxAge:  d.CardMaxAge,
		maxInFlight: d.MaxInFlightSends,
	}
}

// Run drives the session until ctx is cancelled, the receive loop
// exhausts its timeout budget, or the video source dies. In-flight
// sends are allowed to finish; they are fire-and-forget.
func (c *Client) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	recvDone := make(chan struct{})
	go func() {
		defer close(recvDone)
		defer cancel()
		c.recvLoop(ctx)
	}()

	dispatcher := dispatch.New(c.conn, c.maxInFlight, c.logger)
	defer dispatcher.Wait()

	start := time.Now()
	var frames uint64
	var idleBegin time.Time

	for ctx.Err() == nil {
		frame, err := c.capture.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			// No video source means no further progress.
			cancel()
			<-recvDone
			return fmt.Errorf("edge: %w", err)
		}
		frames++

		claimed := c.pollCard(frame.Sequence)

		dispatcher.Dispatch(types.FrameUpload{
			Sequence:        frame.Sequence,
			Image:           frame.JPEG,
			ClaimedIdentity: claimed,
		})

		c.noteIdle(frames, start, &idleBegin)
	}

	<-recvDone

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recvErr
}

// pollCard returns the current claimed identity, reading the card
// source when no claim is pending.
func (c *Client) pollCard(sequence uint64) *string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.claimed != nil {
		return c.claimed
	}
	sw, ok := c.cards.Poll(c.cardMaxAge)
	if !ok {
		return nil
	}
	id := sw.CardID
	c.claimed = &id
	c.claimedSeq = sequence
	c.logger.Printf("card swipe: %s", id)
	return c.claimed
}

// recvLoop consumes server stats until cancellation or timeout
// exhaustion, counting consecutive timeouts so an operator can see
// network loss as it develops.
func (c *Client) recvLoop(ctx context.Context) {
	timeouts := 0

	for ctx.Err() == nil {
		payload, err := c.conn.Recv(c.recvTimeout)
		switch {
		case errors.Is(err, transport.ErrTimeout):
			timeouts++
			c.logger.Printf("recv timeout, retries: [%3d/%3d]", timeouts, c.maxTimeouts)
			if timeouts >= c.maxTimeouts {
				c.mu.Lock()
				c.recvErr = ErrSessionDead
				c.mu.Unlock()
				return
			}
			continue
		case errors.Is(err, transport.ErrClosed):
			return
		case err != nil:
			c.logger.Printf("recv: %v", err)
			continue
		}
		timeouts = 0

		var stats types.SessionStats
		if err := json.Unmarshal(payload, &stats); err != nil {
			c.logger.Printf("bad stats payload: %v", err)
			continue
		}
		c.apply(stats)
	}
}

// apply folds one stats message into the client state and actuates on
// an open decision.
func (c *Client) apply(stats types.SessionStats) {
	c.mu.Lock()
	switch {
	case stats.AuthorizedIdentity != nil:
		// Adopt the server's view of the authorized identity.
		c.claimed = stats.AuthorizedIdentity
	case c.claimed != nil && stats.Sequence >= c.claimedSeq:
		// The server has seen our claim and cleared it (episode over
		// or card withdrawn). A reply to an older frame cannot clear a
		// swipe the server never saw.
		c.claimed = nil
		c.claimedSeq = 0
	}
	c.lastStats = &stats
	c.mu.Unlock()

	if stats.GateOpen && stats.RecognizedIdentity != nil {
		id := *stats.RecognizedIdentity
		c.logger.Printf("OPEN: %s %s", stats.IdentityNames[id], id)
		c.gate.OnDecision(types.GateDecision{
			Open:      true,
			Identity:  id,
			Timestamp: time.Now().UTC(),
		})
	}
}

// noteIdle tracks how long no primary face has been visible and logs
// idle time plus frame rate at a low cadence.
func (c *Client) noteIdle(frames uint64, start time.Time, idleBegin *time.Time) {
	c.mu.Lock()
	stats := c.lastStats
	c.mu.Unlock()

	if stats == nil || stats.PrimaryBoundingBox != nil {
		*idleBegin = time.Time{}
		return
	}
	if idleBegin.IsZero() {
		*idleBegin = time.Now()
	}
	if frames%idleLogEvery == 0 {
		fps := float64(frames) / time.Since(start).Seconds()
		c.logger.Printf("no face detected for %.0fs, fps=%.1f", time.Since(*idleBegin).Seconds(), fps)
	}
}

// Snapshot returns the latest stats the server sent, if any.
func (c *Client) Snapshot() *types.SessionStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastStats
}
