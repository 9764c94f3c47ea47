// Package server runs the decision side of the authorization session:
// one long-lived duplex endpoint receiving frame uploads and answering
// each with the session stats.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/facegate/facegate/internal/facegate/service"
	"github.com/facegate/facegate/internal/facegate/transport"
	"github.com/facegate/facegate/internal/facegate/types"
)

// ErrSessionDead means the bounded consecutive-timeout budget was
// exhausted. The server does not reconnect; restarting the session is
// an operational concern.
var ErrSessionDead = errors.New("server: consecutive receive timeouts exhausted")

// Conn is the subset of the transport channel the serve loop needs.
type Conn interface {
	Recv(timeout time.Duration) ([]byte, error)
	Send(payload []byte) error
}

type Dependencies struct {
	Logger                 *log.Logger
	BindAddr               string
	Session                *service.SessionService
	RecvTimeout            time.Duration
	MaxConsecutiveTimeouts int
}

type Server struct {
	logger      *log.Logger
	bindAddr    string
	session     *service.SessionService
	recvTimeout time.Duration
	maxTimeouts int
}

func New(d Dependencies) *Server {
	if d.RecvTimeout <= 0 {
		d.RecvTimeout = time.Second
	}
	if d.MaxConsecutiveTimeouts <= 0 {
		d.MaxConsecutiveTimeouts = 100
	}
	return &Server{
		logger:      d.Logger,
		bindAddr:    d.BindAddr,
		session:     d.Session,
		recvTimeout: d.RecvTimeout,
		maxTimeouts: d.MaxConsecutiveTimeouts,
	}
}

// Run binds the endpoint and serves until ctx is cancelled or the
// timeout budget runs out.
func (s *Server) Run(ctx context.Context) error {
	ch, err := transport.Listen(s.bindAddr, s.logger)
	if err != nil {
		return err
	}
	defer ch.Close()

	s.logger.Printf("listening on %s", s.bindAddr)
	return s.Serve(ctx, ch)
}

// Serve is Run minus the socket setup; tests drive it with a fake
// conn. Per-tick errors are logged and skipped; only cancellation or
// timeout exhaustion ends the loop.
func (s *Server) Serve(ctx context.Context, conn Conn) error {
	timeouts := 0

	for {
		if ctx.Err() != nil {
			return nil
		}

		payload, err := conn.Recv(s.recvTimeout)
		switch {
		case errors.Is(err, transport.ErrTimeout):
			timeouts++
			s.logger.Printf("recv timeout, retries: [%3d/%3d]", timeouts, s.maxTimeouts)
			if timeouts >= s.maxTimeouts {
				return ErrSessionDead
			}
			continue
		case errors.Is(err, transport.ErrClosed):
			return nil
		case err != nil:
			s.logger.Printf("recv: %v", err)
			continue
		}
		timeouts = 0

		var up types.FrameUpload
		if err := json.Unmarshal(payload, &up); err != nil {
			s.logger.Printf("bad frame payload: %v", err)
			continue
		}

		stats := s.session.HandleFrame(ctx, up)

		reply, err := json.Marshal(stats)
		if err != nil {
			s.logger.Printf("marshal stats %d: %v", stats.Sequence, err)
			continue
		}
		if err := conn.Send(reply); err != nil {
			// The edge only cares about the latest stats; drop and
			// move on.
			s.logger.Printf("send stats %d: %v", stats.Sequence, err)
		}
	}
}
