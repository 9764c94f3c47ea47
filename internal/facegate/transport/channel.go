package transport

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	zmq "github.com/pebbe/zmq4"
)

var (
	ErrTimeout       = errors.New("transport: receive timed out")
	ErrSendQueueFull = errors.New("transport: send queue full")
	ErrClosed        = errors.New("transport: channel closed")
)

// pollInterval bounds how long the socket goroutine sits in the poller
// before servicing the send queue and the close signal, so a quiet
// link never delays an outbound frame by more than this.
const pollInterval = 20 * time.Millisecond

// queueDepth is the capacity of both the send and receive queues.
const queueDepth = 8

// Channel is one end of the duplex edge↔server link. A single
// goroutine owns the zmq socket (zmq sockets are not safe for
// concurrent use); Send and Recv talk to it through bounded queues, so
// a stalled receive never blocks a pending send and vice versa.
type Channel struct {
	logger *log.Logger
	sendQ  chan []byte
	recvQ  chan []byte

	closeOnce sync.Once
	closed    chan struct{}
	done      chan struct{}
}

// Dial connects a PAIR socket to addr. This is the edge side.
func Dial(addr string, logger *log.Logger) (*Channel, error) {
	sock, err := zmq.NewSocket(zmq.PAIR)
	if err != nil {
		return nil, fmt.Errorf("transport: new socket: %w", err)
	}
	if err := sock.Connect(addr); err != nil {
		_ = sock.Close()
		return nil, fmt.Errorf("transport: connect %s: %w", addr, err)
	}
	return newChannel(sock, logger), nil
}

// Listen binds a PAIR socket on addr. This is the server side.
func Listen(addr string, logger *log.Logger) (*Channel, error) {
	sock, err := zmq.NewSocket(zmq.PAIR)
	if err != nil {
		return nil, fmt.Errorf("transport: new socket: %w", err)
	}
	if err := sock.Bind(addr); err != nil {
		_ = sock.Close()
		return nil, fmt.Errorf("transport: bind %s: %w", addr, err)
	}
	return newChannel(sock, logger), nil
}

func newChannel(sock *zmq.Socket, logger *log.Logger) *Channel {
	c := &Channel{
		logger: logger,
		sendQ:  make(chan []byte, queueDepth),
		recvQ:  make(chan []byte, queueDepth),
		closed: make(chan struct{}),
		done:   make(chan struct{}),
	}
	go c.run(sock)
	return c
}

// Send queues payload for delivery. It never blocks: when the queue is
// saturated the payload is dropped and ErrSendQueueFull returned.
func (c *Channel) Send(payload []byte) error {
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}
	select {
	case c.sendQ <- payload:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Recv waits up to timeout for one inbound payload. A timeout is
// non-fatal; callers count consecutive timeouts and decide when the
// session is dead.
func (c *Channel) Recv(timeout time.Duration) ([]byte, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case payload, ok := <-c.recvQ:
		if !ok {
			return nil, ErrClosed
		}
		return payload, nil
	case <-timer.C:
		return nil, ErrTimeout
	}
}

// Close stops the socket goroutine and releases the socket. Safe to
// call more than once.
func (c *Channel) Close() {
	c.closeOnce.Do(func() { close(c.closed) })
	<-c.done
}

// run owns the socket for its whole lifetime, alternating between
// draining the send queue and polling for inbound traffic.
func (c *Channel) run(sock *zmq.Socket) {
	defer close(c.done)
	defer func() { _ = sock.Close() }()
	defer close(c.recvQ)

	poller := zmq.NewPoller()
	poller.Add(sock, zmq.POLLIN)

	for {
		select {
		case <-c.closed:
			return
		case payload := <-c.sendQ:
			if _, err := sock.SendBytes(payload, zmq.DONTWAIT); err != nil {
				// Peer gone or HWM reached: the frame is dropped, the
				// next one will try again.
				c.logger.Printf("transport: send failed: %v", err)
			}
			continue
		default:
		}

		polled, err := poller.Poll(pollInterval)
		if err != nil {
			c.logger.Printf("transport: poll: %v", err)
			continue
		}
		if len(polled) == 0 {
			continue
		}

		payload, err := sock.RecvBytes(0)
		if err != nil {
			c.logger.Printf("transport: recv: %v", err)
			continue
		}

		select {
		case c.recvQ <- payload:
		default:
			// Receiver is behind. Only the latest message matters, so
			// evict the oldest to make room.
			select {
			case <-c.recvQ:
			default:
			}
			select {
			case c.recvQ <- payload:
			default:
			}
		}
	}
}
