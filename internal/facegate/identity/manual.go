package identity

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"
	"time"
)

// ManualSource is the card-less debug path: identities are fed in by
// hand (stdin lines, a test) and served to Poll under the same max-age
// rule as the hardware reader.
type ManualSource struct {
	mu    sync.Mutex
	swipe Swipe
	now   func() time.Time
}

func NewManualSource() *ManualSource {
	return &ManualSource{now: time.Now}
}

// Offer records id as if a card had just been swiped.
func (s *ManualSource) Offer(id string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.swipe = Swipe{CardID: id, At: s.now()}
}

// Poll consumes the pending swipe: one swipe yields one claim.
func (s *ManualSource) Poll(maxAge time.Duration) (Swipe, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.swipe.CardID == "" {
		return Swipe{}, false
	}
	if maxAge > 0 && s.now().Sub(s.swipe.At) > maxAge {
		s.swipe = Swipe{}
		return Swipe{}, false
	}
	sw := s.swipe
	s.swipe = Swipe{}
	return sw, true
}

// ReadLines feeds newline-separated identities from r until ctx ends
// or r is exhausted. Intended for stdin in virtual mode.
func (s *ManualSource) ReadLines(ctx context.Context, r io.Reader) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}
		s.Offer(sc.Text())
	}
}
