package service

import (
	"context"
	"log"

	"github.com/facegate/facegate/internal/facegate/recognize"
	"github.com/facegate/facegate/internal/facegate/session"
	"github.com/facegate/facegate/internal/facegate/store"
	"github.com/facegate/facegate/internal/facegate/types"
)

// SessionService turns one uploaded frame into a stats reply: run the
// recognition pipeline, fold the result into the candidate tally,
// advance the authorization machine, and resolve display names.
type SessionService struct {
	recognizer recognize.Recognizer
	aggregator *recognize.Aggregator
	machine    *session.Machine
	directory  store.DirectoryStore
	logger     *log.Logger
}

func NewSessionService(
	rec recognize.Recognizer,
	agg *recognize.Aggregator,
	m *session.Machine,
	dir store.DirectoryStore,
	logger *log.Logger,
) *SessionService {
	return &SessionService{
		recognizer: rec,
		aggregator: agg,
		machine:    m,
		directory:  dir,
		logger:     logger,
	}
}

// HandleFrame processes one frame upload. Per-tick failures never
// propagate: a broken recognition call reads as "no faces detected"
// and the reply is built from whatever state remains.
func (s *SessionService) HandleFrame(ctx context.Context, up types.FrameUpload) types.SessionStats {
	// A claimed identity takes effect from this tick forward.
	if up.ClaimedIdentity != nil && *up.ClaimedIdentity != "" {
		s.machine.SetAuthorizedIdentity(*up.ClaimedIdentity)
	}

	res, err := s.recognizer.Recognize(ctx, up.Image)
	if err != nil {
		s.logger.Printf("session: recognize frame %d: %v", up.Sequence, err)
		res = recognize.Result{}
	}

	tally, primary, boxes := s.aggregator.Aggregate(res)

	var top *string
	if id, ok := s.aggregator.Qualify(tally); ok {
		top = &id
	}

	decision, open := s.machine.Observe(up.Sequence, top)
	snap := s.machine.Snapshot()

	stats := types.SessionStats{
		Sequence:           up.Sequence,
		CandidateTally:     tally.Entries,
		BoundingBoxes:      boxes,
		PrimaryBoundingBox: primary,
		GateOpen:           open,
		RecognizedIdentity: snap.RecognizedIdentity,
		AuthorizedIdentity: snap.AuthorizedIdentity,
		ConsecutiveCount:   snap.ConsecutiveCount,
	}
	if open {
		// The session has already reset; the reply still credits the
		// identity the decision named so the edge can actuate.
		id := decision.Identity
		stats.RecognizedIdentity = &id
	}
	stats.IdentityNames = s.resolveNames(ctx, stats)

	return stats
}

// resolveNames looks up display names for every identity the reply
// mentions. Directory trouble degrades to an empty map; names are
// presentation only.
func (s *SessionService) resolveNames(ctx context.Context, stats types.SessionStats) map[string]string {
	seen := make(map[string]struct{}, len(stats.CandidateTally)+2)
	ids := make([]string, 0, len(stats.CandidateTally)+2)

	add := func(id string) {
		if id == "" {
			return
		}
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	for _, e := range stats.CandidateTally {
		add(e.Identity)
	}
	if stats.RecognizedIdentity != nil {
		add(*stats.RecognizedIdentity)
	}
	if stats.AuthorizedIdentity != nil {
		add(*stats.AuthorizedIdentity)
	}
	if len(ids) == 0 {
		return nil
	}

	names, err := s.directory.Names(ctx, ids)
	if err != nil {
		s.logger.Printf("session: resolve names: %v", err)
		return nil
	}
	return names
}
