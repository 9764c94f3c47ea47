package recognize

import (
	"sort"

	"github.com/facegate/facegate/internal/facegate/types"
)

// Tally is the ranked occurrence count of candidate identities for one
// frame's primary face. It is rebuilt per frame and never persists
// across gate-open events.
type Tally struct {
	// Entries is ordered count-descending; ties go to the identity
	// whose most recent appearance in the ranked match list is later.
	Entries []types.TallyEntry
}

func (t Tally) Empty() bool { return len(t.Entries) == 0 }

// Top returns the highest-count identity, if any.
func (t Tally) Top() (string, bool) {
	if len(t.Entries) == 0 {
		return "", false
	}
	return t.Entries[0].Identity, true
}

// Aggregator folds one frame's recognition result into a candidate
// tally and qualifies the frame's contribution against the occurrence
// threshold.
type Aggregator struct {
	topK         int
	thresholdPct int
}

func NewAggregator(topK, thresholdPct int) *Aggregator {
	if topK <= 0 {
		topK = 100
	}
	if thresholdPct <= 0 || thresholdPct > 100 {
		thresholdPct = 50
	}
	return &Aggregator{topK: topK, thresholdPct: thresholdPct}
}

// Aggregate builds the tally for the frame's primary face (the largest
// detection) and reports the face geometry. Secondary faces contribute
// boxes for display only, never candidates. Zero faces yields an empty
// tally and a nil primary box.
func (a *Aggregator) Aggregate(res Result) (Tally, *types.Rect, []types.Rect) {
	boxes := make([]types.Rect, 0, len(res.Faces))
	for _, f := range res.Faces {
		boxes = append(boxes, f.Box)
	}

	primary := primaryFace(res.Faces)
	if primary == nil {
		return Tally{}, nil, boxes
	}

	matches := primary.Candidates
	if len(matches) > a.topK {
		matches = matches[:a.topK]
	}

	counts := make(map[string]int, len(matches))
	lastSeen := make(map[string]int, len(matches))
	for i, m := range matches {
		counts[m.Identity]++
		lastSeen[m.Identity] = i
	}

	entries := make([]types.TallyEntry, 0, len(counts))
	for id, n := range counts {
		entries = append(entries, types.TallyEntry{Identity: id, Count: n})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return lastSeen[entries[i].Identity] > lastSeen[entries[j].Identity]
	})

	box := primary.Box
	return Tally{Entries: entries}, &box, boxes
}

// Qualify returns the identity this frame contributes to the session:
// the tally's top candidate, provided it holds at least thresholdPct
// percent of the matches considered. Below the threshold the frame
// contributes nothing ("no-match" for this tick).
func (a *Aggregator) Qualify(t Tally) (string, bool) {
	if len(t.Entries) == 0 {
		return "", false
	}
	total := 0
	for _, e := range t.Entries {
		total += e.Count
	}
	top := t.Entries[0]
	if top.Count*100 < a.thresholdPct*total {
		return "", false
	}
	return top.Identity, true
}

// primaryFace picks the largest detection, the face closest to the
// camera.
func primaryFace(faces []Face) *Face {
	var best *Face
	bestArea := -1
	for i := range faces {
		area := faces[i].Box.W * faces[i].Box.H
		if area > bestArea {
			best = &faces[i]
			bestArea = area
		}
	}
	return best
}
