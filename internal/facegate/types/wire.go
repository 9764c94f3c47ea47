package types

// Rect is an axis-aligned bounding box in pixel coordinates.
type Rect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// FrameUpload is the edge→server message: one captured frame plus the
// identity (if any) the edge currently claims is attempting entry.
type FrameUpload struct {
	Sequence        uint64  `json:"sequence"`
	Image           []byte  `json:"image"` // JPEG bytes, base64 on the wire
	ClaimedIdentity *string `json:"claimed_identity,omitempty"`
}

// TallyEntry is one ranked candidate in a frame's tally.
type TallyEntry struct {
	Identity string `json:"identity"`
	Count    int    `json:"count"`
}

// SessionStats is the server→edge message carrying everything the edge
// needs to actuate and display: the ranked candidate tally for the
// frame, face geometry, resolved names, and the gate decision.
type SessionStats struct {
	Sequence           uint64            `json:"sequence"`
	CandidateTally     []TallyEntry      `json:"candidate_tally"`
	BoundingBoxes      []Rect            `json:"bounding_boxes"`
	PrimaryBoundingBox *Rect             `json:"primary_bounding_box,omitempty"`
	IdentityNames      map[string]string `json:"identity_names,omitempty"`
	GateOpen           bool              `json:"gate_open"`
	RecognizedIdentity *string           `json:"recognized_identity,omitempty"`
	AuthorizedIdentity *string           `json:"authorized_identity,omitempty"`
	ConsecutiveCount   int               `json:"consecutive_count"`
}
