package recognize

import (
	"context"

	"github.com/facegate/facegate/internal/facegate/types"
)

// Candidate is one ranked directory match for a detected face.
type Candidate struct {
	Identity string
	Score    float64 // similarity, higher is closer
}

// Face is one detection in a frame: its bounding box and a ranked,
// best-first list of at most K candidate identities.
type Face struct {
	Box        types.Rect
	Candidates []Candidate
}

// Result is the recognition pipeline's output for a single frame.
type Result struct {
	Faces []Face
}

// Recognizer is the boundary to the external face-recognition
// pipeline. A failed call is recoverable: the caller treats it as "no
// faces detected" for that tick.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (Result, error)
}

// Func adapts a plain function to the Recognizer interface.
type Func func(ctx context.Context, image []byte) (Result, error)

func (f Func) Recognize(ctx context.Context, image []byte) (Result, error) {
	return f(ctx, image)
}

// Nop is a Recognizer that never detects a face. It stands in while no
// pipeline is configured, leaving the session permanently idle.
type Nop struct{}

func (Nop) Recognize(context.Context, []byte) (Result, error) {
	return Result{}, nil
}
