// Package capture is the video boundary of the edge device.
package capture

import (
	"context"
	"errors"
	"time"
)

// ErrCaptureFailed means the video source produced no frame. Unlike
// transport trouble this is fatal: no video means no further progress.
var ErrCaptureFailed = errors.New("capture: read failed")

// Frame is one captured image, JPEG-encoded, with its monotonically
// increasing sequence number.
type Frame struct {
	Sequence uint64
	JPEG     []byte
	TakenAt  time.Time
}

// Source produces frames for the capture loop. Read blocks until the
// next frame is available, the source fails, or ctx ends.
type Source interface {
	Read(ctx context.Context) (Frame, error)
	Close() error
}
