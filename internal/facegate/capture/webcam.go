package capture

import (
	"context"
	"fmt"
	"time"

	"gocv.io/x/gocv"
)

// Webcam captures from /dev/video<N> via OpenCV. Each frame is
// mirrored horizontally (people line up against a mirror image) and
// JPEG-encoded, the format the recognition server expects.
type Webcam struct {
	dev *gocv.VideoCapture
	mat gocv.Mat
	seq uint64
}

func OpenWebcam(device int) (*Webcam, error) {
	dev, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("capture: open /dev/video%d: %w", device, err)
	}

	w := &Webcam{dev: dev, mat: gocv.NewMat()}

	// Probe one frame so a dead camera fails at startup rather than
	// mid-session.
	if ok := dev.Read(&w.mat); !ok || w.mat.Empty() {
		_ = w.Close()
		return nil, fmt.Errorf("capture: probe /dev/video%d: %w", device, ErrCaptureFailed)
	}
	return w, nil
}

func (w *Webcam) Read(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	if ok := w.dev.Read(&w.mat); !ok || w.mat.Empty() {
		return Frame{}, ErrCaptureFailed
	}
	gocv.Flip(w.mat, &w.mat, 1)

	buf, err := gocv.IMEncode(".jpg", w.mat)
	if err != nil {
		return Frame{}, fmt.Errorf("capture: encode: %w", err)
	}
	defer buf.Close()

	w.seq++
	return Frame{
		Sequence: w.seq,
		JPEG:     append([]byte(nil), buf.GetBytes()...),
		TakenAt:  time.Now().UTC(),
	}, nil
}

func (w *Webcam) Close() error {
	w.mat.Close()
	return w.dev.Close()
}
