// Package detector turns raw model output into normalized detections.
//
// Models exchange results as rows of float32 values in one of two shapes:
//
//	x1, y1, x2, y2, trackID, confidence, class   (tracked)
//	x1, y1, x2, y2, confidence, class            (untracked)
//
// Invoker is the only place that interprets the row shape.
package detector

import "image"

const (
	TrackedRowLen   = 7
	UntrackedRowLen = 6
)

// Model runs inference on one frame.
type Model interface {
	Infer(frame image.Image) ([][]float32, error)
	Close() error
}

// Resetter is implemented by models that keep per-stream state, such as
// track identities.
type Resetter interface {
	Reset()
}

// Loader opens the model stored under path; name is the user-facing model
// identifier.
type Loader func(name, path string) (Model, error)
