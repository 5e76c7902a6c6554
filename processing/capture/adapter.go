package capture

import (
	"errors"
	"fmt"
	"image"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"trackview/internal/logger"
)

// Adapter keeps at most one Source open and gives it a uniform
// open/read/release lifecycle. It is not safe for concurrent use.
type Adapter struct {
	open Opener

	src      Source
	spec     SourceSpec
	handleID uuid.UUID
}

func NewAdapter(open Opener) *Adapter {
	return &Adapter{open: open}
}

// Open releases the current handle, if any, and opens spec.
func (a *Adapter) Open(spec SourceSpec) error {
	a.Release()

	src, err := a.open(spec)
	if err != nil {
		return fmt.Errorf("open %s: %w", spec, err)
	}

	a.src = src
	a.spec = spec
	a.handleID = uuid.New()

	logger.Log().Info("source opened",
		zap.Stringer("source", spec),
		zap.Stringer("handle", a.handleID),
	)
	return nil
}

func (a *Adapter) Read() (image.Image, error) {
	if a.src == nil {
		return nil, ErrNotOpen
	}

	img, err := a.src.Read()
	if err != nil {
		if errors.Is(err, ErrEndOfStream) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrEndOfStream, err)
	}
	if img == nil {
		return nil, ErrEndOfStream
	}
	return img, nil
}

// Release closes the current handle. Calling it without a handle is a no-op.
func (a *Adapter) Release() {
	if a.src == nil {
		return
	}

	if err := a.src.Close(); err != nil {
		logger.Log().Warn("source close failed", zap.Stringer("handle", a.handleID), zap.Error(err))
	} else {
		logger.Log().Info("source released", zap.Stringer("handle", a.handleID))
	}

	a.src = nil
	a.spec = SourceSpec{}
	a.handleID = uuid.Nil
}

func (a *Adapter) IsOpen() bool { return a.src != nil }

// HandleID identifies the open handle; uuid.Nil when closed.
func (a *Adapter) HandleID() uuid.UUID { return a.handleID }

func (a *Adapter) Spec() SourceSpec { return a.spec }
