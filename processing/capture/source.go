package capture

import (
	"errors"
	"fmt"
	"image"

	"trackview/internal/config"
)

var (
	ErrEndOfStream = errors.New("end of stream")
	ErrNotOpen     = errors.New("no source open")
)

// Source is one open video handle. Read blocks until the next frame is
// decoded and returns ErrEndOfStream once nothing more can be read.
type Source interface {
	Read() (image.Image, error)
	Close() error
}

// Opener creates a Source for a spec.
type Opener func(spec SourceSpec) (Source, error)

type SourceSpec struct {
	Kind       config.SourceType
	DeviceID   int
	DeviceName string
	Path       string
}

func Webcam(deviceID int, deviceName string) SourceSpec {
	return SourceSpec{Kind: config.SourceWebcam, DeviceID: deviceID, DeviceName: deviceName}
}

func File(path string) SourceSpec {
	return SourceSpec{Kind: config.SourceLocal, Path: path}
}

func (s SourceSpec) String() string {
	switch s.Kind {
	case config.SourceWebcam:
		return fmt.Sprintf("webcam:%d", s.DeviceID)
	case config.SourceLocal:
		return "file:" + s.Path
	default:
		return string(s.Kind)
	}
}
