// Package cvcapture opens capture sources through OpenCV.
package cvcapture

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"trackview/internal/config"
	"trackview/processing/capture"
)

type VideoSource struct {
	vc  *gocv.VideoCapture
	mat gocv.Mat
}

func Open(spec capture.SourceSpec) (*VideoSource, error) {
	var (
		vc  *gocv.VideoCapture
		err error
	)

	switch spec.Kind {
	case config.SourceWebcam:
		vc, err = gocv.OpenVideoCapture(spec.DeviceID)
	case config.SourceLocal:
		vc, err = gocv.VideoCaptureFile(spec.Path)
	default:
		return nil, fmt.Errorf("unknown source: %s", spec.Kind)
	}
	if err != nil {
		return nil, err
	}

	return &VideoSource{vc: vc, mat: gocv.NewMat()}, nil
}

func (s *VideoSource) Read() (image.Image, error) {
	if ok := s.vc.Read(&s.mat); !ok || s.mat.Empty() {
		return nil, capture.ErrEndOfStream
	}

	img, err := s.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", capture.ErrEndOfStream, err)
	}
	return img, nil
}

func (s *VideoSource) Close() error {
	s.mat.Close()
	return s.vc.Close()
}

// NewOpener picks the capture backend named in the config.
func NewOpener(cfg *config.Config) capture.Opener {
	if cfg.CaptureBackend == config.BackendFFmpeg {
		return func(spec capture.SourceSpec) (capture.Source, error) {
			switch spec.Kind {
			case config.SourceWebcam:
				return capture.OpenFFmpegWebcam(spec.DeviceName, cfg.GetFPS(), cfg.GetWidth(), cfg.GetHeight())
			case config.SourceLocal:
				return capture.OpenFFmpegFile(spec.Path, 0)
			default:
				return nil, fmt.Errorf("unknown source: %s", spec.Kind)
			}
		}
	}

	return func(spec capture.SourceSpec) (capture.Source, error) {
		return Open(spec)
	}
}
