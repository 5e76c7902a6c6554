// Package onnx runs YOLOv8 ONNX detectors through the OpenCV DNN module.
package onnx

import (
	"fmt"
	"image"
	"os"

	"gocv.io/x/gocv"

	"trackview/processing/tracker"
)

type Config struct {
	ConfidenceThresh float32
	NMSThresh        float32
	InputSize        int
}

func DefaultConfig() Config {
	return Config{
		ConfidenceThresh: 0.4,
		NMSThresh:        0.45,
		InputSize:        640,
	}
}

// Model is a YOLOv8 detector. With a tracker attached it emits tracked rows,
// otherwise untracked rows.
type Model struct {
	net     gocv.Net
	cfg     Config
	tracker *tracker.Tracker
}

func New(path string, cfg Config, tr *tracker.Tracker) (*Model, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}

	net := gocv.ReadNetFromONNX(path)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load YOLO model from %s", path)
	}

	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return nil, err
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return nil, err
	}

	return &Model{net: net, cfg: cfg, tracker: tr}, nil
}

func (m *Model) Infer(frame image.Image) ([][]float32, error) {
	img, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	defer img.Close()

	size := image.Pt(m.cfg.InputSize, m.cfg.InputSize)
	blob := gocv.BlobFromImage(img, 1.0/255.0, size, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	m.net.SetInput(blob, "")
	output := m.net.Forward("")
	defer output.Close()

	objects, err := m.parse(output, float32(img.Cols()), float32(img.Rows()))
	if err != nil {
		return nil, err
	}

	if m.tracker == nil {
		rows := make([][]float32, 0, len(objects))
		for _, o := range objects {
			rows = append(rows, []float32{
				float32(o.Rect.Min.X), float32(o.Rect.Min.Y),
				float32(o.Rect.Max.X), float32(o.Rect.Max.Y),
				o.Prob, float32(o.Class),
			})
		}
		return rows, nil
	}

	tracks := m.tracker.Update(objects)
	rows := make([][]float32, 0, len(tracks))
	for _, t := range tracks {
		rows = append(rows, []float32{
			float32(t.Rect.Min.X), float32(t.Rect.Min.Y),
			float32(t.Rect.Max.X), float32(t.Rect.Max.Y),
			float32(t.ID), t.Prob, float32(t.Class),
		})
	}
	return rows, nil
}

// parse decodes a [1, 4+classes, anchors] YOLOv8 output and applies NMS.
func (m *Model) parse(output gocv.Mat, imgW, imgH float32) ([]tracker.Object, error) {
	dims := output.Size()
	if len(dims) != 3 || dims[1] <= 4 {
		return nil, fmt.Errorf("unexpected output shape %v", dims)
	}
	attrs, anchors := dims[1], dims[2]

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, err
	}

	scaleX := imgW / float32(m.cfg.InputSize)
	scaleY := imgH / float32(m.cfg.InputSize)

	var (
		boxes   []image.Rectangle
		scores  []float32
		classes []int
	)

	for i := 0; i < anchors; i++ {
		best, cls := float32(0), 0
		for c := 4; c < attrs; c++ {
			if s := data[c*anchors+i]; s > best {
				best, cls = s, c-4
			}
		}
		if best < m.cfg.ConfidenceThresh {
			continue
		}

		cx := data[0*anchors+i]
		cy := data[1*anchors+i]
		w := data[2*anchors+i]
		h := data[3*anchors+i]

		boxes = append(boxes, image.Rect(
			int((cx-w/2)*scaleX), int((cy-h/2)*scaleY),
			int((cx+w/2)*scaleX), int((cy+h/2)*scaleY),
		))
		scores = append(scores, best)
		classes = append(classes, cls)
	}

	if len(boxes) == 0 {
		return nil, nil
	}

	indices := gocv.NMSBoxes(boxes, scores, m.cfg.ConfidenceThresh, m.cfg.NMSThresh)

	objects := make([]tracker.Object, 0, len(indices))
	for _, idx := range indices {
		objects = append(objects, tracker.Object{
			Rect:  boxes[idx],
			Class: classes[idx],
			Prob:  scores[idx],
		})
	}
	return objects, nil
}

// Reset clears track identities.
func (m *Model) Reset() {
	if m.tracker != nil {
		m.tracker.Reset()
	}
}

func (m *Model) Close() error {
	return m.net.Close()
}
