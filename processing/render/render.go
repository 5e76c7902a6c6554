// Package render draws detection annotations onto frames.
package render

import (
	"fmt"
	"image"
	"image/color"

	"go.uber.org/zap"
	xdraw "golang.org/x/image/draw"

	"trackview/internal/logger"
	"trackview/internal/models"
	"trackview/internal/registry"
)

const labelOffsetY = 20

var (
	BoxColor  = color.RGBA{255, 0, 0, 255}
	TextColor = color.RGBA{255, 255, 255, 255}
)

// Resize scales src into a new RGBA image of w x h.
func Resize(src image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}

// Matches reports whether a class name passes the filter.
func Matches(name, filter string) bool {
	return filter == models.FilterAll || name == filter
}

// Label formats the annotation text of a detection.
func Label(det models.Detection, className string) string {
	if det.TrackID != nil {
		return fmt.Sprintf("id:%d %s %.2f", *det.TrackID, className, det.Confidence)
	}
	return fmt.Sprintf("%s %.2f", className, det.Confidence)
}

type Annotation struct {
	Detection models.Detection
	ClassName string
	Text      string
}

type Renderer struct {
	Thickness int
}

func NewRenderer() *Renderer {
	return &Renderer{Thickness: 1}
}

// Select resolves class names and returns the detections passing filter, in
// input order.
func Select(dets []models.Detection, classes registry.ClassList, filter string) []Annotation {
	var out []Annotation
	for _, det := range dets {
		name, ok := classes.Name(det.ClassIndex)
		if !ok {
			logger.Log().Warn("class index out of range",
				zap.Int("class", det.ClassIndex), zap.Int("classes", len(classes)))
		}
		if !Matches(name, filter) {
			continue
		}
		out = append(out, Annotation{Detection: det, ClassName: name, Text: Label(det, name)})
	}
	return out
}

// Draw annotates frame in place and returns what was drawn.
func (r *Renderer) Draw(frame *image.RGBA, dets []models.Detection, classes registry.ClassList, filter string) []Annotation {
	annotations := Select(dets, classes, filter)
	for _, a := range annotations {
		box := a.Detection.Box
		drawRect(frame, box.Rect(), r.Thickness, BoxColor)
		textRect(frame, a.Text, image.Pt(box.X1, box.Y1+labelOffsetY), 1, TextColor, BoxColor)
	}
	return annotations
}
