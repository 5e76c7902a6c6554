package models

import "image"

// FilterAll is the class filter value that shows every detection.
const FilterAll = "All"

type Box struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X1, b.Y1, b.X2, b.Y2)
}

// Detection is one object instance found in a frame. TrackID is nil when the
// detector ran without tracking continuity.
type Detection struct {
	TrackID    *int64  `json:"track_id,omitempty"`
	Box        Box     `json:"box"`
	Confidence float32 `json:"confidence"`
	ClassIndex int     `json:"class"`
}

func (d Detection) Tracked() bool {
	return d.TrackID != nil
}
