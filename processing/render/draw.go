package render

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

func drawRect(img *image.RGBA, r image.Rectangle, thickness int, col color.Color) {
	bounds := img.Bounds()

	setPixel := func(x, y int) {
		if x >= bounds.Min.X && x < bounds.Max.X && y >= bounds.Min.Y && y < bounds.Max.Y {
			img.Set(x, y, col)
		}
	}

	x1, y1, x2, y2 := r.Min.X, r.Min.Y, r.Max.X, r.Max.Y
	for t := 0; t < thickness; t++ {
		for x := x1; x <= x2; x++ {
			setPixel(x, y1+t)
			setPixel(x, y2-t)
		}
		for y := y1; y <= y2; y++ {
			setPixel(x1+t, y)
			setPixel(x2-t, y)
		}
	}
}

var labelFace font.Face = basicfont.Face7x13

// textRect draws text on a filled box whose bottom-left corner sits at org,
// padded by offset pixels on each side.
func textRect(img *image.RGBA, text string, org image.Point, offset int, fg, bg color.Color) image.Rectangle {
	d := &font.Drawer{Dst: img, Src: image.NewUniform(fg), Face: labelFace}
	width := d.MeasureString(text).Ceil()
	metrics := labelFace.Metrics()
	ascent := metrics.Ascent.Ceil()
	descent := metrics.Descent.Ceil()

	box := image.Rect(
		org.X-offset, org.Y-ascent-offset,
		org.X+width+offset, org.Y+descent+offset,
	).Intersect(img.Bounds())

	draw.Draw(img, box, image.NewUniform(bg), image.Point{}, draw.Src)

	d.Dot = fixed.P(org.X, org.Y)
	d.DrawString(text)
	return box
}
