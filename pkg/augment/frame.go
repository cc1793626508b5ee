package augment

import (
	"image"
	"math"

	"github.com/menta2k/yolo-augment/pkg/types"
)

// PixelBox is a box in pixel coordinates of the current frame.
// Visibility is the fraction of the box that has stayed inside the frame
// across all stages so far.
type PixelBox struct {
	X0, Y0, X1, Y1 float64
	Class          int
	Visibility     float64
}

// Area returns the box area in pixels
func (b PixelBox) Area() float64 {
	w, h := b.X1-b.X0, b.Y1-b.Y0
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// clip restricts the box to a w x h frame and scales visibility by the
// fraction of area that remained.
func (b PixelBox) clip(w, h float64) PixelBox {
	full := b.Area()
	c := b
	c.X0 = clamp(b.X0, 0, w)
	c.Y0 = clamp(b.Y0, 0, h)
	c.X1 = clamp(b.X1, 0, w)
	c.Y1 = clamp(b.Y1, 0, h)
	if full > 0 {
		c.Visibility *= c.Area() / full
	} else {
		c.Visibility = 0
	}
	return c
}

// Frame is the mutable state threaded through one attempt
type Frame struct {
	Image *image.NRGBA
	Boxes []PixelBox
}

func newFrame(img *image.NRGBA, labels []types.Label) *Frame {
	f := &Frame{Image: img, Boxes: make([]PixelBox, 0, len(labels))}
	w, h := f.size()
	for _, l := range labels {
		b := PixelBox{
			X0:         (l.Box.CX - l.Box.W/2) * w,
			Y0:         (l.Box.CY - l.Box.H/2) * h,
			X1:         (l.Box.CX + l.Box.W/2) * w,
			Y1:         (l.Box.CY + l.Box.H/2) * h,
			Class:      l.Class,
			Visibility: 1,
		}
		f.Boxes = append(f.Boxes, b.clip(w, h))
	}
	return f
}

func (f *Frame) size() (float64, float64) {
	b := f.Image.Bounds()
	return float64(b.Dx()), float64(b.Dy())
}

// remapBoxes moves every box corner through fn, replaces each box with the
// axis-aligned hull of its corners and clips it to the current frame.
// Call it after the frame image has been replaced.
func (f *Frame) remapBoxes(fn func(x, y float64) (float64, float64)) {
	w, h := f.size()
	for i, b := range f.Boxes {
		corners := [4][2]float64{{b.X0, b.Y0}, {b.X1, b.Y0}, {b.X0, b.Y1}, {b.X1, b.Y1}}
		minX, minY := math.Inf(1), math.Inf(1)
		maxX, maxY := math.Inf(-1), math.Inf(-1)
		for _, c := range corners {
			x, y := fn(c[0], c[1])
			minX, maxX = math.Min(minX, x), math.Max(maxX, x)
			minY, maxY = math.Min(minY, y), math.Max(maxY, y)
		}
		moved := PixelBox{X0: minX, Y0: minY, X1: maxX, Y1: maxY, Class: b.Class, Visibility: b.Visibility}
		f.Boxes[i] = moved.clip(w, h)
	}
}

// Labels renormalizes the boxes against the current frame size
func (f *Frame) Labels() []types.Label {
	w, h := f.size()
	labels := make([]types.Label, 0, len(f.Boxes))
	for _, b := range f.Boxes {
		labels = append(labels, types.Label{
			Class: b.Class,
			Box: types.Box{
				CX: clamp((b.X0+b.X1)/2/w, 0, 1),
				CY: clamp((b.Y0+b.Y1)/2/h, 0, 1),
				W:  clamp((b.X1-b.X0)/w, 0, 1),
				H:  clamp((b.Y1-b.Y0)/h, 0, 1),
			},
		})
	}
	return labels
}

func translate(dx, dy float64) func(x, y float64) (float64, float64) {
	return func(x, y float64) (float64, float64) {
		return x + dx, y + dy
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
