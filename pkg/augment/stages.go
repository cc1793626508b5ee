package augment

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// RandomCrop cuts a Width x Height window at a uniformly random position.
type RandomCrop struct {
	Width  int
	Height int
}

// Name returns "random_crop".
func (c RandomCrop) Name() string { return "random_crop" }

// Apply crops the frame and shifts the boxes into the window.
func (c RandomCrop) Apply(f *Frame, rng Random) {
	b := f.Image.Bounds()
	w := min(c.Width, b.Dx())
	h := min(c.Height, b.Dy())
	x0 := rng.IntN(b.Dx() - w + 1)
	y0 := rng.IntN(b.Dy() - h + 1)

	f.Image = imaging.Crop(f.Image, image.Rect(x0, y0, x0+w, y0+h))
	f.remapBoxes(translate(-float64(x0), -float64(y0)))
}

// HorizontalFlip mirrors the frame left to right.
type HorizontalFlip struct{}

// Name returns "horizontal_flip".
func (HorizontalFlip) Name() string { return "horizontal_flip" }

// Apply mirrors the image and the boxes.
func (HorizontalFlip) Apply(f *Frame, _ Random) {
	w, _ := f.size()
	f.Image = imaging.FlipH(f.Image)
	f.remapBoxes(func(x, y float64) (float64, float64) {
		return w - x, y
	})
}

// BrightnessContrast shifts brightness and contrast by a random fraction
// within the given limits. Boxes are untouched.
type BrightnessContrast struct {
	BrightnessLimit float64
	ContrastLimit   float64
}

// Name returns "brightness_contrast".
func (BrightnessContrast) Name() string { return "brightness_contrast" }

// Apply adjusts contrast then brightness.
func (c BrightnessContrast) Apply(f *Frame, rng Random) {
	brightness := uniform(rng, -c.BrightnessLimit, c.BrightnessLimit)
	contrast := uniform(rng, -c.ContrastLimit, c.ContrastLimit)

	img := imaging.AdjustContrast(f.Image, contrast*100)
	f.Image = imaging.AdjustBrightness(img, brightness*100)
}

// Affine applies a random scale, shear and translation about the frame
// center. ShearLimit is in degrees, TranslateLimit a fraction of the frame.
type Affine struct {
	ScaleLimit     float64
	TranslateLimit float64
	ShearLimit     float64
	Fill           color.Color
}

// Name returns "affine".
func (Affine) Name() string { return "affine" }

// Apply warps the frame through a random affine matrix.
func (a Affine) Apply(f *Frame, rng Random) {
	w, h := f.size()
	scale := 1 + uniform(rng, -a.ScaleLimit, a.ScaleLimit)
	shearX := math.Tan(radians(uniform(rng, -a.ShearLimit, a.ShearLimit)))
	shearY := math.Tan(radians(uniform(rng, -a.ShearLimit, a.ShearLimit)))
	tx := uniform(rng, -a.TranslateLimit, a.TranslateLimit) * w
	ty := uniform(rng, -a.TranslateLimit, a.TranslateLimit) * h

	m := aboutCenter(scale, scale*shearX, scale*shearY, scale, w/2, h/2, tx, ty)
	f.warp(m, a.Fill)
}

// ShiftScaleRotate applies a random shift, scale and rotation about the
// frame center. RotateLimit is in degrees.
type ShiftScaleRotate struct {
	ShiftLimit  float64
	ScaleLimit  float64
	RotateLimit float64
	Fill        color.Color
}

// Name returns "shift_scale_rotate".
func (ShiftScaleRotate) Name() string { return "shift_scale_rotate" }

// Apply warps the frame through a random similarity transform.
func (s ShiftScaleRotate) Apply(f *Frame, rng Random) {
	w, h := f.size()
	angle := radians(uniform(rng, -s.RotateLimit, s.RotateLimit))
	scale := 1 + uniform(rng, -s.ScaleLimit, s.ScaleLimit)
	tx := uniform(rng, -s.ShiftLimit, s.ShiftLimit) * w
	ty := uniform(rng, -s.ShiftLimit, s.ShiftLimit) * h

	cos, sin := math.Cos(angle)*scale, math.Sin(angle)*scale
	m := aboutCenter(cos, -sin, sin, cos, w/2, h/2, tx, ty)
	f.warp(m, s.Fill)
}

// PadIfNeeded centers the frame on a canvas of at least MinWidth x MinHeight.
type PadIfNeeded struct {
	MinWidth  int
	MinHeight int
	Fill      color.Color
}

// Name returns "pad_if_needed".
func (PadIfNeeded) Name() string { return "pad_if_needed" }

// Apply pads the frame when it is smaller than the minimum size.
func (p PadIfNeeded) Apply(f *Frame, _ Random) {
	b := f.Image.Bounds()
	w, h := b.Dx(), b.Dy()
	if w >= p.MinWidth && h >= p.MinHeight {
		return
	}

	nw, nh := max(w, p.MinWidth), max(h, p.MinHeight)
	left, top := (nw-w)/2, (nh-h)/2

	fill := p.Fill
	if fill == nil {
		fill = color.White
	}
	canvas := imaging.New(nw, nh, fill)
	f.Image = imaging.Paste(canvas, f.Image, image.Pt(left, top))
	f.remapBoxes(translate(float64(left), float64(top)))
}

// warp resamples the frame through m, keeping the frame size. Uncovered
// pixels take the fill color.
func (f *Frame) warp(m f64.Aff3, fill color.Color) {
	b := f.Image.Bounds()
	if fill == nil {
		fill = color.Black
	}
	dst := imaging.New(b.Dx(), b.Dy(), fill)
	xdraw.BiLinear.Transform(dst, m, f.Image, b, xdraw.Over, nil)
	f.Image = dst
	f.remapBoxes(func(x, y float64) (float64, float64) {
		return apply(m, x, y)
	})
}

// aboutCenter builds the matrix [a b; d e] applied around (cx, cy) followed
// by a translation of (tx, ty).
func aboutCenter(a, b, d, e, cx, cy, tx, ty float64) f64.Aff3 {
	return f64.Aff3{
		a, b, cx - a*cx - b*cy + tx,
		d, e, cy - d*cx - e*cy + ty,
	}
}

func apply(m f64.Aff3, x, y float64) (float64, float64) {
	return m[0]*x + m[1]*y + m[2], m[3]*x + m[4]*y + m[5]
}

func uniform(rng Random, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
