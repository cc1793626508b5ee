// Package augment produces randomly transformed copies of a labelled image
// while keeping the bounding boxes consistent with the pixels.
//
// The recipe is fixed: random crop to 90% of the source, horizontal flip,
// brightness/contrast jitter, affine jitter, shift/scale/rotate and padding
// up to a minimum canvas. Boxes that shrink below half of the crop area or
// lose more than 80% of their visible area are dropped, and an attempt that
// keeps no box produces no sample.
package augment

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/menta2k/yolo-augment/pkg/types"
)

// ErrInvalidGeometry is returned when an image is too small to be cropped.
var ErrInvalidGeometry = errors.New("augment: invalid geometry")

// Augmenter builds the per-image pipeline and runs it
type Augmenter struct {
	config Config
	rng    Random
}

// Config holds the recipe constants. The zero value is not usable; start
// from DefaultConfig.
type Config struct {
	Attempts      int
	CropRatio     float64
	MinAreaRatio  float64
	MinVisibility float64

	FlipP               float64
	BrightnessContrastP float64
	AffineP             float64
	ShiftScaleRotateP   float64

	PadMinWidth  int
	PadMinHeight int
	PadFill      color.Color

	// Seed makes runs reproducible when non-zero.
	Seed uint64
}

// DefaultConfig returns the fixed augmentation recipe
func DefaultConfig() Config {
	return Config{
		Attempts:      10,
		CropRatio:     0.9,
		MinAreaRatio:  0.5,
		MinVisibility: 0.2,

		FlipP:               0.5,
		BrightnessContrastP: 0.5,
		AffineP:             0.5,
		ShiftScaleRotateP:   0.75,

		PadMinWidth:  200,
		PadMinHeight: 100,
		PadFill:      color.White,
	}
}

// New creates an Augmenter with the default recipe
func New() *Augmenter {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates an Augmenter with a custom recipe
func NewWithConfig(config Config) *Augmenter {
	return &Augmenter{
		config: config,
		rng:    newRand(config.Seed),
	}
}

// SetRandom replaces the random source, mainly for tests
func (a *Augmenter) SetRandom(rng Random) {
	a.rng = rng
}

// Config returns the recipe in use
func (a *Augmenter) Config() Config {
	return a.config
}

// Pipeline derives the pipeline for a width x height source image.
func (a *Augmenter) Pipeline(width, height int) (*Pipeline, error) {
	cropW := int(math.Floor(float64(width) * a.config.CropRatio))
	cropH := int(math.Floor(float64(height) * a.config.CropRatio))
	if cropW <= 0 || cropH <= 0 {
		return nil, fmt.Errorf("%w: %dx%d image yields %dx%d crop", ErrInvalidGeometry, width, height, cropW, cropH)
	}

	minArea := math.Floor(float64(cropW)*float64(cropH)*a.config.MinAreaRatio) - 1

	steps := []Step{
		{Stage: RandomCrop{Width: cropW, Height: cropH}, P: 1},
		{Stage: HorizontalFlip{}, P: a.config.FlipP},
		{Stage: BrightnessContrast{BrightnessLimit: 0.2, ContrastLimit: 0.2}, P: a.config.BrightnessContrastP},
		{Stage: Affine{ScaleLimit: 0.1, TranslateLimit: 0.05, ShearLimit: 10, Fill: color.Black}, P: a.config.AffineP},
		{Stage: ShiftScaleRotate{ShiftLimit: 0.0625, ScaleLimit: 0.1, RotateLimit: 45, Fill: color.Black}, P: a.config.ShiftScaleRotateP},
		{Stage: PadIfNeeded{MinWidth: a.config.PadMinWidth, MinHeight: a.config.PadMinHeight, Fill: a.config.PadFill}, P: 1},
	}

	return NewPipeline(steps, minArea, a.config.MinVisibility, a.rng), nil
}

// Augment runs Config.Attempts independent attempts on img and returns the
// samples that kept at least one box, in attempt order.
func (a *Augmenter) Augment(img image.Image, labels []types.Label) ([]types.Sample, error) {
	bounds := img.Bounds()
	p, err := a.Pipeline(bounds.Dx(), bounds.Dy())
	if err != nil {
		return nil, err
	}

	samples := slices.Collect(p.Attempts(img, labels, a.config.Attempts))
	if samples == nil {
		samples = []types.Sample{}
	}
	return samples, nil
}

func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(seed, seed))
}
