package augment

import (
	"image"
	"iter"

	"github.com/disintegration/imaging"

	"github.com/menta2k/yolo-augment/pkg/types"
)

// Random is the source of randomness for the pipeline. *rand.Rand from
// math/rand/v2 satisfies it.
type Random interface {
	Float64() float64
	IntN(n int) int
}

// Stage is one transform of the pipeline. Spatial stages replace the frame
// image and remap its boxes; photometric stages only touch pixels.
type Stage interface {
	Name() string
	Apply(f *Frame, rng Random)
}

// Step binds a stage to the probability it is applied with.
type Step struct {
	Stage Stage
	P     float64
}

// Pipeline runs an ordered list of steps against a source image, dropping
// boxes that fall below the area or visibility threshold after each step.
type Pipeline struct {
	Steps         []Step
	MinArea       float64
	MinVisibility float64

	rng Random
}

// NewPipeline creates a pipeline from explicit steps and thresholds
func NewPipeline(steps []Step, minArea, minVisibility float64, rng Random) *Pipeline {
	return &Pipeline{
		Steps:         steps,
		MinArea:       minArea,
		MinVisibility: minVisibility,
		rng:           rng,
	}
}

// StageNames lists the stages in execution order
func (p *Pipeline) StageNames() []string {
	names := make([]string, 0, len(p.Steps))
	for _, s := range p.Steps {
		names = append(names, s.Stage.Name())
	}
	return names
}

// Attempt runs the whole pipeline once. The boolean is false when no box
// survived, in which case the sample must be discarded.
func (p *Pipeline) Attempt(src *image.NRGBA, labels []types.Label) (types.Sample, bool) {
	f := newFrame(src, labels)
	f.Boxes = p.filter(f.Boxes)

	for _, step := range p.Steps {
		if !p.shouldApply(step.P) {
			continue
		}
		step.Stage.Apply(f, p.rng)
		f.Boxes = p.filter(f.Boxes)
	}

	if len(f.Boxes) == 0 {
		return types.Sample{}, false
	}
	if f.Image == src {
		f.Image = imaging.Clone(src)
	}
	return types.Sample{Image: f.Image, Labels: f.Labels()}, true
}

// Attempts returns the lazy sequence of n independent attempts with the
// empty ones filtered out, in execution order.
func (p *Pipeline) Attempts(img image.Image, labels []types.Label, n int) iter.Seq[types.Sample] {
	return func(yield func(types.Sample) bool) {
		src := imaging.Clone(img)
		for i := 0; i < n; i++ {
			sample, ok := p.Attempt(src, labels)
			if !ok {
				continue
			}
			if !yield(sample) {
				return
			}
		}
	}
}

func (p *Pipeline) shouldApply(prob float64) bool {
	if prob >= 1 {
		return true
	}
	if prob <= 0 {
		return false
	}
	return p.rng.Float64() < prob
}

func (p *Pipeline) filter(boxes []PixelBox) []PixelBox {
	kept := boxes[:0]
	for _, b := range boxes {
		area := b.Area()
		if area <= 0 || area < p.MinArea || b.Visibility < p.MinVisibility {
			continue
		}
		kept = append(kept, b)
	}
	return kept
}
