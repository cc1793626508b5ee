package yoloaugment

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/yolo-augment/internal/config"
	"github.com/menta2k/yolo-augment/pkg/annotation"
	"github.com/menta2k/yolo-augment/pkg/processing"
)

// fixedRandom skips every probabilistic stage and anchors the crop at the origin
type fixedRandom struct{}

func (fixedRandom) Float64() float64 { return 0.99 }
func (fixedRandom) IntN(int) int     { return 0 }

// createTestImage creates a simple test image
func createTestImage(width, height int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x > width/3 && x < 2*width/3 && y > height/3 && y < 2*height/3 {
				img.SetNRGBA(x, y, color.NRGBA{255, 255, 255, 255})
			} else {
				img.SetNRGBA(x, y, color.NRGBA{64, 64, 64, 255})
			}
		}
	}
	return img
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Input.ImageDir = "in/images"
	cfg.Input.LabelDir = "in/labels"
	cfg.Output.Dir = "out"
	return cfg
}

func newTestAugmentor(t *testing.T, cfg *config.Config) (*Augmentor, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	a, err := NewWithFs(fs, cfg, nil)
	require.NoError(t, err)
	a.SetRandom(fixedRandom{})
	return a, fs
}

func addPair(t *testing.T, fs afero.Fs, name, labels string) {
	t.Helper()
	_, err := processing.NewProcessor(fs).SaveImage(createTestImage(60, 40), "in/images/"+name+".png", "png", 0, false)
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, "in/labels/"+name+".txt", []byte(labels), 0o644))
}

func TestNew(t *testing.T) {
	a := New()
	require.NotNil(t, a)
	assert.NotNil(t, a.processor)
	assert.NotNil(t, a.augmenter)
	assert.NotNil(t, a.runner)
}

func TestNewWithConfigRejectsInvalid(t *testing.T) {
	cfg := testConfig()
	cfg.Augment.Attempts = 0

	_, err := NewWithConfig(cfg)
	assert.Error(t, err)
}

func TestGetVersion(t *testing.T) {
	assert.Equal(t, Version, GetVersion())
}

func TestLoadAndAugment(t *testing.T) {
	a, fs := newTestAugmentor(t, testConfig())
	addPair(t, fs, "cat", "0 0.5 0.5 0.8 0.8\n")

	img, err := a.LoadImage("in/images/cat.png")
	require.NoError(t, err)
	labels, err := a.LoadLabels("in/labels/cat.txt")
	require.NoError(t, err)
	require.Len(t, labels, 1)

	samples, err := a.Augment(img, labels)
	require.NoError(t, err)
	assert.Len(t, samples, 10)
	for _, s := range samples {
		assert.Equal(t, image.Rect(0, 0, 200, 100), s.Image.Bounds())
		require.Len(t, s.Labels, 1)
	}
}

func TestProcessImageFile(t *testing.T) {
	a, fs := newTestAugmentor(t, testConfig())
	addPair(t, fs, "cat", "4 0.5 0.5 0.8 0.8\n")

	next, err := a.ProcessImageFile("in/images/cat.png", "in/labels/cat.txt", 3)
	require.NoError(t, err)
	assert.Equal(t, 13, next)

	labels, err := annotation.Load(fs, "out/labels/12.txt")
	require.NoError(t, err)
	require.Len(t, labels, 1)
	assert.Equal(t, 4, labels[0].Class)

	ok, _ := afero.Exists(fs, "out/images/2.png")
	assert.False(t, ok)
}

func TestProcessImageFileMissingLabels(t *testing.T) {
	a, fs := newTestAugmentor(t, testConfig())
	addPair(t, fs, "cat", "0 0.5 0.5 0.8 0.8\n")

	next, err := a.ProcessImageFile("in/images/cat.png", "in/labels/dog.txt", 0)
	assert.ErrorIs(t, err, annotation.ErrNotFound)
	assert.Equal(t, 0, next)
}

func TestRunCleansPreviousOutput(t *testing.T) {
	cfg := testConfig()
	cfg.Output.Clean = true
	cfg.Augment.Attempts = 4
	a, fs := newTestAugmentor(t, cfg)
	addPair(t, fs, "a", "0 0.5 0.5 0.8 0.8\n")
	require.NoError(t, afero.WriteFile(fs, "out/images/99.png", []byte("stale"), 0o644))

	report, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Images)
	assert.Equal(t, 4, report.Samples)

	ok, _ := afero.Exists(fs, "out/images/99.png")
	assert.False(t, ok)
	ok, _ = afero.Exists(fs, "out/images/3.png")
	assert.True(t, ok)
}

func TestRunMissingInputDir(t *testing.T) {
	a, _ := newTestAugmentor(t, testConfig())

	_, err := a.Run(context.Background())
	assert.Error(t, err)
}
