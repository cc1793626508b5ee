package processing

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/yolo-augment/pkg/types"
)

// createTestImage creates a simple gradient test image
func createTestImage(width, height int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r := uint8((x * 255) / width)
			g := uint8((y * 255) / height)
			img.SetNRGBA(x, y, color.NRGBA{r, g, 128, 255})
		}
	}
	return img
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	for _, format := range []string{"png", "jpg", "webp"} {
		t.Run(format, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			p := NewProcessor(fs)
			path := "out/0." + format
			require.NoError(t, fs.MkdirAll("out", 0o755))

			n, err := p.SaveImage(createTestImage(64, 48), path, format, 90, false)
			require.NoError(t, err)
			assert.Positive(t, n)

			info, err := fs.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, n, info.Size())

			img, err := p.LoadImage(path)
			require.NoError(t, err)
			assert.Equal(t, 64, img.Bounds().Dx())
			assert.Equal(t, 48, img.Bounds().Dy())
		})
	}
}

func TestPNGIsLossless(t *testing.T) {
	fs := afero.NewMemMapFs()
	p := NewProcessor(fs)
	src := createTestImage(16, 16)

	_, err := p.SaveImage(src, "a.png", "png", 0, false)
	require.NoError(t, err)

	img, err := p.LoadImage("a.png")
	require.NoError(t, err)
	r1, g1, b1, _ := src.At(5, 7).RGBA()
	r2, g2, b2, _ := img.At(5, 7).RGBA()
	assert.Equal(t, []uint32{r1, g1, b1}, []uint32{r2, g2, b2})
}

func TestSaveUnsupportedFormat(t *testing.T) {
	p := NewProcessor(afero.NewMemMapFs())
	_, err := p.SaveImage(createTestImage(8, 8), "a.gif", "gif", 90, false)
	assert.Error(t, err)
	assert.False(t, SupportedFormat("gif"))
	assert.True(t, SupportedFormat("JPEG"))
}

// flushFailFs hands out files whose Close reports a failed flush
type flushFailFs struct{ afero.Fs }

func (f flushFailFs) Create(name string) (afero.File, error) {
	file, err := f.Fs.Create(name)
	if err != nil {
		return nil, err
	}
	return flushFailFile{file}, nil
}

type flushFailFile struct{ afero.File }

func (f flushFailFile) Close() error {
	f.File.Close()
	return errors.New("flush failed")
}

func TestSaveImageReportsCloseError(t *testing.T) {
	p := NewProcessor(flushFailFs{afero.NewMemMapFs()})

	_, err := p.SaveImage(createTestImage(8, 8), "a.png", "png", 0, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flush failed")
}

func TestLoadImageErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	p := NewProcessor(fs)

	_, err := p.LoadImage("missing.png")
	assert.Error(t, err)

	require.NoError(t, afero.WriteFile(fs, "garbage.png", []byte("not an image"), 0o644))
	_, err = p.LoadImage("garbage.png")
	assert.Error(t, err)
}

func TestCreateDebugOverlay(t *testing.T) {
	p := NewProcessor(afero.NewMemMapFs())
	src := image.NewNRGBA(image.Rect(0, 0, 100, 100))

	overlay := p.CreateDebugOverlay(src, []types.Label{
		{Class: 0, Box: types.Box{CX: 0.5, CY: 0.5, W: 0.4, H: 0.4}},
	})

	// box edge at x=30 is drawn in the class color
	assert.Equal(t, color.NRGBA{0, 255, 0, 255}, overlay.At(30, 50))
	// the source is not modified
	assert.Equal(t, color.NRGBA{}, src.NRGBAAt(30, 50))
	// outside the box stays untouched
	assert.Equal(t, color.NRGBA{}, overlay.At(5, 5))
}

func TestBoxToPixels(t *testing.T) {
	x0, y0, x1, y1 := boxToPixels(types.Box{CX: 0.5, CY: 0.5, W: 0.5, H: 0.25}, 200, 100)
	assert.Equal(t, []int{50, 38, 150, 63}, []int{x0, y0, x1, y1})

	// degenerate boxes still cover one pixel
	x0, y0, x1, y1 = boxToPixels(types.Box{CX: 0.5, CY: 0.5}, 10, 10)
	assert.Equal(t, x0+1, x1)
	assert.Equal(t, y0+1, y1)
}
