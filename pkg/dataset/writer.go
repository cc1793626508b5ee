package dataset

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/menta2k/yolo-augment/internal/utils"
	"github.com/menta2k/yolo-augment/pkg/annotation"
	"github.com/menta2k/yolo-augment/pkg/processing"
	"github.com/menta2k/yolo-augment/pkg/types"
)

// Output subdirectories
const (
	ImagesDir = "images"
	LabelsDir = "labels"
	DebugDir  = "debug"
)

// WriterOptions controls how samples are encoded
type WriterOptions struct {
	Dir      string
	Format   string
	Quality  int
	Lossless bool
	Debug    bool
}

// Writer persists samples as numbered image/label file pairs
type Writer struct {
	fs        afero.Fs
	processor *processing.Processor
	opts      WriterOptions
	bytes     int64
}

// NewWriter creates a writer rooted at opts.Dir
func NewWriter(fs afero.Fs, processor *processing.Processor, opts WriterOptions) *Writer {
	opts.Format = strings.ToLower(opts.Format)
	if opts.Format == "jpeg" {
		opts.Format = "jpg"
	}
	return &Writer{fs: fs, processor: processor, opts: opts}
}

// Prepare creates the output directories
func (w *Writer) Prepare() error {
	dirs := []string{ImagesDir, LabelsDir}
	if w.opts.Debug {
		dirs = append(dirs, DebugDir)
	}
	for _, d := range dirs {
		if err := utils.EnsureDir(w.fs, filepath.Join(w.opts.Dir, d)); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	return nil
}

// Write stores each sample as images/<n>.<ext> and labels/<n>.txt, with n
// counting up from next. It returns the next unused counter value. A sample
// that fails part way is removed again, so no file of its number remains.
func (w *Writer) Write(samples []types.Sample, next int) (int, error) {
	for _, s := range samples {
		if len(s.Labels) == 0 {
			return next, fmt.Errorf("sample %d has no labels", next)
		}
		if err := w.writeSample(s, next); err != nil {
			return next, err
		}
		next++
	}
	return next, nil
}

func (w *Writer) writeSample(s types.Sample, n int) error {
	var written []string
	fail := func(err error) error {
		for _, p := range written {
			w.fs.Remove(p)
		}
		return err
	}

	labelPath := utils.NumberedFilename(filepath.Join(w.opts.Dir, LabelsDir), n, "txt")
	written = append(written, labelPath)
	if err := w.writeLabels(labelPath, s.Labels); err != nil {
		return fail(err)
	}

	imagePath := utils.NumberedFilename(filepath.Join(w.opts.Dir, ImagesDir), n, w.opts.Format)
	written = append(written, imagePath)
	size, err := w.processor.SaveImage(s.Image, imagePath, w.opts.Format, w.opts.Quality, w.opts.Lossless)
	if err != nil {
		return fail(err)
	}

	if w.opts.Debug {
		overlay := w.processor.CreateDebugOverlay(s.Image, s.Labels)
		debugPath := utils.NumberedFilename(filepath.Join(w.opts.Dir, DebugDir), n, "png")
		written = append(written, debugPath)
		if _, err := w.processor.SaveImage(overlay, debugPath, "png", 0, false); err != nil {
			return fail(err)
		}
	}

	w.bytes += size
	return nil
}

// BytesWritten returns the size of all sample images written so far
func (w *Writer) BytesWritten() int64 {
	return w.bytes
}

func (w *Writer) writeLabels(path string, labels []types.Label) error {
	f, err := w.fs.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create label file: %w", err)
	}
	if err := annotation.Write(f, labels); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close label file: %w", err)
	}
	return nil
}

// CleanOutput removes the files generated by a previous run under dir
func CleanOutput(fs afero.Fs, dir string) error {
	for _, d := range []string{ImagesDir, LabelsDir, DebugDir} {
		if err := fs.RemoveAll(filepath.Join(dir, d)); err != nil {
			return fmt.Errorf("failed to clean %s: %w", d, err)
		}
	}
	return nil
}
