package dataset

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/menta2k/yolo-augment/pkg/annotation"
	"github.com/menta2k/yolo-augment/pkg/augment"
	"github.com/menta2k/yolo-augment/pkg/processing"
	"github.com/menta2k/yolo-augment/pkg/types"
)

// ErrCardinality is returned for a label file with more than one record
// when multi-box images are not allowed.
var ErrCardinality = errors.New("dataset: expected exactly one label per image")

// Options controls the error policy of a run
type Options struct {
	// FailFast aborts the run on the first image that fails. Otherwise the
	// image is skipped and recorded in the report.
	FailFast bool
	// AllowMultiBox accepts label files with several records and writes one
	// label line per surviving box.
	AllowMultiBox bool
}

// Runner processes image/label pairs one at a time
type Runner struct {
	fs        afero.Fs
	processor *processing.Processor
	augmenter *augment.Augmenter
	writer    *Writer
	logger    *zap.Logger
	opts      Options
}

// NewRunner wires the components of a run. A nil logger discards output.
func NewRunner(fs afero.Fs, processor *processing.Processor, augmenter *augment.Augmenter, writer *Writer, logger *zap.Logger, opts Options) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		fs:        fs,
		processor: processor,
		augmenter: augmenter,
		writer:    writer,
		logger:    logger,
		opts:      opts,
	}
}

// Run augments every pair and writes the samples. Per-image failures are
// logged and recorded unless FailFast is set; write failures always abort.
func (r *Runner) Run(ctx context.Context, pairs []Pair) (Report, error) {
	var report Report
	if err := r.writer.Prepare(); err != nil {
		return report, err
	}

	next := 0
	attempts := r.augmenter.Config().Attempts
	for _, pair := range pairs {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		samples, err := r.Process(pair)
		if err != nil {
			report.recordFailure(pair.ImagePath, err)
			r.logger.Warn("skipping image", zap.String("image", pair.ImagePath), zap.Error(err))
			if r.opts.FailFast {
				return report, fmt.Errorf("%s: %w", pair.ImagePath, err)
			}
			continue
		}

		first := next
		next, err = r.writer.Write(samples, next)
		report.BytesWritten = r.writer.BytesWritten()
		if err != nil {
			return report, fmt.Errorf("failed to write samples for %s: %w", pair.ImagePath, err)
		}

		report.recordSuccess(len(samples), attempts)
		r.logger.Info("augmented image",
			zap.String("image", pair.ImagePath),
			zap.Int("kept", len(samples)),
			zap.Int("discarded", attempts-len(samples)),
			zap.Int("first", first),
		)
	}

	return report, nil
}

// Process loads one pair and runs the augmentation engine on it
func (r *Runner) Process(pair Pair) ([]types.Sample, error) {
	labels, err := annotation.Load(r.fs, pair.LabelPath)
	if err != nil {
		return nil, err
	}
	if len(labels) > 1 && !r.opts.AllowMultiBox {
		return nil, fmt.Errorf("%w: %s has %d", ErrCardinality, pair.LabelPath, len(labels))
	}

	img, err := r.processor.LoadImage(pair.ImagePath)
	if err != nil {
		return nil, err
	}

	return r.augmenter.Augment(img, labels)
}
