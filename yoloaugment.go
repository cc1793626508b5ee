// Package yoloaugment expands an object-detection dataset with randomly
// transformed copies of each image whose bounding boxes follow the pixels.
//
// Basic usage:
//
//	package main
//
//	import (
//		"log"
//
//		yoloaugment "github.com/menta2k/yolo-augment"
//	)
//
//	func main() {
//		aug := yoloaugment.New()
//
//		// writes output/images/<n>.png and output/labels/<n>.txt
//		next, err := aug.ProcessImageFile("images/cat.jpg", "labels/cat.txt", 0)
//		if err != nil {
//			log.Fatal(err)
//		}
//		log.Printf("wrote %d samples", next)
//	}
//
// The package consists of these components:
//
// 1. Annotation (pkg/annotation): reads and writes YOLO label files
// 2. Augment (pkg/augment): the randomized crop, flip, jitter, warp and pad pipeline
// 3. Processing (pkg/processing): image decoding, encoding and debug overlays
// 4. Dataset (pkg/dataset): pairs images with labels, runs the pipeline and writes samples
//
// Every source image is cropped to 90% of its size at a random position,
// then flipped, jittered and warped at random and finally padded to at least
// 200x100. Boxes are remapped through each step and dropped once they cover
// less than half of the crop or keep less than 20% of their visible area.
// Attempts that keep no box are discarded, so an image yields at most
// Attempts samples. Output files are numbered by a counter that runs across
// the whole dataset.
package yoloaugment

import (
	"context"
	"fmt"
	"image"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/menta2k/yolo-augment/internal/config"
	"github.com/menta2k/yolo-augment/pkg/annotation"
	"github.com/menta2k/yolo-augment/pkg/augment"
	"github.com/menta2k/yolo-augment/pkg/dataset"
	"github.com/menta2k/yolo-augment/pkg/processing"
	"github.com/menta2k/yolo-augment/pkg/types"
)

// Version of the augmentation tool
const Version = "1.0.0"

// Augmentor provides a high-level interface over the whole pipeline
type Augmentor struct {
	fs        afero.Fs
	config    *config.Config
	processor *processing.Processor
	augmenter *augment.Augmenter
	writer    *dataset.Writer
	runner    *dataset.Runner
	logger    *zap.Logger
}

// New creates an Augmentor with default configuration on the OS filesystem
func New() *Augmentor {
	a, err := NewWithConfig(config.Default())
	if err != nil {
		// the default configuration always validates
		panic(err)
	}
	return a
}

// NewWithConfig creates an Augmentor with custom configuration
func NewWithConfig(cfg *config.Config) (*Augmentor, error) {
	return NewWithFs(afero.NewOsFs(), cfg, nil)
}

// NewWithFs creates an Augmentor on an arbitrary filesystem. A nil logger
// discards log output.
func NewWithFs(fs afero.Fs, cfg *config.Config, logger *zap.Logger) (*Augmentor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	augCfg := augment.DefaultConfig()
	augCfg.Attempts = cfg.Augment.Attempts
	augCfg.Seed = cfg.Augment.Seed

	processor := processing.NewProcessor(fs)
	augmenter := augment.NewWithConfig(augCfg)
	writer := dataset.NewWriter(fs, processor, dataset.WriterOptions{
		Dir:      cfg.Output.Dir,
		Format:   cfg.Output.Format,
		Quality:  cfg.Output.Quality,
		Lossless: cfg.Output.Lossless,
		Debug:    cfg.Output.Debug,
	})
	runner := dataset.NewRunner(fs, processor, augmenter, writer, logger, dataset.Options{
		FailFast:      cfg.Run.FailFast,
		AllowMultiBox: cfg.Run.AllowMultiBox,
	})

	return &Augmentor{
		fs:        fs,
		config:    cfg,
		processor: processor,
		augmenter: augmenter,
		writer:    writer,
		runner:    runner,
		logger:    logger,
	}, nil
}

// SetRandom replaces the random source of the augmentation engine
func (a *Augmentor) SetRandom(rng augment.Random) {
	a.augmenter.SetRandom(rng)
}

// LoadImage loads an image from file
func (a *Augmentor) LoadImage(path string) (image.Image, error) {
	return a.processor.LoadImage(path)
}

// LoadLabels loads the records of a YOLO label file
func (a *Augmentor) LoadLabels(path string) ([]types.Label, error) {
	return annotation.Load(a.fs, path)
}

// Augment produces the transformed samples of one image
func (a *Augmentor) Augment(img image.Image, labels []types.Label) ([]types.Sample, error) {
	return a.augmenter.Augment(img, labels)
}

// ProcessImageFile augments one image/label pair and writes its samples
// starting at counter next. It returns the next unused counter value.
func (a *Augmentor) ProcessImageFile(imagePath, labelPath string, next int) (int, error) {
	samples, err := a.runner.Process(dataset.Pair{ImagePath: imagePath, LabelPath: labelPath})
	if err != nil {
		return next, fmt.Errorf("failed to augment %s: %w", imagePath, err)
	}

	if err := a.writer.Prepare(); err != nil {
		return next, err
	}
	return a.writer.Write(samples, next)
}

// Run augments every image of the configured input directories
func (a *Augmentor) Run(ctx context.Context) (dataset.Report, error) {
	if a.config.Output.Clean {
		a.logger.Info("cleaning output directory", zap.String("dir", a.config.Output.Dir))
		if err := dataset.CleanOutput(a.fs, a.config.Output.Dir); err != nil {
			return dataset.Report{}, err
		}
	}

	pairs, err := dataset.Discover(a.fs, a.config.Input.ImageDir, a.config.Input.LabelDir)
	if err != nil {
		return dataset.Report{}, err
	}
	a.logger.Info("discovered images", zap.Int("count", len(pairs)), zap.String("dir", a.config.Input.ImageDir))

	return a.runner.Run(ctx, pairs)
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
