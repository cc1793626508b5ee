// Package dataset connects the augmentation engine to a dataset on disk:
// it pairs images with their label files, runs the engine image by image
// and persists the resulting samples under a run-wide counter.
package dataset

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/menta2k/yolo-augment/internal/utils"
)

// Pair is a source image and the label file that belongs to it
type Pair struct {
	// Name is the image path relative to the image directory, without extension
	Name      string
	ImagePath string
	LabelPath string
}

// Discover lists every image under imageDir and pairs it with the label
// file at the same relative path under labelDir, with the extension
// replaced by .txt: imageDir/a/x.png pairs with labelDir/a/x.txt. The label
// file is not required to exist.
func Discover(fs afero.Fs, imageDir, labelDir string) ([]Pair, error) {
	if !utils.DirExists(fs, imageDir) {
		return nil, fmt.Errorf("image directory not found: %s", imageDir)
	}

	files, err := utils.ListImageFiles(fs, imageDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}

	pairs := make([]Pair, 0, len(files))
	for _, f := range files {
		rel, err := filepath.Rel(imageDir, f)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", f, err)
		}
		name := strings.TrimSuffix(rel, filepath.Ext(rel))
		pairs = append(pairs, Pair{
			Name:      name,
			ImagePath: f,
			LabelPath: filepath.Join(labelDir, name+".txt"),
		})
	}
	return pairs, nil
}
