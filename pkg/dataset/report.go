package dataset

import (
	"fmt"

	"github.com/montanaflynn/stats"

	"github.com/menta2k/yolo-augment/internal/utils"
)

// Failure records an image that could not be processed
type Failure struct {
	Image string
	Err   error
}

// Report summarizes a run
type Report struct {
	Images       int
	Failed       int
	Samples      int
	Discarded    int
	BytesWritten int64
	Failures     []Failure

	perImage stats.Float64Data
}

// Summary holds the distribution of samples kept per processed image
type Summary struct {
	Mean   float64
	Median float64
	Max    float64
}

func (r *Report) recordSuccess(kept, attempts int) {
	r.Images++
	r.Samples += kept
	r.Discarded += attempts - kept
	r.perImage = append(r.perImage, float64(kept))
}

func (r *Report) recordFailure(image string, err error) {
	r.Images++
	r.Failed++
	r.Failures = append(r.Failures, Failure{Image: image, Err: err})
}

// Summary computes the per-image sample statistics. It is zero when no
// image was processed successfully.
func (r Report) Summary() Summary {
	if len(r.perImage) == 0 {
		return Summary{}
	}
	mean, _ := stats.Mean(r.perImage)
	median, _ := stats.Median(r.perImage)
	maxKept, _ := stats.Max(r.perImage)
	return Summary{Mean: mean, Median: median, Max: maxKept}
}

func (r Report) String() string {
	s := r.Summary()
	return fmt.Sprintf("images=%d failed=%d samples=%d discarded=%d written=%s mean=%.2f median=%.1f max=%.0f",
		r.Images, r.Failed, r.Samples, r.Discarded, utils.FormatFileSize(r.BytesWritten), s.Mean, s.Median, s.Max)
}
