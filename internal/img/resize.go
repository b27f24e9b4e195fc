package img

import (
	"math"

	"github.com/tendant/drawing-thumbnailer/internal/failure"
)

// DefaultMaxWidth is the preview width every entry point renders to.
const DefaultMaxWidth = 400

// ComputeTargetSize scales (width, height) down to maxWidth, preserving the
// aspect ratio. Sources already within maxWidth are returned unchanged.
func ComputeTargetSize(width, height, maxWidth int) (int, int, error) {
	if width <= 0 || height <= 0 {
		return 0, 0, failure.Errorf(failure.InvalidGeometry, "compute target size", "source is %dx%d", width, height)
	}
	if maxWidth <= 0 {
		return 0, 0, failure.Errorf(failure.InvalidGeometry, "compute target size", "max width is %d", maxWidth)
	}

	if width <= maxWidth {
		return width, height, nil
	}

	scale := float64(maxWidth) / float64(width)
	targetHeight := int(math.Round(float64(height) * scale))
	if targetHeight < 1 {
		targetHeight = 1
	}
	return maxWidth, targetHeight, nil
}
