// Package classification resolves transaction descriptions to known categories
// before any model is trained.
package classification

import (
	"context"

	"github.com/Veraticus/transcat/internal/model"
)

// Detector resolves some descriptions and reports the rest as missing.
// Indices in both outputs refer to positions in the descriptions argument.
type Detector interface {
	TryDetect(ctx context.Context, descriptions []string) (found []model.DetectionResult, missing []int, err error)
	Name() string
}
