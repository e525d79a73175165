package extract

import (
	"context"

	"github.com/couchcryptid/air-quality-unifier/internal/domain"
)

// Task names one input file and what it was fetched as.
type Task struct {
	Source domain.Source `json:"source"`
	// Label is the manifest key: a ground provider, a satellite product
	// (NO2, O3), a weather collection or an aerosol product.
	Label string `json:"label"`
	Path  string `json:"path"`
}

// Extractor turns one file of a given source into observations.
type Extractor interface {
	Source() domain.Source
	Extract(ctx context.Context, task Task) ([]domain.Observation, error)
}

// Options control extraction.
type Options struct {
	BBox domain.BBox
	// MinFileBytes rejects truncated downloads before they are opened.
	MinFileBytes int64
	// Parameters restricts ground readings to these source parameter names,
	// matched case-insensitively. Empty means all, and only then can a
	// parameter without a canonical name pass through under its source name.
	Parameters []string
	// OutlierQuantile drops ground readings above this per-variable quantile.
	// Zero disables trimming.
	OutlierQuantile float64
	Workers         int
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		BBox:            domain.DefaultBBox,
		MinFileBytes:    5000,
		Parameters:      []string{"pm25", "pm2.5", "pm10", "no2", "o3", "so2", "co"},
		OutlierQuantile: 0.999,
		Workers:         4,
	}
}
