package extract

import (
	"context"
	"fmt"
	"time"

	"github.com/couchcryptid/air-quality-unifier/internal/domain"
)

// AerosolExtractor reads aerosol optical depth and emits rough PM estimates.
type AerosolExtractor struct {
	rules Rules
	bbox  domain.BBox
}

// NewAerosolExtractor creates an AerosolExtractor using AerosolRules.
func NewAerosolExtractor(opts Options) *AerosolExtractor {
	return &AerosolExtractor{rules: AerosolRules, bbox: opts.BBox}
}

func (e *AerosolExtractor) Source() domain.Source { return domain.SourceAerosol }

func (e *AerosolExtractor) Extract(ctx context.Context, task Task) ([]domain.Observation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g, err := openGridded(task.Path)
	if err != nil {
		return nil, err
	}
	defer g.Close() //nolint:errcheck // read-only

	m, ok := e.rules.Find(g.ds)
	if !ok {
		return nil, fmt.Errorf("no optical depth in %s (variables %v): %w", task.Path, g.ds.Variables(), ErrSchemaMismatch)
	}
	f, err := g.ds.Read(m.Variable)
	if err != nil {
		return nil, err
	}
	l, err := g.layoutFor(f)
	if err != nil {
		return nil, err
	}

	var out []domain.Observation
	l.each(f, e.bbox, func(t time.Time, lat, lon, aod float64) {
		pm25, pm10 := domain.EstimatePM(aod)
		out = append(out,
			domain.Observation{Time: t, Lat: lat, Lon: lon, Variable: domain.VarPM25, Value: pm25, Source: domain.SourceAerosol},
			domain.Observation{Time: t, Lat: lat, Lon: lon, Variable: domain.VarPM10, Value: pm10, Source: domain.SourceAerosol},
		)
	})
	return out, nil
}
