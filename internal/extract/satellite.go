package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/couchcryptid/air-quality-unifier/internal/domain"
)

// SatelliteExtractor reads tropospheric column granules.
type SatelliteExtractor struct {
	rules  RuleTable
	bbox   domain.BBox
	logger *slog.Logger
}

// NewSatelliteExtractor creates a SatelliteExtractor using SatelliteRules.
func NewSatelliteExtractor(opts Options, logger *slog.Logger) *SatelliteExtractor {
	return &SatelliteExtractor{rules: SatelliteRules, bbox: opts.BBox, logger: logger}
}

func (e *SatelliteExtractor) Source() domain.Source { return domain.SourceSatellite }

// Extract locates the product named by task.Label and geolocates it. Labels
// without rules are looked up by name, then structurally.
func (e *SatelliteExtractor) Extract(ctx context.Context, task Task) ([]domain.Observation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	label := strings.ToUpper(task.Label)
	rules, ok := e.rules[label]
	if !ok {
		rules = AliasRules(task.Label).WithStructural()
	}
	variable, ok := satelliteVariables[label]
	if !ok {
		variable = task.Label
	}

	g, err := openGridded(task.Path)
	if err != nil {
		return nil, err
	}
	defer g.Close() //nolint:errcheck // read-only

	m, ok := rules.Find(g.ds)
	if !ok {
		return nil, fmt.Errorf("%s not found in %s (variables %v): %w", task.Label, task.Path, g.ds.Variables(), ErrSchemaMismatch)
	}
	if m.Heuristic {
		e.logger.Warn("satellite variable matched by layout",
			"path", task.Path,
			"target", task.Label,
			"variable", m.Variable,
		)
	}
	return g.observe(m.Variable, variable, domain.SourceSatellite, e.bbox)
}
