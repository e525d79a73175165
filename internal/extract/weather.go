package extract

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/air-quality-unifier/internal/adapter/netcdf"
	"github.com/couchcryptid/air-quality-unifier/internal/domain"
)

// WeatherExtractor reads reanalysis files and emits temperature (°C),
// relative humidity (%) and wind speed (m/s).
type WeatherExtractor struct {
	rules  RuleTable
	bbox   domain.BBox
	logger *slog.Logger
}

// NewWeatherExtractor creates a WeatherExtractor using WeatherRules.
func NewWeatherExtractor(opts Options, logger *slog.Logger) *WeatherExtractor {
	return &WeatherExtractor{rules: WeatherRules, bbox: opts.BBox, logger: logger}
}

func (e *WeatherExtractor) Source() domain.Source { return domain.SourceWeather }

func (e *WeatherExtractor) Extract(ctx context.Context, task Task) ([]domain.Observation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g, err := openGridded(task.Path)
	if err != nil {
		return nil, err
	}
	defer g.Close() //nolint:errcheck // read-only

	fields := make(map[string]netcdf.Field, len(e.rules))
	for target, rules := range e.rules {
		m, ok := rules.Find(g.ds)
		if !ok {
			continue
		}
		f, err := g.ds.Read(m.Variable)
		if err != nil {
			return nil, err
		}
		if n := domain.MaskFill(f.Values); n > 0 {
			e.logger.Debug("fill values masked", "path", task.Path, "variable", f.Name, "count", n)
		}
		fields[target] = f
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("no weather variables in %s (variables %v): %w", task.Path, g.ds.Variables(), ErrSchemaMismatch)
	}

	var out []domain.Observation
	if f, ok := fields[domain.VarTemperature]; ok {
		if domain.NormalizeTemperature(f.Values) {
			e.logger.Debug("temperature converted from kelvin", "path", task.Path, "variable", f.Name)
		}
		obs, err := g.observeField(f, domain.VarTemperature, domain.SourceWeather, e.bbox)
		if err != nil {
			return nil, err
		}
		out = append(out, obs...)
	}
	if f, ok := fields[domain.VarHumidity]; ok {
		if domain.NormalizeHumidity(f.Values) {
			e.logger.Debug("humidity scaled to percent", "path", task.Path, "variable", f.Name)
		}
		obs, err := g.observeField(f, domain.VarHumidity, domain.SourceWeather, e.bbox)
		if err != nil {
			return nil, err
		}
		out = append(out, obs...)
	}

	u, hasU := fields[domain.VarWindU]
	v, hasV := fields[domain.VarWindV]
	switch {
	case hasU && hasV && u.Len() == v.Len():
		speed := u
		speed.Values = domain.WindSpeed(u.Values, v.Values)
		obs, err := g.observeField(speed, domain.VarWindSpeed, domain.SourceWeather, e.bbox)
		if err != nil {
			return nil, err
		}
		out = append(out, obs...)
	case hasU || hasV:
		e.logger.Warn("wind speed skipped: components incomplete",
			"path", task.Path,
			"has_u", hasU,
			"has_v", hasV,
		)
	}
	return out, nil
}
