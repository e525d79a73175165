package extract

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/couchcryptid/air-quality-unifier/internal/domain"
)

// groundParameters maps monitoring-network parameter names to canonical
// variables. Unlisted parameters keep their source name; they survive
// cleaning only when the allow-list is empty.
var groundParameters = map[string]string{
	"pm25":  domain.VarPM25,
	"pm2.5": domain.VarPM25,
	"pm10":  domain.VarPM10,
	"o3":    domain.VarO3,
	"no2":   domain.VarNO2,
	"so2":   domain.VarSO2,
	"co":    domain.VarCO,
}

// GroundReading is one station measurement as stored by the ground fetcher.
// Missing numbers are NaN.
type GroundReading struct {
	Time      time.Time
	Parameter string
	Value     float64
	Latitude  float64
	Longitude float64
}

// groundRow is the Parquet layout of a ground file.
type groundRow struct {
	Datetime  time.Time `parquet:"datetime,timestamp"`
	Parameter string    `parquet:"parameter"`
	Value     *float64  `parquet:"value,optional"`
	Latitude  *float64  `parquet:"latitude,optional"`
	Longitude *float64  `parquet:"longitude,optional"`
}

// groundJSON is the JSON layout of a ground file.
type groundJSON struct {
	Datetime  string   `json:"datetime"`
	Parameter string   `json:"parameter"`
	Value     *float64 `json:"value"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// GroundExtractor reads station measurements from Parquet, JSON or CSV.
type GroundExtractor struct {
	opts   Options
	logger *slog.Logger
}

// NewGroundExtractor creates a GroundExtractor.
func NewGroundExtractor(opts Options, logger *slog.Logger) *GroundExtractor {
	return &GroundExtractor{opts: opts, logger: logger}
}

func (e *GroundExtractor) Source() domain.Source { return domain.SourceGround }

func (e *GroundExtractor) Extract(ctx context.Context, task Task) ([]domain.Observation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	readings, err := ReadGround(task.Path)
	if err != nil {
		return nil, err
	}
	obs := CleanGround(readings, e.opts)
	e.logger.Debug("ground readings cleaned",
		"path", task.Path,
		"readings", len(readings),
		"observations", len(obs),
	)
	return obs, nil
}

// ReadGround decodes a ground file by extension.
func ReadGround(path string) ([]GroundReading, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		return readGroundParquet(path)
	case ".json":
		return readGroundJSON(path)
	case ".csv":
		return readGroundCSV(path)
	default:
		return nil, fmt.Errorf("ground file %s: %w", path, ErrUnsupportedFormat)
	}
}

func readGroundParquet(path string) ([]GroundReading, error) {
	rows, err := parquet.ReadFile[groundRow](path)
	if err != nil {
		return nil, fmt.Errorf("read parquet %s: %w", path, err)
	}
	out := make([]GroundReading, len(rows))
	for i, r := range rows {
		out[i] = GroundReading{
			Time:      r.Datetime.UTC(),
			Parameter: r.Parameter,
			Value:     domain.FromNullable(r.Value),
			Latitude:  domain.FromNullable(r.Latitude),
			Longitude: domain.FromNullable(r.Longitude),
		}
	}
	return out, nil
}

func readGroundJSON(path string) ([]GroundReading, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rows []groundJSON
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	out := make([]GroundReading, len(rows))
	for i, r := range rows {
		out[i] = GroundReading{
			Time:      parseOrZero(r.Datetime),
			Parameter: r.Parameter,
			Value:     domain.FromNullable(r.Value),
			Latitude:  domain.FromNullable(r.Latitude),
			Longitude: domain.FromNullable(r.Longitude),
		}
	}
	return out, nil
}

func readGroundCSV(path string) ([]GroundReading, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck // read-only

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header %s: %w", path, err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range []string{"datetime", "parameter", "value", "latitude", "longitude"} {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("ground csv %s lacks column %q: %w", path, name, ErrSchemaMismatch)
		}
	}

	var out []GroundReading
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		out = append(out, GroundReading{
			Time:      parseOrZero(rec[col["datetime"]]),
			Parameter: rec[col["parameter"]],
			Value:     parseFloat(rec[col["value"]]),
			Latitude:  parseFloat(rec[col["latitude"]]),
			Longitude: parseFloat(rec[col["longitude"]]),
		})
	}
	return out, nil
}

func parseOrZero(s string) time.Time {
	t, err := ParseTimestamp(s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// CleanGround filters and renames readings. It drops readings outside the
// parameter allow-list, without position or time, with negative or missing
// values, outside the bounding box, and above the per-variable outlier
// quantile.
func CleanGround(readings []GroundReading, opts Options) []domain.Observation {
	allowed := make(map[string]bool, len(opts.Parameters))
	for _, p := range opts.Parameters {
		allowed[strings.ToLower(strings.TrimSpace(p))] = true
	}

	var obs []domain.Observation
	for _, r := range readings {
		param := strings.ToLower(strings.TrimSpace(r.Parameter))
		if len(allowed) > 0 && !allowed[param] {
			continue
		}
		if r.Time.IsZero() || math.IsNaN(r.Value) || r.Value < 0 {
			continue
		}
		if math.IsNaN(r.Latitude) || math.IsNaN(r.Longitude) || !opts.BBox.Contains(r.Latitude, r.Longitude) {
			continue
		}
		variable, ok := groundParameters[param]
		if !ok {
			variable = r.Parameter
		}
		o := domain.Observation{
			Time:     r.Time,
			Lat:      r.Latitude,
			Lon:      r.Longitude,
			Variable: variable,
			Value:    r.Value,
			Source:   domain.SourceGround,
		}
		if o.Valid() {
			obs = append(obs, o)
		}
	}
	if opts.OutlierQuantile <= 0 || opts.OutlierQuantile >= 1 {
		return obs
	}
	return trimOutliers(obs, opts.OutlierQuantile)
}

// trimOutliers drops values strictly above the q-quantile of their variable.
func trimOutliers(obs []domain.Observation, q float64) []domain.Observation {
	byVar := make(map[string][]float64)
	for _, o := range obs {
		byVar[o.Variable] = append(byVar[o.Variable], o.Value)
	}
	limits := make(map[string]float64, len(byVar))
	for v, values := range byVar {
		sort.Float64s(values)
		limits[v] = linearQuantile(q, values)
	}
	out := obs[:0]
	for _, o := range obs {
		if o.Value <= limits[o.Variable] {
			out = append(out, o)
		}
	}
	return out
}

// linearQuantile interpolates between the order statistics around rank
// (n-1)*q of sorted, the same estimate pandas uses. It stays below the
// maximum for small samples, so a single spike is trimmed.
func linearQuantile(q float64, sorted []float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	h := float64(len(sorted)-1) * q
	lo := int(math.Floor(h))
	hi := int(math.Ceil(h))
	return sorted[lo] + (h-float64(lo))*(sorted[hi]-sorted[lo])
}
