// Command genmock writes a synthetic ground-station file for local runs and
// prints what the engine makes of it. Values follow a diurnal cycle per
// station so imputation and aggregation have something to work with.
//
// Usage:
//
//	go run ./cmd/genmock -out data/raw/openaq/mock.json -stations 5 -hours 168
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/air-quality-unifier/internal/domain"
	"github.com/couchcryptid/air-quality-unifier/internal/extract"
)

// windowEnd is fixed so the generated file and the printed stats are reproducible.
var windowEnd = time.Date(2024, time.July, 8, 0, 0, 0, 0, time.UTC)

type mockReading struct {
	Datetime  string   `json:"datetime"`
	Parameter string   `json:"parameter"`
	Value     *float64 `json:"value"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
}

// parameter describes the synthetic signal of one ground parameter.
type parameter struct {
	name      string
	base      float64
	amplitude float64
	gapRate   float64 // share of hours left out
}

var parameters = []parameter{
	{name: "pm25", base: 9, amplitude: 4, gapRate: 0.05},
	{name: "pm10", base: 20, amplitude: 8, gapRate: 0.1},
	{name: "o3", base: 0.035, amplitude: 0.015, gapRate: 0.05},
	{name: "no2", base: 0.012, amplitude: 0.008, gapRate: 0.2},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the ground JSON file")
	stations := flag.Int("stations", 5, "number of synthetic stations")
	hours := flag.Int("hours", domain.DefaultWindowHours, "hours of data ending at the fixed window end")
	seed := flag.Uint64("seed", 1, "random seed")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	rng := rand.New(rand.NewPCG(*seed, *seed))
	readings := generate(rng, *stations, *hours)
	if err := writeJSON(*out, readings); err != nil {
		return err
	}
	log.Printf("wrote %d readings from %d stations to %s", len(readings), *stations, *out)

	// Use the same fixed clock for the engine so the printed window matches.
	domain.SetClock(clockwork.NewFakeClockAt(windowEnd))
	defer domain.SetClock(nil)

	parsed, err := extract.ReadGround(*out)
	if err != nil {
		return fmt.Errorf("re-read %s: %w", *out, err)
	}
	obs := extract.CleanGround(parsed, extract.DefaultOptions())

	opts := domain.DefaultOptions()
	opts.WindowHours = *hours
	res := domain.Unify(domain.Input{Ground: obs}, opts)
	printStats(res)
	return nil
}

func generate(rng *rand.Rand, stations, hours int) []mockReading {
	bbox := domain.DefaultBBox
	start := windowEnd.Add(-time.Duration(hours) * time.Hour)

	out := make([]mockReading, 0, stations*hours*len(parameters))
	for s := 0; s < stations; s++ {
		lat := bbox.South + rng.Float64()*(bbox.North-bbox.South)
		lon := bbox.West + rng.Float64()*(bbox.East-bbox.West)
		phase := rng.Float64() * 2 * math.Pi
		for h := 0; h < hours; h++ {
			t := start.Add(time.Duration(h) * time.Hour)
			for _, p := range parameters {
				if rng.Float64() < p.gapRate {
					continue
				}
				cycle := math.Sin(2*math.Pi*float64(t.Hour())/24 + phase)
				v := p.base + p.amplitude*cycle + p.amplitude*0.2*rng.NormFloat64()
				v = math.Max(v, 0)
				out = append(out, mockReading{
					Datetime:  t.Format(time.RFC3339),
					Parameter: p.name,
					Value:     &v,
					Latitude:  math.Round(lat*1e4) / 1e4,
					Longitude: math.Round(lon*1e4) / 1e4,
				})
			}
		}
	}
	return out
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		f.Close() //nolint:errcheck,gosec // already returning an error
		return err
	}
	return f.Close()
}

func printStats(res domain.Result) {
	fmt.Println()
	fmt.Println("=== Unified Window ===")
	fmt.Printf("  window:         %s to %s\n", res.Scaffold.Start().Format(time.RFC3339), res.Scaffold.End().Format(time.RFC3339))
	fmt.Printf("  ground rows:    %d\n", res.Stats.GroundRows)
	fmt.Printf("  merged rows:    %d\n", res.Stats.MergedRows)
	fmt.Printf("  hours with data %d / %d\n", res.Stats.AggregatedHours, len(res.Records))
	fmt.Printf("  no-data hours:  %d\n", res.Quality.NoDataHours)
	fmt.Printf("  quality passed: %t\n", res.Quality.Passed)
	fmt.Println()
	for _, v := range domain.CanonicalVariables() {
		fmt.Printf("  %-12s %5.1f%%\n", v, 100*res.Quality.Completeness[v])
	}
}
