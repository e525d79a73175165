// Command validate checks published unified tables: schema and hourly
// continuity, quality thresholds, and agreement between the Parquet and CSV
// renditions of the same run.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -parquet data/output/unified_air_quality.parquet \
//	  -csv data/output/unified_air_quality.csv
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/couchcryptid/air-quality-unifier/internal/domain"
	"github.com/couchcryptid/air-quality-unifier/internal/sink"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	parquetPath := flag.String("parquet", "", "path to a Parquet table")
	csvPath := flag.String("csv", "", "path to a CSV table")
	maxMissing := flag.Float64("max-missing", domain.DefaultQualityOptions().MaxMissingRatio, "largest tolerated share of missing hours per pollutant")
	minPerDay := flag.Int("min-per-day", domain.DefaultQualityOptions().MinRecordsPerDay, "least hours with data per full day")
	asJSON := flag.Bool("json", false, "print the quality report as JSON")
	flag.Parse()

	if *parquetPath == "" && *csvPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	opts := domain.QualityOptions{MaxMissingRatio: *maxMissing, MinRecordsPerDay: *minPerDay}
	if code := run(*parquetPath, *csvPath, opts, *asJSON); code != 0 {
		os.Exit(code)
	}
}

func run(parquetPath, csvPath string, opts domain.QualityOptions, asJSON bool) int {
	tables := make(map[string][]domain.UnifiedRecord)
	var order []string
	for _, path := range []string{parquetPath, csvPath} {
		if path == "" {
			continue
		}
		records, err := sink.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: read %s: %v\n", path, err)
			return 1
		}
		tables[path] = records
		order = append(order, path)
	}
	primary := tables[order[0]]

	fmt.Println("=== Unified Table Validation ===")
	fmt.Println()

	report := domain.AssessQuality(primary, opts)
	phases := []*phase{
		validateStructure(primary),
		validateQuality(report, opts),
	}
	if len(order) == 2 {
		phases = append(phases, validateParity(tables[order[0]], tables[order[1]]))
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Rows: %d, no-data hours: %d, window %s to %s\n",
		report.Rows, report.NoDataHours, report.Start.Format(time.RFC3339), report.End.Format(time.RFC3339))
	for _, v := range domain.CanonicalVariables() {
		fmt.Printf("  %-12s %5.1f%%\n", v, 100*report.Completeness[v])
	}

	if asJSON {
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: encode report: %v\n", err)
			return 1
		}
		fmt.Println(string(out))
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			if i >= 20 {
				fmt.Printf("  ... and %d more\n", len(p.errors)-i)
				break
			}
			fmt.Printf("  %s\n", e)
		}
	}

	if !allPassed {
		return 1
	}
	return 0
}

// validateStructure checks that rows are consecutive UTC hours and that the
// no-data flag agrees with the pollutant columns.
func validateStructure(records []domain.UnifiedRecord) *phase {
	p := &phase{name: "Structure and hourly continuity"}
	if len(records) == 0 {
		p.errorf("table is empty")
		return p
	}
	for i, r := range records {
		if !r.Time.Equal(r.Time.Truncate(time.Hour)) {
			p.errorf("row %d: time %s is not on the hour", i, r.Time.Format(time.RFC3339))
		}
		if i > 0 {
			if gap := r.Time.Sub(records[i-1].Time); gap != time.Hour {
				p.errorf("row %d: %s follows %s (gap %s)", i, r.Time.Format(time.RFC3339), records[i-1].Time.Format(time.RFC3339), gap)
			}
		}
		if r.NoDataFlag != r.AllPollutantsMissing() {
			p.errorf("row %d: no_data_flag=%t disagrees with pollutant columns", i, r.NoDataFlag)
		}
		for _, v := range domain.CanonicalVariables() {
			if x := r.Value(v); math.IsInf(x, 0) {
				p.errorf("row %d: %s is infinite", i, v)
			}
		}
	}
	return p
}

func validateQuality(report domain.QualityReport, opts domain.QualityOptions) *phase {
	p := &phase{name: "Quality thresholds"}
	for _, v := range domain.Pollutants {
		if 1-report.Completeness[v] > opts.MaxMissingRatio {
			p.errorf("%s: %.1f%% missing, limit %.1f%%", v, 100*(1-report.Completeness[v]), 100*opts.MaxMissingRatio)
		}
	}
	for _, day := range report.ShortDays {
		p.errorf("day %s has too few hours with data", day.Format(time.DateOnly))
	}
	if !report.Passed && p.passed() {
		p.errorf("quality check failed")
	}
	return p
}

// validateParity checks that two renditions of a run hold the same values.
func validateParity(a, b []domain.UnifiedRecord) *phase {
	p := &phase{name: "Parquet and CSV parity"}
	if len(a) != len(b) {
		p.errorf("row counts differ: %d vs %d", len(a), len(b))
		return p
	}
	for i := range a {
		if !a[i].Time.Equal(b[i].Time) {
			p.errorf("row %d: time %s vs %s", i, a[i].Time.Format(time.RFC3339), b[i].Time.Format(time.RFC3339))
		}
		if a[i].NoDataFlag != b[i].NoDataFlag {
			p.errorf("row %d: no_data_flag differs", i)
		}
		for _, v := range domain.CanonicalVariables() {
			if !floatEq(a[i].Value(v), b[i].Value(v)) {
				p.errorf("row %d: %s %g vs %g", i, v, a[i].Value(v), b[i].Value(v))
			}
		}
	}
	return p
}

func floatEq(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	return math.Abs(a-b) <= 1e-9*math.Max(1, math.Abs(a))
}
