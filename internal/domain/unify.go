package domain

import "time"

// Options carry every setting the engine needs. Nothing is read from globals
// apart from the clock used when WindowEnd is zero.
type Options struct {
	Resolution  float64
	WindowEnd   time.Time
	WindowHours int
	Quality     QualityOptions
}

// DefaultOptions returns the settings of the published dataset.
func DefaultOptions() Options {
	return Options{
		Resolution:  DefaultResolution,
		WindowHours: DefaultWindowHours,
		Quality:     DefaultQualityOptions(),
	}
}

// Input holds the extracted observations of every source. Any of them may be
// empty; a missing source only means missing columns.
type Input struct {
	Ground    []Observation
	Satellite []Observation
	Weather   []Observation
	Aerosol   []Observation
}

// Stats counts rows at each stage of a run.
type Stats struct {
	GroundRows      int  `json:"ground_rows"`
	SatelliteRows   int  `json:"satellite_rows"`
	WeatherRows     int  `json:"weather_rows"`
	AerosolRows     int  `json:"aerosol_rows"`
	MergedRows      int  `json:"merged_rows"`
	AggregatedHours int  `json:"aggregated_hours"`
	EmptyMerge      bool `json:"empty_merge"`
}

// Result is the output of one unification.
type Result struct {
	Records  []UnifiedRecord
	Scaffold Scaffold
	Stats    Stats
	Quality  QualityReport
}

// Unify runs the engine: reshape each source, merge, aggregate across cells,
// join onto the hourly scaffold, impute and finalize. The number of records
// always equals the scaffold length, whatever the input.
func Unify(in Input, opts Options) Result {
	scaffold := BuildScaffold(opts.WindowEnd, opts.WindowHours)

	ground := Reshape(in.Ground, opts.Resolution)
	satellite := Reshape(in.Satellite, opts.Resolution)
	weather := Reshape(in.Weather, opts.Resolution)
	aerosol := Reshape(in.Aerosol, opts.Resolution)

	stats := Stats{
		GroundRows:    len(ground.Rows),
		SatelliteRows: len(satellite.Rows),
		WeatherRows:   len(weather.Rows),
		AerosolRows:   len(aerosol.Rows),
	}

	merged := Merge(ground, satellite, weather, aerosol)
	stats.MergedRows = len(merged.Rows)

	var aggregated HourlyTable
	if merged.Empty() {
		stats.EmptyMerge = true
	} else {
		aggregated = AggregateSpatial(merged)
		stats.AggregatedHours = len(aggregated.Rows)
	}

	records := Finalize(Impute(JoinScaffold(scaffold, aggregated)))
	return Result{
		Records:  records,
		Scaffold: scaffold,
		Stats:    stats,
		Quality:  AssessQuality(records, opts.Quality),
	}
}
