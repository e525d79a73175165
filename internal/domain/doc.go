// Package domain models the unification of air-quality and weather sources
// into one continuous hourly regional time series.
//
// # Sources
//
// Four source families feed the engine, each with its own grid and cadence:
//
//	ground     OpenAQ-style station readings (point locations, irregular times)
//	satellite  TEMPO-style tropospheric column retrievals (NO2, O3, HCHO, aerosol index)
//	weather    NLDAS/MERRA-2-style reanalysis fields (temperature, humidity, wind)
//	aerosol    VIIRS-style aerosol optical depth, converted to PM estimates
//
// Extraction turns every source into long-form [Observation] values. Everything
// after that point is source-agnostic and lives in this package.
//
// # Grid Conventions
//
// Coordinates are snapped to a fixed-resolution grid (default 0.125°, roughly
// 12.5 km) with round(c/r)*r on each axis. See [Snap]. Times are truncated to
// the hour. A (time, cell) pair is the join key between sources; duplicate
// observations under one key are averaged, never summed.
//
// # Missing Values
//
// Missing is represented as NaN throughout. Means exclude NaN rather than
// treating it as zero. A row or map entry that is absent reads as NaN via
// [WideRow.Value] and [HourlyRow.Value].
//
// # Column Naming
//
// Canonical variable names match the published schema: PM2.5, PM10, O3, NO2,
// SO2, CO, temperature, humidity, wind_speed. When a secondary source carries
// a column that already exists in the merged table, the column is suffixed
// with the source name ("NO2_satellite", "PM2.5_aerosol", "temperature_weather").
// The fallback chain in [FallbackRules] resolves those suffixes back into
// canonical columns after spatial aggregation.
//
// # Unit Heuristics
//
// Weather files do not reliably carry usable unit metadata, so two statistical
// guesses are applied (see [NormalizeTemperature] and [NormalizeHumidity]):
//
//	Temperature: mean > 100 means Kelvin; 273.15 is subtracted.
//	Humidity:    max <= 1 means a fraction; values are multiplied by 100.
//
// Both can misclassify edge cases. A uniformly dry field whose relative
// humidity never exceeds 1% is scaled up by 100, and specific humidity (kg/kg)
// is treated as a fraction and reported as a percentage even though it is not
// relative humidity. The thresholds are kept for compatibility with existing
// outputs.
//
// # Aerosol Estimates
//
// PM concentrations are estimated from 550 nm aerosol optical depth with fixed
// linear factors (PM2.5 = AOD*35, PM10 = AOD*60 µg/m³). The proxy is coarse and
// only ever used as the last link of the fallback chain.
package domain
