// Package extract turns downloaded source files into long-form observations.
//
// Each source family has an Extractor. The Runner fans files out to the
// extractors, isolates failures per file, and reports every file as a
// FileResult with a classified FailureReason. A failing file never aborts
// the batch; the only thing a caller sees is a Summary of what was skipped.
//
// Gridded files (satellite, weather, aerosol) are NetCDF classic. Variables
// are located with a ranked RuleTable: known aliases first, then an optional
// structural rule that picks the first numeric field laid out on lat/lon
// dimensions. Coordinates come from 1-D coordinate variables or from 2-D
// latitude/longitude fields; times come from a CF time coordinate, the
// time_coverage_start attribute, or the file name.
package extract
