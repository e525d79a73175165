package domain

// Source identifies the family an observation came from.
type Source string

const (
	SourceGround    Source = "ground"
	SourceSatellite Source = "satellite"
	SourceWeather   Source = "weather"
	SourceAerosol   Source = "aerosol"
)

// Sources lists every source family in merge priority order.
var Sources = []Source{SourceGround, SourceSatellite, SourceWeather, SourceAerosol}

// Suffix returns the column suffix used when this source collides with an
// existing column during a merge, e.g. "_satellite".
func (s Source) Suffix() string {
	return "_" + string(s)
}

// Canonical variable names, as published in the output schema.
const (
	VarPM25        = "PM2.5"
	VarPM10        = "PM10"
	VarO3          = "O3"
	VarNO2         = "NO2"
	VarSO2         = "SO2"
	VarCO          = "CO"
	VarTemperature = "temperature"
	VarHumidity    = "humidity"
	VarWindSpeed   = "wind_speed"

	// Satellite-only variables. They travel through the merge but are not
	// part of the published schema.
	VarHCHO         = "HCHO"
	VarAerosolIndex = "aerosol_index"

	// Intermediate wind components used to derive wind speed.
	VarWindU = "u_wind"
	VarWindV = "v_wind"
)

// Pollutants are the six pollutant columns. An hour with all six missing is
// flagged as having no data.
var Pollutants = []string{VarPM25, VarPM10, VarO3, VarNO2, VarSO2, VarCO}

// Meteorology are the weather columns of the output schema.
var Meteorology = []string{VarTemperature, VarHumidity, VarWindSpeed}

// CanonicalVariables returns the output variables in schema order.
func CanonicalVariables() []string {
	out := make([]string, 0, len(Pollutants)+len(Meteorology))
	out = append(out, Pollutants...)
	return append(out, Meteorology...)
}

// OutputColumns is the fixed column order of the published table.
var OutputColumns = append(append([]string{"time"}, CanonicalVariables()...), "no_data_flag")

// IsCanonical reports whether name is one of the output schema variables.
func IsCanonical(name string) bool {
	for _, v := range CanonicalVariables() {
		if v == name {
			return true
		}
	}
	return false
}

// IsPollutant reports whether name is one of the six pollutant columns.
func IsPollutant(name string) bool {
	for _, v := range Pollutants {
		if v == name {
			return true
		}
	}
	return false
}
