package extract

import (
	"strings"

	"github.com/couchcryptid/air-quality-unifier/internal/domain"
)

// Schema is the part of a dataset the rules look at.
type Schema interface {
	Variables() []string
	Dimensions(name string) []string
	IsNumeric(name string) bool
}

// Rule is one way of locating a variable in a dataset. An alias rule matches
// an exact variable name; a structural rule matches by layout.
type Rule struct {
	Alias      string
	Structural bool
}

// Alias returns a rule matching the variable called name.
func Alias(name string) Rule { return Rule{Alias: name} }

// Structural returns the layout rule: the first numeric variable with at least
// two dimensions, one latitude-like and one longitude-like. Coordinate
// variables themselves are never selected.
func Structural() Rule { return Rule{Structural: true} }

func (r Rule) match(s Schema) (string, bool) {
	if !r.Structural {
		for _, v := range s.Variables() {
			if v == r.Alias {
				return v, true
			}
		}
		return "", false
	}
	for _, v := range s.Variables() {
		if isCoordinateName(v) || !s.IsNumeric(v) {
			continue
		}
		dims := s.Dimensions(v)
		if len(dims) < 2 {
			continue
		}
		if hasDim(dims, isLatDim) && hasDim(dims, isLonDim) {
			return v, true
		}
	}
	return "", false
}

// Rules is an ordered candidate list for one target variable.
type Rules []Rule

// AliasRules builds an alias-only rule list.
func AliasRules(names ...string) Rules {
	out := make(Rules, len(names))
	for i, n := range names {
		out[i] = Alias(n)
	}
	return out
}

// WithStructural appends the structural rule as the last resort.
func (rs Rules) WithStructural() Rules {
	return append(append(Rules(nil), rs...), Structural())
}

// Match is the outcome of applying a rule list.
type Match struct {
	Variable  string
	Heuristic bool
}

// Find applies the rules in order and returns the first hit.
func (rs Rules) Find(s Schema) (Match, bool) {
	for _, r := range rs {
		if v, ok := r.match(s); ok {
			return Match{Variable: v, Heuristic: r.Structural}, true
		}
	}
	return Match{}, false
}

// RuleTable maps a target (request label or canonical variable) to its rules.
type RuleTable map[string]Rules

// SatelliteRules locate tropospheric column products. Keys are the request
// labels used in manifests.
var SatelliteRules = RuleTable{
	"NO2":     AliasRules("NO2", "nitrogen_dioxide_tropospheric_column", "tropospheric_NO2_column").WithStructural(),
	"O3":      AliasRules("O3", "ozone_tropospheric_column", "tropospheric_O3_column").WithStructural(),
	"HCHO":    AliasRules("HCHO", "formaldehyde_tropospheric_column").WithStructural(),
	"AEROSOL": AliasRules("AI", "aerosol_index", "uvai").WithStructural(),
}

// satelliteVariables maps satellite request labels to emitted variable names.
var satelliteVariables = map[string]string{
	"NO2":     domain.VarNO2,
	"O3":      domain.VarO3,
	"HCHO":    domain.VarHCHO,
	"AEROSOL": domain.VarAerosolIndex,
}

// WeatherRules locate reanalysis fields. Weather files carry many unrelated
// fields, so no structural rule is used.
var WeatherRules = RuleTable{
	domain.VarTemperature: AliasRules("TMP", "T2M", "temperature", "temp"),
	domain.VarHumidity:    AliasRules("SPFH", "QV2M", "RH2M", "humidity", "rh"),
	domain.VarWindU:       AliasRules("UGRD", "U10M", "u_wind", "u10"),
	domain.VarWindV:       AliasRules("VGRD", "V10M", "v_wind", "v10"),
}

// AerosolRules locate 550 nm aerosol optical depth.
var AerosolRules = Rules(AliasRules("AOD_550", "Aerosol_Optical_Depth_550", "AOT_550", "aod"))

var (
	latNames = []string{"lat", "latitude", "Latitude", "LAT", "nav_lat"}
	lonNames = []string{"lon", "longitude", "Longitude", "LON", "long", "nav_lon"}
)

func isCoordinateName(name string) bool {
	if strings.EqualFold(name, "time") {
		return true
	}
	for _, n := range append(append([]string(nil), latNames...), lonNames...) {
		if strings.EqualFold(name, n) {
			return true
		}
	}
	return false
}

func isLatDim(name string) bool {
	return strings.Contains(strings.ToLower(name), "lat")
}

// isLonDim also accepts "long" spellings.
func isLonDim(name string) bool {
	return strings.Contains(strings.ToLower(name), "lon")
}

func hasDim(dims []string, pred func(string) bool) bool {
	for _, d := range dims {
		if pred(d) {
			return true
		}
	}
	return false
}
