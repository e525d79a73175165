package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeSchema struct {
	vars    []string
	dims    map[string][]string
	nonNums map[string]bool
}

func (s fakeSchema) Variables() []string             { return s.vars }
func (s fakeSchema) Dimensions(name string) []string { return s.dims[name] }
func (s fakeSchema) IsNumeric(name string) bool      { return !s.nonNums[name] }

func granuleSchema(vars ...string) fakeSchema {
	s := fakeSchema{
		vars: append([]string{"latitude", "longitude"}, vars...),
		dims: map[string][]string{
			"latitude":  {"latitude"},
			"longitude": {"longitude"},
		},
		nonNums: map[string]bool{},
	}
	for _, v := range vars {
		s.dims[v] = []string{"latitude", "longitude"}
	}
	return s
}

func TestRules_AliasBeforeStructural(t *testing.T) {
	s := granuleSchema("quality_flag", "nitrogen_dioxide_tropospheric_column")

	m, ok := SatelliteRules["NO2"].Find(s)
	assert.True(t, ok)
	assert.Equal(t, Match{Variable: "nitrogen_dioxide_tropospheric_column"}, m)
}

func TestRules_FirstAliasWins(t *testing.T) {
	s := granuleSchema("tropospheric_NO2_column", "NO2")

	m, ok := SatelliteRules["NO2"].Find(s)
	assert.True(t, ok)
	assert.Equal(t, "NO2", m.Variable)
}

func TestRules_StructuralFallback(t *testing.T) {
	s := granuleSchema("vertical_column_troposphere")
	s.dims["time_bnds"] = []string{"time", "nv"}
	s.vars = append([]string{"time_bnds"}, s.vars...)

	m, ok := SatelliteRules["NO2"].Find(s)
	assert.True(t, ok)
	assert.Equal(t, Match{Variable: "vertical_column_troposphere", Heuristic: true}, m)
}

func TestRules_StructuralSkipsCoordinatesAndText(t *testing.T) {
	s := fakeSchema{
		vars: []string{"lat", "lon", "label", "latent_heat"},
		dims: map[string][]string{
			"lat":         {"lat", "lon"},
			"lon":         {"lat", "lon"},
			"label":       {"lat", "lon"},
			"latent_heat": {"lat", "lon"},
		},
		nonNums: map[string]bool{"label": true},
	}

	m, ok := Rules{Structural()}.Find(s)
	assert.True(t, ok)
	assert.Equal(t, "latent_heat", m.Variable)
}

func TestRules_NoMatch(t *testing.T) {
	s := fakeSchema{
		vars: []string{"x"},
		dims: map[string][]string{"x": {"x"}},
	}

	_, ok := SatelliteRules["O3"].Find(s)
	assert.False(t, ok)
}

func TestRules_WeatherHasNoStructural(t *testing.T) {
	s := granuleSchema("PSFC")

	for target, rules := range WeatherRules {
		_, ok := rules.Find(s)
		assert.False(t, ok, target)
	}
}

func TestRules_WithStructuralDoesNotAlias(t *testing.T) {
	base := AliasRules("a", "b")
	_ = base.WithStructural()
	assert.Len(t, base, 2)
}
