package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// UnifiedRecord is one published hour. Missing values are NaN.
type UnifiedRecord struct {
	Time        time.Time
	PM25        float64
	PM10        float64
	O3          float64
	NO2         float64
	SO2         float64
	CO          float64
	Temperature float64
	Humidity    float64
	WindSpeed   float64
	NoDataFlag  bool
}

// EmptyRecord returns a record for t with every variable missing.
func EmptyRecord(t time.Time) UnifiedRecord {
	nan := math.NaN()
	return UnifiedRecord{
		Time: t,
		PM25: nan, PM10: nan, O3: nan, NO2: nan, SO2: nan, CO: nan,
		Temperature: nan, Humidity: nan, WindSpeed: nan,
		NoDataFlag: true,
	}
}

// Value returns the named canonical variable, or NaN for an unknown name.
func (r UnifiedRecord) Value(name string) float64 {
	switch name {
	case VarPM25:
		return r.PM25
	case VarPM10:
		return r.PM10
	case VarO3:
		return r.O3
	case VarNO2:
		return r.NO2
	case VarSO2:
		return r.SO2
	case VarCO:
		return r.CO
	case VarTemperature:
		return r.Temperature
	case VarHumidity:
		return r.Humidity
	case VarWindSpeed:
		return r.WindSpeed
	}
	return math.NaN()
}

// SetValue assigns the named canonical variable. Unknown names are ignored.
func (r *UnifiedRecord) SetValue(name string, v float64) {
	switch name {
	case VarPM25:
		r.PM25 = v
	case VarPM10:
		r.PM10 = v
	case VarO3:
		r.O3 = v
	case VarNO2:
		r.NO2 = v
	case VarSO2:
		r.SO2 = v
	case VarCO:
		r.CO = v
	case VarTemperature:
		r.Temperature = v
	case VarHumidity:
		r.Humidity = v
	case VarWindSpeed:
		r.WindSpeed = v
	}
}

// AllPollutantsMissing reports whether none of the six pollutants has a value.
func (r UnifiedRecord) AllPollutantsMissing() bool {
	for _, v := range Pollutants {
		if !math.IsNaN(r.Value(v)) {
			return false
		}
	}
	return true
}

// recordJSON mirrors the published column order. NaN becomes null.
type recordJSON struct {
	Time        time.Time `json:"time"`
	PM25        *float64  `json:"PM2.5"`
	PM10        *float64  `json:"PM10"`
	O3          *float64  `json:"O3"`
	NO2         *float64  `json:"NO2"`
	SO2         *float64  `json:"SO2"`
	CO          *float64  `json:"CO"`
	Temperature *float64  `json:"temperature"`
	Humidity    *float64  `json:"humidity"`
	WindSpeed   *float64  `json:"wind_speed"`
	NoDataFlag  bool      `json:"no_data_flag"`
}

// MarshalJSON encodes the record with schema column names and null for missing.
func (r UnifiedRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordJSON{
		Time:        r.Time,
		PM25:        Nullable(r.PM25),
		PM10:        Nullable(r.PM10),
		O3:          Nullable(r.O3),
		NO2:         Nullable(r.NO2),
		SO2:         Nullable(r.SO2),
		CO:          Nullable(r.CO),
		Temperature: Nullable(r.Temperature),
		Humidity:    Nullable(r.Humidity),
		WindSpeed:   Nullable(r.WindSpeed),
		NoDataFlag:  r.NoDataFlag,
	})
}

// UnmarshalJSON decodes the MarshalJSON form; null or absent values become NaN.
func (r *UnifiedRecord) UnmarshalJSON(data []byte) error {
	var raw recordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode unified record: %w", err)
	}
	*r = UnifiedRecord{
		Time:        raw.Time,
		PM25:        FromNullable(raw.PM25),
		PM10:        FromNullable(raw.PM10),
		O3:          FromNullable(raw.O3),
		NO2:         FromNullable(raw.NO2),
		SO2:         FromNullable(raw.SO2),
		CO:          FromNullable(raw.CO),
		Temperature: FromNullable(raw.Temperature),
		Humidity:    FromNullable(raw.Humidity),
		WindSpeed:   FromNullable(raw.WindSpeed),
		NoDataFlag:  raw.NoDataFlag,
	}
	return nil
}

// Nullable converts NaN to nil for serializers that cannot carry NaN.
func Nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// FromNullable converts nil back to NaN.
func FromNullable(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}
