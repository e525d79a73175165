package extract

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// TEMPO granules: TEMPO_NO2_L2_V03_20251001T140211Z_S004G05.nc
	granuleTimeRe = regexp.MustCompile(`_(\d{8})T(\d{2})\d{4}Z`)
	// NLDAS hourly: NLDAS_FORA0125_H.A20251001.0100.020.nc
	hourlyTimeRe = regexp.MustCompile(`\.A(\d{8})\.(\d{2})\d{2}\.`)
	// VIIRS: AERDB_L2_VIIRS_SNPP.A2025274.1200.002.nc, or daily .A2025274.
	dayOfYearRe = regexp.MustCompile(`\.A(\d{4})(\d{3})(?:\.(\d{2})\d{2})?\.`)
	// MERRA-2 daily: MERRA2_400.tavg1_2d_slv_Nx.20251001.nc4
	dateRe = regexp.MustCompile(`[._](\d{8})[._]`)
)

// TimeFromFilename derives a timestamp from the naming conventions of the
// supported products. It reports false when no pattern matches.
func TimeFromFilename(path string) (time.Time, bool) {
	name := filepath.Base(path)

	if m := granuleTimeRe.FindStringSubmatch(name); m != nil {
		if t, err := time.Parse("2006010215", m[1]+m[2]); err == nil {
			return t, true
		}
	}
	if m := hourlyTimeRe.FindStringSubmatch(name); m != nil {
		if t, err := time.Parse("2006010215", m[1]+m[2]); err == nil {
			return t, true
		}
	}
	if m := dayOfYearRe.FindStringSubmatch(name); m != nil {
		year, _ := strconv.Atoi(m[1])
		doy, _ := strconv.Atoi(m[2])
		if doy >= 1 && doy <= 366 {
			t := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, doy-1)
			if m[3] != "" {
				hour, _ := strconv.Atoi(m[3])
				t = t.Add(time.Duration(hour) * time.Hour)
			}
			return t, true
		}
	}
	if m := dateRe.FindStringSubmatch(name); m != nil {
		if t, err := time.Parse("20060102", m[1]); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

var referenceLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05Z",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15",
	"2006-01-02",
	"2006-1-2 15:04:05",
	"2006-1-2",
}

// ParseTimestamp accepts the ISO-like forms used in attributes and CF units.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "UTC"))
	for _, layout := range referenceLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// CFTime converts offsets expressed in CF "<unit> since <reference>" units.
type CFTime struct {
	Unit      time.Duration
	Reference time.Time
}

// ParseCFUnits parses a CF time units string such as "hours since 2025-10-01 00:00:00".
func ParseCFUnits(units string) (CFTime, error) {
	parts := strings.SplitN(strings.TrimSpace(units), " since ", 2)
	if len(parts) != 2 {
		return CFTime{}, fmt.Errorf("not a CF time unit: %q", units)
	}
	var unit time.Duration
	switch strings.ToLower(strings.TrimSpace(parts[0])) {
	case "seconds", "second", "secs", "sec", "s":
		unit = time.Second
	case "minutes", "minute", "mins", "min":
		unit = time.Minute
	case "hours", "hour", "hrs", "hr", "h":
		unit = time.Hour
	case "days", "day", "d":
		unit = 24 * time.Hour
	default:
		return CFTime{}, fmt.Errorf("unsupported CF time unit %q", parts[0])
	}
	ref, err := ParseTimestamp(parts[1])
	if err != nil {
		return CFTime{}, err
	}
	return CFTime{Unit: unit, Reference: ref}, nil
}

// At returns the instant offset units after the reference.
func (c CFTime) At(offset float64) time.Time {
	return c.Reference.Add(time.Duration(offset * float64(c.Unit)))
}
