package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/couchcryptid/air-quality-unifier/internal/domain"
	"github.com/couchcryptid/air-quality-unifier/internal/extract"
	"github.com/couchcryptid/air-quality-unifier/internal/sink"
)

// Config holds all service settings. Values come from, in increasing
// precedence: built-in defaults, the TOML file named by CONFIG_FILE, a .env
// file, and the process environment.
type Config struct {
	BBox           domain.BBox
	GridResolution float64 `validate:"gt=0" env:"GRID_RESOLUTION"`
	WindowHours    int     `validate:"gt=0,lte=8784" env:"WINDOW_HOURS"`
	// WindowEnd is zero when the window should end at the current hour.
	WindowEnd time.Time

	Parameters      []string
	OutlierQuantile float64 `validate:"gte=0,lt=1" env:"OUTLIER_QUANTILE"`
	MinFileBytes    int64   `validate:"gte=0" env:"MIN_FILE_BYTES"`
	ExtractWorkers  int     `validate:"gte=1,lte=64" env:"EXTRACT_WORKERS"`
	ManifestPath    string
	RawDir          string `validate:"required" env:"RAW_DIR"`

	OutputDir     string        `validate:"required" env:"OUTPUT_DIR"`
	OutputName    string        `validate:"required" env:"OUTPUT_NAME"`
	OutputFormats []sink.Format `validate:"min=1" env:"OUTPUT_FORMATS"`

	MaxMissingRatio  float64 `validate:"gte=0,lte=1" env:"MAX_MISSING_RATIO"`
	MinRecordsPerDay int     `validate:"gte=0,lte=24" env:"MIN_RECORDS_PER_DAY"`

	DatabaseURL  string
	KafkaBrokers []string
	KafkaTopic   string `validate:"required" env:"KAFKA_TOPIC"`

	HTTPAddr        string `validate:"required" env:"HTTP_ADDR"`
	Schedule        string `validate:"required" env:"SCHEDULE"`
	LogLevel        string `validate:"oneof=debug info warn error" env:"LOG_LEVEL"`
	LogFormat       string `validate:"oneof=json text" env:"LOG_FORMAT"`
	ShutdownTimeout time.Duration
}

var defaults = map[string]string{
	"BBOX":                "-130,20,-60,55",
	"GRID_RESOLUTION":     "0.125",
	"WINDOW_HOURS":        "168",
	"WINDOW_END":          "",
	"PARAMETERS":          "pm25,pm2.5,pm10,no2,o3,so2,co",
	"OUTLIER_QUANTILE":    "0.999",
	"MIN_FILE_BYTES":      "5000",
	"EXTRACT_WORKERS":     "4",
	"MANIFEST_PATH":       "",
	"RAW_DIR":             "data/raw",
	"OUTPUT_DIR":          "data/processed",
	"OUTPUT_NAME":         "past_week_hourly",
	"OUTPUT_FORMATS":      "parquet,csv",
	"MAX_MISSING_RATIO":   "0.3",
	"MIN_RECORDS_PER_DAY": "12",
	"DATABASE_URL":        "",
	"KAFKA_BROKERS":       "",
	"KAFKA_TOPIC":         "unified-air-quality",
	"HTTP_ADDR":           ":8080",
	"SCHEDULE":            "@hourly",
	"LOG_LEVEL":           "info",
	"LOG_FORMAT":          "json",
}

var validate = validator.New()

// Load reads configuration, applying defaults where unset.
func Load() (*Config, error) {
	_ = godotenv.Load() // .env is optional

	values, err := fileValues(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return nil, err
	}
	get := func(key string) string {
		return strings.TrimSpace(sharedcfg.EnvOrDefault(key, values[key]))
	}

	cfg := &Config{
		ManifestPath: get("MANIFEST_PATH"),
		RawDir:       get("RAW_DIR"),
		OutputDir:    get("OUTPUT_DIR"),
		OutputName:   get("OUTPUT_NAME"),
		DatabaseURL:  get("DATABASE_URL"),
		KafkaTopic:   get("KAFKA_TOPIC"),
		HTTPAddr:     get("HTTP_ADDR"),
		Schedule:     get("SCHEDULE"),
		LogLevel:     strings.ToLower(get("LOG_LEVEL")),
		LogFormat:    strings.ToLower(get("LOG_FORMAT")),
		Parameters:   splitList(get("PARAMETERS")),
	}

	if brokers := get("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = sharedcfg.ParseBrokers(brokers)
	}
	if cfg.BBox, err = ParseBBox(get("BBOX")); err != nil {
		return nil, fmt.Errorf("invalid BBOX: %w", err)
	}
	if cfg.GridResolution, err = parseFloat("GRID_RESOLUTION", get("GRID_RESOLUTION")); err != nil {
		return nil, err
	}
	if cfg.WindowHours, err = parseInt("WINDOW_HOURS", get("WINDOW_HOURS")); err != nil {
		return nil, err
	}
	if s := get("WINDOW_END"); s != "" {
		if cfg.WindowEnd, err = time.Parse(time.RFC3339, s); err != nil {
			return nil, fmt.Errorf("invalid WINDOW_END: %w", err)
		}
	}
	if cfg.OutlierQuantile, err = parseFloat("OUTLIER_QUANTILE", get("OUTLIER_QUANTILE")); err != nil {
		return nil, err
	}
	minBytes, err := parseInt("MIN_FILE_BYTES", get("MIN_FILE_BYTES"))
	if err != nil {
		return nil, err
	}
	cfg.MinFileBytes = int64(minBytes)
	if cfg.ExtractWorkers, err = parseInt("EXTRACT_WORKERS", get("EXTRACT_WORKERS")); err != nil {
		return nil, err
	}
	if cfg.OutputFormats, err = sink.ParseFormats(get("OUTPUT_FORMATS")); err != nil {
		return nil, fmt.Errorf("invalid OUTPUT_FORMATS: %w", err)
	}
	if cfg.MaxMissingRatio, err = parseFloat("MAX_MISSING_RATIO", get("MAX_MISSING_RATIO")); err != nil {
		return nil, err
	}
	if cfg.MinRecordsPerDay, err = parseInt("MIN_RECORDS_PER_DAY", get("MIN_RECORDS_PER_DAY")); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = shutdownTimeout(values); err != nil {
		return nil, err
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, describe(err)
	}
	return cfg, nil
}

// ParseBBox parses "west,south,east,north". All four numbers must be finite,
// with west < east and south < north.
func ParseBBox(s string) (domain.BBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return domain.BBox{}, fmt.Errorf("want 4 comma-separated numbers, got %q", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return domain.BBox{}, fmt.Errorf("not a finite number: %q", p)
		}
		v[i] = f
	}
	b := domain.BBox{West: v[0], South: v[1], East: v[2], North: v[3]}
	if b.West >= b.East || b.South >= b.North {
		return domain.BBox{}, errors.New("west must be below east and south below north")
	}
	return b, nil
}

// DomainOptions returns the engine settings.
func (c *Config) DomainOptions() domain.Options {
	return domain.Options{
		Resolution:  c.GridResolution,
		WindowEnd:   c.WindowEnd,
		WindowHours: c.WindowHours,
		Quality: domain.QualityOptions{
			MaxMissingRatio:  c.MaxMissingRatio,
			MinRecordsPerDay: c.MinRecordsPerDay,
		},
	}
}

// ExtractOptions returns the extraction settings.
func (c *Config) ExtractOptions() extract.Options {
	return extract.Options{
		BBox:            c.BBox,
		MinFileBytes:    c.MinFileBytes,
		Parameters:      c.Parameters,
		OutlierQuantile: c.OutlierQuantile,
		Workers:         c.ExtractWorkers,
	}
}

// SinkOptions returns the file output settings.
func (c *Config) SinkOptions() sink.Options {
	return sink.Options{Dir: c.OutputDir, Name: c.OutputName, Formats: c.OutputFormats}
}

// fileValues merges the TOML file over the defaults. Keys are the environment
// variable names in any case; lists may be TOML arrays.
func fileValues(path string) (map[string]string, error) {
	values := make(map[string]string, len(defaults))
	for k, v := range defaults {
		values[k] = v
	}
	if path == "" {
		return values, nil
	}
	var raw map[string]interface{}
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, fmt.Errorf("invalid CONFIG_FILE %s: %w", path, err)
	}
	for k, v := range raw {
		values[strings.ToUpper(k)] = tomlString(v)
	}
	return values, nil
}

func tomlString(v interface{}) string {
	switch t := v.(type) {
	case []interface{}:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = fmt.Sprint(e)
		}
		return strings.Join(parts, ",")
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return fmt.Sprint(t)
	}
}

// shutdownTimeout prefers the environment, then the file, then the shared default.
func shutdownTimeout(values map[string]string) (time.Duration, error) {
	if os.Getenv("SHUTDOWN_TIMEOUT") == "" && values["SHUTDOWN_TIMEOUT"] != "" {
		d, err := time.ParseDuration(values["SHUTDOWN_TIMEOUT"])
		if err != nil || d <= 0 {
			return 0, errors.New("invalid SHUTDOWN_TIMEOUT")
		}
		return d, nil
	}
	return sharedcfg.ParseShutdownTimeout()
}

func parseFloat(key, s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return f, nil
}

func parseInt(key, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// describe names the environment variable behind the first failed constraint.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	name := fe.Field()
	if f, ok := configFields[fe.StructField()]; ok {
		name = f
	}
	if fe.Param() != "" {
		return fmt.Errorf("invalid %s: must satisfy %s=%s", name, fe.Tag(), fe.Param())
	}
	return fmt.Errorf("invalid %s: %s", name, fe.Tag())
}

var configFields = envTags()

// envTags maps Config field names to the environment variable in their env tag.
func envTags() map[string]string {
	t := reflect.TypeOf(Config{})
	out := make(map[string]string, t.NumField())
	for i := range t.NumField() {
		f := t.Field(i)
		if env := f.Tag.Get("env"); env != "" {
			out[f.Name] = env
		}
	}
	return out
}
