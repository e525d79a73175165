package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/air-quality-unifier/internal/domain"
	"github.com/couchcryptid/air-quality-unifier/internal/sink"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, domain.BBox{West: -130, South: 20, East: -60, North: 55}, cfg.BBox)
	assert.Equal(t, 0.125, cfg.GridResolution)
	assert.Equal(t, 168, cfg.WindowHours)
	assert.True(t, cfg.WindowEnd.IsZero())
	assert.Equal(t, []string{"pm25", "pm2.5", "pm10", "no2", "o3", "so2", "co"}, cfg.Parameters)
	assert.Equal(t, 0.999, cfg.OutlierQuantile)
	assert.Equal(t, int64(5000), cfg.MinFileBytes)
	assert.Equal(t, 4, cfg.ExtractWorkers)
	assert.Empty(t, cfg.ManifestPath)
	assert.Equal(t, "data/raw", cfg.RawDir)
	assert.Equal(t, "data/processed", cfg.OutputDir)
	assert.Equal(t, "past_week_hourly", cfg.OutputName)
	assert.Equal(t, []sink.Format{sink.FormatParquet, sink.FormatCSV}, cfg.OutputFormats)
	assert.Equal(t, 0.3, cfg.MaxMissingRatio)
	assert.Equal(t, 12, cfg.MinRecordsPerDay)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "unified-air-quality", cfg.KafkaTopic)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "@hourly", cfg.Schedule)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("BBOX", "-125, 32, -114, 42")
	t.Setenv("GRID_RESOLUTION", "0.25")
	t.Setenv("WINDOW_HOURS", "24")
	t.Setenv("WINDOW_END", "2025-10-08T00:00:00Z")
	t.Setenv("PARAMETERS", "pm25, no2")
	t.Setenv("EXTRACT_WORKERS", "8")
	t.Setenv("MANIFEST_PATH", "data/raw/manifest.json")
	t.Setenv("OUTPUT_FORMATS", "csv")
	t.Setenv("DATABASE_URL", "postgres://localhost/aq")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_TOPIC", "custom-topic")
	t.Setenv("SCHEDULE", "0 * * * *")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, domain.BBox{West: -125, South: 32, East: -114, North: 42}, cfg.BBox)
	assert.Equal(t, 0.25, cfg.GridResolution)
	assert.Equal(t, 24, cfg.WindowHours)
	assert.Equal(t, time.Date(2025, 10, 8, 0, 0, 0, 0, time.UTC), cfg.WindowEnd)
	assert.Equal(t, []string{"pm25", "no2"}, cfg.Parameters)
	assert.Equal(t, 8, cfg.ExtractWorkers)
	assert.Equal(t, "data/raw/manifest.json", cfg.ManifestPath)
	assert.Equal(t, []sink.Format{sink.FormatCSV}, cfg.OutputFormats)
	assert.Equal(t, "postgres://localhost/aq", cfg.DatabaseURL)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-topic", cfg.KafkaTopic)
	assert.Equal(t, "0 * * * *", cfg.Schedule)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unify.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
grid_resolution = 0.5
parameters = ["pm25", "o3"]
output_name = "from_file"
shutdown_timeout = "20s"
LOG_LEVEL = "warn"
`), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("OUTPUT_NAME", "from_env")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0.5, cfg.GridResolution)
	assert.Equal(t, []string{"pm25", "o3"}, cfg.Parameters)
	assert.Equal(t, "from_env", cfg.OutputName, "environment beats the file")
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 20*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_BadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unify.toml")
	require.NoError(t, os.WriteFile(path, []byte("grid_resolution = = 1"), 0o600))
	t.Setenv("CONFIG_FILE", path)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CONFIG_FILE")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"BBOX", "-130,20,-60"},
		{"BBOX", "-60,20,-130,55"},
		{"BBOX", "-130,55,-60,20"},
		{"BBOX", "-130,NaN,-60,55"},
		{"GRID_RESOLUTION", "0"},
		{"GRID_RESOLUTION", "-0.1"},
		{"GRID_RESOLUTION", "fine"},
		{"WINDOW_HOURS", "0"},
		{"WINDOW_END", "yesterday"},
		{"OUTLIER_QUANTILE", "1.5"},
		{"MIN_FILE_BYTES", "-1"},
		{"EXTRACT_WORKERS", "0"},
		{"OUTPUT_FORMATS", "xlsx"},
		{"MAX_MISSING_RATIO", "2"},
		{"MIN_RECORDS_PER_DAY", "25"},
		{"LOG_LEVEL", "verbose"},
		{"LOG_FORMAT", "xml"},
		{"SHUTDOWN_TIMEOUT", "not-a-duration"},
		{"SHUTDOWN_TIMEOUT", "-1s"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestParseBBox(t *testing.T) {
	b, err := ParseBBox("-118.7,33.7,-117.6,34.4")
	require.NoError(t, err)
	assert.Equal(t, domain.BBox{West: -118.7, South: 33.7, East: -117.6, North: 34.4}, b)

	for _, s := range []string{"", "1,2,3,4,5", "a,b,c,d", "0,0,0,1", "-1,Inf,1,2"} {
		_, err := ParseBBox(s)
		assert.Error(t, err, s)
	}
}

func TestDerivedOptions(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	d := cfg.DomainOptions()
	assert.Equal(t, 0.125, d.Resolution)
	assert.Equal(t, 168, d.WindowHours)
	assert.Equal(t, domain.DefaultQualityOptions(), d.Quality)

	e := cfg.ExtractOptions()
	assert.Equal(t, cfg.BBox, e.BBox)
	assert.Equal(t, 4, e.Workers)

	s := cfg.SinkOptions()
	assert.Equal(t, "data/processed", s.Dir)
	assert.Equal(t, "past_week_hourly", s.Name)
}
