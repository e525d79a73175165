package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/air-quality-unifier/internal/domain"
	"github.com/couchcryptid/air-quality-unifier/internal/extract"
	"github.com/couchcryptid/air-quality-unifier/internal/observability"
	"github.com/couchcryptid/air-quality-unifier/internal/pipeline"
	"github.com/couchcryptid/air-quality-unifier/internal/sink"
)

// --- mocks ---

type mockExtractor struct {
	input   domain.Input
	results []extract.FileResult
	calls   int
}

func (m *mockExtractor) Run(_ context.Context, _ []extract.Task) (domain.Input, []extract.FileResult) {
	m.calls++
	return m.input, m.results
}

type mockFiles struct {
	written [][]domain.UnifiedRecord
	err     error
}

func (m *mockFiles) Write(records []domain.UnifiedRecord) ([]sink.Outcome, error) {
	if m.err != nil {
		return []sink.Outcome{{Format: sink.FormatParquet, Err: m.err}}, m.err
	}
	m.written = append(m.written, records)
	return []sink.Outcome{{Format: sink.FormatParquet, Path: "/out/unified.parquet"}}, nil
}

type mockPublisher struct {
	mu       sync.Mutex
	failures int
	calls    int
	runs     []domain.Run
}

func (m *mockPublisher) Name() string { return "mock" }

func (m *mockPublisher) Publish(_ context.Context, run domain.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.calls <= m.failures {
		return errors.New("broker unavailable")
	}
	m.runs = append(m.runs, run)
	return nil
}

var windowEnd = time.Date(2024, 7, 8, 0, 0, 0, 0, time.UTC)

func testOptions() domain.Options {
	opts := domain.DefaultOptions()
	opts.WindowEnd = windowEnd
	opts.WindowHours = 24
	return opts
}

func noTasks() ([]extract.Task, error) { return nil, nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func groundInput() domain.Input {
	hour := windowEnd.Add(-2 * time.Hour)
	return domain.Input{
		Ground: []domain.Observation{
			{Time: hour, Lat: 39.74, Lon: -104.99, Variable: domain.VarPM25, Value: 12, Source: domain.SourceGround},
			{Time: hour, Lat: 39.74, Lon: -104.99, Variable: domain.VarO3, Value: 0.04, Source: domain.SourceGround},
		},
	}
}

func groundResults() []extract.FileResult {
	return []extract.FileResult{
		{Task: extract.Task{Source: domain.SourceGround, Path: "ground.parquet"}, Observations: groundInput().Ground},
		{
			Task:    extract.Task{Source: domain.SourceSatellite, Label: "NO2", Path: "broken.nc"},
			Failure: extract.FailureUnreadable,
			Err:     errors.New("bad magic"),
		},
	}
}

// --- tests ---

func TestPipeline_RunOnce_HappyPath(t *testing.T) {
	ext := &mockExtractor{input: groundInput(), results: groundResults()}
	files := &mockFiles{}
	pub := &mockPublisher{}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(noTasks, ext, files, testOptions(), discardLogger(), metrics, pub)

	rep, err := p.RunOnce(context.Background())
	require.NoError(t, err)

	require.Len(t, files.written, 1)
	records := files.written[0]
	require.Len(t, records, 24)
	assert.Equal(t, windowEnd.Add(-24*time.Hour), records[0].Time)

	row := records[22]
	assert.InDelta(t, 12.0, row.PM25, 1e-9)
	assert.False(t, row.NoDataFlag)
	assert.True(t, math.IsNaN(row.NO2))

	assert.NotEmpty(t, rep.RunID)
	assert.Equal(t, 2, rep.Extraction.Files)
	assert.Equal(t, 1, rep.Extraction.Failed)
	assert.Equal(t, 24, rep.Quality.Rows)
	assert.Empty(t, rep.Error)

	require.Len(t, pub.runs, 1)
	assert.Equal(t, rep.RunID, pub.runs[0].ID)
	assert.Len(t, pub.runs[0].Records, 24)
	assert.Equal(t, 1, pub.runs[0].FailedFiles)

	require.Len(t, rep.Outputs, 2)
	assert.Equal(t, "parquet", rep.Outputs[0].Sink)
	assert.Equal(t, "mock", rep.Outputs[1].Sink)

	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.Runs.WithLabelValues("success")), 0)
	assert.InDelta(t, 24.0, testutil.ToFloat64(metrics.OutputRows), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.FilesProcessed.WithLabelValues("ground", "ok")), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.FilesProcessed.WithLabelValues("satellite", "unreadable")), 0)
	assert.InDelta(t, 2.0, testutil.ToFloat64(metrics.ObservationsExtracted.WithLabelValues("ground")), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.SinkWrites.WithLabelValues("mock", "success")), 0)
}

func TestPipeline_RunOnce_NoObservationsStillPublishesWindow(t *testing.T) {
	ext := &mockExtractor{}
	files := &mockFiles{}

	p := pipeline.New(noTasks, ext, files, testOptions(), discardLogger(), observability.NewMetricsForTesting())

	rep, err := p.RunOnce(context.Background())
	require.NoError(t, err)

	require.Len(t, files.written, 1)
	assert.Len(t, files.written[0], 24)
	for _, r := range files.written[0] {
		assert.True(t, r.NoDataFlag)
	}
	assert.True(t, rep.Stats.EmptyMerge)
	assert.Equal(t, 24, rep.Quality.NoDataHours)
	assert.False(t, rep.Quality.Passed)
}

func TestPipeline_RunOnce_FileSinkFailureFailsRun(t *testing.T) {
	ext := &mockExtractor{input: groundInput()}
	files := &mockFiles{err: errors.New("disk full")}
	pub := &mockPublisher{}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(noTasks, ext, files, testOptions(), discardLogger(), metrics, pub)

	rep, err := p.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, rep.Error, "disk full")
	assert.Zero(t, pub.calls, "publishers run only after files are written")
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.Runs.WithLabelValues("failure")), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.SinkWrites.WithLabelValues("parquet", "error")), 0)
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_RunOnce_TaskListingFailure(t *testing.T) {
	ext := &mockExtractor{}
	failing := func() ([]extract.Task, error) { return nil, errors.New("manifest missing") }

	p := pipeline.New(failing, ext, &mockFiles{}, testOptions(), discardLogger(), observability.NewMetricsForTesting())

	_, err := p.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "manifest missing")
	assert.Zero(t, ext.calls)
}

func TestPipeline_RunOnce_PublisherRetries(t *testing.T) {
	pub := &mockPublisher{failures: 2}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(noTasks, &mockExtractor{input: groundInput()}, &mockFiles{}, testOptions(), discardLogger(), metrics, pub)
	p.SetPublishBackoff(time.Millisecond)

	rep, err := p.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, pub.calls)
	assert.Len(t, pub.runs, 1)
	assert.Empty(t, rep.Outputs[1].Error)
}

func TestPipeline_RunOnce_PublisherFailureIsNotFatal(t *testing.T) {
	pub := &mockPublisher{failures: 10}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(noTasks, &mockExtractor{input: groundInput()}, &mockFiles{}, testOptions(), discardLogger(), metrics, pub)
	p.SetPublishBackoff(time.Millisecond)

	rep, err := p.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, pub.calls)
	assert.Contains(t, rep.Outputs[1].Error, "broker unavailable")
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.SinkWrites.WithLabelValues("mock", "error")), 0)
	assert.NoError(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_ReadinessAndLastRun(t *testing.T) {
	p := pipeline.New(noTasks, &mockExtractor{}, &mockFiles{}, testOptions(), discardLogger(), observability.NewMetricsForTesting())

	require.Error(t, p.CheckReadiness(context.Background()))
	_, ok := p.LastRun()
	assert.False(t, ok)

	rep, err := p.RunOnce(context.Background())
	require.NoError(t, err)

	require.NoError(t, p.CheckReadiness(context.Background()))
	last, ok := p.LastRun()
	require.True(t, ok)
	assert.Equal(t, rep.RunID, last.(pipeline.Report).RunID)
}

func TestPipeline_Schedule(t *testing.T) {
	ext := &mockExtractor{}
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(noTasks, ext, &mockFiles{}, testOptions(), discardLogger(), metrics)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Schedule(ctx, "@hourly") }()

	require.Eventually(t, func() bool {
		return p.CheckReadiness(context.Background()) == nil
	}, 2*time.Second, 10*time.Millisecond, "the first run starts immediately")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.InDelta(t, 0.0, testutil.ToFloat64(metrics.SchedulerRunning), 0)
}

func TestPipeline_Schedule_InvalidSpec(t *testing.T) {
	p := pipeline.New(noTasks, &mockExtractor{}, &mockFiles{}, testOptions(), discardLogger(), observability.NewMetricsForTesting())
	err := p.Schedule(context.Background(), "not a schedule")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SCHEDULE")
}

func TestManifestSource_Discovers(t *testing.T) {
	raw := t.TempDir()
	dir := filepath.Join(raw, "openaq")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "latest.csv"), []byte("x"), 0o600))

	tasks, err := pipeline.ManifestSource("", raw)()
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, domain.SourceGround, tasks[0].Source)
}

func TestManifestSource_MissingManifest(t *testing.T) {
	_, err := pipeline.ManifestSource(filepath.Join(t.TempDir(), "nope.json"), "")()
	require.Error(t, err)
}
