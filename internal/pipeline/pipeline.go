package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/air-quality-unifier/internal/domain"
	"github.com/couchcryptid/air-quality-unifier/internal/extract"
	"github.com/couchcryptid/air-quality-unifier/internal/observability"
	"github.com/couchcryptid/air-quality-unifier/internal/sink"
)

// TaskSource lists the raw files of one run.
type TaskSource func() ([]extract.Task, error)

// Extractor turns raw files into observations, one result per file.
type Extractor interface {
	Run(ctx context.Context, tasks []extract.Task) (domain.Input, []extract.FileResult)
}

// FileSink writes the published table. It fails only when no format was written.
type FileSink interface {
	Write(records []domain.UnifiedRecord) ([]sink.Outcome, error)
}

// Publisher receives the finished run after the files are written.
// Publishing is best-effort: failures are retried, logged and counted.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, run domain.Run) error
}

// Report describes one run for logs and the status endpoint.
type Report struct {
	RunID      string               `json:"run_id"`
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt time.Time            `json:"finished_at"`
	Extraction extract.Summary      `json:"extraction"`
	Stats      domain.Stats         `json:"stats"`
	Quality    domain.QualityReport `json:"quality"`
	Outputs    []Output             `json:"outputs"`
	Error      string               `json:"error,omitempty"`
}

// Output is the outcome of one file format or publisher.
type Output struct {
	Sink  string `json:"sink"`
	Path  string `json:"path,omitempty"`
	Error string `json:"error,omitempty"`
}

const publishAttempts = 3

// Pipeline runs extract, unify and write as one unit.
type Pipeline struct {
	tasks      TaskSource
	extractor  Extractor
	files      FileSink
	publishers []Publisher
	opts       domain.Options
	logger     *slog.Logger
	metrics    *observability.Metrics

	ready   atomic.Bool
	running sync.Mutex
	mu      sync.RWMutex
	last    *Report

	// publishBackoff is the first retry delay for publishers.
	publishBackoff time.Duration
}

// New creates a Pipeline with the given stages and observability.
func New(tasks TaskSource, e Extractor, files FileSink, opts domain.Options, logger *slog.Logger, metrics *observability.Metrics, publishers ...Publisher) *Pipeline {
	return &Pipeline{
		tasks:          tasks,
		extractor:      e,
		files:          files,
		publishers:     publishers,
		opts:           opts,
		logger:         logger,
		metrics:        metrics,
		publishBackoff: 200 * time.Millisecond,
	}
}

// CheckReadiness returns nil once a run has completed successfully.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed a run yet")
	}
	return nil
}

// LastRun returns the report of the most recent run, successful or not.
func (p *Pipeline) LastRun() (any, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.last == nil {
		return nil, false
	}
	return *p.last, true
}

// RunOnce performs a complete run. Runs never overlap; a call made while a
// run is in progress waits for it. The returned error is non-nil only when
// the task list could not be built or no output file could be written.
func (p *Pipeline) RunOnce(ctx context.Context) (Report, error) {
	p.running.Lock()
	defer p.running.Unlock()

	rep := Report{RunID: uuid.NewString(), StartedAt: time.Now().UTC()}
	logger := p.logger.With("run_id", rep.RunID)
	logger.Info("run started")

	err := p.run(ctx, logger, &rep)
	rep.FinishedAt = time.Now().UTC()
	duration := rep.FinishedAt.Sub(rep.StartedAt)
	p.metrics.RunDuration.Observe(duration.Seconds())

	if err != nil {
		rep.Error = err.Error()
		p.metrics.Runs.WithLabelValues("failure").Inc()
		logger.Error("run failed", "error", err, "duration", duration)
	} else {
		p.metrics.Runs.WithLabelValues("success").Inc()
		p.metrics.LastSuccess.Set(float64(rep.FinishedAt.Unix()))
		p.ready.Store(true)
		logger.Info("run complete",
			"duration", duration,
			"rows", rep.Quality.Rows,
			"no_data_hours", rep.Quality.NoDataHours,
			"quality_passed", rep.Quality.Passed,
		)
	}

	p.mu.Lock()
	p.last = &rep
	p.mu.Unlock()
	return rep, err
}

func (p *Pipeline) run(ctx context.Context, logger *slog.Logger, rep *Report) error {
	tasks, err := p.tasks()
	if err != nil {
		return fmt.Errorf("list input files: %w", err)
	}

	in, results := p.extractor.Run(ctx, tasks)
	rep.Extraction = extract.Summarize(results)
	p.recordExtraction(results)
	logger.Info("extraction complete", "summary", rep.Extraction.String())
	for _, src := range rep.Extraction.Unavailable() {
		logger.Warn("source unavailable", "source", src)
	}

	res := domain.Unify(in, p.opts)
	rep.Stats = res.Stats
	rep.Quality = res.Quality
	if res.Stats.EmptyMerge {
		logger.Warn("no observations merged, publishing an all-missing window",
			"start", res.Scaffold.Start(),
			"end", res.Scaffold.End(),
		)
	}
	if !res.Quality.Passed {
		logger.Warn("quality check failed",
			"completeness", res.Quality.Completeness,
			"short_days", len(res.Quality.ShortDays),
		)
	}

	outcomes, err := p.files.Write(res.Records)
	for _, o := range outcomes {
		out := Output{Sink: string(o.Format), Path: o.Path}
		if o.Err != nil {
			out.Error = o.Err.Error()
		}
		rep.Outputs = append(rep.Outputs, out)
		p.recordSink(string(o.Format), o.Err)
	}
	if err != nil {
		return err
	}
	p.recordTable(res.Quality)

	run := domain.Run{
		ID:          rep.RunID,
		StartedAt:   rep.StartedAt,
		FinishedAt:  time.Now().UTC(),
		Files:       rep.Extraction.Files,
		FailedFiles: rep.Extraction.Failed,
		Records:     res.Records,
		Quality:     res.Quality,
	}
	for _, pub := range p.publishers {
		err := p.publish(ctx, logger, pub, run)
		out := Output{Sink: pub.Name()}
		if err != nil {
			out.Error = err.Error()
		}
		rep.Outputs = append(rep.Outputs, out)
		p.recordSink(pub.Name(), err)
	}
	return nil
}

// publish retries a publisher with exponential backoff.
func (p *Pipeline) publish(ctx context.Context, logger *slog.Logger, pub Publisher, run domain.Run) error {
	backoff := p.publishBackoff
	maxBackoff := 5 * time.Second

	var err error
	for attempt := 1; attempt <= publishAttempts; attempt++ {
		if err = pub.Publish(ctx, run); err == nil {
			return nil
		}
		logger.Warn("publish failed",
			"sink", pub.Name(),
			"attempt", attempt,
			"error", err,
		)
		if attempt == publishAttempts || !p.backoffOrStop(ctx, &backoff, maxBackoff) {
			break
		}
	}
	logger.Error("publish abandoned", "sink", pub.Name(), "error", err)
	return err
}

func (p *Pipeline) recordExtraction(results []extract.FileResult) {
	for _, r := range results {
		outcome := "ok"
		if !r.OK() {
			outcome = string(r.Failure)
		}
		src := string(r.Task.Source)
		p.metrics.FilesProcessed.WithLabelValues(src, outcome).Inc()
		p.metrics.ObservationsExtracted.WithLabelValues(src).Add(float64(len(r.Observations)))
	}
}

func (p *Pipeline) recordSink(name string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	p.metrics.SinkWrites.WithLabelValues(name, outcome).Inc()
}

func (p *Pipeline) recordTable(q domain.QualityReport) {
	p.metrics.OutputRows.Set(float64(q.Rows))
	p.metrics.NoDataHours.Set(float64(q.NoDataHours))
	for v, c := range q.Completeness {
		p.metrics.ColumnCompleteness.WithLabelValues(v).Set(c)
	}
}

// backoffOrStop checks for context cancellation, sleeps with the current backoff,
// and advances the backoff. Returns false if the caller should stop.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff, maxBackoff)
	return true
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
