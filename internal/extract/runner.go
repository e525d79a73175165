package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/air-quality-unifier/internal/domain"
)

// Runner extracts a manifest's files concurrently. A failing file never
// aborts the batch; it becomes a FileResult with a failure reason.
type Runner struct {
	opts       Options
	logger     *slog.Logger
	extractors map[domain.Source]Extractor
}

// NewRunner creates a Runner dispatching tasks to extractors by source.
func NewRunner(opts Options, logger *slog.Logger, extractors ...Extractor) *Runner {
	m := make(map[domain.Source]Extractor, len(extractors))
	for _, e := range extractors {
		m[e.Source()] = e
	}
	return &Runner{opts: opts, logger: logger, extractors: m}
}

// NewDefaultRunner wires the four standard extractors.
func NewDefaultRunner(opts Options, logger *slog.Logger) *Runner {
	return NewRunner(opts, logger,
		NewGroundExtractor(opts, logger),
		NewSatelliteExtractor(opts, logger),
		NewWeatherExtractor(opts, logger),
		NewAerosolExtractor(opts),
	)
}

// Run extracts every task and returns the observations grouped by source
// together with the per-file results. Results are in task order.
func (r *Runner) Run(ctx context.Context, tasks []Task) (domain.Input, []FileResult) {
	results := make([]FileResult, len(tasks))

	g, gctx := errgroup.WithContext(ctx)
	workers := r.opts.Workers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)
	for i, task := range tasks {
		g.Go(func() error {
			results[i] = r.runOne(gctx, task)
			return nil
		})
	}
	_ = g.Wait() // tasks never return errors

	var in domain.Input
	for _, res := range results {
		if !res.OK() {
			r.logger.Warn("file skipped",
				"path", res.Task.Path,
				"source", res.Task.Source,
				"label", res.Task.Label,
				"reason", res.Failure,
				"error", res.Err,
			)
			continue
		}
		switch res.Task.Source {
		case domain.SourceGround:
			in.Ground = append(in.Ground, res.Observations...)
		case domain.SourceSatellite:
			in.Satellite = append(in.Satellite, res.Observations...)
		case domain.SourceWeather:
			in.Weather = append(in.Weather, res.Observations...)
		case domain.SourceAerosol:
			in.Aerosol = append(in.Aerosol, res.Observations...)
		}
	}
	return in, results
}

func (r *Runner) runOne(ctx context.Context, task Task) FileResult {
	res := FileResult{Task: task}
	fail := func(reason FailureReason, err error) FileResult {
		res.Failure, res.Err = reason, err
		return res
	}

	if err := ctx.Err(); err != nil {
		return fail(FailureCancelled, err)
	}
	ex, ok := r.extractors[task.Source]
	if !ok {
		return fail(FailureUnsupportedFormat, fmt.Errorf("no extractor for source %q: %w", task.Source, ErrUnsupportedFormat))
	}
	info, err := os.Stat(task.Path)
	if err != nil {
		return fail(FailureUnreadable, err)
	}
	if info.Size() < r.opts.MinFileBytes {
		err := fmt.Errorf("%s is %d bytes, below %d: %w", task.Path, info.Size(), r.opts.MinFileBytes, ErrTooSmall)
		return fail(Classify(err), err)
	}

	obs, err := ex.Extract(ctx, task)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return fail(FailureCancelled, err)
		}
		return fail(Classify(err), err)
	}
	res.Observations = obs
	r.logger.Debug("file extracted",
		"path", task.Path,
		"source", task.Source,
		"observations", len(obs),
	)
	return res
}
