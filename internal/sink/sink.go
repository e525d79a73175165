// Package sink writes the unified table to files and reads it back.
package sink

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/couchcryptid/air-quality-unifier/internal/domain"
)

// Format names a file encoding of the table.
type Format string

const (
	FormatParquet Format = "parquet"
	FormatCSV     Format = "csv"
)

// ErrNoFormats is returned when every configured format failed.
var ErrNoFormats = errors.New("no output format succeeded")

// FileWriter encodes records into a file at path.
type FileWriter interface {
	Format() Format
	WriteFile(path string, records []domain.UnifiedRecord) error
}

// Options say where and how the table is written.
type Options struct {
	Dir     string
	Name    string
	Formats []Format
}

// ParseFormats parses a comma-separated format list, e.g. "parquet,csv".
func ParseFormats(s string) ([]Format, error) {
	var out []Format
	for _, part := range strings.Split(s, ",") {
		f := Format(strings.ToLower(strings.TrimSpace(part)))
		if f == "" {
			continue
		}
		if _, err := writerFor(f); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty format list %q", s)
	}
	return out, nil
}

func writerFor(f Format) (FileWriter, error) {
	switch f {
	case FormatParquet:
		return ParquetWriter{}, nil
	case FormatCSV:
		return CSVWriter{}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q", f)
	}
}

// Outcome is the result of writing one format.
type Outcome struct {
	Format Format
	Path   string
	Err    error
}

// Writer writes the table in every configured format.
type Writer struct {
	opts   Options
	logger *slog.Logger
}

// NewWriter creates a Writer.
func NewWriter(opts Options, logger *slog.Logger) *Writer {
	return &Writer{opts: opts, logger: logger}
}

// Write encodes records in each format, in order. Each file is written to a
// temporary name and renamed into place. When every configured format fails
// and CSV was not among them, CSV is tried as a fallback. The error is non-nil
// only when no file was written.
func (w *Writer) Write(records []domain.UnifiedRecord) ([]Outcome, error) {
	if err := os.MkdirAll(w.opts.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	outcomes := make([]Outcome, 0, len(w.opts.Formats)+1)
	var errs []error
	for _, f := range w.opts.Formats {
		o := w.writeFormat(f, records)
		if o.Err != nil {
			errs = append(errs, o.Err)
		}
		outcomes = append(outcomes, o)
	}
	if len(errs) < len(outcomes) {
		return outcomes, nil
	}

	if !slices.Contains(w.opts.Formats, FormatCSV) {
		w.logger.Warn("all configured formats failed, falling back to csv")
		o := w.writeFormat(FormatCSV, records)
		outcomes = append(outcomes, o)
		if o.Err == nil {
			return outcomes, nil
		}
		errs = append(errs, o.Err)
	}
	return outcomes, fmt.Errorf("%w: %w", ErrNoFormats, errors.Join(errs...))
}

func (w *Writer) writeFormat(f Format, records []domain.UnifiedRecord) Outcome {
	o := Outcome{Format: f, Path: filepath.Join(w.opts.Dir, w.opts.Name+"."+string(f))}
	o.Err = w.writeOne(f, o.Path, records)
	if o.Err != nil {
		w.logger.Error("output write failed", "format", f, "path", o.Path, "error", o.Err)
	} else {
		w.logger.Info("output written", "format", f, "path", o.Path, "rows", len(records))
	}
	return o
}

func (w *Writer) writeOne(f Format, path string, records []domain.UnifiedRecord) error {
	fw, err := writerFor(f)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := fw.WriteFile(tmp, records); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write %s: %w", f, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// ReadFile decodes a table written by any FileWriter, chosen by extension.
func ReadFile(path string) ([]domain.UnifiedRecord, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		return readParquet(path)
	case ".csv":
		return readCSV(path)
	default:
		return nil, fmt.Errorf("cannot read %s: unknown extension", path)
	}
}
