package extract

import (
	"errors"
	"fmt"
	"sort"

	"github.com/couchcryptid/air-quality-unifier/internal/adapter/netcdf"
	"github.com/couchcryptid/air-quality-unifier/internal/domain"
)

// FailureReason classifies why a file contributed nothing.
type FailureReason string

const (
	FailureNone              FailureReason = ""
	FailureTooSmall          FailureReason = "too_small"
	FailureUnreadable        FailureReason = "unreadable"
	FailureUnsupportedFormat FailureReason = "unsupported_format"
	FailureSchemaMismatch    FailureReason = "schema_mismatch"
	FailureNoTime            FailureReason = "no_time"
	FailureCancelled         FailureReason = "cancelled"
)

var (
	// ErrSchemaMismatch means no rule located the requested variable, or the
	// variable could not be geolocated.
	ErrSchemaMismatch = errors.New("schema mismatch")
	// ErrNoTime means no time could be derived for the file.
	ErrNoTime = errors.New("no time information")
	// ErrUnsupportedFormat means the file type is known but cannot be decoded.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrTooSmall means the file is below the minimum size and was not opened.
	ErrTooSmall = errors.New("file too small")
)

// Classify maps an extraction error to a FailureReason.
func Classify(err error) FailureReason {
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, ErrTooSmall):
		return FailureTooSmall
	case errors.Is(err, ErrSchemaMismatch):
		return FailureSchemaMismatch
	case errors.Is(err, ErrNoTime):
		return FailureNoTime
	case errors.Is(err, ErrUnsupportedFormat), errors.Is(err, netcdf.ErrHDF5):
		return FailureUnsupportedFormat
	default:
		return FailureUnreadable
	}
}

// FileResult is the outcome of extracting one file: either observations or a
// classified failure.
type FileResult struct {
	Task         Task
	Observations []domain.Observation
	Failure      FailureReason
	Err          error
}

// OK reports whether the file was extracted without failure. A successful file
// may still yield zero observations, e.g. when everything is outside the box.
func (r FileResult) OK() bool { return r.Failure == FailureNone }

// SourceSummary counts outcomes for one source.
type SourceSummary struct {
	Files        int `json:"files"`
	Failed       int `json:"failed"`
	Observations int `json:"observations"`
}

// Summary aggregates the results of a batch.
type Summary struct {
	Files        int                             `json:"files"`
	Failed       int                             `json:"failed"`
	Observations int                             `json:"observations"`
	Failures     map[FailureReason]int           `json:"failures"`
	Sources      map[domain.Source]SourceSummary `json:"sources"`
}

// Summarize folds file results into a Summary.
func Summarize(results []FileResult) Summary {
	s := Summary{
		Failures: make(map[FailureReason]int),
		Sources:  make(map[domain.Source]SourceSummary),
	}
	for _, r := range results {
		src := s.Sources[r.Task.Source]
		src.Files++
		s.Files++
		if !r.OK() {
			src.Failed++
			s.Failed++
			s.Failures[r.Failure]++
		}
		src.Observations += len(r.Observations)
		s.Observations += len(r.Observations)
		s.Sources[r.Task.Source] = src
	}
	return s
}

// Unavailable lists the sources that produced no observations at all.
func (s Summary) Unavailable() []domain.Source {
	var out []domain.Source
	for _, src := range domain.Sources {
		if s.Sources[src].Observations == 0 {
			out = append(out, src)
		}
	}
	return out
}

// String renders a compact one-line form for logs.
func (s Summary) String() string {
	reasons := make([]string, 0, len(s.Failures))
	for r, n := range s.Failures {
		reasons = append(reasons, fmt.Sprintf("%s=%d", r, n))
	}
	sort.Strings(reasons)
	return fmt.Sprintf("files=%d failed=%d observations=%d failures=%v", s.Files, s.Failed, s.Observations, reasons)
}
