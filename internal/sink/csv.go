package sink

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/couchcryptid/air-quality-unifier/internal/domain"
)

// CSVWriter writes the table as CSV with a header row. Missing values are
// empty cells.
type CSVWriter struct{}

func (CSVWriter) Format() Format { return FormatCSV }

func (CSVWriter) WriteFile(path string, records []domain.UnifiedRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write(domain.OutputColumns); err != nil {
		_ = f.Close()
		return err
	}
	vars := domain.CanonicalVariables()
	row := make([]string, len(domain.OutputColumns))
	for _, r := range records {
		row[0] = r.Time.UTC().Format(time.RFC3339)
		for i, v := range vars {
			row[i+1] = formatValue(r.Value(v))
		}
		row[len(row)-1] = strconv.FormatBool(r.NoDataFlag)
		if err := w.Write(row); err != nil {
			_ = f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func formatValue(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func readCSV(path string) ([]domain.UnifiedRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck // read-only

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header %s: %w", path, err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[h] = i
	}
	for _, name := range domain.OutputColumns {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("%s lacks column %q", path, name)
		}
	}

	var out []domain.UnifiedRecord
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		t, err := time.Parse(time.RFC3339, rec[col["time"]])
		if err != nil {
			return nil, fmt.Errorf("%s: bad time %q: %w", path, rec[col["time"]], err)
		}
		u := domain.EmptyRecord(t.UTC())
		for _, v := range domain.CanonicalVariables() {
			cell := rec[col[v]]
			if cell == "" {
				continue
			}
			x, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("%s: bad %s %q: %w", path, v, cell, err)
			}
			u.SetValue(v, x)
		}
		u.NoDataFlag, err = strconv.ParseBool(rec[col["no_data_flag"]])
		if err != nil {
			return nil, fmt.Errorf("%s: bad no_data_flag: %w", path, err)
		}
		out = append(out, u)
	}
	return out, nil
}
