// Package report persists and renders analysis series: CSV tables, PNG
// charts and per-frame gamut heatmaps.
package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jmylchreest/hdrprobe/internal/hdr"
)

// CSVHeader is the column layout of an analysis table.
var CSVHeader = []string{"Time", "Peak", "Avg", "R709", "RP3", "R2020"}

// ErrEmptySeries is returned when there is nothing to render.
var ErrEmptySeries = errors.New("series has no records")

// DefaultCSVPath returns the analysis table path for an input file.
func DefaultCSVPath(input string) string {
	if input == "-" {
		return "stdin.analysis.csv"
	}
	return input + ".analysis.csv"
}

// ChartPath returns the PNG path rendered next to a CSV table.
func ChartPath(csvPath string) string {
	if ext := filepath.Ext(csvPath); strings.EqualFold(ext, ".csv") {
		return csvPath[:len(csvPath)-len(ext)] + ".png"
	}
	return csvPath + ".png"
}

// WriteCSV writes the series as a table with a header row.
func WriteCSV(w io.Writer, s *hdr.Series) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	row := make([]string, len(CSVHeader))
	for i, m := range s.All() {
		for j, v := range []float64{m.Time, m.PeakNits, m.AvgNits, m.Ratio709, m.RatioP3, m.Ratio2020} {
			row[j] = strconv.FormatFloat(v, 'f', -1, 64)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes the series to path.
func WriteCSVFile(path string, s *hdr.Series) error {
	f, err := os.Create(path) // #nosec G304 - User-specified output path
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	if err := WriteCSV(f, s); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadCSV parses a table written by WriteCSV.
func ReadCSV(r io.Reader) (*hdr.Series, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(CSVHeader)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty CSV file")
		}
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	for i, name := range CSVHeader {
		if !strings.EqualFold(strings.TrimSpace(header[i]), name) {
			return nil, fmt.Errorf("unexpected CSV column %d: %q, want %q", i+1, header[i], name)
		}
	}

	series := hdr.NewSeries(0)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV line %d: %w", line, err)
		}
		var v [6]float64
		for i, field := range rec {
			v[i], err = strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("invalid %s value on line %d: %w", CSVHeader[i], line, err)
			}
		}
		m := hdr.FrameMetrics{Time: v[0], PeakNits: v[1], AvgNits: v[2], Ratio709: v[3], RatioP3: v[4], Ratio2020: v[5]}
		if err := series.Append(m); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	return series, nil
}

// ReadCSVFile reads a table from path.
func ReadCSVFile(path string) (*hdr.Series, error) {
	f, err := os.Open(path) // #nosec G304 - User-specified CSV path, intended to be read
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer f.Close()
	return ReadCSV(f)
}
