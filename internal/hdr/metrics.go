package hdr

import (
	"errors"
	"fmt"
	"iter"
	"math"
)

// ErrNonMonotonic is returned when appending a record that does not advance
// the series timestamp.
var ErrNonMonotonic = errors.New("timestamp does not increase")

// FrameMetrics is the fingerprint of one sampled frame.
type FrameMetrics struct {
	Time      float64 `json:"time"`
	PeakNits  float64 `json:"peak_nits"`
	AvgNits   float64 `json:"avg_nits"`
	Ratio709  float64 `json:"ratio_709"`
	RatioP3   float64 `json:"ratio_p3"`
	Ratio2020 float64 `json:"ratio_2020"`
}

// Series is an append-only sequence of frame metrics in arrival order.
type Series struct {
	records []FrameMetrics
}

// NewSeries creates an empty series with room for capacity records.
func NewSeries(capacity int) *Series {
	return &Series{records: make([]FrameMetrics, 0, max(capacity, 0))}
}

// Append adds m to the end of the series.
func (s *Series) Append(m FrameMetrics) error {
	if n := len(s.records); n > 0 && !(m.Time > s.records[n-1].Time) {
		return fmt.Errorf("%w: %g after %g", ErrNonMonotonic, m.Time, s.records[n-1].Time)
	}
	s.records = append(s.records, m)
	return nil
}

// Len returns the number of records.
func (s *Series) Len() int {
	return len(s.records)
}

// At returns the record at index i.
func (s *Series) At(i int) FrameMetrics {
	return s.records[i]
}

// Records returns a copy of all records.
func (s *Series) Records() []FrameMetrics {
	out := make([]FrameMetrics, len(s.records))
	copy(out, s.records)
	return out
}

// All iterates over the records in order.
func (s *Series) All() iter.Seq2[int, FrameMetrics] {
	return func(yield func(int, FrameMetrics) bool) {
		for i, m := range s.records {
			if !yield(i, m) {
				return
			}
		}
	}
}

// Summary aggregates a whole series.
type Summary struct {
	Frames   int
	Duration float64

	// MaxCLL is the highest frame peak; MaxFALL the highest frame average.
	MaxCLL     float64
	MaxCLLTime float64
	MaxFALL    float64

	MeanAvgNits   float64
	MeanRatio709  float64
	MeanRatioP3   float64
	MeanRatio2020 float64
}

// Summarise computes content light levels and mean gamut coverage.
func Summarise(s *Series) Summary {
	var sum Summary
	sum.Frames = s.Len()
	if sum.Frames == 0 {
		return sum
	}
	for _, m := range s.All() {
		if m.PeakNits > sum.MaxCLL {
			sum.MaxCLL = m.PeakNits
			sum.MaxCLLTime = m.Time
		}
		sum.MaxFALL = math.Max(sum.MaxFALL, m.AvgNits)
		sum.MeanAvgNits += m.AvgNits
		sum.MeanRatio709 += m.Ratio709
		sum.MeanRatioP3 += m.RatioP3
		sum.MeanRatio2020 += m.Ratio2020
	}
	n := float64(sum.Frames)
	sum.MeanAvgNits /= n
	sum.MeanRatio709 /= n
	sum.MeanRatioP3 /= n
	sum.MeanRatio2020 /= n
	sum.Duration = s.At(sum.Frames-1).Time - s.At(0).Time
	return sum
}
