package hdr

import (
	"fmt"
)

// Config controls how frames are analysed.
type Config struct {
	// Width, Height and BitDepth describe the decoded frames.
	Width    int
	Height   int
	BitDepth int

	// Order is the plane order produced by the decoder.
	Order ChannelOrder

	// Stride is the decimation step applied before analysis (1 = none).
	Stride int

	// BrightnessGateNits is the minimum luminance for a pixel to take part
	// in wide-gamut attribution.
	BrightnessGateNits float64

	// EnergyFloor is the X+Y+Z value a bright pixel must exceed for its
	// chromaticity to be trusted. The historical default is 0.
	EnergyFloor float64
}

// DefaultConfig returns the configuration for 4K gbrp10le frames.
func DefaultConfig() Config {
	return Config{
		Width:              3840,
		Height:             2160,
		BitDepth:           10,
		Order:              OrderGBR,
		Stride:             1,
		BrightnessGateNits: 1.0,
		EnergyFloor:        0.0,
	}
}

// FrameBytes returns the raw size of one frame.
func (c Config) FrameBytes() int {
	return FrameBytes(c.Width, c.Height)
}

// Validate validates the analysis configuration.
func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("frame geometry must be positive, got %dx%d", c.Width, c.Height)
	}
	if c.BitDepth < 1 || c.BitDepth > 16 {
		return fmt.Errorf("bit depth must be between 1 and 16, got %d", c.BitDepth)
	}
	if _, err := ParseChannelOrder(c.Order.String()); err != nil {
		return err
	}
	if c.Stride < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidStride, c.Stride)
	}
	if c.BrightnessGateNits < 0 {
		return fmt.Errorf("brightness gate must not be negative, got %g", c.BrightnessGateNits)
	}
	if c.EnergyFloor < 0 {
		return fmt.Errorf("energy floor must not be negative, got %g", c.EnergyFloor)
	}
	return nil
}

// FrameResult is the analysis of a single frame.
type FrameResult struct {
	PeakNits float64
	AvgNits  float64
	Counts   GamutCounts
}

// Metrics packages the result with its timestamp.
func (r FrameResult) Metrics(t float64) FrameMetrics {
	r709, rp3, r2020 := r.Counts.Ratios()
	return FrameMetrics{
		Time:      t,
		PeakNits:  r.PeakNits,
		AvgNits:   r.AvgNits,
		Ratio709:  r709,
		RatioP3:   rp3,
		Ratio2020: r2020,
	}
}

// Analyser runs the per-frame analysis. It holds no mutable state and is
// safe for concurrent use.
type Analyser struct {
	config     Config
	table      *PQTable
	classifier Classifier
}

// NewAnalyser validates config and precomputes the PQ table.
func NewAnalyser(config Config) (*Analyser, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid analysis configuration: %w", err)
	}
	table, err := NewPQTable(config.BitDepth)
	if err != nil {
		return nil, err
	}
	return &Analyser{
		config: config,
		table:  table,
		classifier: Classifier{
			BrightnessGateNits: config.BrightnessGateNits,
			EnergyFloor:        config.EnergyFloor,
		},
	}, nil
}

// Config returns the analyser configuration.
func (a *Analyser) Config() Config {
	return a.config
}

// Classifier returns the gamut classifier in use.
func (a *Analyser) Classifier() Classifier {
	return a.classifier
}

// Decode parses a raw frame using the configured geometry.
func (a *Analyser) Decode(data []byte) (*PlaneBuffer, error) {
	return DecodePlanes(data, a.config.Width, a.config.Height, a.config.BitDepth, a.config.Order)
}

// Prepare decimates buf, reorders it to RGB and linearises it. It also
// returns the per-pixel luminance.
func (a *Analyser) Prepare(buf *PlaneBuffer) (*LinearFrame, []float64, error) {
	sampled, err := Decimate(buf, a.config.Stride)
	if err != nil {
		return nil, nil, err
	}
	frame, err := a.table.Linearize(sampled.Canonical())
	if err != nil {
		return nil, nil, err
	}
	return frame, Luminance(frame, nil), nil
}

// Analyse computes peak, average and gamut counts for one frame.
func (a *Analyser) Analyse(buf *PlaneBuffer) (FrameResult, error) {
	frame, nits, err := a.Prepare(buf)
	if err != nil {
		return FrameResult{}, err
	}
	peak, avg := PeakAverage(nits)
	return FrameResult{
		PeakNits: peak,
		AvgNits:  avg,
		Counts:   a.classifier.Count(frame, nits),
	}, nil
}

// AnalyseRaw decodes and analyses one raw frame.
func (a *Analyser) AnalyseRaw(data []byte) (FrameResult, error) {
	buf, err := a.Decode(data)
	if err != nil {
		return FrameResult{}, err
	}
	return a.Analyse(buf)
}
