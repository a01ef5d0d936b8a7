package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/pflag"

	"github.com/jmylchreest/hdrprobe/internal/compression"
	"github.com/jmylchreest/hdrprobe/internal/config"
	"github.com/jmylchreest/hdrprobe/internal/decoder"
	"github.com/jmylchreest/hdrprobe/internal/hdr"
)

// intervalValue adapts decoder.Interval to a pflag.Value.
type intervalValue struct {
	interval *decoder.Interval
}

var _ pflag.Value = (*intervalValue)(nil)

func (v *intervalValue) String() string { return v.interval.String() }
func (v *intervalValue) Type() string   { return "interval" }

func (v *intervalValue) Set(s string) error {
	i, err := decoder.ParseInterval(s)
	if err != nil {
		return err
	}
	*v.interval = i
	return nil
}

// orderValue adapts hdr.ChannelOrder to a pflag.Value.
type orderValue struct {
	order *hdr.ChannelOrder
}

var _ pflag.Value = (*orderValue)(nil)

func (v *orderValue) String() string { return v.order.String() }
func (v *orderValue) Type() string   { return "order" }

func (v *orderValue) Set(s string) error {
	o, err := hdr.ParseChannelOrder(s)
	if err != nil {
		return err
	}
	*v.order = o
	return nil
}

// frameFlags are the decode and analysis flags shared by commands that read
// frames from a video or raw stream.
type frameFlags struct {
	interval       decoder.Interval
	subsample      bool
	width          int
	height         int
	bitDepth       int
	order          hdr.ChannelOrder
	raw            bool
	energyFloor    float64
	brightnessGate float64
}

func newFrameFlags() *frameFlags {
	def := hdr.DefaultConfig()
	return &frameFlags{
		interval:       decoder.Interval{Seconds: 1},
		width:          def.Width,
		height:         def.Height,
		bitDepth:       def.BitDepth,
		order:          def.Order,
		energyFloor:    def.EnergyFloor,
		brightnessGate: def.BrightnessGateNits,
	}
}

func (f *frameFlags) register(fs *pflag.FlagSet) {
	fs.VarP(&intervalValue{&f.interval}, "interval", "i", "time between sampled frames (frame, 1s, 2s, or seconds)")
	fs.BoolVarP(&f.subsample, "subsample", "s", false, "analyse every second pixel in each direction")
	fs.IntVar(&f.width, "width", f.width, "decoded frame width (default from HDRPROBE_WIDTH)")
	fs.IntVar(&f.height, "height", f.height, "decoded frame height (default from HDRPROBE_HEIGHT)")
	fs.IntVar(&f.bitDepth, "bit-depth", f.bitDepth, "significant bits per sample")
	fs.Var(&orderValue{&f.order}, "order", "plane order of the raw stream (gbr, rgb, bgr)")
	fs.BoolVar(&f.raw, "raw", false, "treat the input as a raw plane stream instead of a video")
	fs.Float64Var(&f.energyFloor, "energy-floor", f.energyFloor, "minimum X+Y+Z for a pixel's chromaticity to count")
	fs.Float64Var(&f.brightnessGate, "brightness-gate", f.brightnessGate, "minimum nits for a pixel to count as wide gamut")
}

// resolve applies environment configuration to flags the user did not set.
func (f *frameFlags) resolve(fs *pflag.FlagSet, cfg config.Config) {
	if !fs.Changed("width") {
		f.width = cfg.Width
	}
	if !fs.Changed("height") {
		f.height = cfg.Height
	}
}

// analysisConfig returns the hdr configuration selected by the flags.
func (f *frameFlags) analysisConfig() hdr.Config {
	c := hdr.DefaultConfig()
	c.Width = f.width
	c.Height = f.height
	c.BitDepth = f.bitDepth
	c.Order = f.order
	c.BrightnessGateNits = f.brightnessGate
	c.EnergyFloor = f.energyFloor
	if f.subsample {
		c.Stride = 2
	}
	return c
}

// source is an open raw frame stream.
type source struct {
	io.ReadCloser

	// Step is the time between frames in seconds.
	Step float64
	// Duration of the input in seconds, 0 if unknown.
	Duration float64
}

// open opens input either as a raw plane stream or by starting the decoder.
func (f *frameFlags) open(ctx context.Context, input string, cfg config.Config, logger hclog.Logger) (*source, error) {
	if f.raw || decoder.IsRawStream(input) {
		s, err := compression.Open(input)
		if err != nil {
			return nil, err
		}
		logger.Debug("reading raw plane stream", "path", input, "compression", s.Format)
		return &source{ReadCloser: s, Step: f.interval.Step(0)}, nil
	}

	ff := decoder.NewFFmpeg(f.width, f.height)
	ff.FFmpegPath = cfg.FFmpegPath
	ff.FFprobePath = cfg.FFprobePath
	ff.Logger = logger.Named("decoder")

	probe, err := ff.Probe(ctx, input)
	if err != nil {
		if errors.Is(err, decoder.ErrDecoderNotFound) {
			return nil, err
		}
		logger.Warn("could not probe input, progress and frame timing are estimated", "error", err)
	}
	step := f.interval.Step(probe.FrameRate)
	logger.Debug("probed input", "duration", probe.Duration, "frame_rate", probe.FrameRate, "step", step)

	stream, err := ff.Open(ctx, input, f.interval)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", input, err)
	}
	return &source{ReadCloser: stream, Step: step, Duration: probe.Duration}, nil
}
