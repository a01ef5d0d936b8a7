package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/hdrprobe/internal/decoder"
	"github.com/jmylchreest/hdrprobe/internal/hdr"
	"github.com/jmylchreest/hdrprobe/internal/report"
	"github.com/jmylchreest/hdrprobe/internal/stream"
)

type heatmapOptions struct {
	frames   *frameFlags
	index    int
	widthOut int
	output   string
}

func newHeatmapCmd(global *globalOptions) *cobra.Command {
	opts := &heatmapOptions{frames: newFrameFlags(), widthOut: 960}

	cmd := &cobra.Command{
		Use:   "heatmap <video|raw>",
		Short: "Render a false-colour gamut map of one frame",
		Long: `Heatmap renders a single sampled frame with luminance as grey and pixels
outside Rec.709 tinted by gamut: yellow for P3, red for beyond P3.

Frames are counted at the sampling interval, so --frame 10 with the default
1s interval is the frame at ten seconds.`,
		Example: `  hdrprobe heatmap movie.mkv --frame 120
  hdrprobe heatmap dump.raw.xz --raw --width 1920 --height 1080 -o frame0.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHeatmap(cmd, global, opts, args[0])
		},
	}

	opts.frames.register(cmd.Flags())
	cmd.Flags().IntVar(&opts.index, "frame", 0, "index of the sampled frame to render")
	cmd.Flags().IntVar(&opts.widthOut, "width-out", opts.widthOut, "downscale the image to this width (0 keeps full size)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "PNG output path (default <input>.frame<N>.png, stdin.frame<N>.png for stdin)")

	return cmd
}

func runHeatmap(cmd *cobra.Command, global *globalOptions, opts *heatmapOptions, input string) error {
	logger := global.logger
	if opts.index < 0 {
		return fmt.Errorf("frame index must not be negative, got %d", opts.index)
	}
	if err := decoder.ValidateInputPath(input); err != nil {
		return err
	}
	opts.frames.resolve(cmd.Flags(), global.config)

	analyser, err := hdr.NewAnalyser(opts.frames.analysisConfig())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt)
	defer stop()

	src, err := opts.frames.open(ctx, input, global.config, logger)
	if err != nil {
		return err
	}
	defer src.Close()

	data, err := readFrame(src, analyser.Config().FrameBytes(), opts.index)
	if err != nil {
		return err
	}
	buf, err := analyser.Decode(data)
	if err != nil {
		return err
	}
	frame, nits, err := analyser.Prepare(buf)
	if err != nil {
		return err
	}
	classes := analyser.Classifier().ClassifyInto(frame, nits, nil)
	img, err := report.Heatmap(frame, nits, classes)
	if err != nil {
		return err
	}

	output := opts.output
	if output == "" {
		output = heatmapPath(input, opts.index)
	}
	if err := report.SavePNG(output, report.Downscale(img, opts.widthOut)); err != nil {
		return err
	}

	peak, avg := hdr.PeakAverage(nits)
	counts := hdr.CountClasses(classes)
	r709, rp3, r2020 := counts.Ratios()
	logger.Info("heatmap saved", "path", output, "frame", opts.index,
		"time", float64(opts.index)*src.Step, "peak_nits", peak, "avg_nits", avg,
		"ratio_709", r709, "ratio_p3", rp3, "ratio_2020", r2020)
	return nil
}

// heatmapPath returns the default image path for frame index of input.
func heatmapPath(input string, index int) string {
	base := input
	if input == decoder.StdinPath {
		base = "stdin"
	}
	return fmt.Sprintf("%s.frame%d.png", base, index)
}

// readFrame returns the raw bytes of frame index, skipping earlier frames.
func readFrame(r io.Reader, frameBytes, index int) ([]byte, error) {
	reader, err := stream.NewFrameReader(r, frameBytes)
	if err != nil {
		return nil, err
	}
	for {
		data, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("stream ended after %d frames, frame %d not available", reader.Frames(), index)
		}
		if err != nil {
			return nil, err
		}
		if reader.Frames()-1 == index {
			return data, nil
		}
	}
}
