package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/hdrprobe/internal/decoder"
	"github.com/jmylchreest/hdrprobe/internal/hdr"
	"github.com/jmylchreest/hdrprobe/internal/report"
	"github.com/jmylchreest/hdrprobe/internal/stream"
)

type analyseOptions struct {
	frames  *frameFlags
	workers int
	output  string
	plot    bool
	summary bool
}

func newAnalyseCmd(global *globalOptions) *cobra.Command {
	opts := &analyseOptions{frames: newFrameFlags()}

	cmd := &cobra.Command{
		Use:     "analyse <video|raw>",
		Aliases: []string{"analyze"},
		Short:   "Measure luminance and gamut coverage of every sampled frame",
		Long: `Analyse decodes an HDR10 video (or reads a raw gbrp10le plane stream) and
records, for each sampled frame, the peak and average luminance in nits and
the fraction of pixels inside Rec.709, inside DCI-P3 only, and outside P3.

Use "-" as the input to read a raw plane stream from stdin.`,
		Example: `  hdrprobe analyse movie.mkv
  hdrprobe analyse movie.mkv --interval frame --subsample --plot
  ffmpeg -i movie.mkv -pix_fmt gbrp10le -f rawvideo - | hdrprobe analyse - --interval frame`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyse(cmd, global, opts, args[0])
		},
	}

	opts.frames.register(cmd.Flags())
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "concurrent frame analysers (default from HDRPROBE_WORKERS or CPU count)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "CSV output path (default <input>.analysis.csv)")
	cmd.Flags().BoolVar(&opts.plot, "plot", false, "render a PNG chart next to the CSV")
	cmd.Flags().BoolVar(&opts.summary, "summary", false, "print a summary table after analysis")

	return cmd
}

func runAnalyse(cmd *cobra.Command, global *globalOptions, opts *analyseOptions, input string) error {
	logger := global.logger
	if err := decoder.ValidateInputPath(input); err != nil {
		return err
	}
	opts.frames.resolve(cmd.Flags(), global.config)
	workers := opts.workers
	if !cmd.Flags().Changed("workers") {
		workers = global.config.Workers
	}

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

	prog := newProgress(cmd.ErrOrStderr(), src.Duration, global.quiet, logger)
	pipeline, err := stream.New(analyser, src.Step,
		stream.WithWorkers(workers),
		stream.WithLogger(logger.Named("stream")),
		stream.WithFrameCallback(prog.Frame),
	)
	if err != nil {
		src.Close()
		return err
	}

	logger.Info("analysing", "input", input, "interval", opts.frames.interval.String(),
		"subsample", opts.frames.subsample, "workers", workers)
	series, runErr := pipeline.Run(ctx, src)
	prog.Done()
	if closeErr := src.Close(); closeErr != nil {
		if runErr == nil {
			runErr = closeErr
		} else {
			logger.Debug("decoder close failed after analysis error", "error", closeErr)
		}
	}

	if series == nil || series.Len() == 0 {
		if runErr != nil {
			return fmt.Errorf("analysis failed: %w", runErr)
		}
		return fmt.Errorf("no frames could be read from %s", input)
	}
	if errors.Is(runErr, context.Canceled) {
		logger.Warn("analysis interrupted, saving partial results", "frames", series.Len())
	}

	output := opts.output
	if output == "" {
		output = report.DefaultCSVPath(input)
	}
	if err := report.WriteCSVFile(output, series); err != nil {
		return err
	}
	logger.Info("analysis saved", "path", output, "frames", series.Len())

	if opts.plot {
		if err := renderChart(series, report.ChartPath(output), filepath.Base(input)); err != nil {
			return err
		}
		logger.Info("chart saved", "path", report.ChartPath(output))
	}
	if opts.summary {
		writeSummary(cmd.OutOrStdout(), hdr.Summarise(series))
	}

	if runErr != nil {
		return fmt.Errorf("analysis incomplete: %w", runErr)
	}
	return nil
}

// commandContext returns the command's context, which is nil when the
// command is executed without ExecuteContext.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func renderChart(series *hdr.Series, path, title string) error {
	opts := report.DefaultChartOptions()
	opts.Title = title
	img, err := report.RenderChart(series, opts)
	if err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return report.SavePNG(path, img)
}
