package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/hdrprobe/internal/report"
)

func newPlotCmd(global *globalOptions) *cobra.Command {
	var (
		output string
		title  string
		width  int
		height int
	)

	cmd := &cobra.Command{
		Use:   "plot <csv>",
		Short: "Render a chart from an analysis CSV",
		Long: `Plot reads a table written by "hdrprobe analyse" and renders luminance on a
PQ-scaled axis above the stacked Rec.709, P3 and Rec.2020 pixel ratios.`,
		Example: `  hdrprobe plot movie.mkv.analysis.csv
  hdrprobe plot movie.mkv.analysis.csv -o chart.png --title "Reel 1"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			series, err := report.ReadCSVFile(input)
			if err != nil {
				return err
			}
			if output == "" {
				output = report.ChartPath(input)
			}
			if title == "" {
				title = filepath.Base(input)
			}

			opts := report.DefaultChartOptions()
			opts.Title = title
			if width > 0 {
				opts.Width = width
			}
			if height > 0 {
				opts.Height = height
			}
			img, err := report.RenderChart(series, opts)
			if err != nil {
				return fmt.Errorf("failed to render chart: %w", err)
			}
			if err := report.SavePNG(output, img); err != nil {
				return err
			}
			global.logger.Info("chart saved", "path", output, "frames", series.Len())
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "PNG output path (default <csv base>.png)")
	cmd.Flags().StringVar(&title, "title", "", "chart title (default CSV file name)")
	cmd.Flags().IntVar(&width, "chart-width", 0, "chart width in pixels")
	cmd.Flags().IntVar(&height, "chart-height", 0, "chart height in pixels")

	return cmd
}
