package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/hdrprobe/internal/hdr"
	"github.com/jmylchreest/hdrprobe/internal/report"
)

func newSummaryCmd(_ *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "summary <csv>",
		Short: "Print content light levels and mean gamut coverage",
		Long: `Summary reads an analysis CSV and prints MaxCLL (highest frame peak),
MaxFALL (highest frame average) and the mean share of each gamut bucket.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			series, err := report.ReadCSVFile(args[0])
			if err != nil {
				return err
			}
			writeSummary(cmd.OutOrStdout(), hdr.Summarise(series))
			return nil
		},
	}
}

// writeSummary prints s as a two-column table.
func writeSummary(w io.Writer, s hdr.Summary) {
	table := NewTable([]string{"Metric", "Value"})
	table.SetAlignRight(1)
	table.AddRow([]string{"Frames", strconv.Itoa(s.Frames)})
	table.AddRow([]string{"Duration", fmt.Sprintf("%.2f s", s.Duration)})
	table.AddRow([]string{"MaxCLL", fmt.Sprintf("%.1f nits @ %.2f s", s.MaxCLL, s.MaxCLLTime)})
	table.AddRow([]string{"MaxFALL", fmt.Sprintf("%.1f nits", s.MaxFALL)})
	table.AddRow([]string{"Mean average", fmt.Sprintf("%.1f nits", s.MeanAvgNits)})
	table.AddRow([]string{hdr.GamutRec709.String(), formatPercent(s.MeanRatio709)})
	table.AddRow([]string{hdr.GamutP3.String() + " (outside 709)", formatPercent(s.MeanRatioP3)})
	table.AddRow([]string{hdr.GamutRec2020.String() + " (outside P3)", formatPercent(s.MeanRatio2020)})
	fmt.Fprint(w, table.Render())
}

func formatPercent(ratio float64) string {
	return fmt.Sprintf("%.3f%%", ratio*100)
}
