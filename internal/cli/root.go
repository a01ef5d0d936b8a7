// Package cli provides the command-line interface for hdrprobe.
package cli

import (
	"fmt"
	"io"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/hdrprobe/internal/config"
	"github.com/jmylchreest/hdrprobe/internal/version"
)

// globalOptions holds state shared by all subcommands. It is populated by
// the root command before any subcommand runs.
type globalOptions struct {
	verbose bool
	quiet   bool
	logJSON bool

	config config.Config
	logger hclog.Logger
}

// NewRootCmd creates the hdrprobe command tree.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{logger: hclog.NewNullLogger()}

	rootCmd := &cobra.Command{
		Use:   "hdrprobe",
		Short: "Per-frame HDR10 luminance and gamut analysis",
		Long: `hdrprobe decodes HDR10 video into raw Rec.2020 PQ frames and measures,
for every sampled frame, the peak and average luminance in nits and the share
of pixels whose colour lies outside Rec.709 or DCI-P3.

Results are written as a CSV table that can be plotted or summarised later.`,
		Version:      version.Short(),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setup(cmd.ErrOrStderr())
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&opts.quiet, "quiet", "q", false, "suppress non-error output")
	rootCmd.PersistentFlags().BoolVar(&opts.logJSON, "log-json", false, "emit logs as JSON")
	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	rootCmd.SetVersionTemplate(version.String() + "\n")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newAnalyseCmd(opts))
	rootCmd.AddCommand(newPlotCmd(opts))
	rootCmd.AddCommand(newSummaryCmd(opts))
	rootCmd.AddCommand(newHeatmapCmd(opts))

	return rootCmd
}

// setup loads environment configuration and builds the logger.
func (o *globalOptions) setup(stderr io.Writer) error {
	cfg, envErr := config.NewBuilder().WithEnvConfig().Build()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	o.config = cfg

	level := hclog.Info
	switch {
	case o.verbose:
		level = hclog.Debug
	case o.quiet:
		level = hclog.Error
	}
	if cfg.LogLevel != hclog.NoLevel {
		level = cfg.LogLevel
	}
	o.logger = hclog.New(&hclog.LoggerOptions{
		Name:       "hdrprobe",
		Output:     stderr,
		Level:      level,
		JSONFormat: o.logJSON,
	})
	if envErr != nil {
		o.logger.Warn("ignoring environment settings, using defaults", "error", envErr)
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print detailed version information including build date, commit hash, and Go version.`,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
