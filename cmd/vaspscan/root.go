package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/MaterialsRealm/vasp-workflows/internal/cli"
	"github.com/MaterialsRealm/vasp-workflows/internal/cli/config"
	"github.com/MaterialsRealm/vasp-workflows/pkg/scanner"
)

var (
	// Set at build time via -ldflags.
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Flags persistent across commands.
	cfgFile     string
	profileName string
	verbose     bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "vaspscan -r <rootDir>",
	Short: "Scans VASP work directories and classifies their convergence state.",
	Long: `vaspscan recursively discovers VASP work directories under a root path,
classifies each one by inspecting its output artifacts, and aggregates the
results into a status summary.

It features:
  - Parallel classification with submission-order results.
  - Force-convergence checks against OUTCAR force blocks.
  - Status file output (YAML or JSON) keyed by folder or by status.
  - Configuration profiles for different convergence policies.
  - An interactive Terminal UI (TUI) for monitoring progress.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		opts, logger, err := config.LoadAndValidate(cfgFile, profileName, verbose, cmd.Flags())
		if err != nil {
			return err
		}

		// Give the TUI a moment to take over the terminal before scan
		// output starts.
		if term.IsTerminal(int(os.Stderr.Fd())) && !verbose && opts.TuiEnabled {
			time.Sleep(100 * time.Millisecond)
		}

		return cli.Run(ctx, opts, logger)
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	rootCmd.SetVersionTemplate(`{{.Use}} version {{.Version}}` + "\n")
	// Cobra prints the error and exits non-zero if RunE returns an error.
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init registers flags for the root command.
func init() {
	// Persistent flags shared with subcommands.
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Configuration file path (default is search standard locations like ., $HOME/.config/vaspscan/)")
	rootCmd.PersistentFlags().StringVar(&profileName, "profile", "", "Name of configuration profile to use")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose (debug) logging output (disables TUI)")

	rootCmd.PersistentFlags().StringP("root", "r", "", "Required. Root directory to scan for VASP work directories.")
	_ = rootCmd.MarkPersistentFlagRequired("root")

	rootCmd.PersistentFlags().StringArray("ignore", []string{}, "Glob patterns for directories to prune (can be specified multiple times)")
	rootCmd.PersistentFlags().Int("concurrency", scanner.DefaultConcurrency, "Number of parallel workers (0 for auto-detect CPU cores)")
	rootCmd.PersistentFlags().Float64("atol", scanner.DefaultAtol, "Absolute tolerance for the force sum norm")
	rootCmd.PersistentFlags().String("artifact", scanner.DefaultArtifact, "Output artifact file name inspected for convergence")

	// Local flags for the root command. Names align with the Viper keys
	// bound in internal/cli/config.
	rootCmd.Flags().StringP("status-file", "s", scanner.DefaultStatusFile, `Status file path (".yaml", ".yml", or ".json"; empty disables writing)`)
	rootCmd.Flags().String("key-by", string(scanner.DefaultKeyBy), `Status file layout ("folder" or "status")`)
	rootCmd.Flags().String("output-format", string(scanner.DefaultOutputFormat), `Final report format ("text", "json")`)
	rootCmd.Flags().Bool("no-tui", false, "Disable interactive Terminal UI even if in a TTY")
}
