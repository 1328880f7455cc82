package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MaterialsRealm/vasp-workflows/internal/cli/config"
	"github.com/MaterialsRealm/vasp-workflows/internal/cli/hooks"
	"github.com/MaterialsRealm/vasp-workflows/pkg/scanner"
	"github.com/MaterialsRealm/vasp-workflows/pkg/scanner/restart"
)

// rerunCmd lists the work directories that still need a calculation: those
// classified PENDING or NOT_CONVERGED. With --prepare it also promotes each
// directory's CONTCAR to POSCAR so the next run continues from the last
// relaxed geometry.
var rerunCmd = &cobra.Command{
	Use:   "rerun -r <rootDir>",
	Short: "Lists work directories that need another calculation run.",
	Long: `rerun scans the root path like the main command, then prints the paths of
all work directories classified PENDING or NOT_CONVERGED, one per line, in
discovery order.

With --prepare, each listed directory is also made ready for restart: the
current POSCAR is backed up (POSCAR_1, POSCAR_2, ...) and CONTCAR is moved
into its place.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		opts, logger, err := config.LoadAndValidate(cfgFile, profileName, verbose, cmd.Flags())
		if err != nil {
			return err
		}

		// The rerun listing is plain stdout output; no TUI, no status file.
		opts.TuiEnabled = false
		opts.StatusFilePath = ""
		opts.EventHooks = hooks.NewCLIHooks(logger, false, opts.Verbose, nil, nil)

		engine, err := scanner.NewEngine(opts)
		if err != nil {
			return err
		}
		if _, err := engine.Run(ctx); err != nil {
			logger.Error("Scan failed", slog.Any("error", err))
			return err
		}

		prepare, _ := cmd.Flags().GetBool("prepare")
		var failed int
		for _, path := range engine.Classifier().ToRerun() {
			if prepare {
				if err := prepareDir(path, opts.Logger); err != nil {
					logger.Warn("Could not prepare directory for restart",
						slog.String("path", path), slog.Any("error", err))
					failed++
					continue
				}
			}
			fmt.Fprintln(os.Stdout, path)
		}
		if failed > 0 {
			return fmt.Errorf("failed to prepare %d directories", failed)
		}
		return nil
	},
}

// prepareDir backs up POSCAR and promotes CONTCAR for one directory.
func prepareDir(path string, loggerHandler slog.Handler) error {
	wd, err := scanner.NewWorkDir(path)
	if err != nil {
		return err
	}
	return restart.PromoteContcar(wd, loggerHandler)
}

func init() {
	rerunCmd.Flags().Bool("prepare", false, "Back up POSCAR and promote CONTCAR in each listed directory")
	rootCmd.AddCommand(rerunCmd)
}
