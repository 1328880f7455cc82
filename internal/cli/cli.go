// Package cli orchestrates the application run after configuration loading:
// it selects the frontend (TUI, progress bar, or plain logs), wires the
// event hooks, invokes the scanner, and renders the final report.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/MaterialsRealm/vasp-workflows/internal/cli/hooks"
	"github.com/MaterialsRealm/vasp-workflows/internal/cli/ui"
	"github.com/MaterialsRealm/vasp-workflows/pkg/scanner"
)

// Run executes the scan with the validated options and renders the result.
// It receives the application context, validated options, and the logger.
func Run(ctx context.Context, opts scanner.Options, logger *slog.Logger) error {
	interactive := term.IsTerminal(int(os.Stderr.Fd()))
	useTUI := opts.TuiEnabled && interactive && !opts.Verbose

	var report scanner.Report
	var runErr error

	if useTUI {
		report, runErr = runWithTUI(ctx, opts, logger)
	} else {
		var bar hooks.ProgressBar
		if interactive && !opts.Verbose {
			bar = newProgressBar()
		}
		opts.EventHooks = hooks.NewCLIHooks(logger, false, opts.Verbose, nil, bar)
		report, runErr = scanner.Scan(ctx, opts)
	}

	if runErr != nil {
		logger.Error("Scan failed", slog.Any("error", runErr))
		return runErr
	}

	return renderReport(os.Stdout, report, opts.OutputFormat)
}

// runWithTUI runs the scan in a goroutine while the Bubble Tea program owns
// the terminal. The program exits when the user quits; the scan result is
// collected afterwards.
func runWithTUI(ctx context.Context, opts scanner.Options, logger *slog.Logger) (scanner.Report, error) {
	model := ui.NewModel()
	program := tea.NewProgram(&model, tea.WithContext(ctx), tea.WithOutput(os.Stderr))

	opts.EventHooks = hooks.NewCLIHooks(logger, true, false, program, nil)

	type scanResult struct {
		report scanner.Report
		err    error
	}
	resultCh := make(chan scanResult, 1)
	go func() {
		report, err := scanner.Scan(ctx, opts)
		resultCh <- scanResult{report, err}
	}()

	if _, err := program.Run(); err != nil {
		return scanner.Report{}, fmt.Errorf("terminal UI failed: %w", err)
	}

	res := <-resultCh
	return res.report, res.err
}

// newProgressBar builds an indeterminate spinner-style bar on stderr; the
// number of work directories is not known before discovery completes.
func newProgressBar() hooks.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("Classifying"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSpinnerType(14),
	)
}

// renderReport writes the final run summary in the requested format.
func renderReport(w *os.File, report scanner.Report, format scanner.OutputFormat) error {
	if format == scanner.OutputFormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("encoding JSON report: %w", err)
		}
		return nil
	}

	s := report.Summary
	fmt.Fprintf(w, "Scanned %d work directories under %s in %.2fs\n",
		s.TotalDirsScanned, s.RootPath, s.DurationSeconds)
	fmt.Fprintf(w, "  %-14s %d (%.1f%%)\n", scanner.StatusDone+":", s.DoneCount, 100*s.Fractions[scanner.StatusDone])
	fmt.Fprintf(w, "  %-14s %d (%.1f%%)\n", scanner.StatusNotConverged+":", s.NotConvergedCount, 100*s.Fractions[scanner.StatusNotConverged])
	fmt.Fprintf(w, "  %-14s %d (%.1f%%)\n", scanner.StatusPending+":", s.PendingCount, 100*s.Fractions[scanner.StatusPending])
	if s.StatusFilePath != "" {
		fmt.Fprintf(w, "Status written to %s\n", s.StatusFilePath)
	}
	return nil
}
