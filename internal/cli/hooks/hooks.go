// Package hooks bridges scanner events to the CLI's UI layer (TUI, logger,
// progress bar).
package hooks

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/MaterialsRealm/vasp-workflows/pkg/scanner"
)

// --- TUI messages ---

// DirDiscoveredMsg signals that a work directory was found by the finder.
type DirDiscoveredMsg struct{ Path string }

// DirStatusUpdateMsg signals that a directory has been classified.
type DirStatusUpdateMsg struct {
	Path     string
	Status   scanner.Status
	Reason   string
	Duration time.Duration
}

// RunCompleteMsg signals the completion of the entire scan run.
type RunCompleteMsg struct{ Report scanner.Report }

// TUIProgram defines the interface needed to interact with the Bubble Tea
// program.
type TUIProgram interface {
	Send(msg tea.Msg)
}

// ProgressBar defines the interface needed to interact with the progress
// bar.
type ProgressBar interface {
	Add(num int) error
	Describe(description string)
	Close() error
}

// NoOpTUIProgram provides a default null implementation.
type NoOpTUIProgram struct{}

// Send implements TUIProgram.
func (n *NoOpTUIProgram) Send(msg tea.Msg) {}

// NoOpProgressBar provides a default null implementation.
type NoOpProgressBar struct{}

// Add implements ProgressBar.
func (n *NoOpProgressBar) Add(num int) error { return nil }

// Describe implements ProgressBar.
func (n *NoOpProgressBar) Describe(description string) {}

// Close implements ProgressBar.
func (n *NoOpProgressBar) Close() error { return nil }

// CLIHooks implements the scanner.Hooks interface, routing library events to
// whichever frontend is active: TUI, verbose logs, or a progress bar.
type CLIHooks struct {
	logger         *slog.Logger
	tuiEnabled     bool
	verboseEnabled bool
	tuiProgram     TUIProgram
	progressBar    ProgressBar
	mu             sync.Mutex // Protects concurrent access to progressBar
}

// NewCLIHooks creates a new CLIHooks instance. Pass nil for tuiProgram or
// progressBar if not applicable; NoOp versions will be used.
func NewCLIHooks(logger *slog.Logger, tuiEnabled, verboseEnabled bool, tuiProg TUIProgram, progBar ProgressBar) scanner.Hooks {
	if tuiProg == nil {
		tuiProg = &NoOpTUIProgram{}
	}
	if progBar == nil {
		progBar = &NoOpProgressBar{}
	}
	return &CLIHooks{
		logger:         logger,
		tuiEnabled:     tuiEnabled,
		verboseEnabled: verboseEnabled,
		tuiProgram:     tuiProg,
		progressBar:    progBar,
	}
}

// OnDirDiscovered handles the event when the finder reports a work
// directory.
func (h *CLIHooks) OnDirDiscovered(path string) error {
	if h.tuiEnabled {
		h.tuiProgram.Send(DirDiscoveredMsg{Path: path})
	} else if h.verboseEnabled {
		h.logger.Debug("Work directory discovered", slog.String("path", path))
	}
	return nil // Library ignores hook errors
}

// OnDirStatusUpdate handles classification events. Called concurrently from
// the worker pool, so every branch must be thread-safe.
func (h *CLIHooks) OnDirStatusUpdate(path string, status scanner.Status, reason string, duration time.Duration) error {
	if h.tuiEnabled {
		h.tuiProgram.Send(DirStatusUpdateMsg{
			Path:     path,
			Status:   status,
			Reason:   reason,
			Duration: duration,
		})
		return nil
	}

	if h.verboseEnabled {
		attrs := []any{
			slog.String("path", path),
			slog.String("status", string(status)),
		}
		if duration > 0 {
			attrs = append(attrs, slog.Duration("duration", duration))
		}
		if reason != "" {
			attrs = append(attrs, slog.String("reason", reason))
		}
		level := slog.LevelInfo
		if status == scanner.StatusNotConverged {
			level = slog.LevelWarn
		}
		h.logger.Log(nil, level, "Directory classified", attrs...)
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_ = h.progressBar.Add(1)
	return nil
}

// OnRunComplete forwards the final report to the TUI or finalizes the
// progress bar.
func (h *CLIHooks) OnRunComplete(report scanner.Report) error {
	if h.tuiEnabled {
		h.tuiProgram.Send(RunCompleteMsg{Report: report})
		return nil
	}
	h.mu.Lock()
	_ = h.progressBar.Close()
	h.mu.Unlock()
	// Newline after the progress bar so the summary does not overlap it.
	if _, isNoOp := h.progressBar.(*NoOpProgressBar); !isNoOp {
		_, _ = fmt.Fprintf(os.Stderr, "\n")
	}
	return nil
}
