package scanner

import (
	"log/slog"
	"time"
)

// Options carries the validated configuration for a Scan run. The CLI layer
// populates it from flags, environment, and config file; library callers can
// build it directly.
type Options struct {
	// RootPath is the directory tree to search for work directories.
	RootPath string

	// IgnorePatterns are doublestar globs matched against directory base
	// names; matching subtrees are pruned before descent.
	IgnorePatterns []string

	// Concurrency is the worker count for classification. Zero or negative
	// means runtime.NumCPU().
	Concurrency int

	// Classify is the policy applied to each directory. Required; the CLI
	// layer wires the force-convergence policy here by default.
	Classify ClassifyFunc

	// Atol is the absolute tolerance the CLI passes to the convergence
	// policy. Zero means DefaultAtol. Carried in the options for
	// traceability; the engine itself only calls Classify.
	Atol float64

	// Artifact is the output file the convergence policy inspects. Empty
	// means DefaultArtifact.
	Artifact string

	// StatusFilePath, when non-empty, is where the status map is dumped
	// after classification. Extension selects the format.
	StatusFilePath string

	// KeyBy selects the dump shape. Empty means DefaultKeyBy.
	KeyBy KeyBy

	// Logger is the slog handler all components log through. Required.
	Logger slog.Handler

	// EventHooks receives lifecycle callbacks. Nil means NoOpHooks.
	EventHooks Hooks

	// ProfileName and ConfigFilePath are carried through to the report for
	// traceability; the library does not interpret them.
	ProfileName    string
	ConfigFilePath string

	// OutputFormat selects the final summary rendering in the CLI layer.
	OutputFormat OutputFormat

	// TuiEnabled and Verbose are CLI-layer concerns carried here so hooks
	// can be wired consistently.
	TuiEnabled bool
	Verbose    bool
}

// Hooks defines callbacks for status updates during a scan. Implementations
// MUST be thread-safe; OnDirStatusUpdate is called concurrently from the
// worker pool.
type Hooks interface {
	OnDirDiscovered(path string) error
	OnDirStatusUpdate(path string, status Status, reason string, duration time.Duration) error
	OnRunComplete(report Report) error
}

// NoOpHooks provides a default, do-nothing implementation of Hooks.
type NoOpHooks struct{}

// OnDirDiscovered implements Hooks. It performs no action.
func (h *NoOpHooks) OnDirDiscovered(path string) error { return nil }

// OnDirStatusUpdate implements Hooks. It performs no action.
func (h *NoOpHooks) OnDirStatusUpdate(path string, status Status, reason string, duration time.Duration) error {
	return nil
}

// OnRunComplete implements Hooks. It performs no action.
func (h *NoOpHooks) OnRunComplete(report Report) error { return nil }
