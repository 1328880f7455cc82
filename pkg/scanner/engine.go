package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"time"
)

// Engine orchestrates a scan run: discovery, concurrent classification,
// optional status dump, and report assembly, firing hooks along the way.
type Engine struct {
	opts       *Options
	logger     *slog.Logger
	classifier *Classifier
	finder     *Finder
	hooks      Hooks
}

// NewEngine validates options and assembles an Engine.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Logger == nil {
		return nil, fmt.Errorf("%w: Logger implementation (slog.Handler) cannot be nil", ErrConfigValidation)
	}
	if opts.RootPath == "" {
		return nil, fmt.Errorf("%w: root path cannot be empty", ErrConfigValidation)
	}
	if opts.Classify == nil {
		return nil, fmt.Errorf("%w: classification policy cannot be nil", ErrConfigValidation)
	}
	if opts.EventHooks == nil {
		opts.EventHooks = &NoOpHooks{}
	}
	if opts.KeyBy == "" {
		opts.KeyBy = DefaultKeyBy
	}
	if opts.KeyBy != KeyByFolder && opts.KeyBy != KeyByStatus {
		return nil, fmt.Errorf("%w: key_by must be %q or %q, got %q", ErrConfigValidation, KeyByFolder, KeyByStatus, opts.KeyBy)
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.NumCPU()
	}

	logger := slog.New(opts.Logger).With(slog.String("component", "engine"))
	finder, err := NewFinder(opts.IgnorePatterns, opts.Logger)
	if err != nil {
		return nil, err
	}
	return &Engine{
		opts:       &opts,
		logger:     logger,
		classifier: NewClassifier(opts.Logger),
		finder:     finder,
		hooks:      opts.EventHooks,
	}, nil
}

// Classifier exposes the engine's aggregate after Run, for callers that need
// more than the report (e.g. the rerun set).
func (e *Engine) Classifier() *Classifier { return e.classifier }

// Run executes the scan and returns the final report. The report is built
// and OnRunComplete fired even when classification fails partway, so UIs can
// always render a terminal state.
func (e *Engine) Run(ctx context.Context) (Report, error) {
	startTime := time.Now()
	e.logger.Info("Starting scan run",
		slog.String("root", e.opts.RootPath),
		slog.Int("concurrency", e.opts.Concurrency))

	var finalErr error
	defer func() {
		report := e.buildReport(startTime)
		if hookErr := e.hooks.OnRunComplete(report); hookErr != nil {
			e.logger.Warn("OnRunComplete hook returned an error", slog.String("error", hookErr.Error()))
		}
	}()

	dirs, err := e.finder.Find(ctx, e.opts.RootPath)
	if err != nil {
		e.logger.Error("Work directory discovery failed", slog.String("error", err.Error()))
		return e.buildReport(startTime), fmt.Errorf("discovery failed: %w", err)
	}
	for _, dir := range dirs {
		if hookErr := e.hooks.OnDirDiscovered(dir.Path()); hookErr != nil {
			e.logger.Warn("OnDirDiscovered hook failed", slog.String("path", dir.Path()), slog.String("error", hookErr.Error()))
		}
	}
	e.logger.Info("Work directories discovered", slog.Int("count", len(dirs)))

	classifyErr := e.classifier.FromDirs(ctx, dirs, e.instrumented(e.opts.Classify), e.opts.Concurrency)
	if classifyErr != nil {
		e.logger.Error("Classification failed", slog.String("error", classifyErr.Error()))
		finalErr = classifyErr
	}

	if finalErr == nil && e.opts.StatusFilePath != "" {
		if err := e.classifier.Dump(e.opts.StatusFilePath, e.opts.KeyBy); err != nil {
			e.logger.Error("Failed to write status file", slog.String("path", e.opts.StatusFilePath), slog.String("error", err.Error()))
			finalErr = err
		} else {
			e.logger.Info("Status file written", slog.String("path", e.opts.StatusFilePath))
		}
	}

	report := e.buildReport(startTime)
	e.logger.Info("Scan run finished",
		slog.Duration("duration", time.Since(startTime)),
		slog.Int("scanned", report.Summary.TotalDirsScanned),
		slog.Int("done", report.Summary.DoneCount),
		slog.Int("pending", report.Summary.PendingCount),
		slog.Int("notConverged", report.Summary.NotConvergedCount))
	return report, finalErr
}

// instrumented wraps the classification policy with per-directory status
// hooks and timing.
func (e *Engine) instrumented(fn ClassifyFunc) ClassifyFunc {
	return func(ctx context.Context, dir *WorkDir) (Record, error) {
		taskStart := time.Now()
		rec, err := fn(ctx, dir)
		if err != nil {
			return rec, err
		}
		status, _ := rec.Status()
		reason, _ := rec[RecordKeyReason].(string)
		if hookErr := e.hooks.OnDirStatusUpdate(dir.Path(), status, reason, time.Since(taskStart)); hookErr != nil {
			e.logger.Warn("OnDirStatusUpdate hook failed", slog.String("path", dir.Path()), slog.String("error", hookErr.Error()))
		}
		return rec, nil
	}
}

// buildReport assembles the report from the classifier's current state.
func (e *Engine) buildReport(startTime time.Time) Report {
	entries := e.classifier.Entries()
	dirs := make([]DirInfo, 0, len(entries))
	counts := make(map[Status]int, len(AllStatuses))
	for _, entry := range entries {
		status, _ := entry.Record.Status()
		reason, _ := entry.Record[RecordKeyReason].(string)
		counts[status]++
		dirs = append(dirs, DirInfo{
			Path:   entry.Path,
			Name:   filepath.Base(entry.Path),
			Status: status,
			Reason: reason,
		})
	}
	return Report{
		Summary: ReportSummary{
			RootPath:          e.opts.RootPath,
			StatusFilePath:    e.opts.StatusFilePath,
			ProfileUsed:       e.opts.ProfileName,
			ConfigFilePath:    e.opts.ConfigFilePath,
			TotalDirsScanned:  len(entries),
			PendingCount:      counts[StatusPending],
			DoneCount:         counts[StatusDone],
			NotConvergedCount: counts[StatusNotConverged],
			Fractions:         e.classifier.Summary(),
			DurationSeconds:   time.Since(startTime).Seconds(),
			Concurrency:       e.opts.Concurrency,
			Timestamp:         time.Now().UTC(),
			SchemaVersion:     ReportSchemaVersion,
		},
		Dirs: dirs,
	}
}

// Scan is the library entry point: it validates options, runs the engine,
// and returns the final report.
func Scan(ctx context.Context, opts Options) (Report, error) {
	engine, err := NewEngine(opts)
	if err != nil {
		return Report{}, err
	}
	return engine.Run(ctx)
}
