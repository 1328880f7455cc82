package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Finder discovers VASP work directories beneath a root, applying ignore
// rules before descent so pruned subtrees are never visited.
type Finder struct {
	ignorePatterns []string
	logger         *slog.Logger
}

// NewFinder creates a Finder. Ignore patterns use doublestar glob syntax and
// are matched against directory base names. An invalid pattern is rejected
// here rather than surfacing mid-walk.
func NewFinder(ignorePatterns []string, loggerHandler slog.Handler) (*Finder, error) {
	if loggerHandler == nil {
		loggerHandler = slog.Default().Handler()
	}
	logger := slog.New(loggerHandler).With(slog.String("component", "finder"))
	for _, pattern := range ignorePatterns {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("%w: invalid ignore pattern %q", ErrConfigValidation, pattern)
		}
	}
	return &Finder{
		ignorePatterns: ignorePatterns,
		logger:         logger,
	}, nil
}

// Find walks root recursively (root included), following symlinked
// directories, and returns one WorkDir per valid work directory in stable
// pre-order. Symlink cycles are broken by a visited set of resolved paths,
// which also deduplicates directories reachable through multiple links.
// Unreadable subdirectories are skipped; the root itself must be readable.
func (f *Finder) Find(ctx context.Context, root string) ([]*WorkDir, error) {
	rootDir, err := NewWorkDir(root)
	if err != nil {
		return nil, err
	}
	if _, err := os.ReadDir(rootDir.Path()); err != nil {
		return nil, fmt.Errorf("%w: cannot read root %q: %v", ErrInvalidPath, rootDir.Path(), err)
	}

	f.logger.Debug("Starting work directory search", slog.String("root", rootDir.Path()))
	visited := make(map[string]struct{})
	var found []*WorkDir
	if err := f.walk(ctx, rootDir.Path(), visited, &found); err != nil {
		return nil, err
	}
	f.logger.Debug("Work directory search finished",
		slog.String("root", rootDir.Path()),
		slog.Int("found", len(found)))
	return found, nil
}

// walk visits dir (already resolved) and recurses into its eligible
// subdirectories in lexical order.
func (f *Finder) walk(ctx context.Context, dir string, visited map[string]struct{}, found *[]*WorkDir) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if _, seen := visited[dir]; seen {
		f.logger.Debug("Skipping already visited directory", slog.String("path", dir))
		return nil
	}
	visited[dir] = struct{}{}

	entries, err := os.ReadDir(dir)
	if err != nil {
		// Discovery is best-effort below the root.
		f.logger.Debug("Skipping unreadable directory", slog.String("path", dir), slog.String("error", err.Error()))
		return nil
	}

	if wd, err := NewWorkDir(dir); err == nil && wd.IsValid() {
		*found = append(*found, wd)
	}

	for _, entry := range entries {
		name := entry.Name()
		isDir := entry.IsDir()
		if !isDir && entry.Type()&os.ModeSymlink != 0 {
			// Follow symlinks that point at directories.
			if info, err := os.Stat(filepath.Join(dir, name)); err == nil && info.IsDir() {
				isDir = true
			}
		}
		if !isDir {
			continue
		}
		if f.pruned(name) {
			f.logger.Debug("Pruning directory", slog.String("path", filepath.Join(dir, name)))
			continue
		}
		resolved, err := filepath.EvalSymlinks(filepath.Join(dir, name))
		if err != nil {
			f.logger.Debug("Skipping unresolvable directory", slog.String("path", filepath.Join(dir, name)), slog.String("error", err.Error()))
			continue
		}
		if err := f.walk(ctx, resolved, visited, found); err != nil {
			return err
		}
	}
	return nil
}

// pruned reports whether a directory base name is excluded from traversal:
// hidden directories and any caller-supplied ignore pattern.
func (f *Finder) pruned(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	for _, pattern := range f.ignorePatterns {
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
	}
	return false
}
