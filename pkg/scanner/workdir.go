package scanner

import (
	"fmt"
	"os"
	"path/filepath"
)

// WorkDir represents a single VASP working directory: a folder holding the
// input files of one calculation. It is immutable after construction and
// identified by its resolved absolute path, so values are usable as map keys
// via Path().
type WorkDir struct {
	path string
}

// NewWorkDir resolves dir (following symlinks) to a canonical absolute path
// and validates that it names an existing directory. Construction from an
// existing WorkDir's Path() yields an equal WorkDir.
func NewWorkDir(dir string) (*WorkDir, error) {
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot resolve %q: %v", ErrInvalidPath, dir, err)
	}
	abs, err := filepath.Abs(resolved)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot make %q absolute: %v", ErrInvalidPath, resolved, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot stat %q: %v", ErrInvalidPath, abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %q is not a directory", ErrInvalidPath, abs)
	}
	return &WorkDir{path: abs}, nil
}

// Path returns the resolved absolute path of the directory.
func (w *WorkDir) Path() string { return w.path }

// Name returns the directory's base name, the key used in status dumps.
func (w *WorkDir) Name() string { return filepath.Base(w.path) }

// String implements fmt.Stringer.
func (w *WorkDir) String() string { return fmt.Sprintf("WorkDir(%q)", w.path) }

// Join returns the path of name inside the directory.
func (w *WorkDir) Join(name string) string { return filepath.Join(w.path, name) }

// Files returns the names of all regular files directly inside the
// directory, in lexical order. The listing is fresh I/O on every call;
// nothing is cached, so external changes are always observed.
func (w *WorkDir) Files() ([]string, error) {
	entries, err := os.ReadDir(w.path)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", w.path, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// InputFiles returns the VASP input files present in the directory.
func (w *WorkDir) InputFiles() ([]string, error) {
	return w.filterFiles(IsInputFile)
}

// OutputFiles returns the VASP output files present in the directory.
func (w *WorkDir) OutputFiles() ([]string, error) {
	return w.filterFiles(IsOutputFile)
}

// OtherFiles returns the files that are neither VASP input nor output files.
func (w *WorkDir) OtherFiles() ([]string, error) {
	return w.filterFiles(func(name string) bool {
		return !IsInputFile(name) && !IsOutputFile(name)
	})
}

func (w *WorkDir) filterFiles(keep func(string) bool) ([]string, error) {
	files, err := w.Files()
	if err != nil {
		return nil, err
	}
	matched := make([]string, 0, len(files))
	for _, name := range files {
		if keep(name) {
			matched = append(matched, name)
		}
	}
	return matched, nil
}

// IsValid reports whether the directory still exists and contains at least
// one VASP input file. A directory removed after construction is invalid.
func (w *WorkDir) IsValid() bool {
	inputs, err := w.InputFiles()
	if err != nil {
		return false
	}
	return len(inputs) > 0
}
