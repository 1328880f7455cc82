package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Classifier aggregates classification records for work directories into an
// insertion-ordered map keyed by resolved path. Classification callbacks run
// unsynchronized on the task pool; only the insert itself takes the lock, so
// the critical section stays tiny regardless of how slow a policy is.
type Classifier struct {
	mu      sync.Mutex
	order   []string
	details map[string]Record
	logger  *slog.Logger
}

// NewClassifier creates an empty Classifier.
func NewClassifier(loggerHandler slog.Handler) *Classifier {
	if loggerHandler == nil {
		loggerHandler = slog.Default().Handler()
	}
	return &Classifier{
		details: make(map[string]Record),
		logger:  slog.New(loggerHandler).With(slog.String("component", "classifier")),
	}
}

// insert stores a record under the directory's resolved path. Revisiting a
// key overwrites its record in place and keeps its original position, so
// re-classification refreshes entries without reshuffling the map.
func (c *Classifier) insert(path string, rec Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.details[path]; !exists {
		c.order = append(c.order, path)
	}
	c.details[path] = rec
}

// FromDirs classifies every directory concurrently on maxWorkers goroutines
// and merges the results into the map. The record contract (non-nil mapping
// with a valid "status") is enforced before insert; a violation aborts the
// batch with a *TaskError attributing the offending directory. Domain
// outcomes like "not converged" are not errors; they arrive as ordinary
// records.
func (c *Classifier) FromDirs(ctx context.Context, dirs []*WorkDir, fn ClassifyFunc, maxWorkers int) error {
	batch := SubmitAll(ctx, dirs, func(ctx context.Context, dir *WorkDir) (struct{}, error) {
		rec, err := fn(ctx, dir)
		if err != nil {
			return struct{}{}, err
		}
		if err := rec.Validate(); err != nil {
			return struct{}{}, err
		}
		c.insert(dir.Path(), rec)
		return struct{}{}, nil
	}, maxWorkers)
	if _, err := batch.Join(); err != nil {
		return err
	}
	c.logger.Debug("Classified directories", slog.Int("count", len(dirs)))
	return nil
}

// FromRoot discovers work directories under root and classifies them.
func (c *Classifier) FromRoot(ctx context.Context, root string, fn ClassifyFunc, maxWorkers int, ignorePatterns []string) error {
	finder, err := NewFinder(ignorePatterns, c.logger.Handler())
	if err != nil {
		return err
	}
	dirs, err := finder.Find(ctx, root)
	if err != nil {
		return err
	}
	return c.FromDirs(ctx, dirs, fn, maxWorkers)
}

// Len returns the number of classified directories.
func (c *Classifier) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}

// Record returns the record stored for a directory path, if any.
func (c *Classifier) Record(path string) (Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.details[path]
	return rec, ok
}

// Entry pairs a directory path with its classification record.
type Entry struct {
	Path   string
	Record Record
}

// Entries returns a snapshot of all entries in insertion order.
func (c *Classifier) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Entry, 0, len(c.order))
	for _, path := range c.order {
		out = append(out, Entry{Path: path, Record: c.details[path]})
	}
	return out
}

// Summary returns the fraction of directories in each status. Every status
// of the enumeration is present as a key; fractions sum to 1.0 when at least
// one directory is classified, and are all 0.0 when the map is empty.
func (c *Classifier) Summary() map[Status]float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	counts := make(map[Status]int, len(AllStatuses))
	for _, path := range c.order {
		if s, ok := c.details[path].Status(); ok {
			counts[s]++
		}
	}
	total := len(c.order)
	summary := make(map[Status]float64, len(AllStatuses))
	for _, s := range AllStatuses {
		if total == 0 {
			summary[s] = 0.0
			continue
		}
		summary[s] = float64(counts[s]) / float64(total)
	}
	return summary
}

// List returns the paths classified with the given status, in insertion
// order.
func (c *Classifier) List(status Status) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listLocked(status)
}

func (c *Classifier) listLocked(statuses ...Status) []string {
	var out []string
	for _, path := range c.order {
		s, ok := c.details[path].Status()
		if !ok {
			continue
		}
		for _, want := range statuses {
			if s == want {
				out = append(out, path)
				break
			}
		}
	}
	return out
}

// ListPending returns the paths with PENDING status.
func (c *Classifier) ListPending() []string { return c.List(StatusPending) }

// ListDone returns the paths with DONE status.
func (c *Classifier) ListDone() []string { return c.List(StatusDone) }

// ListNotConverged returns the paths with NOT_CONVERGED status.
func (c *Classifier) ListNotConverged() []string { return c.List(StatusNotConverged) }

// ToRerun returns the directories whose work is not yet successfully
// finished: PENDING and NOT_CONVERGED, in insertion order. This is the set
// downstream orchestration re-submits.
func (c *Classifier) ToRerun() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listLocked(StatusPending, StatusNotConverged)
}

// Dump serializes the status map to path. The format is chosen by extension
// (.json, .yaml, .yml); anything else fails with ErrUnsupportedFormat before
// any write, so no partial file is left behind. keyBy selects the shape:
// KeyByFolder writes {"<dirname>": "<STATUS>"}, KeyByStatus writes
// {"<STATUS>": ["<dirname>", ...]}. Keys are directory base names. The write
// is atomic: a temp file in the target directory renamed into place.
func (c *Classifier) Dump(path string, keyBy KeyBy) error {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json", ".yaml", ".yml":
	default:
		return fmt.Errorf("%w: %q (use .json, .yaml, or .yml)", ErrUnsupportedFormat, ext)
	}

	data, err := c.statusMap(keyBy)
	if err != nil {
		return err
	}

	var encoded []byte
	if ext == ".json" {
		encoded, err = json.MarshalIndent(data, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding status map: %w", err)
		}
		encoded = append(encoded, '\n')
	} else {
		encoded, err = yaml.Marshal(data)
		if err != nil {
			return fmt.Errorf("encoding status map: %w", err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp status file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()
	if _, err := tmp.Write(encoded); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing status file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing status file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replacing status file: %w", err)
	}
	tmpName = ""
	c.logger.Debug("Status file written", slog.String("path", path), slog.String("keyBy", string(keyBy)))
	return nil
}

// statusMap builds the serializable shape for Dump. Both encoders emit map
// keys sorted, which is fine for round-tripping.
func (c *Classifier) statusMap(keyBy KeyBy) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch keyBy {
	case KeyByFolder:
		out := make(map[string]string, len(c.order))
		for _, path := range c.order {
			if s, ok := c.details[path].Status(); ok {
				out[filepath.Base(path)] = string(s)
			}
		}
		return out, nil
	case KeyByStatus:
		out := make(map[string][]string)
		for _, path := range c.order {
			if s, ok := c.details[path].Status(); ok {
				out[string(s)] = append(out[string(s)], filepath.Base(path))
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: key_by must be %q or %q, got %q", ErrConfigValidation, KeyByFolder, KeyByStatus, keyBy)
}
