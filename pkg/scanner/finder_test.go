package scanner_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MaterialsRealm/vasp-workflows/internal/testutil"
	"github.com/MaterialsRealm/vasp-workflows/pkg/scanner"
)

func discardHandler() slog.Handler {
	return slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})
}

func findPaths(t *testing.T, root string, ignorePatterns []string) []string {
	t.Helper()
	finder, err := scanner.NewFinder(ignorePatterns, discardHandler())
	require.NoError(t, err)
	dirs, err := finder.Find(context.Background(), root)
	require.NoError(t, err)
	names := make([]string, 0, len(dirs))
	for _, d := range dirs {
		rel, err := filepath.Rel(root, d.Path())
		require.NoError(t, err)
		names = append(names, filepath.ToSlash(rel))
	}
	return names
}

func TestFinderFind(t *testing.T) {
	root := t.TempDir()
	root, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)

	testutil.CreateWorkDir(t, root, "a")
	testutil.CreateWorkDir(t, root, "a/nested")
	testutil.CreateWorkDir(t, root, "b")
	testutil.CreateDummyDir(t, filepath.Join(root, "plain"))
	testutil.CreateDummyFile(t, filepath.Join(root, "plain", "README.md"), "no vasp here\n")

	t.Run("FindsValidDirsInPreOrder", func(t *testing.T) {
		assert.Equal(t, []string{"a", "a/nested", "b"}, findPaths(t, root, nil))
	})

	t.Run("RootItselfCounts", func(t *testing.T) {
		sub := filepath.Join(root, "a")
		assert.Contains(t, findPaths(t, sub, nil), ".")
	})

	t.Run("Idempotent", func(t *testing.T) {
		first := findPaths(t, root, nil)
		second := findPaths(t, root, nil)
		assert.Equal(t, first, second)
	})
}

func TestFinderPruning(t *testing.T) {
	root := t.TempDir()
	root, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)

	testutil.CreateWorkDir(t, root, "keep")
	// Hidden directories are pruned even when they hold input files, so a
	// .git tree containing a committed POSCAR is never reported.
	testutil.CreateWorkDir(t, root, ".git/objects")
	testutil.CreateWorkDir(t, root, ".backup")
	testutil.CreateWorkDir(t, root, "old_backup")
	testutil.CreateWorkDir(t, root, "old_backup/inner")
	testutil.CreateWorkDir(t, root, "temp_7")

	t.Run("HiddenDirsPruned", func(t *testing.T) {
		found := findPaths(t, root, nil)
		assert.NotContains(t, found, ".git/objects")
		assert.NotContains(t, found, ".backup")
		assert.Contains(t, found, "keep")
	})

	t.Run("IgnorePatternsPruneSubtrees", func(t *testing.T) {
		found := findPaths(t, root, []string{"*backup*", "temp_*"})
		assert.Equal(t, []string{"keep"}, found)
	})

	t.Run("InvalidPatternRejectedUpFront", func(t *testing.T) {
		_, err := scanner.NewFinder([]string{"[unclosed"}, discardHandler())
		require.Error(t, err)
		assert.ErrorIs(t, err, scanner.ErrConfigValidation)
	})
}

func TestFinderSymlinks(t *testing.T) {
	root := t.TempDir()
	root, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)

	target := testutil.CreateWorkDir(t, root, "target")
	require.NoError(t, os.Symlink(target, filepath.Join(root, "alias")))

	t.Run("FollowsLinksButDeduplicates", func(t *testing.T) {
		found := findPaths(t, root, nil)
		assert.Equal(t, []string{"target"}, found, "the same resolved directory must appear once")
	})

	t.Run("CycleDoesNotHang", func(t *testing.T) {
		loopRoot := t.TempDir()
		loopRoot, err := filepath.EvalSymlinks(loopRoot)
		require.NoError(t, err)
		testutil.CreateWorkDir(t, loopRoot, "calc")
		require.NoError(t, os.Symlink(loopRoot, filepath.Join(loopRoot, "calc", "loop")))
		found := findPaths(t, loopRoot, nil)
		assert.Equal(t, []string{"calc"}, found)
	})
}

func TestFinderErrors(t *testing.T) {
	t.Run("MissingRoot", func(t *testing.T) {
		finder, err := scanner.NewFinder(nil, discardHandler())
		require.NoError(t, err)
		_, err = finder.Find(context.Background(), filepath.Join(t.TempDir(), "nope"))
		require.Error(t, err)
		assert.ErrorIs(t, err, scanner.ErrInvalidPath)
	})

	t.Run("CancelledContext", func(t *testing.T) {
		root := t.TempDir()
		testutil.CreateWorkDir(t, root, "calc")
		finder, err := scanner.NewFinder(nil, discardHandler())
		require.NoError(t, err)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err = finder.Find(ctx, root)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("UnreadableSubdirSkipped", func(t *testing.T) {
		if os.Getuid() == 0 {
			t.Skip("permission bits are not enforced for root")
		}
		root := t.TempDir()
		root, err := filepath.EvalSymlinks(root)
		require.NoError(t, err)
		testutil.CreateWorkDir(t, root, "ok")
		locked := filepath.Join(root, "locked")
		testutil.CreateWorkDir(t, root, "locked")
		require.NoError(t, os.Chmod(locked, 0000))
		t.Cleanup(func() { _ = os.Chmod(locked, 0755) })

		found := findPaths(t, root, nil)
		assert.Contains(t, found, "ok")
		assert.NotContains(t, found, "locked")
	})
}
