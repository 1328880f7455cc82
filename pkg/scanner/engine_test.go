package scanner_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/MaterialsRealm/vasp-workflows/internal/testutil"
	"github.com/MaterialsRealm/vasp-workflows/pkg/scanner"
	"github.com/MaterialsRealm/vasp-workflows/pkg/scanner/convergence"
)

// scanFixture builds a tree with one converged, one unconverged, and one
// never-run calculation.
func scanFixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	root, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)

	done := testutil.CreateWorkDir(t, root, "done")
	testutil.WriteOutcar(t, done, [3]float64{1e-8, -2e-8, 0})

	stuck := testutil.CreateWorkDir(t, root, "stuck")
	testutil.WriteOutcar(t, stuck, [3]float64{1e-3, 0, 0})

	testutil.CreateWorkDir(t, root, "waiting")
	return root
}

func baseOptions(root string) scanner.Options {
	return scanner.Options{
		RootPath: root,
		Classify: convergence.Classify("", 0),
		Logger:   discardHandler(),
	}
}

func TestNewEngineValidation(t *testing.T) {
	root := t.TempDir()

	t.Run("NilLogger", func(t *testing.T) {
		opts := baseOptions(root)
		opts.Logger = nil
		_, err := scanner.NewEngine(opts)
		require.Error(t, err)
		assert.ErrorIs(t, err, scanner.ErrConfigValidation)
	})

	t.Run("EmptyRoot", func(t *testing.T) {
		opts := baseOptions("")
		_, err := scanner.NewEngine(opts)
		require.Error(t, err)
		assert.ErrorIs(t, err, scanner.ErrConfigValidation)
	})

	t.Run("NilPolicy", func(t *testing.T) {
		opts := baseOptions(root)
		opts.Classify = nil
		_, err := scanner.NewEngine(opts)
		require.Error(t, err)
		assert.ErrorIs(t, err, scanner.ErrConfigValidation)
	})

	t.Run("BadKeyBy", func(t *testing.T) {
		opts := baseOptions(root)
		opts.KeyBy = scanner.KeyBy("color")
		_, err := scanner.NewEngine(opts)
		require.Error(t, err)
		assert.ErrorIs(t, err, scanner.ErrConfigValidation)
	})

	t.Run("ConcurrencyDefaulted", func(t *testing.T) {
		opts := baseOptions(root)
		opts.Concurrency = 0
		_, err := scanner.NewEngine(opts)
		require.NoError(t, err)
	})
}

func TestScan(t *testing.T) {
	root := scanFixture(t)

	report, err := scanner.Scan(context.Background(), baseOptions(root))
	require.NoError(t, err)

	assert.Equal(t, 3, report.Summary.TotalDirsScanned)
	assert.Equal(t, 1, report.Summary.DoneCount)
	assert.Equal(t, 1, report.Summary.NotConvergedCount)
	assert.Equal(t, 1, report.Summary.PendingCount)
	assert.Equal(t, scanner.ReportSchemaVersion, report.Summary.SchemaVersion)
	assert.InDelta(t, 1.0/3, report.Summary.Fractions[scanner.StatusDone], 1e-9)

	byName := map[string]scanner.DirInfo{}
	for _, d := range report.Dirs {
		byName[d.Name] = d
	}
	assert.Equal(t, scanner.StatusDone, byName["done"].Status)
	assert.Equal(t, scanner.StatusNotConverged, byName["stuck"].Status)
	assert.Equal(t, scanner.StatusPending, byName["waiting"].Status)
	assert.Equal(t, "OUTCAR missing", byName["waiting"].Reason)
}

func TestScanWritesStatusFile(t *testing.T) {
	root := scanFixture(t)
	statusPath := filepath.Join(t.TempDir(), "status.yaml")

	opts := baseOptions(root)
	opts.StatusFilePath = statusPath
	_, err := scanner.Scan(context.Background(), opts)
	require.NoError(t, err)

	_, statErr := os.Stat(statusPath)
	assert.NoError(t, statErr)
}

func TestEngineFiresHooks(t *testing.T) {
	root := scanFixture(t)

	hooks := &testutil.MockHooks{}
	hooks.On("OnDirDiscovered", mock.Anything).Return(nil)
	hooks.On("OnDirStatusUpdate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	hooks.On("OnRunComplete", mock.Anything).Return(nil)

	opts := baseOptions(root)
	opts.EventHooks = hooks
	engine, err := scanner.NewEngine(opts)
	require.NoError(t, err)

	report, err := engine.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, report.Summary.TotalDirsScanned)

	hooks.AssertNumberOfCalls(t, "OnDirDiscovered", 3)
	hooks.AssertNumberOfCalls(t, "OnDirStatusUpdate", 3)
	hooks.AssertNumberOfCalls(t, "OnRunComplete", 1)

	rerun := engine.Classifier().ToRerun()
	assert.Len(t, rerun, 2, "pending and not-converged dirs form the rerun set")
}

func TestEngineRunCompleteFiredOnFailure(t *testing.T) {
	root := scanFixture(t)

	hooks := &testutil.MockHooks{}
	hooks.On("OnDirDiscovered", mock.Anything).Return(nil)
	hooks.On("OnRunComplete", mock.Anything).Return(nil)

	opts := baseOptions(root)
	opts.EventHooks = hooks
	opts.Classify = func(ctx context.Context, dir *scanner.WorkDir) (scanner.Record, error) {
		return nil, nil // contract violation
	}
	engine, err := scanner.NewEngine(opts)
	require.NoError(t, err)

	_, err = engine.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, scanner.ErrRecordContract)
	hooks.AssertNumberOfCalls(t, "OnRunComplete", 1)
}
