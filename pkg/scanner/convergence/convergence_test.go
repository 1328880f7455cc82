package convergence_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MaterialsRealm/vasp-workflows/internal/testutil"
	"github.com/MaterialsRealm/vasp-workflows/pkg/scanner"
	"github.com/MaterialsRealm/vasp-workflows/pkg/scanner/convergence"
)

func classifyDir(t *testing.T, dir string, atol float64) scanner.Record {
	t.Helper()
	wd, err := scanner.NewWorkDir(dir)
	require.NoError(t, err)
	rec, err := convergence.Classify("", atol)(context.Background(), wd)
	require.NoError(t, err, "domain failures must be absorbed into the record")
	require.NoError(t, rec.Validate())
	return rec
}

func recordStatus(t *testing.T, rec scanner.Record) scanner.Status {
	t.Helper()
	status, ok := rec.Status()
	require.True(t, ok)
	return status
}

func TestClassifyConvergence(t *testing.T) {
	root := t.TempDir()

	t.Run("ConvergedForces", func(t *testing.T) {
		dir := testutil.CreateWorkDir(t, root, "done")
		testutil.WriteOutcar(t, dir, [3]float64{1e-8, -2e-8, 0})

		rec := classifyDir(t, dir, 1e-6)
		assert.Equal(t, scanner.StatusDone, recordStatus(t, rec))
		assert.Equal(t, "Forces converged", rec[scanner.RecordKeyReason])

		sum, ok := rec[scanner.RecordKeyForcesSum].([3]float64)
		require.True(t, ok)
		assert.InDelta(t, 1e-8, sum[0], 1e-12)
		assert.InDelta(t, -2e-8, sum[1], 1e-12)
	})

	t.Run("UnconvergedForcesCarryNormInReason", func(t *testing.T) {
		dir := testutil.CreateWorkDir(t, root, "stuck")
		testutil.WriteOutcar(t, dir, [3]float64{1e-3, 0, 0})

		rec := classifyDir(t, dir, 1e-6)
		assert.Equal(t, scanner.StatusNotConverged, recordStatus(t, rec))
		assert.Equal(t, "Force sum norm 0.001 >= atol 1e-06", rec[scanner.RecordKeyReason])
	})

	t.Run("ArtifactAbsent", func(t *testing.T) {
		dir := testutil.CreateWorkDir(t, root, "waiting")

		rec := classifyDir(t, dir, 1e-6)
		assert.Equal(t, scanner.StatusPending, recordStatus(t, rec))
		assert.Equal(t, "OUTCAR missing", rec[scanner.RecordKeyReason])
		assert.Nil(t, rec[scanner.RecordKeyForcesSum])
	})

	t.Run("NoForceBlock", func(t *testing.T) {
		dir := testutil.CreateWorkDir(t, root, "truncated")
		testutil.WriteOutcarRaw(t, dir, "vasp 6.4.2 output\n some header lines\n but no force data\n")

		rec := classifyDir(t, dir, 1e-6)
		assert.Equal(t, scanner.StatusNotConverged, recordStatus(t, rec))
		assert.Equal(t, "No force block found", rec[scanner.RecordKeyReason])
	})

	t.Run("MalformedNumericField", func(t *testing.T) {
		dir := testutil.CreateWorkDir(t, root, "corrupt")
		testutil.WriteOutcarRaw(t, dir,
			" POSITION                                       TOTAL-FORCE (eV/Angst)\n"+
				" -----------------------------------------------------------------------------------\n"+
				"      0.0      0.0      0.0         not-a-number  0.0  0.0\n"+
				"    total drift:   0.0  0.0  0.0\n")

		rec := classifyDir(t, dir, 1e-6)
		assert.Equal(t, scanner.StatusNotConverged, recordStatus(t, rec))
		assert.Contains(t, rec[scanner.RecordKeyReason], "Unreadable force data")
	})

	t.Run("DefaultAtolApplied", func(t *testing.T) {
		dir := testutil.CreateWorkDir(t, root, "default-atol")
		testutil.WriteOutcar(t, dir, [3]float64{1e-8, 0, 0})

		// atol <= 0 selects the 1e-6 default, so 1e-8 converges.
		rec := classifyDir(t, dir, 0)
		assert.Equal(t, scanner.StatusDone, recordStatus(t, rec))
	})
}

func TestClassifyUsesLastForceBlock(t *testing.T) {
	root := t.TempDir()
	dir := testutil.CreateWorkDir(t, root, "relaxation")

	// Two ionic steps: the first far from converged, the last converged.
	// Only the final block decides the status.
	first := " POSITION                                       TOTAL-FORCE (eV/Angst)\n" +
		" -----------------------------------------------------------------------------------\n" +
		"      0.0      0.0      0.0         5.0e-01  0.0  0.0\n" +
		" -----------------------------------------------------------------------------------\n" +
		"    total drift:   0.0  0.0  0.0\n"
	second := " POSITION                                       TOTAL-FORCE (eV/Angst)\n" +
		" -----------------------------------------------------------------------------------\n" +
		"      0.0      0.0      0.0         1.0e-08  0.0  0.0\n" +
		"      1.0      1.0      1.0         -1.0e-08  0.0  0.0\n" +
		" -----------------------------------------------------------------------------------\n" +
		"    total drift:   0.0  0.0  0.0\n"
	testutil.WriteOutcarRaw(t, dir, "header\n"+first+"more output\n"+second)

	rec := classifyDir(t, dir, 1e-6)
	assert.Equal(t, scanner.StatusDone, recordStatus(t, rec))
}

func TestParseForcesSum(t *testing.T) {
	root := t.TempDir()

	t.Run("SumsPerAtomRows", func(t *testing.T) {
		dir := testutil.CreateWorkDir(t, root, "sum")
		testutil.WriteOutcar(t, dir,
			[3]float64{0.25, -0.5, 1.0},
			[3]float64{-0.25, 0.5, -1.0},
			[3]float64{0.125, 0, 0})

		sum, err := convergence.ParseForcesSum(dir + "/OUTCAR")
		require.NoError(t, err)
		assert.InDelta(t, 0.125, sum[0], 1e-9)
		assert.InDelta(t, 0.0, sum[1], 1e-9)
		assert.InDelta(t, 0.0, sum[2], 1e-9)
	})

	t.Run("ShortRowFails", func(t *testing.T) {
		dir := testutil.CreateWorkDir(t, root, "short")
		testutil.WriteOutcarRaw(t, dir,
			" POSITION                                       TOTAL-FORCE (eV/Angst)\n"+
				" -----------------------------------------------------------------------------------\n"+
				"      0.0      0.0\n"+
				"    total drift:   0.0  0.0  0.0\n")
		_, err := convergence.ParseForcesSum(dir + "/OUTCAR")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "columns")
	})
}

func TestClassifyCustomArtifact(t *testing.T) {
	root := t.TempDir()
	dir := testutil.CreateWorkDir(t, root, "custom")
	wd, err := scanner.NewWorkDir(dir)
	require.NoError(t, err)

	rec, err := convergence.Classify("OUTCAR.relax", 1e-6)(context.Background(), wd)
	require.NoError(t, err)
	assert.Equal(t, scanner.StatusPending, recordStatus(t, rec))
	assert.Equal(t, "OUTCAR.relax missing", rec[scanner.RecordKeyReason])
}
