// Package testutil provides shared helpers and mocks for tests across the
// module: temp-tree builders, OUTCAR writers, and Hooks mocks.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// CreateDummyFile creates a file with the given content, ensuring parent
// directories exist. It uses require assertions for test setup.
func CreateDummyFile(t *testing.T, path string, content string) {
	t.Helper()
	fullPath := filepath.Clean(path)
	err := os.MkdirAll(filepath.Dir(fullPath), 0755)
	require.NoError(t, err, "Failed to create directory for dummy file %s", fullPath)
	err = os.WriteFile(fullPath, []byte(content), 0644)
	require.NoError(t, err, "Failed to write dummy file %s", fullPath)
}

// CreateDummyDir ensures a directory exists at the given path, creating
// parents if needed.
func CreateDummyDir(t *testing.T, path string) {
	t.Helper()
	err := os.MkdirAll(filepath.Clean(path), 0755)
	require.NoError(t, err, "Failed to create dummy directory %s", path)
}

// CreateWorkDir creates a directory under root holding a minimal VASP input
// set (INCAR, POSCAR, KPOINTS) so the finder recognizes it, and returns its
// path.
func CreateWorkDir(t *testing.T, root, name string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	CreateDummyDir(t, dir)
	for _, input := range []string{"INCAR", "POSCAR", "KPOINTS"} {
		CreateDummyFile(t, filepath.Join(dir, input), "dummy\n")
	}
	return dir
}

// WriteOutcar writes an OUTCAR into dir whose final force block holds one
// atom row per force vector. The block carries the POSITION/TOTAL-FORCE
// header, the dashed separator, and the closing "total drift" line, matching
// what VASP emits.
func WriteOutcar(t *testing.T, dir string, forces ...[3]float64) {
	t.Helper()
	var b strings.Builder
	b.WriteString(" some preamble output\n")
	b.WriteString(" POSITION                                       TOTAL-FORCE (eV/Angst)\n")
	b.WriteString(" -----------------------------------------------------------------------------------\n")
	for i, f := range forces {
		fmt.Fprintf(&b, "      %.5f      %.5f      %.5f         %.8e  %.8e  %.8e\n",
			float64(i), float64(i)+0.5, float64(i)+1.0, f[0], f[1], f[2])
	}
	b.WriteString(" -----------------------------------------------------------------------------------\n")
	b.WriteString("    total drift:                                0.000000      0.000000      0.000000\n")
	CreateDummyFile(t, filepath.Join(dir, "OUTCAR"), b.String())
}

// WriteOutcarRaw writes arbitrary OUTCAR content into dir, for malformed or
// blockless fixtures.
func WriteOutcarRaw(t *testing.T, dir, content string) {
	t.Helper()
	CreateDummyFile(t, filepath.Join(dir, "OUTCAR"), content)
}
