// Package convergence implements the canonical classification policy: a work
// directory's status is decided from the final force block of its OUTCAR.
package convergence

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/MaterialsRealm/vasp-workflows/pkg/scanner"
)

// DefaultAtol is the absolute tolerance below which the force-sum norm
// counts as converged.
const DefaultAtol = 1e-6

// errNoForceBlock distinguishes "artifact present but no force block" from a
// parse failure.
var errNoForceBlock = errors.New("no force block found")

// Classify builds a scanner.ClassifyFunc that inspects artifact (usually
// OUTCAR) in each directory. atol <= 0 selects DefaultAtol; an empty
// artifact name selects scanner.DefaultArtifact.
//
// Outcomes:
//   - artifact absent: PENDING, "OUTCAR missing"
//   - no POSITION/TOTAL-FORCE block: NOT_CONVERGED, "No force block found"
//   - force-sum norm < atol: DONE, "Forces converged"
//   - otherwise: NOT_CONVERGED with the norm in the reason
//
// Read and parse failures inside the artifact classify as NOT_CONVERGED with
// a descriptive reason. They never surface as errors, so a corrupt OUTCAR
// cannot abort a batch of thousands of healthy directories.
func Classify(artifact string, atol float64) scanner.ClassifyFunc {
	if artifact == "" {
		artifact = scanner.DefaultArtifact
	}
	if atol <= 0 {
		atol = DefaultAtol
	}
	return func(ctx context.Context, dir *scanner.WorkDir) (scanner.Record, error) {
		path := dir.Join(artifact)
		if _, err := os.Stat(path); err != nil {
			return scanner.Record{
				scanner.RecordKeyStatus:    scanner.StatusPending,
				scanner.RecordKeyForcesSum: nil,
				scanner.RecordKeyReason:    fmt.Sprintf("%s missing", artifact),
			}, nil
		}

		forcesSum, err := ParseForcesSum(path)
		switch {
		case errors.Is(err, errNoForceBlock):
			return scanner.Record{
				scanner.RecordKeyStatus:    scanner.StatusNotConverged,
				scanner.RecordKeyForcesSum: nil,
				scanner.RecordKeyReason:    "No force block found",
			}, nil
		case err != nil:
			return scanner.Record{
				scanner.RecordKeyStatus:    scanner.StatusNotConverged,
				scanner.RecordKeyForcesSum: nil,
				scanner.RecordKeyReason:    fmt.Sprintf("Unreadable force data: %v", err),
			}, nil
		}

		norm := math.Sqrt(forcesSum[0]*forcesSum[0] + forcesSum[1]*forcesSum[1] + forcesSum[2]*forcesSum[2])
		if norm < atol {
			return scanner.Record{
				scanner.RecordKeyStatus:    scanner.StatusDone,
				scanner.RecordKeyForcesSum: forcesSum,
				scanner.RecordKeyReason:    "Forces converged",
			}, nil
		}
		return scanner.Record{
			scanner.RecordKeyStatus:    scanner.StatusNotConverged,
			scanner.RecordKeyForcesSum: forcesSum,
			scanner.RecordKeyReason:    fmt.Sprintf("Force sum norm %.3g >= atol %v", norm, atol),
		}, nil
	}
}

// ParseForcesSum reads the file at path, locates the last block opened by a
// line containing both "POSITION" and "TOTAL-FORCE", and returns the vector
// sum of the per-atom forces in that block (columns 4-6 of each data row,
// rows ending at the "total drift" line). Returns errNoForceBlock when no
// block exists, or a parse error for malformed numeric fields.
func ParseForcesSum(path string) ([3]float64, error) {
	var zero [3]float64
	f, err := os.Open(path)
	if err != nil {
		return zero, fmt.Errorf("opening %q: %w", path, err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return zero, fmt.Errorf("reading %q: %w", path, err)
	}

	var lastSum [3]float64
	foundBlock := false

	for i := 0; i < len(lines); {
		if !strings.Contains(lines[i], "POSITION") || !strings.Contains(lines[i], "TOTAL-FORCE") {
			i++
			continue
		}
		// Skip the header line and the dashed separator under it.
		start := i + 2
		end := start
		for end < len(lines) && !strings.Contains(lines[end], "total drift") {
			end++
		}

		var sum [3]float64
		for _, line := range lines[start:end] {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" || strings.Contains(line, "---") {
				continue
			}
			fields := strings.Fields(line)
			if len(fields) < 6 {
				return zero, fmt.Errorf("force row has %d columns, want at least 6: %q", len(fields), trimmed)
			}
			for axis := 0; axis < 3; axis++ {
				v, err := strconv.ParseFloat(fields[3+axis], 64)
				if err != nil {
					return zero, fmt.Errorf("malformed force value %q: %w", fields[3+axis], err)
				}
				sum[axis] += v
			}
		}
		lastSum = sum
		foundBlock = true
		i = end + 1
	}

	if !foundBlock {
		return zero, errNoForceBlock
	}
	return lastSum, nil
}
