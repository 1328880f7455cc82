// Package restart prepares work directories for resubmission by promoting
// the relaxed geometry (CONTCAR) to the next run's input (POSCAR).
package restart

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/MaterialsRealm/vasp-workflows/pkg/scanner"
)

var poscarBackupRe = regexp.MustCompile(`^POSCAR_(\d+)$`)

// PromoteContcar ensures dir holds a POSCAR for the next run:
//
//   - POSCAR and CONTCAR both present: back up POSCAR as POSCAR_{n}, where n
//     is one past the highest existing backup index, then move CONTCAR to
//     POSCAR.
//   - only CONTCAR present: move it to POSCAR.
//   - only POSCAR present: nothing to do.
//   - neither present: scanner.ErrRestart.
func PromoteContcar(dir *scanner.WorkDir, loggerHandler slog.Handler) error {
	if loggerHandler == nil {
		loggerHandler = slog.Default().Handler()
	}
	logger := slog.New(loggerHandler).With(
		slog.String("component", "restart"),
		slog.String("dir", dir.Path()))

	poscar := dir.Join("POSCAR")
	contcar := dir.Join("CONTCAR")
	hasPoscar := fileExists(poscar)
	hasContcar := fileExists(contcar)

	switch {
	case hasPoscar && hasContcar:
		backup := dir.Join(fmt.Sprintf("POSCAR_%d", nextBackupIndex(dir)))
		if err := os.Rename(poscar, backup); err != nil {
			return fmt.Errorf("%w: backing up POSCAR: %v", scanner.ErrRestart, err)
		}
		if err := os.Rename(contcar, poscar); err != nil {
			return fmt.Errorf("%w: promoting CONTCAR: %v", scanner.ErrRestart, err)
		}
		logger.Info("Replaced POSCAR with CONTCAR", slog.String("backup", filepath.Base(backup)))
	case hasPoscar:
		logger.Debug("POSCAR exists, no update needed")
	case hasContcar:
		if err := os.Rename(contcar, poscar); err != nil {
			return fmt.Errorf("%w: promoting CONTCAR: %v", scanner.ErrRestart, err)
		}
		logger.Info("No POSCAR found, using CONTCAR as POSCAR")
	default:
		return fmt.Errorf("%w: neither POSCAR nor CONTCAR exists in %q", scanner.ErrRestart, dir.Path())
	}
	return nil
}

// nextBackupIndex returns one past the highest POSCAR_{n} index in dir.
func nextBackupIndex(dir *scanner.WorkDir) int {
	maxIndex := 0
	files, err := dir.Files()
	if err != nil {
		return 1
	}
	for _, name := range files {
		m := poscarBackupRe.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n > maxIndex {
			maxIndex = n
		}
	}
	return maxIndex + 1
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
