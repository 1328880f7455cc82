package scanner

import (
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// vaspInputFiles is the set of fixed-name VASP input files used for work
// directory detection. Temporary files (WFULLxxxx.tmp, Wxxxx.tmp) are matched
// separately by pattern.
var vaspInputFiles = map[string]struct{}{
	"CHGCAR":      {},
	"DYNMATFULL":  {},
	"GAMMA":       {},
	"ICONST":      {},
	"INCAR":       {},
	"KPOINTS":     {},
	"KPOINTS_OPT": {},
	"KPOINTS_WAN": {},
	"ML_AB":       {},
	"ML_FF":       {},
	"PENALTYPOT":  {},
	"POSCAR":      {},
	"POTCAR":      {},
	"QPOINTS":     {},
	"Vasp.lock":   {},
	"Vaspin.h5":   {},
	"WANPROJ":     {},
	"WAVECAR":     {},
	"WAVEDER":     {},
	"STOPCAR":     {},
}

// vaspOutputFiles is the set of fixed-name VASP output files.
// See https://www.vasp.at/wiki/index.php/Category:Output_files
var vaspOutputFiles = map[string]struct{}{
	"BSEFATBAND":         {},
	"CHG":                {},
	"CHGCAR":             {},
	"CONTCAR":            {},
	"CONTCAR_ELPH":       {},
	"DOSCAR":             {},
	"DYNMATFULL":         {},
	"EIGENVAL":           {},
	"ELFCAR":             {},
	"IBZKPT":             {},
	"LOCPOT":             {},
	"ML_ABN":             {},
	"ML_EATOM":           {},
	"ML_FFN":             {},
	"ML_HEAT":            {},
	"ML_HIS":             {},
	"ML_LOGFILE":         {},
	"ML_REG":             {},
	"NMRCURBX":           {},
	"OSZICAR":            {},
	"OUTCAR":             {},
	"Output":             {},
	"PCDAT":              {},
	"PARCHG":             {},
	"Phelel_params.hdf5": {},
	"POT":                {},
	"PRJCAR":             {},
	"PROCAR":             {},
	"PROCAR_OPT":         {},
	"PROOUT":             {},
	"REPORT":             {},
	"TMPCAR":             {},
	"UIJKL":              {},
	"URijkl":             {},
	"Vaspelph.h5":        {},
	"Vaspout.h5":         {},
	"Vaspwave.h5":        {},
	"vasprun.xml":        {},
	"VIJKL":              {},
	"VRijkl":             {},
	"WANPROJ":            {},
	"WAVECAR":            {},
	"WAVEDER":            {},
	"XDATCAR":            {},
}

// tmpFilePatterns match the scratch files VASP leaves behind while running.
// They count as both input and output markers.
var tmpFilePatterns = []string{"WFULL????.tmp", "W????.tmp"}

func matchesTmpPattern(name string) bool {
	for _, pattern := range tmpFilePatterns {
		// Patterns are validated literals, a match error cannot occur.
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// IsInputFile reports whether name (a file name or path, reduced to its base
// name) is a VASP input file, including scratch-file patterns.
func IsInputFile(name string) bool {
	base := filepath.Base(name)
	if _, ok := vaspInputFiles[base]; ok {
		return true
	}
	return matchesTmpPattern(base)
}

// IsOutputFile reports whether name (a file name or path, reduced to its base
// name) is a VASP output file, including scratch-file patterns.
func IsOutputFile(name string) bool {
	base := filepath.Base(name)
	if _, ok := vaspOutputFiles[base]; ok {
		return true
	}
	return matchesTmpPattern(base)
}
