package scanner

// Constants defining default values for configuration options. These are
// used when setting up Viper defaults in the configuration loading process.
const (
	// DefaultConcurrency determines the default number of workers. 0 means
	// runtime.NumCPU().
	DefaultConcurrency = 0
	// DefaultTuiEnabled is the default state for the Terminal UI.
	DefaultTuiEnabled = true
	// DefaultAtol is the absolute tolerance below which the residual force
	// norm counts as converged.
	DefaultAtol = 1e-6
	// DefaultArtifact is the output file inspected by the canonical
	// convergence policy.
	DefaultArtifact = "OUTCAR"
	// DefaultStatusFile is the status dump written when no path is given.
	DefaultStatusFile = "status.yaml"
	// DefaultKeyBy is the default shape of the status dump.
	DefaultKeyBy = KeyByStatus
	// DefaultOutputFormat is the default format for the final summary.
	DefaultOutputFormat = OutputFormatText
	// DefaultVerbose is the default state for verbose logging.
	DefaultVerbose = false
)

// Constants related to the report schema.
const (
	// ReportSchemaVersion indicates the version of the JSON report
	// structure. Increment on incompatible changes.
	ReportSchemaVersion = "1.0"
)
