package scanner

import (
	"context"
	"fmt"
)

// Status defines the possible classification states of a work directory.
type Status string

// Constants representing the defined work-directory statuses.
const (
	// StatusPending means the calculation has not produced its output
	// artifact yet (queued, running, or never started).
	StatusPending Status = "PENDING"
	// StatusDone means the calculation finished and met its convergence
	// criterion.
	StatusDone Status = "DONE"
	// StatusNotConverged means the calculation produced output but did not
	// satisfy the convergence criterion, or its output was unusable.
	StatusNotConverged Status = "NOT_CONVERGED"
)

// AllStatuses lists every member of the closed status enumeration, in the
// order used for summaries and dumps. Adding a status is a schema change:
// Summary and Dump consumers must be updated together.
var AllStatuses = []Status{StatusPending, StatusDone, StatusNotConverged}

// IsValid reports whether s is a member of the closed status enumeration.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusDone, StatusNotConverged:
		return true
	}
	return false
}

// KeyBy selects the shape of a dumped status file.
type KeyBy string

const (
	// KeyByFolder dumps {"<dirname>": "<STATUS>"}.
	KeyByFolder KeyBy = "folder"
	// KeyByStatus dumps {"<STATUS>": ["<dirname>", ...]}.
	KeyByStatus KeyBy = "status"
)

// OutputFormat defines the format for the final summary printed to standard
// output when the TUI is disabled.
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
)

// Record is the classification result for a single work directory. The only
// required key is "status", holding a Status value; policies are free to
// attach arbitrary extra keys (residual vectors, reasons, timings) which pass
// through the Classifier opaquely.
type Record map[string]any

// Record field names recognized by the core and the canonical policy.
const (
	RecordKeyStatus    = "status"
	RecordKeyReason    = "reason"
	RecordKeyForcesSum = "forces_sum"
)

// Status extracts the status value from the record. The second return is
// false when the key is absent or holds an unexpected type.
func (r Record) Status() (Status, bool) {
	v, ok := r[RecordKeyStatus]
	if !ok {
		return "", false
	}
	switch s := v.(type) {
	case Status:
		return s, true
	case string:
		return Status(s), true
	}
	return "", false
}

// Validate checks the record against the classification contract: it must be
// non-nil and carry a "status" key holding a member of the status
// enumeration. Violations wrap ErrRecordContract.
func (r Record) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: classification returned a nil record", ErrRecordContract)
	}
	s, ok := r.Status()
	if !ok {
		return fmt.Errorf("%w: record is missing required key %q", ErrRecordContract, RecordKeyStatus)
	}
	if !s.IsValid() {
		return fmt.Errorf("%w: %q is not a valid status", ErrRecordContract, string(s))
	}
	return nil
}

// ClassifyFunc inspects one work directory and returns its classification
// record. A returned error is treated as a contract-level failure and aborts
// the whole batch; domain failures (missing artifact, unparsable output) must
// be absorbed into the Record instead, typically as NOT_CONVERGED or PENDING
// with a reason.
type ClassifyFunc func(ctx context.Context, dir *WorkDir) (Record, error)
