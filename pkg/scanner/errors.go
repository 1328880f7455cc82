package scanner

import (
	"errors"
	"fmt"
)

// Exported error variables. These represent the categories of failure that
// can surface from the library's public API; callers check against them with
// errors.Is.
var (
	// ErrInvalidPath indicates that a path given to NewWorkDir does not
	// exist, cannot be resolved, or is not a directory.
	ErrInvalidPath = errors.New("invalid work directory path")

	// ErrRecordContract indicates that a classification callback violated
	// its contract: it returned a nil record, omitted the required "status"
	// key, or used a status outside the closed enumeration. This is a
	// programming error in the policy, not a domain outcome, and aborts the
	// batch.
	ErrRecordContract = errors.New("classification record violates contract")

	// ErrUnsupportedFormat indicates that a dump path carries an extension
	// other than .json, .yaml, or .yml. Raised before any write, so no
	// partial file is left behind.
	ErrUnsupportedFormat = errors.New("unsupported status file format")

	// ErrTaskFailed indicates that at least one task in a batch returned an
	// error. The concrete failure is attributed to its directory via
	// *TaskError; errors.Is(err, ErrTaskFailed) is true for every TaskError.
	ErrTaskFailed = errors.New("task failed")

	// ErrConfigValidation indicates that the provided Options failed the
	// validation checks performed at the start of a run.
	ErrConfigValidation = errors.New("invalid configuration options provided")

	// ErrRestart indicates that a directory could not be prepared for a
	// rerun (no CONTCAR or POSCAR to promote, or the move failed).
	ErrRestart = errors.New("restart preparation failed")
)

// TaskError attributes a task failure to the work directory whose callback
// misbehaved. It unwraps to both the underlying cause and ErrTaskFailed.
type TaskError struct {
	// Dir is the resolved path of the directory whose task failed.
	Dir string
	// Index is the task's submission index within its batch.
	Index int
	// Err is the underlying failure.
	Err error
}

// Error implements the error interface.
func (e *TaskError) Error() string {
	return fmt.Sprintf("task for %q failed: %v", e.Dir, e.Err)
}

// Unwrap exposes both the cause and the ErrTaskFailed category to errors.Is.
func (e *TaskError) Unwrap() []error {
	return []error{e.Err, ErrTaskFailed}
}
