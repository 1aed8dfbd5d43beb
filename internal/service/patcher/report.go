package patcher

import (
	"go.uber.org/multierr"
)

// Report summarizes one Patch call.
type Report struct {
	// Linked lists link paths created or retargeted.
	Linked []string
	// Unchanged lists link paths that already pointed at the right library.
	Unchanged []string
	// Skipped lists link paths left alone: missing source or a foreign file.
	Skipped []string
	// Swapped is the vendor library path now pointing at the host library.
	Swapped string
	// Suppressed holds vendor swap problems, which are only logged at debug level.
	Suppressed []error

	warnings error
}

func (r *Report) warn(err error) {
	r.warnings = multierr.Append(r.warnings, err)
}

// Warnings returns every problem worth telling the user about.
func (r *Report) Warnings() []error {
	return multierr.Errors(r.warnings)
}

// Err combines the warnings into one error, nil when there are none.
func (r *Report) Err() error {
	return r.warnings
}
