// Package syncstatus reports the outcome of a batch of per-entry apply
// operations (§4.7, §7): the applier isolates failures per entry rather
// than aborting the whole sync, so the caller needs a summary that
// distinguishes "every entry installed", "some entries failed", and
// "nothing installed" without having to inspect individual errors itself.
package syncstatus

import (
	"fmt"

	"go.uber.org/multierr"
)

// Outcome is the result of a sync batch.
type Outcome int

// Outcome values.
const (
	OutcomeUnspecified Outcome = iota
	// OutcomeSucceeded means every entry in toDownload completed Phase 3.
	OutcomeSucceeded
	// OutcomePartiallySucceeded means at least one entry failed but at
	// least one other succeeded.
	OutcomePartiallySucceeded
	// OutcomeFailed means every entry in a non-empty batch failed.
	OutcomeFailed
)

// EntryFailure is one entry's failure, carried in a BatchResult.
type EntryFailure struct {
	RelativePath string
	Err          error
}

// BatchResult summarizes one applier run: how many entries it attempted,
// which succeeded, and the failures (if any) for the rest.
type BatchResult struct {
	Attempted int
	Succeeded []string
	Failed    []EntryFailure
}

// Outcome classifies the batch per the rule above.
func (r *BatchResult) Outcome() Outcome {
	switch {
	case r.Attempted == 0:
		return OutcomeSucceeded
	case len(r.Failed) == 0:
		return OutcomeSucceeded
	case len(r.Succeeded) == 0:
		return OutcomeFailed
	default:
		return OutcomePartiallySucceeded
	}
}

// String renders the outcome the way a CLI summary line or log message
// would.
func (r *BatchResult) String() string {
	switch r.Outcome() {
	case OutcomeSucceeded:
		return fmt.Sprintf("SUCCEEDED: %d entries", len(r.Succeeded))
	case OutcomePartiallySucceeded:
		return fmt.Sprintf("PARTIALLY_SUCCEEDED: %d ok, %d failed", len(r.Succeeded), len(r.Failed))
	case OutcomeFailed:
		return fmt.Sprintf("FAILED: %d entries", len(r.Failed))
	}
	return "UNSPECIFIED"
}

// CombinedErr folds every per-entry failure into a single error via
// multierr, for callers that want one error value to return or log rather
// than walking Failed themselves. Returns nil if nothing failed.
func (r *BatchResult) CombinedErr() error {
	var err error
	for _, f := range r.Failed {
		err = multierr.Append(err, fmt.Errorf("%s: %w", f.RelativePath, f.Err))
	}
	return err
}
