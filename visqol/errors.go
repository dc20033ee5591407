package visqol

import (
	"errors"
	"fmt"
)

// ErrNotInitialized is returned by every comparison entry point when
// Init has not completed successfully. In batch mode it aborts the
// whole batch: it signals a caller defect, not bad input data.
var ErrNotInitialized = errors.New("visqol: manager must be initialized before use")

// SampleRateMismatchError reports that the reference and degraded
// signals have different sample rates, which the pipeline cannot
// compare.
type SampleRateMismatchError struct {
	Reference int
	Degraded  int
}

func (e *SampleRateMismatchError) Error() string {
	return fmt.Sprintf("input audio signals have different sample rates: reference %d Hz, degraded %d Hz",
		e.Reference, e.Degraded)
}
