package debate

import "errors"

// Skip reasons. Process returns these for sections that need no work; they
// are not failures.
var (
	ErrNoEvaluations    = errors.New("section has no evaluations")
	ErrAlreadyProcessed = errors.New("section already processed")
)
