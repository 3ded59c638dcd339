package diagnostic

import (
	"github.com/quantfold/countfit/poisson"
)

// Diagnostic bundles the specification tests for one fitted model. Create it
// with New; the zero value is not usable.
//
// A Diagnostic holds only a reference to the results and is safe for
// concurrent use.
type Diagnostic struct {
	res *poisson.Results
}

// New returns the diagnostic surface for a fitted model.
func New(res *poisson.Results) *Diagnostic {
	return &Diagnostic{res: res}
}

// Results returns the fitted results the diagnostics run against.
func (d *Diagnostic) Results() *poisson.Results {
	return d.res
}

// countRange returns the counts 0..maxCount inclusive.
func countRange(maxCount int) []int {
	counts := make([]int, maxCount+1)
	for c := range counts {
		counts[c] = c
	}

	return counts
}
