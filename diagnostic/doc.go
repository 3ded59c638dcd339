// Package diagnostic implements specification tests for a fitted Poisson
// regression: is the mean-variance equality plausible, are the predicted
// count probabilities consistent with the observed frequencies, and are
// there more zeros than the model can explain.
//
// All tests consume a fitted *poisson.Results and correct for parameter
// estimation where the statistic requires it, so they can be read straight
// off the walkthrough output without auxiliary adjustment:
//
//	dia := diagnostic.New(res)
//	fmt.Println(dia.TestDispersion().Table())
//
//	chi2, err := dia.TestChiSquareProb(5)
//	zeros := dia.TestZeros()
//
// When the asymptotic distribution of a statistic is in doubt (small
// samples, sparse cells), BootstrapPValue resimulates the fitted model and
// recomputes any statistic across replications on a worker pool.
package diagnostic
