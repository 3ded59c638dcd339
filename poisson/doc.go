// Package poisson implements Poisson regression with a log link and the
// post-estimation toolkit built on top of the fitted model: Wald and score
// tests, predictions with delta-method confidence intervals, and fitted
// count distributions.
//
// Estimation maximizes the Poisson log-likelihood with gonum/optimize using
// the analytic gradient and Hessian; the parameter covariance comes from the
// inverse observed information, with optional heteroskedasticity-robust
// (sandwich) variants. Distribution queries and p-values are delegated to
// gonum/stat/distuv.
//
// # Basic Usage
//
// Fit a model and inspect the estimates:
//
//	y, x, err := ds.Design("y", []string{"const", "x1", "x2"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	model, err := poisson.NewModel(y, x, []string{"const", "x1", "x2"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := model.Fit()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.Summary())
//
// Test restrictions and form predictions:
//
//	wald, _ := res.WaldTestTerms("x2")
//	pred, _ := res.Predict(poisson.Average())
//	dist, _ := res.Distribution()
//
// # Specification checks
//
// The diagnostic and influence packages consume a fitted *Results and cover
// dispersion tests, count goodness of fit, excess zeros, and per-observation
// influence measures.
package poisson
