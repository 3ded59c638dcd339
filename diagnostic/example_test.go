package diagnostic_test

import (
	"fmt"
	"log"

	"gonum.org/v1/gonum/mat"

	"github.com/quantfold/countfit/diagnostic"
	"github.com/quantfold/countfit/poisson"
)

// ExampleDiagnostic_TestDispersion demonstrates the dispersion battery on
// counts whose variance sits far below the Poisson line.
func ExampleDiagnostic_TestDispersion() {
	d := diagnostic.New(fitAlternating())

	r := d.TestDispersion()
	for _, test := range r.Tests[:3] {
		fmt.Printf("%s: %.4f\n", test.Method, test.Statistic)
	}

	// Output:
	// Dean A: -8.3333
	// Dean B: -8.3333
	// Dean C: -8.3333
}

// ExampleDiagnostic_TestZeros demonstrates the zero-modification score test
// on a sample without any zeros.
func ExampleDiagnostic_TestZeros() {
	d := diagnostic.New(fitAlternating())

	r := d.TestZeros()
	fmt.Printf("observed zeros: %d\n", r.ObservedZeros)
	fmt.Printf("expected zeros: %.4f\n", r.ExpectedZeros)
	fmt.Printf("statistic: %.4f\n", r.Statistic)

	// Output:
	// observed zeros: 0
	// expected zeros: 44.6260
	// statistic: -10.0461
}

// ExampleDiagnostic_ProbTable demonstrates the observed-versus-predicted
// count probability comparison.
func ExampleDiagnostic_ProbTable() {
	d := diagnostic.New(fitAlternating())

	r, err := d.ProbTable(2)
	if err != nil {
		log.Fatal(err)
	}
	for i, c := range r.Counts {
		fmt.Printf("count %d: observed %.4f, predicted %.4f\n", c, r.Observed[i], r.Predicted[i])
	}

	// Output:
	// count 0: observed 0.0000, predicted 0.2231
	// count 1: observed 0.5000, predicted 0.3347
	// count 2: observed 0.5000, predicted 0.2510
}

// fitAlternating fits an intercept-only model to 200 counts cycling 1, 2,
// so the fitted mean is exactly 1.5 and the diagnostics have closed forms.
func fitAlternating() *poisson.Results {
	n := 200
	y := make([]float64, n)
	ones := make([]float64, n)
	for i := range y {
		y[i] = float64(1 + i%2)
		ones[i] = 1
	}

	m, err := poisson.NewModel(y, mat.NewDense(n, 1, ones), []string{"const"})
	if err != nil {
		panic(err)
	}
	res, err := m.Fit()
	if err != nil {
		panic(err)
	}

	return res
}
