package diagnostic

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/quantfold/countfit/errs"
	"github.com/quantfold/countfit/report"
)

// ChiSquareProbResult holds the conditional moment test of the predicted
// count probabilities.
type ChiSquareProbResult struct {
	// Statistic is chi-square with DF degrees of freedom under correct
	// specification of the cell probabilities.
	Statistic float64
	// PValue is the chi-square survival probability of Statistic.
	PValue float64
	// DF is the number of count cells tested, maxCount + 1.
	DF int
	// Counts lists the tested cells, 0..maxCount.
	Counts []int
	// MeanDiff is the average moment per cell: observed frequency minus
	// average predicted probability. Large cells show where the fit breaks.
	MeanDiff []float64
}

// Table renders the per-cell moments followed by the statistic block.
func (r *ChiSquareProbResult) Table() string {
	table := report.NewTable("count", "obs - pred")
	for i, c := range r.Counts {
		table.AddRow(report.Int(c), report.Float(r.MeanDiff[i]))
	}

	return table.String() + "\n" + report.KeyValues([][2]string{
		{"Statistic", report.Float(r.Statistic)},
		{"P-value", report.Float(r.PValue)},
		{"df", report.Int(r.DF)},
	})
}

// String renders a section header followed by Table.
func (r *ChiSquareProbResult) String() string {
	return report.Section("Chi-square test of predicted probabilities") + r.Table()
}

// TestChiSquareProb tests whether the predicted probabilities of the counts
// 0..maxCount match the observed frequencies, the binned goodness-of-fit
// check of the walkthrough.
//
// The per-row moments m_i collect indicator-minus-probability over the cells
// 0..maxCount; the implicit tail cell is dropped to keep the moments linearly
// independent. Because the probabilities carry estimated parameters, a plain
// chi-square comparison would be too liberal: the moment covariance is
// adjusted by projecting out the score contributions (the
// outer-product-of-gradients form of the conditional moment test), and the
// statistic n mbar' V^-1 mbar is chi-square with maxCount+1 degrees of
// freedom.
//
// Returns ErrSingularMomentCov when a cell is (numerically) empty, which
// makes the adjusted covariance singular; lower maxCount in that case.
func (d *Diagnostic) TestChiSquareProb(maxCount int) (*ChiSquareProbResult, error) {
	if maxCount < 1 {
		return nil, fmt.Errorf("%w: max count %d, need at least 1", errs.ErrInvalidCount, maxCount)
	}

	res := d.res
	y := res.Model().Y()
	n := res.NumObs()
	k := res.NumParams()
	counts := countRange(maxCount)
	j := len(counts)

	probPred, err := res.PredictProb(counts)
	if err != nil {
		return nil, err
	}
	probs := probPred.Probs()

	// Moment matrix: indicator minus predicted probability per cell.
	m := mat.NewDense(n, j, nil)
	for i := 0; i < n; i++ {
		for c := 0; c < j; c++ {
			ind := 0.0
			if int(y[i]) == counts[c] {
				ind = 1
			}
			m.Set(i, c, ind-probs.At(i, c))
		}
	}

	score := res.ScoreObs()

	// Cross products for the adjusted covariance
	// V = (M'M - M'S (S'S)^-1 S'M) / n.
	var smm, sms mat.Dense
	smm.Mul(m.T(), m)
	sms.Mul(m.T(), score)

	sss := mat.NewSymDense(k, nil)
	var sssDense mat.Dense
	sssDense.Mul(score.T(), score)
	for a := 0; a < k; a++ {
		for b := a; b < k; b++ {
			sss.SetSym(a, b, (sssDense.At(a, b)+sssDense.At(b, a))/2)
		}
	}

	var cholS mat.Cholesky
	if ok := cholS.Factorize(sss); !ok {
		return nil, fmt.Errorf("%w: score outer product is not positive definite", errs.ErrSingularMomentCov)
	}
	var solved mat.Dense // (S'S)^-1 S'M, k x j
	if err := cholS.SolveTo(&solved, sms.T()); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrSingularMomentCov, err)
	}

	var adj mat.Dense // M'S (S'S)^-1 S'M
	adj.Mul(&sms, &solved)

	v := mat.NewSymDense(j, nil)
	for a := 0; a < j; a++ {
		for b := a; b < j; b++ {
			va := smm.At(a, b) - adj.At(a, b)
			vb := smm.At(b, a) - adj.At(b, a)
			v.SetSym(a, b, (va+vb)/2/float64(n))
		}
	}

	// Average moment per cell.
	mbar := mat.NewVecDense(j, nil)
	for c := 0; c < j; c++ {
		sum := 0.0
		for i := 0; i < n; i++ {
			sum += m.At(i, c)
		}
		mbar.SetVec(c, sum/float64(n))
	}

	var cholV mat.Cholesky
	if ok := cholV.Factorize(v); !ok {
		return nil, fmt.Errorf("%w: adjusted moment covariance is not positive definite", errs.ErrSingularMomentCov)
	}
	vinvM := mat.NewVecDense(j, nil)
	if err := cholV.SolveVecTo(vinvM, mbar); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrSingularMomentCov, err)
	}

	stat := float64(n) * mat.Dot(mbar, vinvM)

	meanDiff := make([]float64, j)
	for c := 0; c < j; c++ {
		meanDiff[c] = mbar.AtVec(c)
	}

	return &ChiSquareProbResult{
		Statistic: stat,
		PValue:    distuv.ChiSquared{K: float64(j)}.Survival(stat),
		DF:        j,
		Counts:    counts,
		MeanDiff:  meanDiff,
	}, nil
}
