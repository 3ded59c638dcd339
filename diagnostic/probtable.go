package diagnostic

import (
	"fmt"

	"github.com/quantfold/countfit/errs"
	"github.com/quantfold/countfit/poisson"
	"github.com/quantfold/countfit/report"
)

// ProbTableResult compares observed count frequencies with the average
// predicted probabilities, cell by cell. It is the table form of the
// observed-versus-predicted bar plot a notebook would draw.
type ProbTableResult struct {
	// Counts lists the cells 0..maxCount; the tail aggregates everything above.
	Counts []int
	// Observed holds the relative frequency of each count in the sample.
	Observed []float64
	// Predicted holds the sample-average predicted probability per count.
	Predicted []float64
	// TailObserved is the relative frequency of counts above maxCount.
	TailObserved float64
	// TailPredicted is the average predicted probability above maxCount.
	TailPredicted float64
}

// Table renders the comparison with a trailing tail row.
func (r *ProbTableResult) Table() string {
	table := report.NewTable("count", "observed", "predicted", "diff")
	for i, c := range r.Counts {
		table.AddRow(report.Int(c), report.Float(r.Observed[i]), report.Float(r.Predicted[i]),
			report.Float(r.Observed[i]-r.Predicted[i]))
	}
	table.AddRow(fmt.Sprintf(">%d", r.Counts[len(r.Counts)-1]),
		report.Float(r.TailObserved), report.Float(r.TailPredicted),
		report.Float(r.TailObserved-r.TailPredicted))

	return table.String()
}

// String renders a section header followed by Table.
func (r *ProbTableResult) String() string {
	return report.Section("Observed vs predicted count probabilities") + r.Table()
}

// ProbTable tabulates observed frequencies against average predicted
// probabilities for the counts 0..maxCount, with one aggregated tail row.
// It is descriptive; TestChiSquareProb is the formal version.
func (d *Diagnostic) ProbTable(maxCount int) (*ProbTableResult, error) {
	if maxCount < 0 {
		return nil, fmt.Errorf("%w: max count %d", errs.ErrInvalidCount, maxCount)
	}

	res := d.res
	y := res.Model().Y()
	n := float64(res.NumObs())
	counts := countRange(maxCount)

	probPred, err := res.PredictProb(counts, poisson.Average())
	if err != nil {
		return nil, err
	}

	observed := make([]float64, len(counts))
	tailObs := 0.0
	for _, v := range y {
		c := int(v)
		if c <= maxCount {
			observed[c]++
		} else {
			tailObs++
		}
	}
	for i := range observed {
		observed[i] /= n
	}
	tailObs /= n

	predicted := probPred.Averaged()
	tailPred := 1.0
	for _, p := range predicted {
		tailPred -= p
	}
	if tailPred < 0 {
		tailPred = 0
	}

	return &ProbTableResult{
		Counts:        counts,
		Observed:      observed,
		Predicted:     predicted,
		TailObserved:  tailObs,
		TailPredicted: tailPred,
	}, nil
}
