package apeval

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Curve is a precision/recall curve. The last point is the artificial
// (precision 1, recall 0) terminator.
type Curve struct {
	Precision  []float64
	Recall     []float64
	Thresholds []float64
}

// AveragePrecision integrates the precision/recall curve of the scored rows.
// hardFN counts ground truth that never matched anything and therefore has
// no row.
func AveragePrecision(yTrue, yScore []float64, hardFN int) (float64, Curve) {
	n := len(yScore)
	if n == 0 {
		return 0, Curve{}
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return yScore[order[a]] < yScore[order[b]] })

	scores := make([]float64, n)
	trues := make([]float64, n)
	for i, j := range order {
		scores[i] = yScore[j]
		trues[i] = yTrue[j]
	}
	cumsum := floats.CumSum(make([]float64, n), trues)
	total := cumsum[n-1]

	var first []int
	for i := range scores {
		if i == 0 || scores[i] != scores[i-1] {
			first = append(first, i)
		}
	}

	u := len(first)
	precision := make([]float64, u+1)
	recall := make([]float64, u+1)
	thresholds := make([]float64, u)
	for k, idx := range first {
		var below float64
		if idx > 0 {
			below = cumsum[idx-1]
		}
		tp := total - below
		fp := float64(n-idx) - tp
		fn := below + float64(hardFN)
		precision[k] = tp / (tp + fp)
		if tp+fn > 0 {
			recall[k] = tp / (tp + fn)
		}
		thresholds[k] = scores[idx]
	}
	precision[u] = 1
	recall[u] = 0

	// Centred differences over [r0, r0..rU, 0].
	padded := make([]float64, 0, u+3)
	padded = append(padded, recall[0])
	padded = append(padded, recall...)
	padded = append(padded, 0)
	widths := make([]float64, u+1)
	for i := range widths {
		widths[i] = 0.5 * (padded[i] - padded[i+2])
	}

	return floats.Dot(precision, widths), Curve{Precision: precision, Recall: recall, Thresholds: thresholds}
}

// ClassAP evaluates a merged contribution, applying the empty-input rules:
// no qualifying ground truth is NaN, ground truth without predictions is 0.
func ClassAP(c Contribution) (float64, Curve) {
	switch {
	case !c.HasGT:
		return math.NaN(), Curve{}
	case !c.HasPred:
		return 0, Curve{}
	default:
		return AveragePrecision(c.YTrue, c.YScore, c.HardFalseNegatives)
	}
}
