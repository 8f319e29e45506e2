// Package confusion accumulates ground-truth vs predicted label counts and
// derives per-class IoU and recall from them.
package confusion

import (
	"math"

	"github.com/banshee-data/scenebench/internal/faults"
	"github.com/banshee-data/scenebench/internal/labels"
)

// Matrix is a square count matrix indexed [gt][pred] by raw label id. Its
// side is MaxID+2 so the unknown sentinel MaxID+1 has a column.
type Matrix struct {
	reg   *labels.Registry
	size  int
	cells []int64
	total int64
}

// New returns an empty matrix for reg.
func New(reg *labels.Registry) *Matrix {
	size := reg.MaxID() + 2
	return &Matrix{reg: reg, size: size, cells: make([]int64, size*size)}
}

// Registry returns the label set the matrix was built for.
func (m *Matrix) Registry() *labels.Registry { return m.reg }

// Size is the matrix side length.
func (m *Matrix) Size() int { return m.size }

// Accumulate adds one scene's aligned label arrays. Ground-truth ids outside
// the registry are skipped; predicted ids outside it count as unknown. It
// returns the number of positions scored.
func (m *Matrix) Accumulate(pred, gt []int64) (int64, error) {
	if len(pred) != len(gt) {
		return 0, faults.User("number of predicted values does not match number of vertices (%d != %d)", len(pred), len(gt))
	}
	var scored int64
	for i, g := range gt {
		if !m.valid(g) {
			continue
		}
		m.add(int(g), m.column(pred[i]))
		scored++
	}
	return scored, nil
}

// AddPair records a single observation, as used for scene types.
func (m *Matrix) AddPair(gt, pred int64) bool {
	if !m.valid(gt) {
		return false
	}
	m.add(int(gt), m.column(pred))
	return true
}

func (m *Matrix) valid(id int64) bool {
	return id >= 0 && id <= int64(m.reg.MaxID()) && m.reg.Valid(int(id))
}

func (m *Matrix) column(pred int64) int {
	if m.valid(pred) {
		return int(pred)
	}
	return m.reg.UnknownID()
}

func (m *Matrix) add(gt, pred int) {
	m.cells[gt*m.size+pred]++
	m.total++
}

// At returns the count of ground truth gt predicted as pred.
func (m *Matrix) At(gt, pred int) int64 {
	if gt < 0 || pred < 0 || gt >= m.size || pred >= m.size {
		return 0
	}
	return m.cells[gt*m.size+pred]
}

// Total is the number of observations recorded.
func (m *Matrix) Total() int64 { return m.total }

// CheckTotal reports an invariant fault when the recorded count diverges
// from the number of positions the caller scored.
func (m *Matrix) CheckTotal(expected int64) error {
	var sum int64
	for _, c := range m.cells {
		sum += c
	}
	if sum != expected || m.total != expected {
		return faults.Invariant("confusion matrix total %d does not match scored positions %d", sum, expected)
	}
	return nil
}

// Merge adds other into m. Both must share the same registry size.
func (m *Matrix) Merge(other *Matrix) error {
	if other.size != m.size {
		return faults.Invariant("cannot merge %dx%d matrix into %dx%d", other.size, other.size, m.size, m.size)
	}
	for i, c := range other.cells {
		m.cells[i] += c
	}
	m.total += other.total
	return nil
}

// IoU is tp / (tp + fp + fn) for label id. The false positives only count
// predictions of other valid labels. NaN when the denominator is zero or
// the label is not in the registry.
func (m *Matrix) IoU(id int) (iou float64, tp, denom int64) {
	if !m.reg.Valid(id) {
		return math.NaN(), 0, 0
	}
	tp = m.At(id, id)
	var rowSum, fp int64
	for p := 0; p < m.size; p++ {
		rowSum += m.At(id, p)
	}
	for _, other := range m.reg.IDs() {
		if other != id {
			fp += m.At(other, id)
		}
	}
	denom = tp + (rowSum - tp) + fp
	if denom == 0 {
		return math.NaN(), tp, 0
	}
	return float64(tp) / float64(denom), tp, denom
}

// Recall is tp / (tp + fn) for label id, the per-class accuracy.
func (m *Matrix) Recall(id int) (recall float64, tp, denom int64) {
	if !m.reg.Valid(id) {
		return math.NaN(), 0, 0
	}
	tp = m.At(id, id)
	for p := 0; p < m.size; p++ {
		denom += m.At(id, p)
	}
	if denom == 0 {
		return math.NaN(), tp, 0
	}
	return float64(tp) / float64(denom), tp, denom
}

// ClassScore is one class's IoU or recall result.
type ClassScore struct {
	Label string  `json:"label"`
	ID    int     `json:"id"`
	Value float64 `json:"value"`
	TP    int64   `json:"tp"`
	Denom int64   `json:"denominator"`
}

// IoUs returns IoU for every class in registry order.
func (m *Matrix) IoUs() []ClassScore {
	return m.scores(m.IoU)
}

// Recalls returns recall for every class in registry order.
func (m *Matrix) Recalls() []ClassScore {
	return m.scores(m.Recall)
}

func (m *Matrix) scores(f func(int) (float64, int64, int64)) []ClassScore {
	names := m.reg.Labels()
	out := make([]ClassScore, len(names))
	for i, id := range m.reg.IDs() {
		v, tp, d := f(id)
		out[i] = ClassScore{Label: names[i], ID: id, Value: v, TP: tp, Denom: d}
	}
	return out
}

// Mean averages the values, ignoring NaN. All-NaN is NaN.
func Mean(scores []ClassScore) float64 {
	var sum float64
	var n int
	for _, s := range scores {
		if math.IsNaN(s.Value) {
			continue
		}
		sum += s.Value
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// MeanIoU is the NaN-ignoring mean of IoUs.
func (m *Matrix) MeanIoU() float64 { return Mean(m.IoUs()) }
